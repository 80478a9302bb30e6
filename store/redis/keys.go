package redis

import "strings"

// Redis key naming conventions for ledgerwork data.
// All keys start with the store prefix wrapped in a hash tag
// ("{ledgerwork}:" by default), so every key of one store maps to the same
// Redis Cluster slot and the Lua scripts may touch node hashes they reach
// by ID.

const defaultKeyPrefix = "ledgerwork:"

// eligibleScanLimit caps the work one FindEligible script does, both when
// returning stale leases to the free index and when skipping nodes leased
// under a later clock.
const eligibleScanLimit = 100

// hashTagged wraps prefix in a hash tag unless it already carries one.
func hashTagged(prefix string) string {
	if open := strings.IndexByte(prefix, '{'); open >= 0 {
		if end := strings.IndexByte(prefix[open:], '}'); end > 1 {
			return prefix
		}
	}
	tag := strings.TrimSuffix(prefix, ":")
	if tag == "" {
		tag = strings.TrimSuffix(defaultKeyPrefix, ":")
	}
	return "{" + tag + "}:"
}

// nodePrefix is prepended to a node ID to form its Hash key. The Lua
// scripts receive it so they can reach node hashes by ID.
func (s *Store) nodePrefix() string { return s.prefix + "node:" }

// nodeKey returns the key for a node entity: {ledgerwork}:node:{id}
func (s *Store) nodeKey(id string) string { return s.nodePrefix() + id }

// nodeIDsKey is the Sorted Set of all node IDs scored by creation time.
func (s *Store) nodeIDsKey() string { return s.prefix + "node_ids" }

// freeKey is the Sorted Set of live nodes without a live lease, scored by
// last activity. Its head is the next node to claim.
func (s *Store) freeKey() string { return s.prefix + "node_free" }

// leasedKey is the Sorted Set of live leased nodes scored by lease expiry.
func (s *Store) leasedKey() string { return s.prefix + "node_leased" }

// ownerPrefix is prepended to a pass ID to form its lease Set key.
func (s *Store) ownerPrefix() string { return s.prefix + "lease_owner:" }

// ownerKey returns the Set of node IDs leased by a pass:
// {ledgerwork}:lease_owner:{passID}
func (s *Store) ownerKey(id string) string { return s.ownerPrefix() + id }
