// Package redis implements store.Store on Redis using go-redis v9.
// Suitable for fleets that already run Redis and want low-latency passes.
//
// Every ledger node is a Hash. Sorted Sets index them: one by creation time
// for listing, one of live unleased nodes by last activity, which is the
// least-recently-active order passes claim in, and one of leased nodes by
// lease expiry. Finding a node therefore never walks the leased population;
// stale leases move back to the free index as they are found. A Set per
// lease owner makes release proportional to what the pass holds.
//
// Claiming, release and deletion run as Lua scripts, so each is one atomic
// step on the server. The scripts reach node hashes by ID, so every key
// shares the hash tag of the store prefix ("{ledgerwork}:" by default) and
// lands in one Redis Cluster slot.
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := redisstore.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis
