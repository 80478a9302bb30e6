package redis

import goredis "github.com/redis/go-redis/v9"

// Lease expiry and activity scores are Unix milliseconds. A missing or empty
// hash field reads as "no value" in every script.
//
// Live nodes sit in exactly one of two indexes: node_free (no live lease,
// scored by activity) or node_leased (scored by lease expiry). The hash
// fields stay the authority for eligibility; the indexes only keep lookups
// away from the leased population.

// createNodeScript inserts a node unless its hash exists.
//
// KEYS: node hash, node_ids, node_free, node_leased.
// ARGV: id, created score, activity score, live flag, owner set key or "",
// lease expiry score or "", then hash field/value pairs.
var createNodeScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 7))
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[1])
if ARGV[4] == '1' then
  if ARGV[6] ~= '' then
    redis.call('ZADD', KEYS[4], ARGV[6], ARGV[1])
  else
    redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
  end
end
if ARGV[5] ~= '' then
  redis.call('SADD', ARGV[5], ARGV[1])
end
return 1
`)

// findEligibleScript returns the least recently active claimable node, or
// nil. It first moves leases that are stale at now back to node_free under
// their last activity. A free node whose lease is still live at now (leased
// by a pass with a later clock) is parked in node_leased. Both steps handle
// at most ARGV[3] nodes per call.
//
// KEYS: node_free, node_leased.
// ARGV: now, node key prefix, scan limit.
var findEligibleScript = goredis.NewScript(`
local now = tonumber(ARGV[1])
local limit = tonumber(ARGV[3])
local stale = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', now, 'LIMIT', 0, limit)
for _, nid in ipairs(stale) do
  local act = redis.call('HGET', ARGV[2] .. nid, 'activity_ms')
  redis.call('ZREM', KEYS[2], nid)
  redis.call('ZADD', KEYS[1], tonumber(act) or 0, nid)
end
for _ = 1, limit do
  local head = redis.call('ZRANGE', KEYS[1], 0, 0)
  if #head == 0 then
    return false
  end
  local nid = head[1]
  local exp = redis.call('HGET', ARGV[2] .. nid, 'lease_expires_at')
  if (not exp) or exp == '' or tonumber(exp) <= now then
    return nid
  end
  redis.call('ZREM', KEYS[1], nid)
  redis.call('ZADD', KEYS[2], exp, nid)
end
return false
`)

// acquireScript leases a node if it exists, is live, and its lease is
// absent or stale. It returns 1 on success and 0 otherwise.
//
// KEYS: node hash, node_free, node_leased, owner set.
// ARGV: node id, owner id, expires, now, updated_at text, owner key prefix.
var acquireScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
local del = redis.call('HGET', KEYS[1], 'deleted_at')
if del and del ~= '' then
  return 0
end
local exp = redis.call('HGET', KEYS[1], 'lease_expires_at')
if exp and exp ~= '' and tonumber(exp) > tonumber(ARGV[4]) then
  return 0
end
local prev = redis.call('HGET', KEYS[1], 'lease_owner')
if prev and prev ~= '' then
  redis.call('SREM', ARGV[6] .. prev, ARGV[1])
end
redis.call('HSET', KEYS[1], 'lease_owner', ARGV[2], 'lease_expires_at', ARGV[3],
  'updated_at', ARGV[5], 'activity_ms', ARGV[4])
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
redis.call('SADD', KEYS[4], ARGV[1])
return 1
`)

// releaseScript clears every lease held by an owner and returns the count.
//
// KEYS: owner set, node_free, node_leased.
// ARGV: owner id, node key prefix, updated_at text, now.
var releaseScript = goredis.NewScript(`
local released = 0
for _, nid in ipairs(redis.call('SMEMBERS', KEYS[1])) do
  local key = ARGV[2] .. nid
  if redis.call('HGET', key, 'lease_owner') == ARGV[1] then
    redis.call('HSET', key, 'lease_owner', '', 'lease_expires_at', '',
      'updated_at', ARGV[3], 'activity_ms', ARGV[4])
    local del = redis.call('HGET', key, 'deleted_at')
    if (not del) or del == '' then
      redis.call('ZREM', KEYS[3], nid)
      redis.call('ZADD', KEYS[2], ARGV[4], nid)
    end
    released = released + 1
  end
end
redis.call('DEL', KEYS[1])
return released
`)

// deleteScript tombstones a node and drops it from both lease indexes.
// It returns -1 if the node is missing, 0 if already deleted, 1 otherwise.
//
// KEYS: node hash, node_free, node_leased.
// ARGV: node id, deleted_at text.
var deleteScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local del = redis.call('HGET', KEYS[1], 'deleted_at')
if del and del ~= '' then
  return 0
end
redis.call('HSET', KEYS[1], 'deleted_at', ARGV[2], 'updated_at', ARGV[2])
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('ZREM', KEYS[3], ARGV[1])
return 1
`)
