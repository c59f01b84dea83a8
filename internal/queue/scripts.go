package queue

import "github.com/redis/go-redis/v9"

// KEYS: job hash, ready lane, seq. ARGV: id, data, lane.
var enqueueScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'data', ARGV[2], 'lane', ARGV[3])
local seq = redis.call('INCR', KEYS[3])
redis.call('ZADD', KEYS[2], seq, ARGV[1])
return 1
`)

// KEYS: ready lanes 1..3, delayed, active, seq. ARGV: now ms, job key prefix.
// Returns the leased job's data, or nil when every lane is empty.
var dequeueScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[4], '-inf', ARGV[1], 'LIMIT', 0, 100)
for _, id in ipairs(due) do
  redis.call('ZREM', KEYS[4], id)
  local l = redis.call('HGET', ARGV[2] .. id, 'lane')
  if l then
    local seq = redis.call('INCR', KEYS[6])
    redis.call('ZADD', KEYS[tonumber(l)], seq, id)
  end
end
for i = 1, 3 do
  while true do
    local head = redis.call('ZRANGE', KEYS[i], 0, 0)
    if #head == 0 then
      break
    end
    local id = head[1]
    redis.call('ZREM', KEYS[i], id)
    local data = redis.call('HGET', ARGV[2] .. id, 'data')
    if data then
      redis.call('ZADD', KEYS[5], ARGV[1], id)
      return data
    end
  end
end
return false
`)

// KEYS: job hash, active, delayed, ready lanes 1..3. ARGV: id.
// A lease requeued while its worker was still running leaves the id in a
// ready lane; settling drops it from every set.
var ackScript = redis.NewScript(`
for i = 2, 6 do
  redis.call('ZREM', KEYS[i], ARGV[1])
end
redis.call('DEL', KEYS[1])
return 1
`)

// KEYS: job hash, active, delayed. ARGV: id, data, ready-at ms.
var retryScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('HSET', KEYS[1], 'data', ARGV[2])
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
return 1
`)

// KEYS: job hash, dead, active, delayed, ready lanes 1..3.
// ARGV: id, data, dead-letter cap.
var failScript = redis.NewScript(`
for i = 3, 7 do
  redis.call('ZREM', KEYS[i], ARGV[1])
end
redis.call('DEL', KEYS[1])
redis.call('LPUSH', KEYS[2], ARGV[2])
redis.call('LTRIM', KEYS[2], 0, tonumber(ARGV[3]) - 1)
return 1
`)

// KEYS: active, seq, ready lanes 1..3. ARGV: cutoff ms, job key prefix.
var requeueScript = redis.NewScript(`
local stale = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 100)
for _, id in ipairs(stale) do
  redis.call('ZREM', KEYS[1], id)
  local l = redis.call('HGET', ARGV[2] .. id, 'lane')
  if l then
    local seq = redis.call('INCR', KEYS[2])
    redis.call('ZADD', KEYS[2 + tonumber(l)], seq, id)
  end
end
return #stale
`)
