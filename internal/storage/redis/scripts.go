package redis

// upsertVoucherScript writes the voucher hash and keeps the code index,
// owner set and active-status set in step with it atomically.
//
// KEYS[1] = voucher hash key
// KEYS[2] = code index key
// KEYS[3] = owner set key
// KEYS[4] = active vouchers set key
// ARGV[1..n] = alternating hash field/value pairs, then the voucher id
// and a "1"/"0" active flag as the last two arguments.
const upsertVoucherScript = `
local id = ARGV[#ARGV - 1]
local active = ARGV[#ARGV]

for i = 1, #ARGV - 2, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
end

redis.call('SET', KEYS[2], id)
redis.call('SADD', KEYS[3], id)

if active == '1' then
  redis.call('SADD', KEYS[4], id)
else
  redis.call('SREM', KEYS[4], id)
end

return 1
`
