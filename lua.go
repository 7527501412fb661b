package rewind

const (
	luaSaveHistory = `
		-- Save a history document unless a newer one is already stored
		-- KEYS[1] = history key
		-- KEYS[2] = history sequence key
		-- ARGV[1] = history data (JSON)
		-- ARGV[2] = newest snapshot sequence (-1 for empty history)
		-- Returns: 1 on save, 0 when refused as stale

		local newSeq = tonumber(ARGV[2])
		local storedSeqStr = redis.call('GET', KEYS[2])

		if storedSeqStr then
			if newSeq < tonumber(storedSeqStr) then
				return 0
			end
		end

		redis.call('SET', KEYS[1], ARGV[1])
		redis.call('SET', KEYS[2], newSeq)
		return 1
		`

	luaConsumeArchive = `
		-- Atomically acknowledge and delete a stream entry
		-- KEYS[1] = stream key
		-- ARGV[1] = consumer group
		-- ARGV[2] = stream entry ID
		-- Returns: {ackCount, delCount}

		local acked = redis.call('XACK', KEYS[1], ARGV[1], ARGV[2])
		local deleted = redis.call('XDEL', KEYS[1], ARGV[2])
		return {acked, deleted}
		`
)
