package splittag

import "sync/atomic"

// atomicAdd increments *addr by delta without requiring a lock: per-record
// counters are hit concurrently from every vCPU's execution callback.
func atomicAdd(addr *uint64, delta uint64) {
	atomic.AddUint64(addr, delta)
}

func atomicLoad(addr *uint64) uint64 {
	return atomic.LoadUint64(addr)
}
