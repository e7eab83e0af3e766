package splittag

import "sync"

// InsnRecord is interned per effective address and accumulates the six
// miss/invalidation counters. It is created once at first translation and
// re-used across re-translations of the same address.
type InsnRecord struct {
	Addr   uint64
	Disas  string
	Symbol string

	l1DMisses uint64
	l1IMisses uint64
	l1DInvals uint64
	l1IInvals uint64
	l2Misses  uint64
	l2Invals  uint64
}

func (r *InsnRecord) addL1DMiss(inval bool) {
	atomicAdd(&r.l1DMisses, 1)
	if inval {
		atomicAdd(&r.l1DInvals, 1)
	}
}

func (r *InsnRecord) addL1IMiss(inval bool) {
	atomicAdd(&r.l1IMisses, 1)
	if inval {
		atomicAdd(&r.l1IInvals, 1)
	}
}

func (r *InsnRecord) addL2Miss(inval bool) {
	atomicAdd(&r.l2Misses, 1)
	if inval {
		atomicAdd(&r.l2Invals, 1)
	}
}

// Registry interns InsnRecords by effective address. It is mutated under
// its mutex only at translation time; execution callbacks mutate the
// records' own counters with atomics instead of this lock.
type Registry struct {
	mu      sync.Mutex
	records map[uint64]*InsnRecord
}

// NewRegistry creates an empty instruction registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[uint64]*InsnRecord)}
}

// Intern returns the InsnRecord for addr, creating it from disas/symbol on
// first sight and returning the existing one on every later re-translation.
func (reg *Registry) Intern(addr uint64, disas string, symbol string) *InsnRecord {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if rec, ok := reg.records[addr]; ok {
		return rec
	}

	rec := &InsnRecord{Addr: addr, Disas: disas, Symbol: symbol}
	reg.records[addr] = rec
	return rec
}

// Records returns a snapshot slice of every interned InsnRecord.
func (reg *Registry) Records() []*InsnRecord {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	out := make([]*InsnRecord, 0, len(reg.records))
	for _, rec := range reg.records {
		out = append(out, rec)
	}
	return out
}
