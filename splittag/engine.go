package splittag

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/sarchlab/tbtrace/host"
)

// perCore bundles one vCPU's private L1-I, L1-D, and (if enabled) private
// L2.
type perCore struct {
	l1d, l1i, l2       *Cache
	l1dMu, l1iMu, l2Mu sync.Mutex
}

// Engine is one cache-analysis install: per-core caches, the shared
// instruction Registry, and the magic-opcode instrumentation gate.
type Engine struct {
	cfg      Config
	registry *Registry
	cores    []perCore

	magicFound atomic.Bool
}

// NewEngine constructs the per-core caches described by cfg. It returns a
// wrapped error if any cache's geometry is invalid: invalid geometry is
// always a fatal configuration error, never a silently-degraded cache.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Cores < 1 {
		cfg.Cores = 1
	}

	e := &Engine{
		cfg:      cfg,
		registry: NewRegistry(),
		cores:    make([]perCore, cfg.Cores),
	}
	e.magicFound.Store(!cfg.Magic)

	for i := range e.cores {
		policy, err := ParsePolicy(cfg.Policy)
		if err != nil {
			return nil, err
		}
		l1d, err := NewCache(cfg.L1D.BlockSize, cfg.L1D.Assoc, cfg.L1D.CacheSize, cfg.L1D.TagLSize, policy)
		if err != nil {
			return nil, wrapCacheErr("dcache", err)
		}

		policy, err = ParsePolicy(cfg.Policy)
		if err != nil {
			return nil, err
		}
		l1i, err := NewCache(cfg.L1I.BlockSize, cfg.L1I.Assoc, cfg.L1I.CacheSize, cfg.L1I.TagLSize, policy)
		if err != nil {
			return nil, wrapCacheErr("icache", err)
		}

		var l2 *Cache
		if cfg.UseL2 {
			policy, err = ParsePolicy(cfg.Policy)
			if err != nil {
				return nil, err
			}
			l2, err = NewCache(cfg.L2.BlockSize, cfg.L2.Assoc, cfg.L2.CacheSize, cfg.L2.TagLSize, policy)
			if err != nil {
				return nil, wrapCacheErr("L2 cache", err)
			}
		}

		e.cores[i] = perCore{l1d: l1d, l1i: l1i, l2: l2}
	}

	return e, nil
}

func wrapCacheErr(which string, err error) error {
	return &cacheConfigErr{which: which, cause: err}
}

type cacheConfigErr struct {
	which string
	cause error
}

func (e *cacheConfigErr) Error() string {
	return e.which + " cannot be constructed from given parameters: " + e.cause.Error()
}

func (e *cacheConfigErr) Unwrap() error { return e.cause }

// Registry exposes the interned instruction records, mainly for reporting.
func (e *Engine) Registry() *Registry { return e.registry }

func (e *Engine) coreFor(vcpuIndex int) *perCore {
	return &e.cores[vcpuIndex%len(e.cores)]
}

// gated reports whether instrumentation is currently suppressed by the
// magic-opcode gate.
func (e *Engine) gated() bool {
	return e.cfg.Magic && !e.magicFound.Load()
}

// OnInsnExec is the execution callback registered for every instruction at
// translation time. It drives the L1-I access and, on miss, the L2 access.
func (e *Engine) OnInsnExec(vcpuIndex int, addr uint64, rec *InsnRecord) {
	if e.gated() {
		return
	}

	core := e.coreFor(vcpuIndex)

	core.l1iMu.Lock()
	status := core.l1i.Access(addr)
	core.l1iMu.Unlock()

	if status.isMiss() {
		rec.addL1IMiss(status.isInval())
	}

	if !status.isMiss() || core.l2 == nil {
		return
	}

	core.l2Mu.Lock()
	l2Status := core.l2.Access(addr)
	core.l2Mu.Unlock()

	if l2Status.isMiss() {
		rec.addL2Miss(l2Status.isInval())
	}
}

// OnMemAccess is the memory-access callback registered for every
// memory-referencing instruction. access resolves to an effective
// hardware address when the host can supply one; IO-mapped accesses are
// skipped entirely.
func (e *Engine) OnMemAccess(vcpuIndex int, access host.MemAccess, rec *InsnRecord) {
	if e.gated() {
		return
	}

	effectiveAddr, isIO, ok := access.HWAddr()
	if isIO {
		return
	}
	if !ok {
		effectiveAddr = access.Vaddr()
	}

	core := e.coreFor(vcpuIndex)

	core.l1dMu.Lock()
	status := core.l1d.Access(effectiveAddr)
	core.l1dMu.Unlock()

	if status.isMiss() {
		rec.addL1DMiss(status.isInval())
	}

	if !status.isMiss() || core.l2 == nil {
		return
	}

	core.l2Mu.Lock()
	l2Status := core.l2.Access(effectiveAddr)
	core.l2Mu.Unlock()

	if l2Status.isMiss() {
		rec.addL2Miss(l2Status.isInval())
	}
}

// StartInstrumentation is the callback registered against the start magic
// opcode; it opens the instrumentation gate.
func (e *Engine) StartInstrumentation(vcpuIndex int) {
	e.magicFound.Store(true)
}

// StopInstrumentation is the callback registered against the stop magic
// opcode; it closes the gate and triggers a flush-and-reset dump.
func (e *Engine) StopInstrumentation(vcpuIndex int, w io.Writer) {
	e.magicFound.Store(false)
	e.Dump(w, true)
}

// EffectiveAddr computes the address a translation-time visitor should
// intern an instruction by: host address in system-emulation mode,
// virtual address otherwise.
func EffectiveAddr(sysMode bool, insn host.Instruction) uint64 {
	if sysMode {
		if hostAddr, ok := insn.HostAddr(); ok {
			return hostAddr
		}
	}
	return insn.Vaddr()
}
