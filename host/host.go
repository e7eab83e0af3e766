// Package host describes the contract that an external emulator host
// provides to the analysis cores in this repository. Neither core talks to
// a real emulator directly: they are written against these interfaces, and
// the emulator host is always the caller's responsibility to supply.
package host

// Instruction is a single decoded instruction inside a translation block, as
// reported by the host at translation time.
type Instruction interface {
	// Disas is the textual disassembly of the instruction.
	Disas() string
	// Vaddr is the instruction's virtual address.
	Vaddr() uint64
	// OpcodeWord returns the first four raw opcode bytes as a little-endian
	// word, and false if the host could not supply them.
	OpcodeWord() (uint32, bool)
	// HostAddr returns the host-address-mapped pointer for this instruction
	// (meaningful only in system-emulation mode), and false if unavailable.
	HostAddr() (uint64, bool)
	// Symbol returns the enclosing symbol name, if the host resolved one.
	Symbol() (string, bool)
}

// TranslationBlock is a sequence of instructions the host is about to
// execute for the first time (or is re-translating).
type TranslationBlock interface {
	NumInsns() int
	Insn(i int) Instruction
}

// MemAccess describes one memory access reported at execution time.
type MemAccess interface {
	// Vaddr is the virtual address accessed.
	Vaddr() uint64
	// HWAddr resolves the access to a hardware address. ok is false when the
	// host cannot resolve one. isIO is true when the resolved address maps
	// to an IO region, in which case callers must skip the access entirely.
	HWAddr() (addr uint64, isIO bool, ok bool)
}

// Info carries install-time facts about the emulated system.
type Info struct {
	SystemEmulation bool
	VCPUCount       int
}

// InsnExecFunc is invoked synchronously whenever the host executes the
// instruction it was registered against.
type InsnExecFunc func(vcpuIndex int)

// MemAccessFunc is invoked synchronously whenever the host performs a memory
// access tied to the instruction it was registered against.
type MemAccessFunc func(vcpuIndex int, access MemAccess)

// Callbacks is the subset of the host's registration API a core needs while
// visiting a translation block. The host passes one of these to the core's
// translation-time visitor.
type Callbacks interface {
	RegisterInsnExec(insn Instruction, fn InsnExecFunc)
	RegisterMemAccess(insn Instruction, fn MemAccessFunc)
}

// Plugin is what an analysis core exposes so a host driver can attach it to
// a running emulation.
type Plugin interface {
	// OnTranslate is called once per translation block, before any of its
	// instructions execute. The plugin registers the callbacks it needs via
	// cb and may intern per-instruction bookkeeping state.
	OnTranslate(tb TranslationBlock, cb Callbacks)
	// OnExit is called once, at host shutdown.
	OnExit()
}
