// Package synthost is a minimal host.Plugin driver for testing and for the
// cmd/ entry points in this repository: it reads a text trace instead of
// attaching to a real emulator, so the cores can run end to end without
// one. Real installs are expected to wire the same host.Plugin against an
// actual emulator's callback registration API; this package exists only
// because no such emulator is available here.
package synthost

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/tbtrace/host"
)

// Line is one parsed trace record: an instruction, optionally paired with
// the memory access it performs.
type Line struct {
	Vaddr   uint64
	Disas   string
	Symbol  string
	HasMem  bool
	MemAddr uint64
	MemIsIO bool
	HasOp   bool
	Opcode  uint32
}

// ParseLine parses one trace line of the form:
//
//	<vaddr_hex> <disassembly> [; mem=<addr_hex>[,io]] [; sym=<name>] [; op=<hex>]
//
// Fields after the disassembly are optional and separated by ';'. The op=
// annotation carries the raw 32-bit encoding, which real hosts expose from
// the translation buffer; traces only need it on marker instructions.
func ParseLine(raw string) (Line, error) {
	parts := strings.SplitN(raw, ";", 4)
	head := strings.TrimSpace(parts[0])

	sp := strings.IndexByte(head, ' ')
	if sp < 0 {
		return Line{}, fmt.Errorf("trace line missing disassembly: %q", raw)
	}

	vaddr, err := strconv.ParseUint(strings.TrimPrefix(head[:sp], "0x"), 16, 64)
	if err != nil {
		return Line{}, fmt.Errorf("trace line has invalid vaddr: %q", raw)
	}

	line := Line{Vaddr: vaddr, Disas: strings.TrimSpace(head[sp+1:])}

	for _, extra := range parts[1:] {
		extra = strings.TrimSpace(extra)
		switch {
		case strings.HasPrefix(extra, "mem="):
			memSpec := strings.TrimPrefix(extra, "mem=")
			addrPart, io := memSpec, false
			if idx := strings.IndexByte(memSpec, ','); idx >= 0 {
				addrPart = memSpec[:idx]
				io = strings.TrimSpace(memSpec[idx+1:]) == "io"
			}
			addr, err := strconv.ParseUint(strings.TrimPrefix(addrPart, "0x"), 16, 64)
			if err != nil {
				return Line{}, fmt.Errorf("trace line has invalid mem address: %q", raw)
			}
			line.HasMem, line.MemAddr, line.MemIsIO = true, addr, io
		case strings.HasPrefix(extra, "sym="):
			line.Symbol = strings.TrimPrefix(extra, "sym=")
		case strings.HasPrefix(extra, "op="):
			op, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(extra, "op="), "0x"), 16, 32)
			if err != nil {
				return Line{}, fmt.Errorf("trace line has invalid opcode: %q", raw)
			}
			line.HasOp, line.Opcode = true, uint32(op)
		}
	}

	return line, nil
}

// insn implements host.Instruction for one synthetic trace line.
type insn struct{ l Line }

func (i insn) Disas() string              { return i.l.Disas }
func (i insn) Vaddr() uint64              { return i.l.Vaddr }
func (i insn) OpcodeWord() (uint32, bool) { return i.l.Opcode, i.l.HasOp }
func (i insn) HostAddr() (uint64, bool)   { return 0, false }
func (i insn) Symbol() (string, bool)     { return i.l.Symbol, i.l.Symbol != "" }

// block implements host.TranslationBlock for a single instruction: each
// trace line is its own one-instruction block, since the synthetic trace
// has no notion of basic-block boundaries.
type block struct{ i insn }

func (b block) NumInsns() int               { return 1 }
func (b block) Insn(i int) host.Instruction { return b.i }

// memAccess implements host.MemAccess for one trace line's optional memory
// reference.
type memAccess struct{ l Line }

func (m memAccess) Vaddr() uint64 { return m.l.MemAddr }
func (m memAccess) HWAddr() (uint64, bool, bool) {
	return m.l.MemAddr, m.l.MemIsIO, true
}

// callbacks records the functions a plugin registers during OnTranslate so
// Run can invoke them immediately afterward.
type callbacks struct {
	insnExecs []host.InsnExecFunc
	memFuncs  []host.MemAccessFunc
}

func (c *callbacks) RegisterInsnExec(_ host.Instruction, fn host.InsnExecFunc) {
	c.insnExecs = append(c.insnExecs, fn)
}

func (c *callbacks) RegisterMemAccess(_ host.Instruction, fn host.MemAccessFunc) {
	c.memFuncs = append(c.memFuncs, fn)
}

// Run drives plugin against every line read from r, as vcpuIndex. Each line
// is translated and then immediately executed, since the synthetic trace
// carries no separate translation phase; plugin.OnExit runs once at EOF.
func Run(plugin host.Plugin, r io.Reader, vcpuIndex int) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		l, err := ParseLine(raw)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}

		b := block{i: insn{l: l}}
		cb := &callbacks{}
		plugin.OnTranslate(b, cb)

		for _, fn := range cb.insnExecs {
			fn(vcpuIndex)
		}
		if l.HasMem {
			access := memAccess{l: l}
			for _, fn := range cb.memFuncs {
				fn(vcpuIndex, access)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	plugin.OnExit()
	return nil
}
