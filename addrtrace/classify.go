// Package addrtrace implements a RISC-V address-register dependency tracer:
// on every load/store whose address comes from a register, it walks the
// recent instruction history backward to find what produced that register.
package addrtrace

import "strings"

// tokenize splits a disassembly line into runs of letters and digits;
// everything else (commas, parens, dots, whitespace, ':') is a separator and
// contributes no empty tokens. "4(sp)" yields two tokens, "4" and "sp", and
// a dotted mnemonic like "amoadd.w.aq" yields "amoadd", "w", "aq" — the
// suffix tokens are skipped during operand extraction.
func tokenize(s string) []string {
	isTokenRune := func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9')
	}
	return strings.FieldsFunc(s, func(r rune) bool { return !isTokenRune(r) })
}

// Shape is the syntactic operand pattern of a RISC-V mnemonic, used to pick
// register operands out of a tokenized disassembly line.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeRdRs1Rs2
	ShapeRdImm
	ShapeRdRs1Imm
	ShapeRs1Rs2Offset
	ShapeRdOffsetRs1
	ShapeRs2OffsetRs1
	ShapeAqrlRdRs1
	ShapeAqrlRdRs2Rs1
	ShapeRs1Rs2
	ShapeRdCsrRs1
	ShapeRdCsrZimm
	ShapeFrdOffsetRs1
	ShapeFrs2OffsetRs1
	ShapeFP
)

// AddrSource names which register (if any) an instruction's address-bearing
// memory operand comes from.
type AddrSource int

const (
	AddrSourceNone AddrSource = iota
	AddrSourceRs1
	AddrSourceRd
)

// mnemonicShape maps every mnemonic this tracer recognizes to its Shape.
// Size/ordering suffixes (.w, .d, .aq, .rl) arrive as separate tokens, so
// the keys are the bare mnemonics. Matched verbatim; the fp/none catch-all
// shapes are reached only through this table, never as a fallback default.
var mnemonicShape = buildMnemonicShapeTable()

func buildMnemonicShapeTable() map[string]Shape {
	t := map[string]Shape{}

	add := func(shape Shape, names ...string) {
		for _, n := range names {
			t[n] = shape
		}
	}

	add(ShapeRdRs1Rs2,
		"add", "sub", "sll", "slt", "sltu", "xor", "srl", "sra", "or", "and",
		"addw", "subw", "sllw", "srlw", "sraw",
		"addd", "subd", "slld", "srld", "srad",
		"mul", "mulh", "mulhsu", "mulhu", "div", "divu", "rem", "remu",
		"mulw", "divw", "divuw", "remw", "remuw",
		"muld", "divd", "divud", "remd", "remud")

	add(ShapeRdImm, "lui", "auipc", "jal")

	add(ShapeRdRs1Imm,
		"jalr", "addi", "slti", "sltiu", "xori", "ori", "andi",
		"slli", "srli", "srai", "addiw", "slliw", "srliw", "sraiw",
		"addid", "sllid", "srlid", "sraid")

	add(ShapeRs1Rs2Offset, "beq", "bne", "blt", "bge", "bltu", "bgeu")

	add(ShapeRdOffsetRs1, "lb", "lh", "lw", "lbu", "lhu", "lwu", "ld", "ldu", "lq")

	add(ShapeRs2OffsetRs1, "sb", "sh", "sw", "sd", "sq")

	add(ShapeAqrlRdRs1, "lr")

	add(ShapeAqrlRdRs2Rs1,
		"sc", "amoswap", "amoadd", "amoxor", "amoor", "amoand",
		"amomin", "amomax", "amominu", "amomaxu")

	add(ShapeRs1Rs2, "sfence")

	add(ShapeRdCsrRs1, "csrrw", "csrrs", "csrrc")

	add(ShapeRdCsrZimm, "csrrwi", "csrrsi", "csrrci")

	add(ShapeFrdOffsetRs1, "flw", "fld", "flq")

	add(ShapeFrs2OffsetRs1, "fsw", "fsd", "fsq")

	// The comparison/conversion/move group reads integer registers, but never
	// in a way that can carry an address, so it is classified as skippable
	// alongside the pure float arithmetic.
	add(ShapeFP,
		"fmadd", "fmsub", "fnmsub", "fnmadd",
		"fadd", "fsub", "fmul", "fdiv", "fsqrt",
		"fsgnj", "fsgnjn", "fsgnjx", "fmin", "fmax",
		"fle", "flt", "feq", "fcvt", "fmv", "fclass")

	add(ShapeNone, "illegal", "fence", "ecall", "ebreak",
		"uret", "sret", "hret", "mret", "dret", "wfi")

	return t
}

// RegUnused is the sentinel register index used when a shape leaves an
// operand position undefined, or a token is not a recognized register name.
const RegUnused = -1

// InsnDecode is the classified form of one disassembled instruction,
// carrying the register operands a backward dependency walk needs.
type InsnDecode struct {
	Vaddr uint64
	Disas string

	Mnemonic     string
	Shape        Shape
	Rd, Rs1, Rs2 int
	AddrSource   AddrSource

	Matched bool
}

// Decode tokenizes disas and classifies it against mnemonicShape. An
// unmatched mnemonic yields an InsnDecode with Matched false and every
// register field at RegUnused; it is never partially populated from stale
// data.
//
// The mnemonic is looked up at whichever of the first two tokens resolves
// against mnemonicShape, rather than at a hardcoded position: some hosts'
// disassembly text leads with a raw-encoding token before the mnemonic,
// others hand back the mnemonic bare at tokens[0]. Every operand position is
// expressed relative to the resolved mnemonic index, so both conventions
// extract the same registers.
func Decode(disas string, vaddr uint64) InsnDecode {
	d := InsnDecode{
		Vaddr: vaddr,
		Disas: disas,
		Rd:    RegUnused,
		Rs1:   RegUnused,
		Rs2:   RegUnused,
	}

	tokens := tokenize(disas)
	if len(tokens) == 0 {
		return d
	}

	m, mnemonic, shape, ok := findMnemonic(tokens)
	if !ok {
		return d
	}

	d.Mnemonic = mnemonic
	d.Shape = shape
	d.Matched = true

	reg := func(i int) int {
		if i < 0 || i >= len(tokens) {
			return RegUnused
		}
		r, ok := abiRegister(tokens[i])
		if !ok {
			return RegUnused
		}
		return r
	}

	switch shape {
	case ShapeRdRs1Rs2:
		d.Rd, d.Rs1, d.Rs2 = reg(m+1), reg(m+2), reg(m+3)
	case ShapeRdImm:
		d.Rd = reg(m + 1)
		d.AddrSource = AddrSourceRd
	case ShapeRdRs1Imm:
		d.Rd, d.Rs1 = reg(m+1), reg(m+2)
		if strings.HasPrefix(mnemonic, "j") {
			d.AddrSource = AddrSourceRs1
		}
	case ShapeRs1Rs2Offset:
		d.Rs1, d.Rs2 = reg(m+1), reg(m+2)
	case ShapeRdOffsetRs1:
		d.Rd, d.Rs1 = reg(m+1), reg(m+3)
		d.AddrSource = AddrSourceRs1
	case ShapeRs2OffsetRs1:
		d.Rs2, d.Rs1 = reg(m+1), reg(m+3)
		d.AddrSource = AddrSourceRs1
	case ShapeAqrlRdRs1:
		k := advancePastSuffixTokens(tokens, m+1)
		d.Rs1 = reg(k + 1)
		d.Rs2 = reg(k)
		d.AddrSource = AddrSourceRs1
	case ShapeAqrlRdRs2Rs1:
		k := advancePastSuffixTokens(tokens, m+1)
		d.Rd = reg(k)
		d.Rs1 = reg(k + 2)
		d.Rs2 = reg(k + 1)
		d.AddrSource = AddrSourceRs1
	case ShapeRs1Rs2:
		// sfence's "vma" token sits between the mnemonic and the operands.
		d.Rs1, d.Rs2 = reg(m+2), reg(m+3)
		d.AddrSource = AddrSourceRs1
	case ShapeRdCsrRs1:
		d.Rd, d.Rs1 = reg(m+1), reg(m+3)
	case ShapeRdCsrZimm:
		d.Rd = reg(m + 2)
	case ShapeFrdOffsetRs1:
		d.Rs1 = reg(m + 3)
		d.AddrSource = AddrSourceRs1
	case ShapeFrs2OffsetRs1:
		d.Rs1 = reg(m + 2)
		d.AddrSource = AddrSourceRs1
	case ShapeFP, ShapeNone:
		// no register operands feed an address.
	}

	// An address-from-rs1 classification with no resolvable rs1 token (a
	// pseudo-instruction form shorter than the canonical spelling) cannot
	// seed a walk; demote it instead of leaving the invariant broken.
	if d.AddrSource == AddrSourceRs1 && d.Rs1 == RegUnused {
		d.AddrSource = AddrSourceNone
	}

	return d
}

// findMnemonic resolves the mnemonic token and its index: tokens[0] if it
// names a known mnemonic, else tokens[1] when a leading raw-encoding token
// is present ahead of it.
func findMnemonic(tokens []string) (idx int, mnemonic string, shape Shape, ok bool) {
	if shape, ok := mnemonicShape[tokens[0]]; ok {
		return 0, tokens[0], shape, true
	}
	if len(tokens) > 1 {
		if shape, ok := mnemonicShape[tokens[1]]; ok {
			return 1, tokens[1], shape, true
		}
	}
	return 0, "", ShapeNone, false
}

// advancePastSuffixTokens skips the size/aq/rl suffix tokens starting at i,
// stopping at the first token that parses as a recognized register name.
func advancePastSuffixTokens(tokens []string, i int) int {
	for i < len(tokens) {
		_, ok := abiRegister(tokens[i])
		if ok {
			return i
		}
		i++
	}
	return i
}
