package addrtrace

// abiNames lists the canonical RISC-V ABI register names in index order,
// 0 through 31.
var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp",
	"t0", "t1", "t2",
	"s0", "s1",
	"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7",
	"s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11",
	"t3", "t4", "t5", "t6",
}

var nameToReg = buildNameToReg()

func buildNameToReg() map[string]int {
	m := make(map[string]int, len(abiNames))
	for i, n := range abiNames {
		m[n] = i
	}
	return m
}

// abiRegister resolves an ABI register name to its index 0..31. A name that
// is not a recognized register (an immediate, a symbol, punctuation) maps
// to (RegUnused, false).
func abiRegister(name string) (int, bool) {
	r, ok := nameToReg[name]
	if !ok {
		return RegUnused, false
	}
	return r, true
}
