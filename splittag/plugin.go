package splittag

import (
	"io"

	"github.com/sarchlab/tbtrace/host"
)

// Plugin wires an Engine up to a host.Plugin, implementing the
// translation-time visitor and exit callback the host contract requires.
type Plugin struct {
	engine *Engine
	out    io.Writer
}

// NewPlugin wraps engine as a host.Plugin writing its final report to out.
func NewPlugin(engine *Engine, out io.Writer) *Plugin {
	return &Plugin{engine: engine, out: out}
}

// OnTranslate implements host.Plugin. It interns an InsnRecord per
// effective address and registers the engine's execution and memory-access
// callbacks for every instruction in the block, diverting magic-opcode
// instructions to the instrumentation gate instead.
func (p *Plugin) OnTranslate(tb host.TranslationBlock, cb host.Callbacks) {
	for i := 0; i < tb.NumInsns(); i++ {
		insn := tb.Insn(i)

		if p.engine.cfg.Magic {
			if opcode, ok := insn.OpcodeWord(); ok {
				switch opcode {
				case MagicOpcodeStart:
					cb.RegisterInsnExec(insn, func(vcpu int) { p.engine.StartInstrumentation(vcpu) })
					continue
				case MagicOpcodeStop:
					cb.RegisterInsnExec(insn, func(vcpu int) { p.engine.StopInstrumentation(vcpu, p.out) })
					continue
				}
			}
		}

		addr := EffectiveAddr(p.engine.cfg.SysMode, insn)
		symbol, _ := insn.Symbol()
		rec := p.engine.registry.Intern(addr, insn.Disas(), symbol)

		cb.RegisterMemAccess(insn, func(vcpu int, access host.MemAccess) {
			p.engine.OnMemAccess(vcpu, access, rec)
		})
		cb.RegisterInsnExec(insn, func(vcpu int) {
			p.engine.OnInsnExec(vcpu, addr, rec)
		})
	}
}

// OnExit implements host.Plugin: it renders the final stats table (without
// resetting) followed by the top-N worst-offender report.
func (p *Plugin) OnExit() {
	p.engine.Dump(p.out, false)
	p.engine.TopN(p.out)
}
