package addrtrace

import (
	"fmt"
	"io"
	"sync"

	"github.com/sarchlab/tbtrace/host"
	"github.com/sarchlab/tbtrace/internal/analog"
)

// Plugin implements host.Plugin: at every triggering instruction (one whose
// address comes from rs1) it emits the instruction, walks its rs1 producer
// chain backward through that vCPU's History, and writes everything to out.
//
// Plugin assumes a single emulated CPU, per History's own concurrency
// contract; a caller driving multiple vCPUs must run one Plugin (and one
// History) per vCPU.
type Plugin struct {
	history *History
	out     io.Writer
	log     analog.Logger

	mu sync.Mutex
}

// NewPlugin returns a Plugin tracing against a fresh History capped at
// maxHistory entries (0 for unbounded), writing its trace lines to out.
func NewPlugin(maxHistory int, out io.Writer) *Plugin {
	return &Plugin{
		history: NewHistory(maxHistory),
		out:     out,
	}
}

// History exposes the plugin's backing history, mainly for tests and for
// History.Dump debugging.
func (p *Plugin) History() *History { return p.history }

// SetLogger routes unrecognized-mnemonic diagnostics to l. Without one,
// unmatched instructions are skipped silently.
func (p *Plugin) SetLogger(l analog.Logger) { p.log = l }

// OnTranslate implements host.Plugin. It decodes every instruction in tb
// and registers an execution callback that appends it to history and, when
// it is a triggering instruction, runs the backward walk.
func (p *Plugin) OnTranslate(tb host.TranslationBlock, cb host.Callbacks) {
	for i := 0; i < tb.NumInsns(); i++ {
		insn := tb.Insn(i)
		decoded := Decode(insn.Disas(), insn.Vaddr())
		if !decoded.Matched && p.log != nil {
			p.log.Logf(analog.SeverityWarning, "unrecognized mnemonic, skipping: %s", insn.Disas())
		}

		cb.RegisterInsnExec(insn, func(vcpuIndex int) {
			p.onExec(decoded)
		})
	}
}

func (p *Plugin) onExec(decoded InsnDecode) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !decoded.Matched {
		p.history.Append(decoded)
		return
	}

	triggering := decoded.AddrSource == AddrSourceRs1
	if !triggering {
		p.history.Append(decoded)
		return
	}

	p.history.Trace(decoded, p.emit)
	fmt.Fprintln(p.out, Separator)

	p.history.Append(decoded)
}

func (p *Plugin) emit(d InsnDecode) {
	fmt.Fprintf(p.out, "0x%08x %s\n", d.Vaddr, d.Disas)
}

// OnExit implements host.Plugin. Nothing needs flushing: every trace line
// is written as it is produced.
func (p *Plugin) OnExit() {}
