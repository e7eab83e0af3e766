// Package main provides the entry point for the split-tag cache analysis
// core, driven against a synthetic instruction trace instead of a live
// emulator host.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sarchlab/tbtrace/host"
	"github.com/sarchlab/tbtrace/internal/analog"
	"github.com/sarchlab/tbtrace/internal/synthost"
	"github.com/sarchlab/tbtrace/splittag"
)

var (
	opts    = flag.String("opts", "", "comma-separated key=value options, e.g. dassoc=4,l2=on")
	cores   = flag.Int("cores", 0, "vCPU count reported to the host when opts doesn't set cores (0 = 1)")
	sysMode = flag.Bool("sysmode", false, "report system-emulation mode to the host")
)

func main() {
	flag.Parse()
	log := analog.New()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: splittagcache [options] <trace-file>\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	info := host.Info{SystemEmulation: *sysMode, VCPUCount: *cores}

	argv := splitOpts(*opts)
	cfg, err := splittag.ParseArgs(argv, info)
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}

	engine, err := splittag.NewEngine(cfg)
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}

	tracePath := flag.Arg(0)
	f, err := os.Open(tracePath)
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
	defer f.Close()

	log.Logf(analog.SeverityInfo, "installed split-tag cache with %d core(s), replace=%s, l2=%v", cfg.Cores, cfg.Policy, cfg.UseL2)

	plugin := splittag.NewPlugin(engine, os.Stdout)
	if err := synthost.Run(plugin, f, 0); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func splitOpts(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
