// Package main provides the entry point for the RISC-V address-register
// dependency tracer, driven against a synthetic instruction trace instead
// of a live emulator host.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/tbtrace/addrtrace"
	"github.com/sarchlab/tbtrace/internal/analog"
	"github.com/sarchlab/tbtrace/internal/synthost"
)

var maxHistory = flag.Int("history", 0, "cap on retained history entries (0 = unbounded)")

func main() {
	flag.Parse()
	log := analog.New()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: addrtrace [options] <trace-file>\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
	defer f.Close()

	log.Logf(analog.SeverityInfo, "tracing %s, history cap=%d", flag.Arg(0), *maxHistory)

	plugin := addrtrace.NewPlugin(*maxHistory, os.Stderr)
	plugin.SetLogger(log)
	if err := synthost.Run(plugin, f, 0); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
