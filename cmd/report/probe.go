package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/google/subcommands"

	"dataendpoint/internal/sparql"
)

type probeCmd struct {
	out io.Writer

	timeoutSec  int
	concurrency int
}

func (*probeCmd) Name() string     { return "probe" }
func (*probeCmd) Synopsis() string { return "classify the given endpoints without writing a report" }
func (*probeCmd) Usage() string {
	return `probe [--timeout <sec>] <url>...:
  Prints one "<url>	<status>" line per endpoint.
`
}

func (c *probeCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.timeoutSec, "timeout", int(sparql.DefaultTimeout/time.Second), "per-endpoint timeout in seconds")
	f.IntVar(&c.concurrency, "concurrency", sparql.DefaultConcurrency, "endpoints probed at once")
}

func (c *probeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	p := sparql.NewProber(
		sparql.WithTimeout(time.Duration(c.timeoutSec)*time.Second),
		sparql.WithConcurrency(c.concurrency),
	)
	for _, item := range p.ProbeAll(ctx, f.Args()) {
		fmt.Fprintf(c.out, "%s\t%s\n", item.Endpoint, item.Status)
	}
	return subcommands.ExitSuccess
}
