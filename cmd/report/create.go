package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/subcommands"

	"dataendpoint/internal/app"
	"dataendpoint/internal/config"
	"dataendpoint/internal/logger"
)

type createCmd struct {
	out io.Writer

	sparqlEndpoints string
	outputDirectory string
	symlink         bool
	timeoutSec      int
	concurrency     int
}

func (*createCmd) Name() string     { return "create" }
func (*createCmd) Synopsis() string { return "probe every listed endpoint and write a dated report" }
func (*createCmd) Usage() string {
	return `create --sparql-endpoints <path|url> --output-directory <dir> [--symlink]:
  Reads endpoint URLs from the second column of a CSV file, sends each an ASK
  query and writes <dir>/<YYYY-MM-DD>-sparql-available.json. With --symlink,
  <dir>/sparql-available.json is pointed at the new file.
`
}

func (c *createCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.sparqlEndpoints, "sparql-endpoints", "", "CSV file or URL listing the SPARQL endpoints")
	f.StringVar(&c.outputDirectory, "output-directory", "", "directory the report is written to")
	f.BoolVar(&c.symlink, "symlink", false, "point sparql-available.json at the new report")
	f.IntVar(&c.timeoutSec, "timeout", 0, "per-endpoint timeout in seconds (default PROBE_TIMEOUT_SEC or 5)")
	f.IntVar(&c.concurrency, "concurrency", 0, "endpoints probed at once (default PROBE_CONCURRENCY or 8)")
}

func (c *createCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := logger.FromContext(ctx)
	if c.sparqlEndpoints == "" || c.outputDirectory == "" {
		fmt.Fprintln(f.Output(), "--sparql-endpoints and --output-directory are required")
		f.Usage()
		return subcommands.ExitUsageError
	}

	cfg := config.Load()
	cfg.Report.SparqlEndpoints = c.sparqlEndpoints
	cfg.Report.OutputDirectory = c.outputDirectory
	cfg.Report.Symlink = c.symlink
	if c.timeoutSec > 0 {
		cfg.Report.TimeoutSec = c.timeoutSec
	}
	if c.concurrency > 0 {
		cfg.Report.Concurrency = c.concurrency
	}
	if err := cfg.Validate(); err != nil {
		log.Error("configuration rejected", "error", err)
		return subcommands.ExitUsageError
	}

	a, err := app.New(ctx, cfg, nil, log)
	if err != nil {
		log.Error("setup failed", "error", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	run, err := a.Reports.Create(ctx, app.RunOptions(cfg.Report))
	if err != nil {
		log.Error("report failed", "error", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(c.out, "%s\t%d endpoints\t%d available\t%d invalid\t%d unavailable\n",
		filepath.Join(c.outputDirectory, run.FileName),
		run.Counts.Total, run.Counts.Available, run.Counts.Invalid, run.Counts.Unavailable)
	return subcommands.ExitSuccess
}
