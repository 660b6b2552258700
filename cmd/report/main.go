// Command report checks which SPARQL endpoints in a CSV list answer an ASK
// query and writes a dated JSON report about them.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"
	_ "github.com/joho/godotenv/autoload"

	"dataendpoint/internal/logger"
	"dataendpoint/internal/otel"
)

var (
	logLevel  = flag.String("log-level", "", "log level: debug, info, warn, error (default LOG_LEVEL or debug)")
	logFormat = flag.String("log-format", "", "log format: text or json (default LOG_FORMAT or text)")
)

// logConfig picks each setting from the flag, then the environment, then
// the CLI default of debug-level text.
func logConfig(level, format string) logger.Config {
	pick := func(flagValue, envKey, def string) string {
		if flagValue != "" {
			return flagValue
		}
		if v := os.Getenv(envKey); v != "" {
			return v
		}
		return def
	}
	return logger.Config{
		Level:  pick(level, "LOG_LEVEL", "debug"),
		Format: pick(format, "LOG_FORMAT", "text"),
	}
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&createCmd{out: os.Stdout}, "")
	subcommands.Register(&probeCmd{out: os.Stdout}, "")

	flag.Parse()

	log := logger.Init(logConfig(*logLevel, *logFormat), os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = logger.WithLogger(ctx, log)

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Error("failed to initialize tracing", "error", err)
		stop()
		os.Exit(int(subcommands.ExitFailure))
	}

	code := subcommands.Execute(ctx)
	stop()

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := shutdownTracing(sctx); err != nil {
		log.Warn("tracing shutdown failed", "error", err)
	}
	cancel()
	os.Exit(int(code))
}
