// Command extension-lint checks extension descriptor files.
//
//	extension-lint [-format text|json] [-strict] [-watch] path...
//
// Each path is a descriptor file or a directory searched recursively. The
// exit status is 1 when any error is found, or any warning with -strict.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/platinummonkey/extpoint/pkg/observability"
	"github.com/sirupsen/logrus"
)

// Config holds the linter configuration
type Config struct {
	Format   string
	Strict   bool
	Watch    bool
	LogLevel string
	Paths    []string
}

func main() {
	config := parseFlags(os.Args[1:])
	if config == nil {
		os.Exit(2)
	}

	logger := observability.NewLogger(config.LogLevel, "text", os.Stderr)

	if config.Watch {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		if err := watch(ctx, config, os.Stdout, logger); err != nil {
			logger.Fatalf("Watch failed: %v", err)
		}
		return
	}

	failed, err := run(config, os.Stdout, logger)
	if err != nil {
		logger.Fatalf("Lint failed: %v", err)
	}
	if failed {
		os.Exit(1)
	}
}

func parseFlags(args []string) *Config {
	config := &Config{}

	fs := flag.NewFlagSet("extension-lint", flag.ContinueOnError)
	fs.StringVar(&config.Format, "format", "text", "Output format (text, json)")
	fs.BoolVar(&config.Strict, "strict", false, "Treat warnings as errors")
	fs.BoolVar(&config.Watch, "watch", false, "Re-lint when files change")
	fs.StringVar(&config.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil
	}
	config.Paths = fs.Args()
	if len(config.Paths) == 0 {
		fmt.Fprintln(fs.Output(), "usage: extension-lint [flags] path...")
		return nil
	}
	if config.Format != "text" && config.Format != "json" {
		fmt.Fprintf(fs.Output(), "unknown format %q\n", config.Format)
		return nil
	}
	return config
}

// run lints every path once and reports whether the result should fail.
func run(config *Config, out io.Writer, logger *logrus.Logger) (bool, error) {
	files, err := collectFiles(config.Paths)
	if err != nil {
		return false, err
	}
	logger.Debugf("Linting %d descriptor files", len(files))

	reports, err := lintFiles(files)
	if err != nil {
		return false, err
	}
	if err := writeReports(out, config.Format, reports); err != nil {
		return false, err
	}
	return failed(reports, config.Strict), nil
}
