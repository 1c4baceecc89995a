// Package main implements the main entry point for a multi architecture
// disassembler and RTL lifter.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrolift/internal/cli"
	"github.com/retroenv/retrolift/internal/config"
	"github.com/retroenv/retrolift/internal/fileprocessor"
	"github.com/retroenv/retrolift/internal/options"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	ctx := app.Context()

	cmd := cli.NewRootCommand(version, run)
	if err := cmd.ExecuteContext(ctx); err != nil {
		logger := config.CreateLogger(false, false)
		// Handle context cancellation (Ctrl+C) gracefully
		if errors.Is(err, context.Canceled) {
			logger.Info("Operation cancelled")
			return
		}
		logger.Error("Processing failed", log.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options.Program, disasmOptions options.Disassembler) error {
	logger := config.CreateLogger(opts.Debug, opts.Quiet)
	fileprocessor.PrintBanner(logger, opts, version, commit, date)

	return fileprocessor.ProcessFile(ctx, logger, opts, disasmOptions)
}
