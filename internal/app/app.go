// Package app provides the main application helper for the lifter.
package app

import (
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrolift/internal/arch"
	"github.com/retroenv/retrolift/internal/options"
)

// PrintInfo prints the information about the input file and the selected
// architecture.
func PrintInfo(logger *log.Logger, opts options.Program, architecture arch.Architecture, image []byte) {
	if opts.Quiet {
		return
	}

	logger.Info("Processing image",
		log.String("file", opts.Input),
		log.String("arch", architecture.Name()),
		log.Int("size", len(image)),
		log.String("mode", opts.Mode),
	)
	if opts.Mode == options.ModeLinear && len(opts.Entries) > 0 {
		logger.Warn("Entry points are only used in trace mode")
	}
}
