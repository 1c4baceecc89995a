// Package detector handles architecture detection.
package detector

import (
	"path/filepath"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrolift/internal/arch/chip8"
	"github.com/retroenv/retrolift/internal/arch/m6502"
	"github.com/retroenv/retrolift/internal/options"
)

// extensions maps file extensions of raw images to architecture names.
var extensions = map[string]string{
	".ch8": chip8.Name,
	".c8":  chip8.Name,
	".rom": chip8.Name,
	".com": "x86-16",
	".prg": m6502.Name,
	".a26": m6502.Name,
}

// Detector handles architecture detection from file extensions and options.
type Detector struct {
	logger *log.Logger
}

// New creates a new architecture detector.
func New(logger *log.Logger) *Detector {
	return &Detector{
		logger: logger,
	}
}

// Detect determines the architecture name from options or the input file.
// It first checks if an architecture is explicitly specified in options,
// otherwise attempts to detect it from the input filename extension. An
// empty name is returned if neither is possible.
func (d *Detector) Detect(opts options.Program) string {
	if opts.Arch != "" {
		return strings.ToLower(opts.Arch)
	}

	name := extensions[strings.ToLower(filepath.Ext(opts.Input))]
	if name != "" {
		d.logger.Debug("Auto-detected architecture",
			log.String("arch", name),
			log.String("file", opts.Input))
	}
	return name
}
