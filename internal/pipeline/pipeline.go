// Package pipeline orchestrates the listing workflow stages.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrolift/internal/app"
	"github.com/retroenv/retrolift/internal/arch"
	"github.com/retroenv/retrolift/internal/detector"
	"github.com/retroenv/retrolift/internal/disasm"
	"github.com/retroenv/retrolift/internal/instruction"
	"github.com/retroenv/retrolift/internal/loader"
	"github.com/retroenv/retrolift/internal/options"
	"github.com/retroenv/retrolift/internal/writer"
)

// ErrNoArchitecture is returned if no architecture was given and none
// could be detected from the input file.
var ErrNoArchitecture = errors.New("no architecture given")

// Pipeline orchestrates the complete listing workflow.
type Pipeline struct {
	logger   *log.Logger
	detector *detector.Detector
	loader   *loader.Loader
}

// New creates a new listing pipeline.
func New(logger *log.Logger) *Pipeline {
	return &Pipeline{
		logger:   logger,
		detector: detector.New(logger),
		loader:   loader.New(),
	}
}

// Execute runs the complete listing pipeline for the input file of the
// options and returns the listed instructions.
func (p *Pipeline) Execute(ctx context.Context, opts options.Program, disasmOpts options.Disassembler,
	out io.Writer) ([]*instruction.Instruction, error) {

	name := p.detector.Detect(opts)
	if name == "" {
		return nil, fmt.Errorf("%w, supported: %v", ErrNoArchitecture, arch.Names())
	}
	architecture, err := arch.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("selecting architecture: %w", err)
	}

	image, err := p.loader.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("loading image: %w", err)
	}

	return p.ExecuteWithImage(ctx, architecture, image, opts, disasmOpts, out)
}

// ExecuteWithImage runs the listing pipeline with a pre-loaded image.
// This is useful for testing and programmatic usage where the image is already in memory.
func (p *Pipeline) ExecuteWithImage(ctx context.Context, architecture arch.Architecture, image []byte,
	opts options.Program, disasmOpts options.Disassembler, out io.Writer) ([]*instruction.Instruction, error) {

	app.PrintInfo(p.logger, opts, architecture, image)

	session, err := disasm.New(p.logger, architecture, image, disasmOpts)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	instructions, err := p.runDisassembly(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("disassembling: %w", err)
	}

	w := writer.New(out, writer.Options{
		AddressDigits: architecture.PointerWidth().Size() * 2,
		HexComments:   disasmOpts.HexComments,
		RTL:           disasmOpts.RTL,
		Dump:          disasmOpts.Dump,
		Uppercase:     disasmOpts.Uppercase,
	})
	if err := w.WriteCommentHeader(architecture.Name(), disasmOpts.Base, image); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	if err := w.Write(instructions, session); err != nil {
		return nil, fmt.Errorf("writing listing: %w", err)
	}
	return instructions, nil
}

// runDisassembly executes the sweep selected by the options.
func (p *Pipeline) runDisassembly(ctx context.Context, session *disasm.Session) ([]*instruction.Instruction, error) {
	switch mode := session.Options().Mode; mode {
	case options.ModeLinear, "":
		return session.Linear(ctx)
	case options.ModeTrace:
		return session.Trace(ctx)
	default:
		return nil, fmt.Errorf("unsupported mode '%s'", mode)
	}
}
