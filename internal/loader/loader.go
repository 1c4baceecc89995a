// Package loader handles image file loading operations.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/retroenv/retrolift/internal/options"
)

// ErrEmptyImage is returned for input files without content.
var ErrEmptyImage = errors.New("empty image")

// Loader handles loading raw image files from disk.
type Loader struct{}

// New creates a new image loader.
func New() *Loader {
	return &Loader{}
}

// Load reads the input file of the options. The file content is the raw
// image, no object format is parsed.
func (l *Loader) Load(opts options.Program) ([]byte, error) {
	file, err := os.Open(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", opts.Input, err)
	}
	defer func() { _ = file.Close() }()

	image, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", opts.Input, err)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("loading %s: %w", opts.Input, ErrEmptyImage)
	}
	return image, nil
}
