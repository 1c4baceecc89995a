package detector

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrolift/internal/options"
)

func TestDetect(t *testing.T) {
	logger := log.NewTestLogger(t)
	d := New(logger)

	tests := []struct {
		name      string
		archOpt   string
		inputFile string
		wantArch  string
	}{
		{
			name:      "explicit architecture option",
			archOpt:   "vax",
			inputFile: "game.ch8",
			wantArch:  "vax",
		},
		{
			name:      "option is case insensitive",
			archOpt:   "X86-64",
			inputFile: "image.bin",
			wantArch:  "x86-64",
		},
		{
			name:      "detect from .ch8 extension",
			inputFile: "game.ch8",
			wantArch:  "chip8",
		},
		{
			name:      "detect from upper case extension",
			inputFile: "GAME.ROM",
			wantArch:  "chip8",
		},
		{
			name:      "detect from .com extension",
			inputFile: "tool.com",
			wantArch:  "x86-16",
		},
		{
			name:      "detect from .prg extension",
			inputFile: "demo.prg",
			wantArch:  "6502",
		},
		{
			name:      "unknown extension",
			inputFile: "image.bin",
			wantArch:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := options.Program{
				Parameters: options.Parameters{Input: tt.inputFile},
				Flags:      options.Flags{Arch: tt.archOpt},
			}
			assert.Equal(t, tt.wantArch, d.Detect(opts))
		})
	}
}
