package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrolift/internal/options"
)

// execute runs the root command with the arguments and returns the options
// the run function was called with.
func execute(t *testing.T, args ...string) (options.Program, options.Disassembler, error) {
	t.Helper()

	var gotOpts options.Program
	var gotDisasm options.Disassembler
	run := func(_ context.Context, opts options.Program, disasmOptions options.Disassembler) error {
		gotOpts = opts
		gotDisasm = disasmOptions
		return nil
	}

	cmd := NewRootCommand("test", run)
	cmd.SetArgs(args)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	err := cmd.ExecuteContext(context.Background())
	return gotOpts, gotDisasm, err
}

func TestParseFlags_DisasmOptions(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want options.Disassembler
	}{
		{
			name: "default flags",
			args: []string{"test.bin"},
			want: options.Disassembler{Mode: options.ModeLinear, HexComments: true},
		},
		{
			name: "nohexcomments flag",
			args: []string{"--nohexcomments", "test.bin"},
			want: options.Disassembler{Mode: options.ModeLinear},
		},
		{
			name: "base and entries",
			args: []string{"--base", "0x8000", "--entry", "0x8010", "--entry", "32784,0x9000", "test.bin"},
			want: options.Disassembler{
				Base:        0x8000,
				Entries:     []uint64{0x8010, 0x8010, 0x9000},
				Mode:        options.ModeLinear,
				HexComments: true,
			},
		},
		{
			name: "trace mode with rtl",
			args: []string{"--mode", "TRACE", "--rtl", "--dump", "--uppercase", "test.bin"},
			want: options.Disassembler{
				Mode:        options.ModeTrace,
				HexComments: true,
				RTL:         true,
				Dump:        true,
				Uppercase:   true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, got, err := execute(t, tt.args...)
			assert.NoError(t, err)
			assert.Equal(t, "test.bin", opts.Input)
			assert.Equal(t, tt.want.Base, got.Base)
			assert.Equal(t, tt.want.Entries, got.Entries)
			assert.Equal(t, tt.want.Mode, got.Mode)
			assert.Equal(t, tt.want.HexComments, got.HexComments)
			assert.Equal(t, tt.want.RTL, got.RTL)
			assert.Equal(t, tt.want.Dump, got.Dump)
			assert.Equal(t, tt.want.Uppercase, got.Uppercase)
			assert.Equal(t, options.DefaultCacheSize, got.CacheSize)
		})
	}
}

func TestParseFlags_ProgramOptions(t *testing.T) {
	opts, _, err := execute(t, "-a", "VAX", "-o", "out.lst", "-q", "--debug", "image.bin")
	assert.NoError(t, err)
	assert.Equal(t, "vax", opts.Arch)
	assert.Equal(t, "out.lst", opts.Output)
	assert.True(t, opts.Quiet)
	assert.True(t, opts.Debug)
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		errContains string
	}{
		{"missing file", []string{}, "accepts 1 arg(s)"},
		{"too many files", []string{"a.bin", "b.bin"}, "accepts 1 arg(s)"},
		{"invalid mode", []string{"--mode", "sideways", "a.bin"}, "unsupported mode"},
		{"invalid base", []string{"--base", "0xzz", "a.bin"}, "parsing base address"},
		{"invalid entry", []string{"--entry", "-1", "a.bin"}, "parsing entry point"},
		{"missing config", []string{"--config", "missing.yml", "a.bin"}, "reading config file"},
		{"unknown flag", []string{"--assembler", "ca65", "a.bin"}, "unknown flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			assert.ErrorContains(t, err, tt.errContains)
		})
	}
}

func TestParseFlags_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retrolift.yml")
	content := "arch: tlcs900\nbase: 0x10000\nmode: trace\nentries: [0x10004]\nrtl: true\n"
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	opts, got, err := execute(t, "--config", path, "--base", "0x20000", "image.bin")
	assert.NoError(t, err)
	assert.Equal(t, "tlcs900", opts.Arch)
	assert.Equal(t, uint64(0x20000), got.Base)
	assert.Equal(t, []uint64{0x10004}, got.Entries)
	assert.Equal(t, options.ModeTrace, got.Mode)
	assert.True(t, got.RTL)
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		input   string
		want    uint64
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"4096", 4096, false},
		{"0x1000", 0x1000, false},
		{"0X8000", 0x8000, false},
		{"0o777", 0o777, false},
		{"0xffffffffffffffff", 0xffffffffffffffff, false},
		{"0x", 0, true},
		{"-5", 0, true},
		{"$8000", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAddress(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
