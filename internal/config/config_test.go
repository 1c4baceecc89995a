package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrolift/internal/options"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "retrolift.yml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `arch: m6502
base: 0x8000
entries:
  - 0x8000
  - 0x9000
mode: trace
rtl: true
nohexcomments: true
`)

	opts, err := LoadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "m6502", opts.Arch)
	assert.Equal(t, "0x8000", opts.Base)
	assert.Equal(t, []string{"0x8000", "0x9000"}, opts.Entries)
	assert.Equal(t, options.ModeTrace, opts.Mode)
	assert.True(t, opts.RTL)
	assert.True(t, opts.NoHexComments)
	assert.False(t, opts.Dump)
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string {
			t.Helper()
			return filepath.Join(t.TempDir(), "missing.yml")
		}},
		{"unknown key", func(t *testing.T) string {
			t.Helper()
			return writeConfig(t, "assembler: ca65\n")
		}},
		{"invalid yaml", func(t *testing.T) string {
			t.Helper()
			return writeConfig(t, "arch: [m6502\n")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(tt.path(t))
			assert.Error(t, err)
		})
	}
}

func TestMerge(t *testing.T) {
	file := options.Program{
		Parameters: options.Parameters{Output: "out.lst"},
		Flags: options.Flags{
			Arch:    "vax",
			Base:    "0x1000",
			Entries: []string{"0x1000"},
			Mode:    options.ModeTrace,
			Debug:   true,
		},
		OutputFlags: options.OutputFlags{RTL: true},
	}

	tests := []struct {
		name    string
		changed []string
		want    options.Program
	}{
		{
			name: "file values",
			want: file,
		},
		{
			name:    "flags take precedence",
			changed: []string{"arch", "base", "entry", "rtl", "output"},
			want: options.Program{
				Parameters: options.Parameters{Output: "flag.lst"},
				Flags: options.Flags{
					Arch:    "m6502",
					Base:    "0x8000",
					Entries: []string{"0x8010"},
					Mode:    options.ModeTrace,
					Debug:   true,
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := options.Program{
				Parameters: options.Parameters{Output: "flag.lst"},
				Flags: options.Flags{
					Arch:    "m6502",
					Base:    "0x8000",
					Entries: []string{"0x8010"},
				},
			}
			if len(tt.changed) == 0 {
				opts = options.Program{}
			}

			changed := func(flag string) bool {
				return slices.Contains(tt.changed, flag)
			}
			Merge(&opts, file, changed)
			assert.Equal(t, tt.want, opts)
		})
	}
}
