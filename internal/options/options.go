// Package options contains the program options.
package options

import "strings"

// Listing modes.
const (
	ModeLinear = "linear"
	ModeTrace  = "trace"
)

// DefaultCacheSize is the number of decoded instructions a session keeps.
const DefaultCacheSize = 4096

// Parameters contains file path options.
type Parameters struct {
	Input  string `yaml:"-"`
	Output string `yaml:"output"` // listing file, stdout if empty
	Config string `yaml:"-"`      // YAML configuration file
}

// Flags contains behavior options.
type Flags struct {
	Arch    string   `yaml:"arch"`
	Base    string   `yaml:"base"`    // decimal or 0x prefixed hex address
	Entries []string `yaml:"entries"` // trace entry points, same format as base
	Mode    string   `yaml:"mode"`
	Debug   bool     `yaml:"debug"`
	Quiet   bool     `yaml:"quiet"`
}

// OutputFlags contains output formatting options.
type OutputFlags struct {
	RTL           bool `yaml:"rtl"`
	Dump          bool `yaml:"dump"`
	NoHexComments bool `yaml:"nohexcomments"`
	Uppercase     bool `yaml:"uppercase"`
}

// Program options of the lifter.
type Program struct {
	Parameters  `yaml:",inline"`
	Flags       `yaml:",inline"`
	OutputFlags `yaml:",inline"`
}

// Disassembler defines options to control a listing session.
type Disassembler struct {
	Base      uint64   // address the image is mapped at
	Entries   []uint64 // trace entry points, empty uses the architecture defaults
	Mode      string   // linear or trace
	CacheSize int      // number of decoded instructions to cache

	HexComments bool
	RTL         bool
	Dump        bool
	Uppercase   bool
}

// NewDisassembler returns a new options instance with default options.
func NewDisassembler(mode string) Disassembler {
	mode = strings.ToLower(mode)
	if mode == "" {
		mode = ModeLinear
	}
	return Disassembler{
		Mode:      mode,
		CacheSize: DefaultCacheSize,

		HexComments: true,
	}
}
