// Package config handles application configuration and setup
package config

import (
	"fmt"
	"os"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrolift/internal/options"
	"gopkg.in/yaml.v2"
)

// CreateLogger creates a logger with appropriate settings
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

// LoadFile reads the program options from a YAML configuration file.
// Unknown keys are rejected.
func LoadFile(path string) (options.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return options.Program{}, fmt.Errorf("reading config file: %w", err)
	}

	var opts options.Program
	if err := yaml.UnmarshalStrict(data, &opts); err != nil {
		return options.Program{}, fmt.Errorf("decoding config file %s: %w", path, err)
	}
	return opts, nil
}

// Merge copies the values set in the configuration file into the options.
// Values of flags that were set on the command line take precedence,
// changed reports this for a flag name.
func Merge(opts *options.Program, file options.Program, changed func(flag string) bool) {
	mergeString(&opts.Output, file.Output, changed("output"))
	mergeString(&opts.Arch, file.Arch, changed("arch"))
	mergeString(&opts.Base, file.Base, changed("base"))
	mergeString(&opts.Mode, file.Mode, changed("mode"))
	if !changed("entry") && len(file.Entries) > 0 {
		opts.Entries = file.Entries
	}

	mergeBool(&opts.Debug, file.Debug, changed("debug"))
	mergeBool(&opts.Quiet, file.Quiet, changed("quiet"))
	mergeBool(&opts.RTL, file.RTL, changed("rtl"))
	mergeBool(&opts.Dump, file.Dump, changed("dump"))
	mergeBool(&opts.NoHexComments, file.NoHexComments, changed("nohexcomments"))
	mergeBool(&opts.Uppercase, file.Uppercase, changed("uppercase"))
}

func mergeString(target *string, value string, changed bool) {
	if !changed && value != "" {
		*target = value
	}
}

func mergeBool(target *bool, value, changed bool) {
	if !changed && value {
		*target = value
	}
}
