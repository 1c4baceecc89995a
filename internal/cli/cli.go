// Package cli handles command line interface logic
package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/retroenv/retrolift/internal/arch"
	"github.com/retroenv/retrolift/internal/config"
	"github.com/retroenv/retrolift/internal/options"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RunFunc processes the image with the parsed options.
type RunFunc func(ctx context.Context, opts options.Program, disasmOptions options.Disassembler) error

// NewRootCommand returns the root command of the program. The passed run
// function is called with the parsed options.
func NewRootCommand(version string, run RunFunc) *cobra.Command {
	var opts options.Program

	cmd := &cobra.Command{
		Use:   "retrolift [options] <image file>",
		Short: "Disassemble raw machine code images and lift them to RTL",
		Long: fmt.Sprintf(`Disassemble raw machine code images and lift them to RTL.

The image is mapped at the base address and either swept linearly or traced
by following the control flow from the entry points.

Supported architectures: %s`, strings.Join(arch.Names(), ", ")),
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// errors after argument validation are not usage errors
			cmd.SilenceUsage = true

			opts.Input = args[0]
			disasmOptions, err := ParseOptions(&opts, cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), opts, disasmOptions)
		},
	}

	readOptionFlags(cmd.Flags(), &opts)
	return cmd
}

// ParseOptions merges the configuration file into the options, normalizes
// them and returns the session options.
func ParseOptions(opts *options.Program, flags *pflag.FlagSet) (options.Disassembler, error) {
	if opts.Config != "" {
		file, err := config.LoadFile(opts.Config)
		if err != nil {
			return options.Disassembler{}, err
		}
		config.Merge(opts, file, flags.Changed)
	}

	if err := normalizeOptions(opts); err != nil {
		return options.Disassembler{}, err
	}
	return createDisasmOptions(*opts)
}

// normalizeOptions normalizes and validates option values
func normalizeOptions(opts *options.Program) error {
	opts.Arch = strings.ToLower(opts.Arch)
	opts.Mode = strings.ToLower(opts.Mode)

	switch opts.Mode {
	case options.ModeLinear, options.ModeTrace:
		return nil
	default:
		return fmt.Errorf("unsupported mode: %s. Valid options: %s, %s",
			opts.Mode, options.ModeLinear, options.ModeTrace)
	}
}

// createDisasmOptions creates session options based on program options
func createDisasmOptions(opts options.Program) (options.Disassembler, error) {
	disasmOptions := options.NewDisassembler(opts.Mode)

	var err error
	disasmOptions.Base, err = parseAddress(opts.Base)
	if err != nil {
		return options.Disassembler{}, fmt.Errorf("parsing base address: %w", err)
	}

	for _, entry := range opts.Entries {
		address, err := parseAddress(entry)
		if err != nil {
			return options.Disassembler{}, fmt.Errorf("parsing entry point: %w", err)
		}
		disasmOptions.Entries = append(disasmOptions.Entries, address)
	}

	disasmOptions.HexComments = !opts.NoHexComments
	disasmOptions.RTL = opts.RTL
	disasmOptions.Dump = opts.Dump
	disasmOptions.Uppercase = opts.Uppercase
	return disasmOptions, nil
}

// parseAddress parses a decimal, 0x prefixed hex or 0o prefixed octal
// address. An empty string is address 0.
func parseAddress(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	address, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address '%s': %w", s, err)
	}
	return address, nil
}

func readOptionFlags(flags *pflag.FlagSet, opts *options.Program) {
	flags.StringVarP(&opts.Output, "output", "o", "", "name of the output listing file, printed on console if no name given")
	flags.StringVar(&opts.Config, "config", "", "YAML configuration file with default option values")
	flags.StringVarP(&opts.Arch, "arch", "a", "", "architecture of the image, detected from the file extension if not given")
	flags.StringVar(&opts.Base, "base", "0", "address the first byte of the image is mapped at")
	flags.StringSliceVar(&opts.Entries, "entry", nil, "entry point address for tracing, can be repeated")
	flags.StringVar(&opts.Mode, "mode", options.ModeLinear, "listing mode (linear/trace)")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVarP(&opts.Quiet, "quiet", "q", false, "perform operations quietly")

	flags.BoolVar(&opts.RTL, "rtl", false, "output the RTL of every instruction")
	flags.BoolVar(&opts.Dump, "dump", false, "output a dump of every decoded instruction value")
	flags.BoolVar(&opts.NoHexComments, "nohexcomments", false, "do not output opcode bytes as hex values in comments")
	flags.BoolVar(&opts.Uppercase, "uppercase", false, "output mnemonics and registers in upper case")
}
