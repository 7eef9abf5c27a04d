package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/skdltmxn/nettype-go/internal/config"
	"github.com/skdltmxn/nettype-go/internal/log"
	"github.com/skdltmxn/nettype-go/metadata"
	"github.com/skdltmxn/nettype-go/report"
)

const longHelp = `nettype prints the declared fields, properties, constructors and methods
of the types in a .NET assembly, selected by filter expressions.

Filter expressions are lists of tokens separated by the delimiter ("|" by
default). A token is either a category or an exact name.

Type tokens:
  @all                       every declared type
  @class, @reference         reference types
  @structure, @value         value types
  @@class, @@reference       static classes
  <full name>                the type with that name, e.g. Ns.Outer+Inner

Member tokens:
  @all, @field, @property, @constructor, @method
                             every declared member of that kind
  @@all, @@field, ...        only the static ones
  <name>                     the member with that name

Each selected member is reported as

  <type>:<member>:is=<field|property|constructor|method>
  <type>:<member>:return=<type name>
  <type>:<member>:arguments=<name>,<type>;...   (constructors and methods)

An assembly ending in .yaml or .yml is read as a type manifest.

Exit codes: 0 success, 1 missing option value, 2 unknown option,
3 assembly load failure, 4 unsupported member kind.`

// options holds the root command flags.
type options struct {
	assembly  string
	types     string
	members   string
	delimiter string
	output    string
	workers   int
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:     "nettype -a <assembly> -t <types> -m <members>",
		Short:   "Report declared types and members of a .NET assembly",
		Long:    longHelp,
		Version: version,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &usageError{code: exitUnknownOption, err: fmt.Errorf("unexpected argument %q", args[0])}
			}
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().NFlag() == 0 {
				return cmd.Help()
			}
			return runReport(cmd, opts, stdout)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")
	cmd.SetFlagErrorFunc(flagError)

	flags := cmd.Flags()
	flags.StringVarP(&opts.assembly, "assembly", "a", "", "path to the assembly (or .yaml manifest) to inspect")
	flags.StringVarP(&opts.types, "types", "t", "", "type filter expression")
	flags.StringVarP(&opts.members, "members", "m", "", "member filter expression")
	flags.StringVarP(&opts.delimiter, "delimiter", "d", "", "filter token delimiter (default from config, \"|\")")
	flags.StringVarP(&opts.output, "output", "o", "", "write output to file instead of stdout")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "concurrent member selection workers (0 = one per CPU)")

	return cmd
}

func runReport(cmd *cobra.Command, opts *options, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log.InitWriter(cmd.ErrOrStderr(), cfg.Log)
	if cfg.File != "" {
		log.WithField("file", cfg.File).Debug("loaded config")
	}

	if opts.assembly == "" {
		return &usageError{code: exitMissingValue, err: errors.New("missing value for --assembly")}
	}

	if cmd.Flags().Changed("delimiter") {
		cfg.Delimiter = opts.delimiter
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = opts.workers
	}
	if err := cfg.Validate(); err != nil {
		return &usageError{code: exitMissingValue, err: fmt.Errorf("invalid option: %w", err)}
	}

	unit, err := metadata.Load(opts.assembly)
	if err != nil {
		return err
	}
	defer unit.Close()

	mapping, err := report.Build(unit, opts.types, opts.members, report.Options{
		Delimiter: cfg.Delimiter,
		Workers:   cfg.Workers,
	})
	if err != nil {
		return err
	}

	text, err := report.Render(mapping)
	if err != nil {
		return err
	}
	return writeReport(opts.output, stdout, text)
}

// writeReport writes text to the named file, or to stdout when name is empty.
func writeReport(name string, stdout io.Writer, text string) (err error) {
	if name == "" {
		_, err = io.WriteString(stdout, text)
		return err
	}

	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()

	if _, err = io.WriteString(f, text); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Infof("wrote %d bytes to %s", len(text), name)
	return nil
}

// run executes the root command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	code := exitCode(err)
	if err != nil {
		log.WithError(err).WithField("code", code).Debug("command failed")
		printError(stderr, err)
	}
	return code
}
