// Command kaon queries a tree of files treated as a small schema-described
// database: it loads one or more schema files, runs their actions against an
// empty entry store, narrows the result by any CLI-supplied or file-supplied
// constraints, and prints the surviving entries.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"go.kaon.run/kaon/action"
	"go.kaon.run/kaon/cliconfig"
	"go.kaon.run/kaon/constraints"
	"go.kaon.run/kaon/entry"
	"go.kaon.run/kaon/log"
	"go.kaon.run/kaon/output"
	"go.kaon.run/kaon/profile"
	"go.kaon.run/kaon/schema"
	"go.kaon.run/kaon/schemadoc"
	"go.kaon.run/kaon/version"
)

const exampleText = `  kaon schema.json --kind configuration --cfg_dir my_ensemble --show cfg_file
  kaon schema.json --kind eigenvector --cfg_num 1000:1100 --show eig_file --eig_file_status missing
  cat schema.json | kaon - --show kind`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run builds the CLI in two passes, the way original_source/kaon.py does:
// the schema files named on the command line are read first, and only then
// does every option-name/variable-name the schema declares become a real
// flag on the root command.
func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := &cobra.Command{
		Use:           "kaon <file.json|-> [file2.json ...] [flags]",
		Short:         "Query a tree of files as a schema-described database",
		Example:       exampleText,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newDescribeCommand())

	var (
		loaded         schema.Schema
		options        []cliconfig.Option
		variables      []cliconfig.Variable
		constrainFiles []string
		showAttrs      []string
		outputFormat   string
		columnSep      string
		enableTrace    bool
		optionValues   map[string]*[]string
		variableValues map[string]*string
		logCfg         = log.NewConfig()
		profileCfg     = profile.NewConfig()
	)

	isSubcommand := len(args) > 0 && (args[0] == "version" || args[0] == "describe")

	if !isSubcommand {
		inputs := leadingPositionals(args)
		if len(inputs) == 0 && !hasHelpFlag(args) {
			fmt.Fprintln(stderr, "invalid arguments: at least one schema file is required")
		}

		if len(inputs) > 0 {
			var err error

			loaded, err = readSchema(inputs)
			if err != nil {
				fmt.Fprintln(stderr, err)

				return 1
			}

			options, variables = cliconfig.Discover(loaded)
		}

		flags := rootCmd.Flags()
		flags.StringArrayVar(&constrainFiles, "constrains", nil,
			"JSON file with a list of constraints")
		flags.StringArrayVar(&showAttrs, "show", nil,
			"output only the named attributes, in the given order for table output")
		flags.StringVar(&outputFormat, "output-format", string(output.FormatHeadlessTable),
			"one of: headless-table, table, json, schema")
		flags.StringVar(&columnSep, "column-sep", " ", "column separator for table output")
		flags.BoolVar(&enableTrace, "log", false, "trace each action's show-after phases to stderr")

		logCfg.RegisterFlags(flags)
		profileCfg.RegisterFlags(flags)

		if err := logCfg.RegisterCompletions(rootCmd); err != nil {
			fmt.Fprintln(stderr, err)
		}

		if err := profileCfg.RegisterCompletions(rootCmd); err != nil {
			fmt.Fprintln(stderr, err)
		}

		optionValues = make(map[string]*[]string, len(options))
		for _, opt := range options {
			dest := new([]string)
			optionValues[opt.Name] = dest
			flags.StringArrayVar(dest, opt.Name, nil, opt.Doc)
		}

		variableValues = make(map[string]*string, len(variables))
		for _, v := range variables {
			dest := new(string)
			variableValues[v.Name] = dest
			flags.StringVar(dest, v.Name, v.Default, v.Doc)
		}

		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return runQuery(stdout, stderr, loaded, options, variables, constrainFiles,
				showAttrs, outputFormat, columnSep, enableTrace,
				optionValues, variableValues, logCfg, profileCfg, inputs)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(stderr, err)

		return 1
	}

	return 0
}

func runQuery(stdout, stderr io.Writer, loaded schema.Schema, options []cliconfig.Option,
	variables []cliconfig.Variable, constrainFiles, showAttrs []string, outputFormat, columnSep string,
	enableTrace bool, optionValues map[string]*[]string, variableValues map[string]*string,
	logCfg *log.Config, profileCfg *profile.Config, inputs []string,
) error {
	handler, err := logCfg.NewHandler(stderr)
	if err != nil {
		return err
	}

	logger := slog.New(handler)
	logger.Debug("loaded schema", "files", inputs, "actions", len(loaded.Actions))

	prof := profileCfg.NewProfiler()
	if err := prof.Start(); err != nil {
		return err
	}

	defer func() {
		if err := prof.Stop(); err != nil {
			fmt.Fprintln(stderr, err)
		}
	}()

	viewValues := make(map[string][]string, len(optionValues))

	for name, dest := range optionValues {
		if len(*dest) > 0 {
			viewValues[name] = *dest
		}
	}

	cliView := cliconfig.BuildView(viewValues)

	suppliedVars := make(map[string]string, len(variableValues))
	for _, v := range variables {
		if val := *variableValues[v.Name]; val != "" || v.HasDefault {
			suppliedVars[v.Name] = val
		}
	}

	env, err := cliconfig.BuildEnvironment(variables, suppliedVars)
	if err != nil {
		return err
	}

	fileViews, err := readConstraints(constrainFiles)
	if err != nil {
		return err
	}

	constrainedView := constraints.ConstrainedView(fileViews, cliView)

	var trace io.Writer

	if enableTrace {
		pub := log.NewPublisher()
		sub := pub.Subscribe()
		drained := make(chan struct{})

		go func() {
			defer close(drained)

			for b := range sub.C() {
				stderr.Write(b) //nolint:errcheck // best-effort trace output.
			}
		}()

		defer func() {
			pub.Close()
			<-drained
		}()

		trace = pub
	}

	artifacts, err := schema.Run(context.Background(), loaded, constrainedView, env, action.ShellRunner{}, trace)
	if err != nil {
		return err
	}

	restricted := output.Restrict(artifacts, showAttrs)

	return output.Render(stdout, output.Format(outputFormat), restricted, showAttrs, columnSep)
}

// leadingPositionals returns every argument up to (not including) the first
// one that looks like a flag. Schema files are given first on the command
// line, ahead of any flags, so that the dynamic options and variables a
// schema declares can themselves become flags without ambiguity over how
// many values each one consumes.
func leadingPositionals(args []string) []string {
	var out []string

	for _, a := range args {
		if strings.HasPrefix(a, "-") && a != "-" {
			break
		}

		out = append(out, a)
	}

	return out
}

// hasHelpFlag reports whether --help or -h appears anywhere in args, used
// only to decide whether a missing schema file is worth an error message
// before the schema (and its declared flags) can be loaded.
func hasHelpFlag(args []string) bool {
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return true
		}
	}

	return false
}

func readSchema(inputs []string) (schema.Schema, error) {
	var out schema.Schema

	for _, path := range inputs {
		data, err := readFileOrStdin(path)
		if err != nil {
			return schema.Schema{}, err
		}

		s, err := schema.Decode(data)
		if err != nil {
			return schema.Schema{}, fmt.Errorf("%s: %w", path, err)
		}

		out = out.Concat(s)
	}

	return out, nil
}

func readConstraints(paths []string) ([]entry.View, error) {
	var out []entry.View

	for _, path := range paths {
		data, err := readFileOrStdin(path)
		if err != nil {
			return nil, err
		}

		views, err := constraints.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		out = constraints.Concat(out, views)
	}

	return out, nil
}

func readFileOrStdin(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("%w: stdin: %w", schema.ErrReadSchema, err)
		}

		return data, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is an explicit CLI argument.
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", schema.ErrReadSchema, path, err)
	}

	return data, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "kaon %s (revision %s, built %s by %s on branch %s)\n",
				orUnknown(version.Version), version.Revision, orUnknown(version.BuildDate),
				orUnknown(version.BuildUser), orUnknown(version.Branch))
			fmt.Fprintf(w, "  %s %s/%s\n", version.GoVersion, version.GoOS, version.GoArch)

			return nil
		},
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}

	return s
}

func newDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "describe [schema|constraints]",
		Short:     "Print the JSON Schema for a KAON input file format",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"schema", "constraints"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "schema"
			if len(args) > 0 {
				target = args[0]
			}

			var doc any

			switch target {
			case "schema":
				doc = schemadoc.SchemaFile()
			case "constraints":
				doc = schemadoc.ConstraintsFile()
			default:
				return fmt.Errorf("unknown describe target %q, want \"schema\" or \"constraints\"", target)
			}

			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}

			data = append(data, '\n')

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}
}
