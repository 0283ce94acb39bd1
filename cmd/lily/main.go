// Command lily is the Lily toolchain CLI (spec.md §6): build, run, check,
// and repl subcommands over the lex/preparse/precompile/parse/analyze/
// lower/interpret pipeline.
//
// Grounded on the teacher's cmd/ailang/main.go (version/help flags,
// colorized error output, per-command dispatch), upgraded from its plain
// `flag` package to `github.com/spf13/cobra` subcommands since spec.md §6
// describes a genuine multi-subcommand CLI surface (build/run/check/repl,
// each with its own flags) rather than ailang's single top-level switch.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version, Commit, and BuildTime are set by -ldflags at release build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	red  = color.New(color.FgRed, color.Bold).SprintFunc()
	bold = color.New(color.Bold).SprintFunc()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lily",
		Short:         "The Lily toolchain",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newBuildCmd())
	root.AddCommand(newReplCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("lily %s\n", bold(Version))
			if Commit != "unknown" {
				fmt.Printf("commit: %s\n", Commit)
			}
			if BuildTime != "unknown" {
				fmt.Printf("built:  %s\n", BuildTime)
			}
			return nil
		},
	}
}
