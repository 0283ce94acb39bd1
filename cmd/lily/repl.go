package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sunholo/lily/internal/repl"
)

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive Lily session",
		RunE: func(cmd *cobra.Command, args []string) error {
			repl.New(Version).Start(os.Stdin, os.Stdout)
			return nil
		},
	}
}
