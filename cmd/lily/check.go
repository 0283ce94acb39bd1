package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sunholo/lily/internal/errors"
	"github.com/sunholo/lily/internal/pipeline"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Run the pipeline through analysis without interpreting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(args[0])
		},
	}
}

func runCheck(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	res, errs := pipeline.Compile(path, string(src), pipeline.NoImportLoader{})
	if len(errs) > 0 {
		for _, e := range errs {
			reportErr(e)
		}
		return fmt.Errorf("%d error(s)", len(errs))
	}

	fmt.Printf("%s: %d function(s) checked, %d function(s) lowered\n",
		path, res.Checked.FunctionCount(), len(res.MIR.Functions))
	return nil
}

func reportErr(err error) {
	if rep, ok := errors.AsReport(err); ok {
		fmt.Fprint(os.Stderr, errors.Render(rep, ""))
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
}
