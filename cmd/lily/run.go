package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sunholo/lily/internal/mir"
	"github.com/sunholo/lily/internal/pipeline"
	"github.com/sunholo/lily/internal/vm"
)

func newRunCmd() *cobra.Command {
	var release bool
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Compile and interpret a Lily source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := vm.ModeDebug
			if release {
				mode = vm.ModeRelease
			}
			return runRun(args[0], mode)
		},
	}
	cmd.Flags().BoolVar(&release, "release", false, "run with wrapping (non-checked) arithmetic")
	return cmd
}

func runRun(path string, mode vm.Mode) error {
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

	machine := vm.New(map[string]*mir.Module{res.MIR.PackageName: res.MIR}, mode)
	val, err := machine.Run(res.MIR.PackageName)
	if err != nil {
		reportErr(err)
		return err
	}
	fmt.Println(val.String())
	return nil
}
