package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	buildpkg "github.com/sunholo/lily/internal/build"
	"github.com/sunholo/lily/internal/manifest"
	"github.com/sunholo/lily/internal/mir"
	"github.com/sunholo/lily/internal/pipeline"
	"github.com/sunholo/lily/internal/pkg"
)

func newBuildCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "build [manifest]",
		Short: "Build the package named in lily.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifestPath := "lily.yaml"
			if len(args) == 1 {
				manifestPath = args[0]
			}
			return runBuild(manifestPath, verbose)
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "print a progress line per package stage transition")
	return cmd
}

func runBuild(manifestPath string, verbose bool) error {
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	src, err := os.ReadFile(m.MainPath())
	if err != nil {
		return fmt.Errorf("read %s: %w", m.MainPath(), err)
	}

	root := pkg.NewPackage(m.Name, m.MainPath(), pkg.StatusRootExeMain, pkg.Public)
	node := pkg.NewDepNode(root)

	orch := buildpkg.New(func(p *pkg.Package) error {
		res, errs := pipeline.Compile(p.Name, string(src), pipeline.NoImportLoader{})
		if len(errs) > 0 {
			for _, e := range errs {
				reportErr(e)
			}
			return fmt.Errorf("%d error(s) in %s", len(errs), p.Name)
		}
		p.Checked = res.Checked
		p.MIRModule = res.MIR
		return nil
	})
	orch.Verbose = verbose

	buildErrs := orch.Run([]*pkg.DepNode{node})
	if len(buildErrs) > 0 {
		for name, e := range buildErrs {
			fmt.Fprintf(os.Stderr, "%s: %s: %v\n", red("error"), name, e)
		}
		return fmt.Errorf("build failed")
	}

	outDir := m.ResolveOutputDir()
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	outPath := filepath.Join(outDir, m.Name+".mir")
	if err := os.WriteFile(outPath, []byte(dumpModule(root.MIRModule)), 0644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("%s: %d function(s), %d error(s), %d warning(s) -> %s\n",
		m.Name, len(root.MIRModule.Functions), root.ErrorCount, root.WarningCount, outPath)
	return nil
}

func dumpModule(mod *mir.Module) string {
	out := fmt.Sprintf("module %s\n", mod.PackageName)
	for name, fn := range mod.Functions {
		out += fmt.Sprintf("fn %s -> %s (%d block(s))\n", name, fn.Return, len(fn.Blocks))
	}
	return out
}
