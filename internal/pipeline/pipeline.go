// Package pipeline wires the per-package compilation stages together
// (lex, preparse, precompile, parse, analyze, lower) into the single
// entry point both cmd/lily and internal/repl drive a package source
// string through. It owns no stage's logic, only the sequencing spec.md
// §1's pipeline diagram specifies.
//
// Grounded on the teacher's cmd/ailang/main.go, which wires lexer →
// parser → elaborate → typecheck → eval the same way behind its CLI
// subcommands; generalized here to the precompiler/analysis/mir stages
// this rewrite adds.
package pipeline

import (
	"fmt"

	"github.com/sunholo/lily/internal/analysis"
	"github.com/sunholo/lily/internal/analysis/checked"
	"github.com/sunholo/lily/internal/ast"
	"github.com/sunholo/lily/internal/lexer"
	"github.com/sunholo/lily/internal/mir"
	"github.com/sunholo/lily/internal/parser"
	"github.com/sunholo/lily/internal/pkg"
	"github.com/sunholo/lily/internal/precompiler"
	"github.com/sunholo/lily/internal/preparser"
)

// NoImportLoader is a precompiler.Loader that resolves nothing: every
// root/package/library/file import fails. Used for single-file
// compilation units (the REPL, `lily run <file>` with no manifest) where
// there is no search path to resolve imports against.
type NoImportLoader struct{}

func (NoImportLoader) ResolveFile(dir, path string) (*pkg.Package, error) {
	return nil, fmt.Errorf("file import %q: no search path configured", path)
}

func (NoImportLoader) ResolvePackage(cur *pkg.Package, name string) (*pkg.Package, error) {
	return nil, fmt.Errorf("package import %q: no search path configured", name)
}

func (NoImportLoader) ResolveLibrary(name string) (*pkg.Package, error) {
	return nil, fmt.Errorf("library import %q: no manifest dependency configured", name)
}

func (NoImportLoader) ResolveRoot(root precompiler.Root) (*pkg.Package, error) {
	return nil, fmt.Errorf("root import unavailable in single-file mode")
}

// Result is everything produced for one compiled package.
type Result struct {
	Package *pkg.Package
	AST     *ast.File
	Checked *checked.Package
	MIR     *mir.Module
}

// Compile runs name/src through every stage up to MIR lowering, using
// loader to resolve imports (pass NoImportLoader{} when src declares
// none). errs aggregates per-shell parse errors (spec.md §4.3 "error
// recovery") alongside the first hard failure from an earlier stage.
func Compile(name, src string, loader precompiler.Loader) (*Result, []error) {
	toks := lexer.All([]byte(src), name)

	info, err := preparser.Prepare(toks)
	if err != nil {
		return nil, []error{err}
	}

	p := pkg.NewPackage(name, name, pkg.StatusStandalone, pkg.Public)
	pc := precompiler.New(loader)
	out, err := pc.Process(p, info)
	if err != nil {
		return nil, []error{err}
	}
	p.PrecompOutput = &pkg.PrecompilerOutput{ExpandedShells: out.Shells, ResolvedImports: out.Imports}

	file, parseErrs := parser.ParsePackage(name, out.Imports, out)
	if len(parseErrs) > 0 {
		for range parseErrs {
			p.AddError()
		}
		return nil, parseErrs
	}
	p.ParserOutput = file

	checker := analysis.New()
	checkedPkg, err := checker.Check(file)
	if err != nil {
		p.AddError()
		return nil, []error{err}
	}
	p.Checked = checkedPkg

	mod, err := mir.Lower(name, checkedPkg.Decls)
	if err != nil {
		return nil, []error{err}
	}
	p.MIRModule = mod

	return &Result{Package: p, AST: file, Checked: checkedPkg, MIR: mod}, nil
}
