// Package pkg implements the package/program data model of spec.md §3.2: one
// Package per source file under compilation, owning every stage's output for
// that file, plus the Program that exclusively owns every Package.
package pkg

import (
	"fmt"
	"sync"

	"github.com/sunholo/lily/internal/ast"
	"github.com/sunholo/lily/internal/mir"
	"github.com/sunholo/lily/internal/preparser"
)

// Status is one of the five package roles spec.md §3.2 and
// original_source/package.h's LilyPackageStatus enum distinguish.
type Status int

const (
	StatusRootExeMain Status = iota
	StatusRootLibMain
	StatusSubMain
	StatusNormal
	StatusStandalone
)

func (s Status) String() string {
	switch s {
	case StatusRootExeMain:
		return "root-exe-main"
	case StatusRootLibMain:
		return "root-lib-main"
	case StatusSubMain:
		return "sub-main"
	case StatusNormal:
		return "normal"
	case StatusStandalone:
		return "standalone"
	default:
		return "unknown"
	}
}

// Visibility is public or private, as seen by importers of this package.
type Visibility int

const (
	Private Visibility = iota
	Public
)

// CheckedOutput is the per-package result of analysis (spec.md §4.4), kept
// as an opaque forward reference here to avoid an import cycle between pkg
// and analysis; pipeline.Compile and the build command assign the field.
type CheckedOutput interface {
	FunctionCount() int
}

// Package represents one source file under compilation (spec.md §3.2).
type Package struct {
	Name           string // unique, fully qualified
	GlobalName     string // globally mangled name
	Visibility     Visibility
	Status         Status
	FilePath       string
	PreparserInfo  *preparser.Info
	PrecompOutput  *PrecompilerOutput
	ParserOutput   *ast.File
	Checked        CheckedOutput
	MIRModule      *mir.Module
	SubPackages    []*Package
	Dependencies   []*Package // subset of Program.Packages; acyclic
	LibDeps        []string

	// ErrorCount/WarningCount are counted per package after the precompiler
	// step, per original_source/package.h ("count all errors and warnings
	// after the precompiler step").
	ErrorCount   int
	WarningCount int

	// BuiltinUsage tracks which builtin declarations this package actually
	// referenced (original_source/package.h's builtin_usage vector). The MIR
	// generator does not read it.
	BuiltinUsage []string

	mu sync.Mutex
}

// PrecompilerOutput is the per-package result of import resolution and
// macro expansion (spec.md §4.2 "Output").
type PrecompilerOutput struct {
	ExpandedShells []preparser.DeclShell
	ResolvedImports []ResolvedImport
}

// ResolvedImport pairs a parsed import with the package/library it resolved
// to.
type ResolvedImport struct {
	Alias       string
	TargetKind  string // "package", "library", "std", "core", "sys", "builtin"
	TargetName  string
}

// NewPackage constructs a Package in the given role.
func NewPackage(name, filePath string, status Status, vis Visibility) *Package {
	return &Package{
		Name:       name,
		GlobalName: name,
		FilePath:   filePath,
		Status:     status,
		Visibility: vis,
	}
}

// AddError/AddWarning accumulate per-package counts under the package's own
// lock; pipeline.Compile calls AddError when parsing or analysis fails, and
// nothing calls AddWarning (spec.md §5: "the operator register is
// shared read-mostly ... instantiation writes append-only under the
// package's own lock" — the same discipline applies to these counters).
func (p *Package) AddError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ErrorCount++
}

func (p *Package) AddWarning() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.WarningCount++
}

// RecordBuiltinUsage appends name to BuiltinUsage if not already present.
func (p *Package) RecordBuiltinUsage(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range p.BuiltinUsage {
		if n == name {
			return
		}
	}
	p.BuiltinUsage = append(p.BuiltinUsage, name)
}

// DependsOn reports whether p transitively depends on other, used by the
// acyclicity invariant in spec.md §8.
func (p *Package) DependsOn(other *Package) bool {
	seen := map[*Package]bool{}
	var walk func(*Package) bool
	walk = func(cur *Package) bool {
		if seen[cur] {
			return false
		}
		seen[cur] = true
		for _, d := range cur.Dependencies {
			if d == other || walk(d) {
				return true
			}
		}
		return false
	}
	return walk(p)
}

// Program exclusively owns every Package compiled together (spec.md §3.6
// ownership note: "the root program exclusively owns all packages").
type Program struct {
	Packages []*Package
	Builtins *BuiltinTable
	Syss     *BuiltinTable

	mu sync.Mutex
}

// BuiltinTable holds compiler-provided builtin/sys function declarations,
// attached only to the root package per original_source/package.h's note
// that "builtins and syss fields are NULL when the status ... is not MAIN".
type BuiltinTable struct {
	Funcs map[string]*mir.Function
}

// NewProgram creates an empty Program.
func NewProgram() *Program {
	return &Program{Builtins: &BuiltinTable{Funcs: map[string]*mir.Function{}}}
}

// AddPackage registers pkg under the program's exclusive ownership.
func (pr *Program) AddPackage(p *Package) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.Packages = append(pr.Packages, p)
}

// CheckAcyclic verifies the invariant in spec.md §8: every package's
// dependency set is a subset of the program's packages and `dependency-of`
// is acyclic.
func (pr *Program) CheckAcyclic() error {
	known := map[*Package]bool{}
	for _, p := range pr.Packages {
		known[p] = true
	}
	for _, p := range pr.Packages {
		for _, d := range p.Dependencies {
			if !known[d] {
				return fmt.Errorf("package %q depends on %q which is not in the program", p.Name, d.Name)
			}
		}
		if p.DependsOn(p) {
			return fmt.Errorf("cyclic package dependency involving %q", p.Name)
		}
	}
	return nil
}
