// Package precompiler implements spec.md §4.2: it resolves each import into
// a package reference, expands macros inside declaration-shell token spans,
// and publishes a package dependency DAG.
package precompiler

import (
	"fmt"

	"github.com/sunholo/lily/internal/errors"
	"github.com/sunholo/lily/internal/pkg"
	"github.com/sunholo/lily/internal/preparser"
	"github.com/sunholo/lily/internal/token"
)

// DefaultMacroRecursionLimit bounds macro expansion depth (spec.md §4.2).
const DefaultMacroRecursionLimit = 128

// Roots are the sentinel import roots of spec.md §3.3.
type Root int

const (
	RootStd Root = iota
	RootCore
	RootSys
	RootBuiltin
	RootUrl
	RootNone
)

// Loader is the filesystem/library collaborator the precompiler resolves
// imports against (spec.md §4.2 "Resolution"). Production code supplies a
// real implementation; tests supply an in-memory fake.
type Loader interface {
	// ResolveFile returns the package for a File(path) import, relative to
	// dir.
	ResolveFile(dir, path string) (*pkg.Package, error)
	// ResolvePackage returns the sub-package named name under cur.
	ResolvePackage(cur *pkg.Package, name string) (*pkg.Package, error)
	// ResolveLibrary returns an already-compiled library's root package.
	ResolveLibrary(name string) (*pkg.Package, error)
	// ResolveRoot returns the package bundled under one of the sentinel
	// roots (std/core/sys/builtin).
	ResolveRoot(root Root) (*pkg.Package, error)
}

// Precompiler holds state shared across every package resolved in one
// program: the dependency trees built so far and the macro recursion limit.
type Precompiler struct {
	Loader             Loader
	MacroRecursionLimit int
	trees              []*pkg.DepNode
	nodeOf             map[*pkg.Package]*pkg.DepNode
}

// New creates a Precompiler bound to loader.
func New(loader Loader) *Precompiler {
	return &Precompiler{
		Loader:              loader,
		MacroRecursionLimit: DefaultMacroRecursionLimit,
		nodeOf:              map[*pkg.Package]*pkg.DepNode{},
	}
}

// Output is the per-package result of precompilation (spec.md §4.2
// "Output"): post-expansion token spans, resolved imports, and the
// package's position in the dependency DAG (via Node).
type Output struct {
	Shells  []preparser.DeclShell
	Imports []pkg.ResolvedImport
	Node    *pkg.DepNode
}

// Process resolves p's imports, expands macros inside its declaration
// shells, and appends p to the dependency DAG.
func (pc *Precompiler) Process(p *pkg.Package, info *preparser.Info) (*Output, error) {
	resolved, deps, err := pc.resolveImports(p, info)
	if err != nil {
		return nil, err
	}

	macros := map[string]preparser.Macro{}
	for _, m := range info.PublicMacros {
		macros[m.Name] = m
	}
	for _, m := range info.PrivateMacros {
		macros[m.Name] = m
	}

	expanded := make([]preparser.DeclShell, len(info.Shells))
	for i, shell := range info.Shells {
		toks, err := pc.expandMacros(shell.Tokens, macros, 0)
		if err != nil {
			return nil, err
		}
		shell.Tokens = toks
		expanded[i] = shell
	}

	node, err := pc.determineTree(p, deps)
	if err != nil {
		return nil, err
	}

	out := &Output{Shells: expanded, Imports: resolved, Node: node}
	p.PrecompOutput = &pkg.PrecompilerOutput{ExpandedShells: expanded, ResolvedImports: resolved}
	p.Dependencies = deps
	return out, nil
}

// resolveImports walks each import's value sequence from its root
// (spec.md §4.2 "Resolution").
func (pc *Precompiler) resolveImports(p *pkg.Package, info *preparser.Info) ([]pkg.ResolvedImport, []*pkg.Package, error) {
	var resolved []pkg.ResolvedImport
	var deps []*pkg.Package

	resolveOne := func(imp preparser.Import) (pkg.ResolvedImport, *pkg.Package, error) {
		if len(imp.Segments) == 0 {
			return pkg.ResolvedImport{}, nil, errors.WrapReport(&errors.Report{
				Schema: errors.Schema, Code: errors.CodeImportNotFound, Phase: "precompiler",
				Message: "empty import path",
			})
		}
		head := imp.Segments[0]
		switch head {
		case "std", "core", "sys", "builtin":
			root := map[string]Root{"std": RootStd, "core": RootCore, "sys": RootSys, "builtin": RootBuiltin}[head]
			target, err := pc.Loader.ResolveRoot(root)
			if err != nil {
				return pkg.ResolvedImport{}, nil, wrapImportNotFound(imp, err)
			}
			for _, seg := range imp.Segments[1:] {
				target, err = pc.Loader.ResolvePackage(target, seg)
				if err != nil {
					return pkg.ResolvedImport{}, nil, wrapImportNotFound(imp, err)
				}
			}
			if target.Visibility == pkg.Private && target != p {
				return pkg.ResolvedImport{}, nil, errors.WrapReport(&errors.Report{
					Schema: errors.Schema, Code: errors.CodePrivateImportAccess, Phase: "precompiler",
					Message: fmt.Sprintf("%s is private", target.Name),
				})
			}
			return pkg.ResolvedImport{Alias: importAlias(imp), TargetKind: head, TargetName: target.Name}, target, nil
		default:
			target, err := pc.Loader.ResolvePackage(p, head)
			if err != nil {
				// Fall back to file-relative resolution.
				target, err = pc.Loader.ResolveFile(p.FilePath, head)
				if err != nil {
					return pkg.ResolvedImport{}, nil, wrapImportNotFound(imp, err)
				}
			}
			for _, seg := range imp.Segments[1:] {
				target, err = pc.Loader.ResolvePackage(target, seg)
				if err != nil {
					return pkg.ResolvedImport{}, nil, wrapImportNotFound(imp, err)
				}
			}
			return pkg.ResolvedImport{Alias: importAlias(imp), TargetKind: "package", TargetName: target.Name}, target, nil
		}
	}

	all := append(append([]preparser.Import{}, info.PublicImports...), info.PrivateImports...)
	for _, imp := range all {
		ri, target, err := resolveOne(imp)
		if err != nil {
			return nil, nil, err
		}
		resolved = append(resolved, ri)
		if target != nil && target != p {
			deps = append(deps, target)
		}
	}
	return resolved, deps, nil
}

func importAlias(imp preparser.Import) string {
	if imp.Alias != "" {
		return imp.Alias
	}
	if len(imp.Segments) > 0 {
		return imp.Segments[len(imp.Segments)-1]
	}
	return ""
}

func wrapImportNotFound(imp preparser.Import, cause error) error {
	return errors.WrapReport(&errors.Report{
		Schema: errors.Schema, Code: errors.CodeImportNotFound, Phase: "precompiler",
		Message: fmt.Sprintf("import not found: %v (%v)", imp.Segments, cause),
	})
}

// expandMacros walks toks and, on a macro-invocation marker (`name!(args)`),
// substitutes the macro body with positional argument token-groups bound by
// parameter name (spec.md §4.2 "Macro expansion"). Substitution is purely
// textual: no hygiene (spec.md §9(b)).
func (pc *Precompiler) expandMacros(toks []token.Token, macros map[string]preparser.Macro, depth int) ([]token.Token, error) {
	if depth > pc.MacroRecursionLimit {
		return nil, errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeMacroRecursionLimit, Phase: "precompiler",
			Message: fmt.Sprintf("macro recursion exceeded limit of %d", pc.MacroRecursionLimit),
		})
	}

	var out []token.Token
	i := 0
	for i < len(toks) {
		t := toks[i]
		if t.Kind == token.IDENT {
			if m, ok := macros[t.Lexeme]; ok && i+1 < len(toks) && toks[i+1].Kind == token.BANG {
				j := i + 2
				if j < len(toks) && toks[j].Kind == token.LPAREN {
					args, next, err := splitArgGroups(toks, j)
					if err != nil {
						return nil, err
					}
					if len(args) != len(m.Params) {
						return nil, errors.WrapReport(&errors.Report{
							Schema: errors.Schema, Code: errors.CodeMacroArityMismatch, Phase: "precompiler",
							Message: fmt.Sprintf("macro %s expects %d arguments, got %d", m.Name, len(m.Params), len(args)),
						})
					}
					bound := map[string][]token.Token{}
					for k, param := range m.Params {
						bound[param.Name] = args[k]
					}
					substituted := substitute(m.Body, bound)
					expanded, err := pc.expandMacros(substituted, macros, depth+1)
					if err != nil {
						return nil, err
					}
					out = append(out, expanded...)
					i = next
					continue
				}
			}
		}
		out = append(out, t)
		i++
	}
	return out, nil
}

// splitArgGroups splits the parenthesized argument list starting at open
// (the index of '(') into top-level-comma-separated token groups, returning
// the index just past the closing ')'.
func splitArgGroups(toks []token.Token, open int) ([][]token.Token, int, error) {
	depth := 0
	var groups [][]token.Token
	var cur []token.Token
	i := open
	for ; i < len(toks); i++ {
		t := toks[i]
		if i == open {
			depth = 1
			continue
		}
		if token.IsOpenDelim(t.Kind) {
			depth++
			cur = append(cur, t)
			continue
		}
		if token.IsCloseDelim(t.Kind) {
			depth--
			if depth == 0 {
				if len(cur) > 0 || len(groups) > 0 {
					groups = append(groups, cur)
				}
				return groups, i + 1, nil
			}
			cur = append(cur, t)
			continue
		}
		if t.Kind == token.COMMA && depth == 1 {
			groups = append(groups, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	return nil, 0, errors.WrapReport(&errors.Report{
		Schema: errors.Schema, Code: errors.CodeUnbalancedDelimiters, Phase: "precompiler",
		Message: "unbalanced macro argument list",
	})
}

// substitute replaces every `@name` placeholder in body with the bound
// argument token group for name.
func substitute(body []token.Token, bound map[string][]token.Token) []token.Token {
	var out []token.Token
	i := 0
	for i < len(body) {
		if body[i].Kind == token.AT && i+1 < len(body) {
			name := body[i+1].Lexeme
			if toks, ok := bound[name]; ok {
				out = append(out, toks...)
				i += 2
				continue
			}
		}
		out = append(out, body[i])
		i++
	}
	return out
}

// determineTree locates the tree node owning any existing dependency of p;
// if found, p is added as a new child under a new tree node whose
// dependencies point to the resolved existing nodes; otherwise p starts a
// new root tree (spec.md §4.2 "Dependency DAG"). Cycle detection fails with
// CyclicPackageDependency if p appears among its own transitive
// dependencies.
func (pc *Precompiler) determineTree(p *pkg.Package, deps []*pkg.Package) (*pkg.DepNode, error) {
	node := pkg.NewDepNode(p)
	pc.nodeOf[p] = node

	var depNodes []*pkg.DepNode
	var owner *pkg.DepNode
	for _, d := range deps {
		dn, ok := pc.nodeOf[d]
		if !ok {
			return nil, fmt.Errorf("dependency %q has no tree node yet (process dependencies first)", d.Name)
		}
		depNodes = append(depNodes, dn)
		if owner == nil {
			owner = dn
		}
	}
	node.Dependencies = depNodes

	for _, dn := range depNodes {
		for _, t := range dn.TransitiveDependencies() {
			if t.Package == p {
				return nil, errors.WrapReport(&errors.Report{
					Schema: errors.Schema, Code: errors.CodeCyclicPackageDep, Phase: "precompiler",
					Message: fmt.Sprintf("cyclic package dependency involving %q", p.Name),
				})
			}
		}
		if dn.Package == p {
			return nil, errors.WrapReport(&errors.Report{
				Schema: errors.Schema, Code: errors.CodeCyclicPackageDep, Phase: "precompiler",
				Message: fmt.Sprintf("cyclic package dependency involving %q", p.Name),
			})
		}
	}

	if owner != nil {
		owner.Children = append(owner.Children, node)
	} else {
		pc.trees = append(pc.trees, node)
	}
	return node, nil
}

// Roots returns the dependency-tree roots accumulated so far.
func (pc *Precompiler) Roots() []*pkg.DepNode { return pc.trees }
