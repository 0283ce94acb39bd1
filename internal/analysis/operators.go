package analysis

import (
	"fmt"

	"github.com/sunholo/lily/internal/analysis/checked"
	"github.com/sunholo/lily/internal/errors"
)

// operatorOverload is one candidate signature for a binary operator symbol
// (spec.md §4.4 "Operator resolution": "each operator symbol resolves
// against a table of overloads keyed by operand types; ambiguity between
// equally-specific overloads is an error").
type operatorOverload struct {
	Left, Right checked.Type
	Result      checked.Type
	Func        string
}

// OperatorRegistry is one package's operator overload table, seeded from
// the shared default numeric/string/bool overloads, mirroring
// original_source's LOAD_ROOT_PACKAGE_RESOURCES seeding every package's
// operator register from a shared defaults table. Nothing extends it with
// user-defined overloads: the parser has no `operator` declaration, so only
// the default overloads ever resolve.
type OperatorRegistry struct {
	overloads map[string][]operatorOverload
}

// NewOperatorRegistry creates a per-package registry pre-seeded with
// defaults, copied so appends to one package's registry never leak into
// another's.
func NewOperatorRegistry(defaults map[string][]operatorOverload) *OperatorRegistry {
	r := &OperatorRegistry{overloads: map[string][]operatorOverload{}}
	for op, overloads := range defaults {
		r.overloads[op] = append([]operatorOverload(nil), overloads...)
	}
	return r
}

// defaultOperatorOverloads builds the builtin numeric/string/bool overload
// set every package's registry starts from.
func defaultOperatorOverloads() map[string][]operatorOverload {
	table := map[string][]operatorOverload{}
	numeric := []checked.TypeKind{checked.TyInt, checked.TyFloat}
	for _, k := range numeric {
		t := checked.Type{Kind: k, Name: kindName(k)}
		for _, op := range []string{"+", "-", "*", "/", "%"} {
			table[op] = append(table[op], operatorOverload{
				Left: t, Right: t, Result: t, Func: builtinOpFunc(op, k),
			})
		}
		for _, op := range []string{"==", "not=", "<", "<=", ">", ">="} {
			table[op] = append(table[op], operatorOverload{
				Left: t, Right: t, Result: checked.Type{Kind: checked.TyBool, Name: "bool"}, Func: builtinOpFunc(op, k),
			})
		}
	}
	str := checked.Type{Kind: checked.TyString, Name: "str"}
	table["+"] = append(table["+"], operatorOverload{Left: str, Right: str, Result: str, Func: "str_concat"})
	boolT := checked.Type{Kind: checked.TyBool, Name: "bool"}
	for _, op := range []string{"and", "or"} {
		table[op] = append(table[op], operatorOverload{Left: boolT, Right: boolT, Result: boolT, Func: "bool_" + op})
	}
	return table
}

func kindName(k checked.TypeKind) string {
	if k == checked.TyInt {
		return "int"
	}
	return "float"
}

func builtinOpFunc(op string, k checked.TypeKind) string {
	return fmt.Sprintf("%s_%s", kindName(k), opName(op))
}

func opName(op string) string {
	switch op {
	case "+":
		return "add"
	case "-":
		return "sub"
	case "*":
		return "mul"
	case "/":
		return "div"
	case "%":
		return "mod"
	case "==":
		return "eq"
	case "not=":
		return "ne"
	case "<":
		return "lt"
	case "<=":
		return "le"
	case ">":
		return "gt"
	case ">=":
		return "ge"
	default:
		return op
	}
}

// resolve finds the unique overload matching op/left/right, per spec.md
// §4.4's ambiguity rule.
func (r *OperatorRegistry) resolve(op string, left, right checked.Type) (operatorOverload, error) {
	var matches []operatorOverload
	for _, o := range r.overloads[op] {
		if o.Left.Kind == left.Kind && o.Right.Kind == right.Kind {
			matches = append(matches, o)
		}
	}
	switch len(matches) {
	case 0:
		return operatorOverload{}, errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeUnresolvedOperator, Phase: "analysis",
			Message: fmt.Sprintf("no overload of %q for (%s, %s)", op, left, right),
		})
	case 1:
		return matches[0], nil
	default:
		return operatorOverload{}, errors.WrapReport(&errors.Report{
			Schema: errors.Schema, Code: errors.CodeAmbiguousOperator, Phase: "analysis",
			Message: fmt.Sprintf("ambiguous overload of %q for (%s, %s)", op, left, right),
		})
	}
}

// register appends an overload to this package's registry. It has no
// caller: no declaration form produces user-defined overloads.
func (r *OperatorRegistry) register(op string, o operatorOverload) {
	r.overloads[op] = append(r.overloads[op], o)
}
