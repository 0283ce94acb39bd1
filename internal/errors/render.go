package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	caretColor = color.New(color.FgCyan, color.Bold)
)

// Render produces the user-visible form specified in spec.md §7: file/path,
// line/column range, a caret under the offending token span, and a
// single-sentence description. source, if non-empty, is the offending
// source line used to draw the caret underline.
func Render(r *Report, source string) string {
	var b strings.Builder

	label := errColor.Sprintf("error[%s]", r.Code)
	if r.IsWarning {
		label = warnColor.Sprintf("warning[%s]", r.Code)
	}

	loc := "?"
	if r.Loc != nil {
		loc = fmt.Sprintf("%s:%d:%d", r.Loc.FileID, r.Loc.StartLine, r.Loc.StartCol)
	}

	fmt.Fprintf(&b, "%s: %s\n  --> %s\n", label, r.Message, loc)

	if source != "" && r.Loc != nil {
		b.WriteString("   | " + source + "\n")
		width := r.Loc.EndCol - r.Loc.StartCol
		if width < 1 {
			width = 1
		}
		pad := r.Loc.StartCol - 1 // columns are 1-based
		if pad < 0 {
			pad = 0
		}
		underline := strings.Repeat(" ", pad) + caretColor.Sprint(strings.Repeat("^", width))
		b.WriteString("   | " + underline + "\n")
	}

	if r.Fix != nil {
		fmt.Fprintf(&b, "   = help: %s\n", r.Fix.Message)
	}

	return b.String()
}
