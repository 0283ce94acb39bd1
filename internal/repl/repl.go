// Package repl implements the ambient interactive front-end over the
// pipeline and VM (spec.md §6 "collaborator", not a core module): read one
// line at a time, wrap it as an entry function body, compile it through
// internal/pipeline, and run it on a fresh internal/vm.Machine.
//
// Grounded on the teacher's internal/repl package: liner for line editing
// and history persistence, color-coded prompt/output, a `:command` set —
// generalized from driving a tree-walking Core evaluator to driving
// Lily's lex→preparse→precompile→parse→analyze→lower→interpret pipeline
// per input line.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/sunholo/lily/internal/errors"
	"github.com/sunholo/lily/internal/mir"
	"github.com/sunholo/lily/internal/pipeline"
	"github.com/sunholo/lily/internal/vm"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

const entryName = "__repl_entry"

// Config holds REPL configuration toggled by `:` commands.
type Config struct {
	ShowMIR bool
	Mode    vm.Mode
}

// REPL is one interactive session: eval history plus toggleable display
// options. Each evaluated line is independently compiled; the REPL does
// not carry forward bindings across lines (spec.md's checked AST has no
// notion of a persistent top-level scope outside one package).
type REPL struct {
	config  *Config
	history []string
	version string
}

// New creates a REPL running in debug (overflow-checked) mode.
func New(version string) *REPL {
	if version == "" {
		version = "dev"
	}
	return &REPL{config: &Config{Mode: vm.ModeDebug}, version: version}
}

// Start runs the read-eval-print loop over in/out until EOF or :quit.
func (r *REPL) Start(in io.Reader, out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(true)

	historyFile := filepath.Join(os.TempDir(), ".lily_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	fmt.Fprintf(out, "%s %s\n", bold("lily"), bold(r.version))
	fmt.Fprintln(out, dim("Type :help for help, :quit to exit"))
	fmt.Fprintln(out)

	line.SetCompleter(func(s string) (c []string) {
		if !strings.HasPrefix(s, ":") {
			return nil
		}
		for _, cmd := range []string{":help", ":quit", ":mir", ":release", ":debug", ":history"} {
			if strings.HasPrefix(cmd, s) {
				c = append(c, cmd)
			}
		}
		return c
	})

	for {
		input, err := line.Prompt(r.prompt())
		if err == io.EOF {
			fmt.Fprintln(out, green("\nGoodbye!"))
			break
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("error"), err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		r.history = append(r.history, input)

		if strings.HasPrefix(input, ":") {
			if r.handleCommand(input, out) {
				break
			}
			continue
		}

		r.evalLine(input, out)
	}

	if f, err := os.Create(historyFile); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

func (r *REPL) prompt() string {
	if r.config.Mode == vm.ModeRelease {
		return "lily[release]> "
	}
	return "lily> "
}

// handleCommand processes a `:`-prefixed command; returns true when the
// session should end.
func (r *REPL) handleCommand(cmd string, out io.Writer) bool {
	switch strings.Fields(cmd)[0] {
	case ":quit", ":q", ":exit":
		fmt.Fprintln(out, green("Goodbye!"))
		return true
	case ":help", ":h":
		fmt.Fprintln(out, "Commands: :help :quit :mir :debug :release :history")
	case ":mir":
		r.config.ShowMIR = !r.config.ShowMIR
		fmt.Fprintf(out, "MIR dump %s\n", onOff(r.config.ShowMIR))
	case ":debug":
		r.config.Mode = vm.ModeDebug
		fmt.Fprintln(out, "switched to debug (checked) arithmetic")
	case ":release":
		r.config.Mode = vm.ModeRelease
		fmt.Fprintln(out, "switched to release (wrapping) arithmetic")
	case ":history":
		for i, h := range r.history {
			fmt.Fprintf(out, "%4d  %s\n", i+1, h)
		}
	default:
		fmt.Fprintf(out, "%s: unknown command %q\n", yellow("warning"), cmd)
	}
	return false
}

// evalLine wraps input as the body of a nullary entry function, compiles
// it, and runs the result on a fresh VM.
func (r *REPL) evalLine(input string, out io.Writer) {
	src := fmt.Sprintf("fun %s() = (%s);", entryName, input)

	res, errs := pipeline.Compile("<repl>", src, pipeline.NoImportLoader{})
	if len(errs) > 0 {
		for _, e := range errs {
			printErr(out, e)
		}
		return
	}

	fn, ok := res.MIR.Functions[entryName]
	if !ok {
		fmt.Fprintf(out, "%s: entry function missing from lowered module\n", red("error"))
		return
	}

	if r.config.ShowMIR {
		fmt.Fprintln(out, dim(dumpFunction(fn)))
	}

	machine := vm.New(map[string]*mir.Module{res.MIR.PackageName: res.MIR}, r.config.Mode)
	val, err := machine.Call(res.MIR, fn, nil)
	if err != nil {
		printErr(out, err)
		return
	}
	fmt.Fprintln(out, val.String())
}

// dumpFunction renders fn's blocks as a flat instruction listing, used by
// the :mir toggle.
func dumpFunction(fn *mir.Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "fn %s -> %s\n", fn.Name, fn.Return)
	for i, blk := range fn.Blocks {
		fmt.Fprintf(&b, "  block%d (%s):\n", i, blk.Name)
		for _, instr := range blk.Instr {
			if instr.HasDst {
				fmt.Fprintf(&b, "    %%%d = %v %v\n", instr.Dst, instr.Op, instr.Args)
			} else {
				fmt.Fprintf(&b, "    %v %v\n", instr.Op, instr.Args)
			}
		}
		fmt.Fprintf(&b, "    %v\n", blk.Term.Kind)
	}
	return b.String()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func printErr(out io.Writer, err error) {
	if rep, ok := errors.AsReport(err); ok {
		fmt.Fprintln(out, red(errors.Render(rep, "")))
		return
	}
	fmt.Fprintf(out, "%s: %v\n", red("error"), err)
}
