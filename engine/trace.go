package engine

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// tracer reports CALL/EXIT/REDO/FAIL events for user predicate calls, in the
// classic four-port style. Output is colored when the sink is a terminal.
type tracer struct {
	vm  *VM
	out io.Writer

	call *color.Color
	exitC *color.Color
	redoC *color.Color
	failC *color.Color
}

// traceCall is an open CALL scope; the solver pops it with a sentinel goal
// frame once the call's subtree succeeds.
type traceCall struct {
	depth int
	head  Const
	args  []Term
}

func newTracer(vm *VM) *tracer {
	t := &tracer{
		vm:    vm,
		out:   os.Stderr,
		call:  color.New(color.FgGreen),
		exitC: color.New(color.FgCyan),
		redoC: color.New(color.FgYellow),
		failC: color.New(color.FgRed),
	}
	if f, ok := t.out.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		for _, c := range []*color.Color{t.call, t.exitC, t.redoC, t.failC} {
			c.DisableColor()
		}
	}
	return t
}

func (t *tracer) goal(depth int, head Const, args []Term) string {
	return t.vm.SprintDepth(depth, MkApp(head, args...))
}

func (t *tracer) event(c *color.Color, port string, depth int, head Const, args []Term) {
	_, _ = fmt.Fprintf(t.out, "%s %s\n", c.Sprint(port), t.goal(depth, head, args))
}

func (t *tracer) enter(depth int, head Const, args []Term) *traceCall {
	if t == nil {
		return nil
	}
	t.event(t.call, "CALL", depth, head, args)
	return &traceCall{depth: depth, head: head, args: args}
}

func (t *tracer) exit(tc *traceCall) {
	if t == nil || tc == nil {
		return
	}
	t.event(t.exitC, "EXIT", tc.depth, tc.head, tc.args)
}

func (t *tracer) redo(depth int, head Const, args []Term) {
	if t == nil {
		return
	}
	t.event(t.redoC, "REDO", depth, head, args)
}

func (t *tracer) fail(depth int, head Const, args []Term) {
	if t == nil {
		return
	}
	t.event(t.failC, "FAIL", depth, head, args)
}
