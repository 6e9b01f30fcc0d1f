// Package lprolog is an embeddable interpreter for a higher-order
// logic-programming language in the λProlog family: first-class λ-terms,
// pattern-fragment higher-order unification with constraint delay outside
// it, implication and universal quantification in goals, and backtracking
// search.
//
// The host feeds the interpreter compiled programs and queries and consumes
// the resulting variable assignments and residual constraints. Surface
// syntax and the compiler live outside this module; terms are assembled
// with the engine package's constructors and printed with Sprint.
package lprolog

import (
	"github.com/ichiban/lprolog/engine"
)

// Interpreter is a λProlog interpreter with the core built-ins registered.
type Interpreter struct {
	*engine.VM
}

// New creates an interpreter with the default built-ins and evaluable
// symbols installed.
func New() *Interpreter {
	i := &Interpreter{VM: engine.NewVM()}
	i.RegisterCoreBuiltins()
	return i
}

// Options are the solver options the reference driver exposes as flags.
type Options struct {
	Trace                bool
	DelayOutsideFragment bool
	MaxSteps             uint64
	DocumentBuiltins     bool
}

// SetOptions applies driver options to the interpreter.
func (i *Interpreter) SetOptions(o Options) {
	i.Trace = o.Trace
	i.DelayOutsideFragment = o.DelayOutsideFragment
	i.MaxSteps = o.MaxSteps
}

// Const interns a constant name.
func (i *Interpreter) Const(name string) engine.Const {
	return i.Symbols.Intern(name)
}

// Int injects an integer.
func (i *Interpreter) Int(v int64) engine.Term {
	return i.CData.MkInt(v)
}

// Float injects a float.
func (i *Interpreter) Float(v float64) engine.Term {
	return i.CData.MkFloat(v)
}

// Str injects a string.
func (i *Interpreter) Str(s string) engine.Term {
	return i.CData.MkString(s)
}

// Query starts the search for solutions of a compiled query. Solutions are
// produced lazily as Next is called.
func (i *Interpreter) Query(q *engine.Query) *Solutions {
	return &Solutions{vm: i.VM, query: q}
}
