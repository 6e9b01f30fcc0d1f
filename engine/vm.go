package engine

import (
	"github.com/sirupsen/logrus"
)

// VM is the core of a λProlog interpreter: the term store, the unification
// variable heap, the trail, the program database and the solver state. A VM
// is strictly single-threaded; the host must serialise calls.
type VM struct {
	// Symbols interns constant names. Grow-only, read-only during solving.
	Symbols *SymbolTable
	// CData registers opaque host value types.
	CData *CDataRegistry
	// Builtins registers foreign predicates.
	Builtins *BuiltinRegistry
	// Evaluables registers the symbols the arithmetic evaluator accepts.
	Evaluables *EvalTable
	// Streams is the handle table used by the I/O built-ins.
	Streams *StreamTable

	// Trace enables the goal tracer.
	Trace bool
	// DelayOutsideFragment suspends equations outside the higher-order
	// pattern fragment instead of reporting an error.
	DelayOutsideFragment bool
	// MaxSteps bounds the number of goal dispatches per solve; zero means no
	// bound. Exceeding it surfaces ErrNoMoreSteps.
	MaxSteps uint64

	// OnWarn receives non-fatal diagnostics. Defaults to logrus.
	OnWarn func(string)
	// OnError intercepts fatal errors before they propagate to the host.
	OnError func(error) error

	db         *DB
	components map[string]StateComponent
	quotations map[string]Quotation

	trail   []trailEntry
	store   []*suspension
	woken   []*suspension
	state   map[string]interface{}
	goals   []goalFrame
	choices []choicePoint
	steps   uint64
	varID   uint64
	query   *Query
	slots   []Term
	tracer  *tracer
}

// StateComponent declares a host state component threaded through solving.
// Updates are functional and rolled back by the trail.
type StateComponent struct {
	Init func() interface{}
	Pp   func(interface{}) string
}

// Quotation lowers an embedded DSL fragment into a core term during
// compilation. It is invoked by the external parser, never by the solver.
type Quotation func(depth int, state map[string]interface{}, loc Loc, source string) (map[string]interface{}, Term, error)

// NewVM creates a VM with the reserved symbols and primitive data types
// installed and no predicates defined.
func NewVM() *VM {
	vm := &VM{
		Symbols:    NewSymbolTable(),
		CData:      NewCDataRegistry(),
		Builtins:   NewBuiltinRegistry(),
		components: map[string]StateComponent{},
		quotations: map[string]Quotation{},
		state:      map[string]interface{}{},
		db:         NewDB(nil),
	}
	vm.Evaluables = NewEvalTable(vm)
	vm.Streams = NewStreamTable()
	vm.OnWarn = func(msg string) { logrus.Warn(msg) }
	return vm
}

// DeclareState registers a named state component. The component's Init value
// is installed the first time a query runs.
func (vm *VM) DeclareState(name string, c StateComponent) {
	vm.components[name] = c
}

// State returns the current value of a state component.
func (vm *VM) State(name string) (interface{}, bool) {
	v, ok := vm.state[name]
	return v, ok
}

// RegisterQuotation registers a quotation under name.
func (vm *VM) RegisterQuotation(name string, q Quotation) {
	vm.quotations[name] = q
}

// LookupQuotation returns the quotation registered under name.
func (vm *VM) LookupQuotation(name string) (Quotation, bool) {
	q, ok := vm.quotations[name]
	return q, ok
}

func (vm *VM) initState() {
	for name, c := range vm.components {
		if _, ok := vm.state[name]; !ok && c.Init != nil {
			vm.state[name] = c.Init()
		}
	}
}
