package engine

// goalFrame is one entry of the goal stack. Each frame carries the database
// visible to the goal (implication layers) and the choice-stack height the
// enclosing clause entry recorded as its cut barrier.
type goalFrame struct {
	goal  Term
	depth int
	db    *DB
	cutTo int
	exit  *traceCall // sentinel frame closing a tracer scope
}

// alternatives is what a choice point resumes with: either the right branch
// of a disjunction or the remaining clause candidates of a call.
type alternatives struct {
	goal    *goalFrame
	clauses []*Clause
	call    goalFrame
	head    Const
	args    []Term
}

// choicePoint snapshots the solver at a branching point.
type choicePoint struct {
	trailMark int
	goals     []goalFrame
	alt       alternatives
}

// Solution is a successful answer: the query variables fully dereferenced,
// the live constraint store and the host state components.
type Solution struct {
	Assignments map[string]Term
	Constraints []Suspension
	State       map[string]interface{}
}

// Solve runs a query against the loaded program and returns the first
// solution, nil if the search fails, or an error. Solver state from any
// previous query is discarded.
func (vm *VM) Solve(q *Query) (s *Solution, err error) {
	defer vm.recoverAnomaly(&err)
	vm.resetSolver()
	vm.initState()
	vm.query = q
	vm.slots = make([]Term, q.NVars)
	for i := range vm.slots {
		vm.slots[i] = &UVar{Ref: vm.NewVar(0), From: 0}
	}
	if vm.Trace && vm.tracer == nil {
		vm.tracer = newTracer(vm)
	}
	inst := instantiator{vm: vm, vars: vm.slots, base: 0, depth: 0}
	goal := inst.walk(q.Goal)
	vm.goals = append(vm.goals, goalFrame{goal: goal, depth: 0, db: vm.db})
	return vm.run()
}

// Next resumes the search for the next solution after a success. It returns
// nil when the alternatives are exhausted.
func (vm *VM) Next() (s *Solution, err error) {
	defer vm.recoverAnomaly(&err)
	if vm.query == nil {
		return nil, vm.anomaly("Next before Solve")
	}
	ok, err := vm.backtrack()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return vm.run()
}

// Load appends a compiled program to the interpreter's database.
func (vm *VM) Load(p Program) error {
	return vm.db.Load(p)
}

func (vm *VM) resetSolver() {
	vm.trail = vm.trail[:0]
	vm.store = vm.store[:0]
	vm.woken = vm.woken[:0]
	vm.goals = vm.goals[:0]
	vm.choices = vm.choices[:0]
	vm.steps = 0
}

func (vm *VM) recoverAnomaly(err *error) {
	if r := recover(); r != nil {
		a, ok := r.(*AnomalyError)
		if !ok {
			panic(r)
		}
		*err = vm.fatal(a)
	}
}

// run is the dispatch loop. Each iteration counts as one step against
// MaxSteps; woken suspensions are drained before any further dispatch so the
// store is quiescent at every choice point.
func (vm *VM) run() (*Solution, error) {
	for {
		if len(vm.woken) > 0 {
			s := vm.woken[0]
			vm.woken = vm.woken[1:]
			vm.goals = append(vm.goals, goalFrame{goal: s.goal, depth: s.depth, db: s.db, cutTo: len(vm.choices)})
			continue
		}
		if len(vm.goals) == 0 {
			vm.compactStore()
			return vm.solution(), nil
		}
		if vm.MaxSteps > 0 && vm.steps >= vm.MaxSteps {
			return nil, ErrNoMoreSteps
		}
		vm.steps++

		f := vm.goals[len(vm.goals)-1]
		vm.goals = vm.goals[:len(vm.goals)-1]
		if f.exit != nil {
			vm.tracer.exit(f.exit)
			continue
		}

		ok, err := vm.dispatch(f)
		if err != nil {
			return nil, err
		}
		if !ok {
			ok, err = vm.backtrack()
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
		}
	}
}

// dispatch runs one goal. It returns false to request backtracking.
func (vm *VM) dispatch(f goalFrame) (bool, error) {
	g := vm.deref(f.depth, f.goal)
	switch x := g.(type) {
	case Const:
		switch x {
		case ConstTrue:
			return true, nil
		case ConstFail:
			return false, nil
		case ConstCut:
			vm.cut(f.cutTo)
			return true, nil
		default:
			if x >= 0 {
				return false, vm.typeError("predicate", g)
			}
			return vm.call(f, x, nil)
		}
	case *App:
		switch x.Head {
		case ConstComma, ConstAnd:
			for i := len(x.Args) - 1; i >= 0; i-- {
				vm.goals = append(vm.goals, goalFrame{goal: x.Args[i], depth: f.depth, db: f.db, cutTo: f.cutTo})
			}
			return true, nil
		case ConstSemicolon:
			if len(x.Args) != 2 {
				return false, vm.typeError("binary disjunction", g)
			}
			alt := goalFrame{goal: x.Args[1], depth: f.depth, db: f.db, cutTo: f.cutTo}
			vm.pushChoice(alternatives{goal: &alt})
			vm.goals = append(vm.goals, goalFrame{goal: x.Args[0], depth: f.depth, db: f.db, cutTo: f.cutTo})
			return true, nil
		case ConstImpl:
			if len(x.Args) != 2 {
				return false, vm.typeError("implication", g)
			}
			db, err := vm.assume(f.depth, f.db, x.Args[0])
			if err != nil {
				return false, err
			}
			vm.goals = append(vm.goals, goalFrame{goal: x.Args[1], depth: f.depth, db: db, cutTo: f.cutTo})
			return true, nil
		case ConstPi:
			if len(x.Args) != 1 {
				return false, vm.typeError("quantified goal", g)
			}
			l, ok := vm.deref(f.depth, x.Args[0]).(*Lam)
			if !ok {
				return false, vm.typeError("abstraction under pi", x.Args[0])
			}
			// The bound variable becomes the fresh local constant
			// Const(depth): not a uvar, never assignable.
			vm.goals = append(vm.goals, goalFrame{goal: l.Body, depth: f.depth + 1, db: f.db, cutTo: f.cutTo})
			return true, nil
		case ConstSigma:
			if len(x.Args) != 1 {
				return false, vm.typeError("quantified goal", g)
			}
			l, ok := vm.deref(f.depth, x.Args[0]).(*Lam)
			if !ok {
				return false, vm.typeError("abstraction under sigma", x.Args[0])
			}
			fresh := &UVar{Ref: vm.NewVar(f.depth), From: f.depth}
			body := vm.beta(f.depth, f.depth, l, []Term{fresh})
			vm.goals = append(vm.goals, goalFrame{goal: body, depth: f.depth, db: f.db, cutTo: f.cutTo})
			return true, nil
		case ConstEq:
			if len(x.Args) != 2 {
				return false, vm.typeError("equation", g)
			}
			out, blockers, err := vm.Unify(f.depth, x.Args[0], x.Args[1])
			if err != nil {
				return false, err
			}
			switch out {
			case UnifyOK:
				return true, nil
			case UnifyDelay:
				vm.suspend(g, f.depth, f.db, blockers, false)
				return true, nil
			default:
				return false, nil
			}
		case ConstRImpl:
			return false, vm.typeError("goal", g)
		case ConstSpill:
			return false, vm.runtimeError("spilling reached the solver; lower it in the compiler")
		default:
			if x.Head >= 0 {
				return false, vm.typeError("predicate", g)
			}
			return vm.call(f, x.Head, x.Args)
		}
	case *Builtin:
		return vm.callBuiltin(f, x)
	case *UVar, *AppUVar:
		return false, vm.runtimeError("uninstantiated goal")
	default:
		return false, vm.typeError("goal", g)
	}
}

// call resolves a user predicate against the indexed database.
func (vm *VM) call(f goalFrame, head Const, args []Term) (bool, error) {
	var firstArg Term
	if len(args) > 0 {
		firstArg = vm.deref(f.depth, args[0])
	}
	cs := f.db.Candidates(head, firstArg)
	if len(cs) == 0 {
		if !f.db.Defined(head) {
			vm.warn("unknown predicate " + vm.Symbols.Name(head))
		}
		vm.tracer.fail(f.depth, head, args)
		return false, nil
	}
	if tc := vm.tracer.enter(f.depth, head, args); tc != nil {
		vm.goals = append(vm.goals, goalFrame{exit: tc})
	}
	call := goalFrame{goal: f.goal, depth: f.depth, db: f.db, cutTo: f.cutTo}
	return vm.resolve(call, head, args, cs[0], cs[1:])
}

// resolve tries one clause, leaving the rest as a choice point.
func (vm *VM) resolve(call goalFrame, head Const, args []Term, c *Clause, rest []*Clause) (bool, error) {
	barrier := len(vm.choices)
	if len(rest) > 0 {
		vm.pushChoice(alternatives{clauses: rest, call: call, head: head, args: args})
	}
	env := vm.renameClause(call.depth, c)
	for i, ha := range env.headArgs {
		if i >= len(args) {
			return false, nil
		}
		out, blockers, err := vm.Unify(call.depth, args[i], ha)
		if err != nil {
			return false, err
		}
		switch out {
		case UnifyDelay:
			// A head unification outside the fragment suspends the residual
			// equation and proceeds, like an explicit leading equation would.
			vm.suspend(MkApp(ConstEq, args[i], ha), call.depth, call.db, blockers, false)
		case UnifyFail:
			return false, nil
		}
	}
	if len(env.headArgs) != len(args) {
		return false, nil
	}
	if env.body != nil {
		vm.goals = append(vm.goals, goalFrame{goal: env.body, depth: call.depth, db: call.db, cutTo: barrier})
	}
	return true, nil
}

type clauseEnv struct {
	headArgs []Term
	body     Term
}

// renameClause instantiates a clause for a call at the given depth: slot
// variables become fresh uvars, and the clause's terms lift from the depth it
// was stated at to the call depth. Levels below the clause depth are
// root-relative references into the shared context and stay put.
func (vm *VM) renameClause(depth int, c *Clause) clauseEnv {
	vars := make([]Term, c.NVars)
	for i := range vars {
		vars[i] = &UVar{Ref: vm.NewVar(depth), From: depth}
	}
	inst := instantiator{vm: vm, vars: vars, base: c.Depth, depth: depth}
	env := clauseEnv{headArgs: make([]Term, len(c.Args))}
	for i, a := range c.Args {
		env.headArgs[i] = inst.walk(a)
	}
	if c.Body != nil {
		env.body = inst.walk(c.Body)
	}
	return env
}

// instantiator replaces Arg/AppArg slots with the given variables and lifts
// the clause from its root depth to the use depth in a single pass.
type instantiator struct {
	vm    *VM
	vars  []Term
	base  int
	depth int
}

func (in *instantiator) delta() int {
	return in.depth - in.base
}

func (in *instantiator) walk(t Term) Term {
	switch x := t.(type) {
	case Arg:
		return in.slot(x.Slot)
	case *AppArg:
		return in.vm.applyAt(in.depth, in.slot(x.Slot), in.walkAll(x.Args))
	case Const:
		if x >= 0 && int(x) >= in.base {
			return Const(int(x) + in.delta())
		}
		return x
	case *Lam:
		return &Lam{Body: in.walk(x.Body)}
	case *App:
		h := x.Head
		if h >= 0 && int(h) >= in.base {
			h = Const(int(h) + in.delta())
		}
		return applyTerm(h, in.walkAll(x.Args))
	case *Cons:
		return &Cons{Head: in.walk(x.Head), Tail: in.walk(x.Tail)}
	case *Builtin:
		return &Builtin{ID: x.ID, Args: in.walkAll(x.Args)}
	case Discard:
		return &UVar{Ref: in.vm.NewVar(in.depth), From: in.depth}
	case Nil, *CData:
		return x
	case *UVar:
		// Hypothetical clauses keep sharing their uvars; only the lift base
		// moves.
		if in.delta() == 0 || x.From+x.NArgs <= in.base {
			return x
		}
		if x.From >= in.base {
			return &UVar{Ref: x.Ref, From: x.From + in.delta(), NArgs: x.NArgs}
		}
		return &AppUVar{Ref: x.Ref, From: x.From, Args: in.walkAll(etaArgs(x.From, x.NArgs))}
	case *AppUVar:
		f := x.From
		if f >= in.base {
			f += in.delta()
		}
		return mkUVarApp(x.Ref, f, in.walkAll(x.Args))
	default:
		anomalyf("instantiate: unexpected term %T", t)
		return nil
	}
}

func (in *instantiator) slot(i int) Term {
	if i < 0 || i >= len(in.vars) {
		anomalyf("clause slot %d out of range", i)
	}
	return in.vars[i]
}

func (in *instantiator) walkAll(args []Term) []Term {
	out := make([]Term, len(args))
	for i, a := range args {
		out[i] = in.walk(a)
	}
	return out
}

// assume turns the left-hand side of an implication into a database layer
// stacked above db. Conjunctions load multiple clauses. The layer is
// discarded on backtracking past the implication simply because no remaining
// frame references it.
func (vm *VM) assume(depth int, db *DB, hyp Term) (*DB, error) {
	layer := NewDB(db)
	if err := vm.assumeInto(layer, depth, hyp); err != nil {
		return nil, err
	}
	return layer, nil
}

func (vm *VM) assumeInto(layer *DB, depth int, hyp Term) error {
	h := vm.deref(depth, hyp)
	if x, ok := h.(*App); ok && (x.Head == ConstComma || x.Head == ConstAnd) {
		for _, a := range x.Args {
			if err := vm.assumeInto(layer, depth, a); err != nil {
				return err
			}
		}
		return nil
	}
	c, err := vm.clauseOfTerm(depth, h)
	if err != nil {
		return err
	}
	return layer.Assert(c)
}

// clauseOfTerm converts a runtime term into a clause stated at the given
// depth. Unification variables in the term stay shared: a hypothesis about X
// talks about the same X as the goal that loaded it.
func (vm *VM) clauseOfTerm(depth int, t Term) (*Clause, error) {
	t = vm.deref(depth, t)
	var head Term
	var body Term
	if x, ok := t.(*App); ok && x.Head == ConstRImpl && len(x.Args) == 2 {
		head, body = x.Args[0], x.Args[1]
	}
	if head == nil {
		head = t
	}
	switch h := vm.deref(depth, head).(type) {
	case Const:
		if h >= 0 {
			return nil, vm.typeError("clause head", head)
		}
		return &Clause{Head: h, Body: body, Depth: depth}, nil
	case *App:
		if h.Head >= 0 {
			return nil, vm.typeError("clause head", head)
		}
		return &Clause{Head: h.Head, Args: h.Args, Body: body, Depth: depth}, nil
	default:
		return nil, vm.typeError("clause head", head)
	}
}

func (vm *VM) pushChoice(alt alternatives) {
	goals := make([]goalFrame, len(vm.goals))
	copy(goals, vm.goals)
	vm.choices = append(vm.choices, choicePoint{
		trailMark: vm.mark(),
		goals:     goals,
		alt:       alt,
	})
}

// cut prunes the choice stack back to the barrier installed by the enclosing
// clause entry. Bindings made since are kept; only the alternatives go.
func (vm *VM) cut(barrier int) {
	if barrier > len(vm.choices) {
		return
	}
	for i := barrier; i < len(vm.choices); i++ {
		vm.choices[i] = choicePoint{}
	}
	vm.choices = vm.choices[:barrier]
}

// backtrack pops the top choice point, undoes the trail to its mark, restores
// the goal stack and resumes the next alternative. It returns false when the
// search space is exhausted.
func (vm *VM) backtrack() (bool, error) {
	vm.woken = vm.woken[:0]
	for len(vm.choices) > 0 {
		cp := &vm.choices[len(vm.choices)-1]
		vm.undoTo(cp.trailMark)
		vm.goals = append(vm.goals[:0], cp.goals...)

		if cp.alt.goal != nil {
			g := *cp.alt.goal
			vm.choices = vm.choices[:len(vm.choices)-1]
			vm.goals = append(vm.goals, g)
			return true, nil
		}
		if len(cp.alt.clauses) > 0 {
			c := cp.alt.clauses[0]
			rest := cp.alt.clauses[1:]
			call, head, args := cp.alt.call, cp.alt.head, cp.alt.args
			vm.choices = vm.choices[:len(vm.choices)-1]
			vm.tracer.redo(call.depth, head, args)
			ok, err := vm.resolve(call, head, args, c, rest)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
			continue
		}
		vm.choices = vm.choices[:len(vm.choices)-1]
	}
	return false, nil
}

// callBuiltin dispatches a registered foreign predicate.
func (vm *VM) callBuiltin(f goalFrame, b *Builtin) (bool, error) {
	d := vm.Builtins.decl(b.ID)
	if d == nil {
		return false, vm.anomaly("unregistered builtin %d", int(b.ID))
	}
	if d.Arity >= 0 && d.Arity != len(b.Args) {
		return false, vm.typeError(d.Name+" arity", b)
	}
	extra, err := d.Fn(&BuiltinCall{
		VM:          vm,
		Depth:       f.depth,
		Hyps:        f.db,
		Constraints: vm.Constraints(),
		State:       vm.state,
		Args:        b.Args,
	})
	if err != nil {
		if err == ErrNoClause {
			return false, nil
		}
		return false, vm.fatal(err)
	}
	for i := len(extra) - 1; i >= 0; i-- {
		vm.goals = append(vm.goals, goalFrame{goal: extra[i], depth: f.depth, db: f.db, cutTo: f.cutTo})
	}
	return true, nil
}

// solution publishes the current assignments, constraints and state.
func (vm *VM) solution() *Solution {
	s := &Solution{
		Assignments: map[string]Term{},
		Constraints: vm.Constraints(),
		State:       map[string]interface{}{},
	}
	if vm.query != nil {
		for name, slot := range vm.query.VarNames {
			if slot >= 0 && slot < len(vm.slots) {
				s.Assignments[name] = vm.Expand(0, vm.slots[slot])
			}
		}
	}
	for k, v := range vm.state {
		s.State[k] = v
	}
	return s
}

// Expand fully dereferences a term, substituting every assigned variable.
func (vm *VM) Expand(depth int, t Term) Term {
	switch x := vm.deref(depth, t).(type) {
	case *Lam:
		return &Lam{Body: vm.Expand(depth+1, x.Body)}
	case *App:
		args := make([]Term, len(x.Args))
		for i, a := range x.Args {
			args[i] = vm.Expand(depth, a)
		}
		return &App{Head: x.Head, Args: args}
	case *Cons:
		return &Cons{Head: vm.Expand(depth, x.Head), Tail: vm.Expand(depth, x.Tail)}
	case *Builtin:
		args := make([]Term, len(x.Args))
		for i, a := range x.Args {
			args[i] = vm.Expand(depth, a)
		}
		return &Builtin{ID: x.ID, Args: args}
	case *AppUVar:
		args := make([]Term, len(x.Args))
		for i, a := range x.Args {
			args[i] = vm.Expand(depth, a)
		}
		return &AppUVar{Ref: x.Ref, From: x.From, Args: args}
	default:
		return x
	}
}
