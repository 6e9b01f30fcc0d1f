package engine

import "fmt"

// Motion and dereference.
//
// Depth bookkeeping follows a single convention: a term valid at depth d has
// free levels in [0, d); a Lam entered at depth d binds level d. A uvar cell
// holds a term valid at its allocation depth, λ-abstracted over any pattern
// arguments. An η-expanded node UVar{r, from, n} stands for r's value lifted
// to from and applied to Const(from) … Const(from+n-1); because the lift
// renumbers the leading binders to exactly those levels, contracting the
// η-redexes is the identity substitution and deref stays allocation-light.

// anomalyf aborts on a violated internal invariant. Solve recovers the panic
// at the host boundary.
func anomalyf(format string, args ...interface{}) {
	panic(&AnomalyError{Msg: fmt.Sprintf(format, args...)})
}

// errScope reports a bound variable escaping into a context of smaller depth.
type errScope struct {
	level int
}

func (e errScope) Error() string {
	return fmt.Sprintf("bound variable x%d escapes its scope", e.level)
}

// deref removes indirections through assigned uvar heads until the head is
// not an assigned variable. depth is the depth the term is inspected at.
func (vm *VM) deref(depth int, t Term) Term {
	for {
		switch x := t.(type) {
		case *UVar:
			if x.Ref.Unbound() {
				return t
			}
			t = vm.derefUV(x.Ref, x.From, depth, x.NArgs)
		case *AppUVar:
			if x.Ref.Unbound() {
				return t
			}
			t = vm.appDeref(x.Ref, x.From, depth, x.Args)
		case Arg, *AppArg:
			anomalyf("clause slot reached the solver")
		default:
			return t
		}
	}
}

// derefUV instantiates an assigned η-expanded uvar node for use at depth to.
// The η-redexes contract by dropping binders; leftover arguments, if the
// stored term has fewer λs than nargs, are applied explicitly.
func (vm *VM) derefUV(r *VarBody, from, to, nargs int) Term {
	t := vm.lift(r.Depth, from, r.Ref)
	n := 0
	for n < nargs {
		l, ok := t.(*Lam)
		if !ok {
			break
		}
		t = l.Body
		n++
	}
	t = vm.lift(from+n, to, t)
	if n < nargs {
		t = vm.applyAt(to, t, etaArgs(from+n, nargs-n))
	}
	return t
}

// appDeref instantiates an assigned uvar applied to explicit arguments,
// contracting the resulting β-redexes. args are valid at depth to.
func (vm *VM) appDeref(r *VarBody, from, to int, args []Term) Term {
	t := vm.lift(r.Depth, from, r.Ref)
	return vm.beta(from, to, t, args)
}

// applyAt attaches args to a dereferenced head at the given depth,
// contracting β-redexes if the head is an abstraction.
func (vm *VM) applyAt(depth int, t Term, args []Term) Term {
	if len(args) == 0 {
		return t
	}
	t = vm.deref(depth, t)
	if _, ok := t.(*Lam); ok {
		return vm.beta(depth, depth, t, args)
	}
	r := applyTerm(t, args)
	if r == nil {
		anomalyf("application of a non-functional head")
	}
	return r
}

// lift renumbers bound-variable levels upward: levels >= from shift by
// (to-from). It is total for to >= from; moving downward goes through move.
func (vm *VM) lift(from, to int, t Term) Term {
	if from == to {
		return t
	}
	if to < from {
		anomalyf("lift called downward (%d -> %d)", from, to)
	}
	return vm.shift(from, to-from, t)
}

func (vm *VM) shift(from, delta int, t Term) Term {
	switch x := t.(type) {
	case Const:
		if x >= 0 && int(x) >= from {
			return Const(int(x) + delta)
		}
		return x
	case *Lam:
		return &Lam{Body: vm.shift(from, delta, x.Body)}
	case *App:
		h := x.Head
		if h >= 0 && int(h) >= from {
			h = Const(int(h) + delta)
		}
		return &App{Head: h, Args: vm.shiftAll(from, delta, x.Args)}
	case *Cons:
		return &Cons{Head: vm.shift(from, delta, x.Head), Tail: vm.shift(from, delta, x.Tail)}
	case *Builtin:
		return &Builtin{ID: x.ID, Args: vm.shiftAll(from, delta, x.Args)}
	case *UVar:
		if !x.Ref.Unbound() {
			return vm.shift(from, delta, vm.derefUV(x.Ref, x.From, x.From+x.NArgs, x.NArgs))
		}
		switch {
		case x.From >= from:
			return &UVar{Ref: x.Ref, From: x.From + delta, NArgs: x.NArgs}
		case x.From+x.NArgs <= from:
			return x
		default:
			// The η-args straddle the shift boundary; fall back to the
			// explicit form.
			return &AppUVar{Ref: x.Ref, From: x.From, Args: vm.shiftAll(from, delta, etaArgs(x.From, x.NArgs))}
		}
	case *AppUVar:
		if !x.Ref.Unbound() {
			return vm.shift(from, delta, vm.appDeref(x.Ref, x.From, x.From, x.Args))
		}
		f := x.From
		if f >= from {
			f += delta
		}
		return mkUVarApp(x.Ref, f, vm.shiftAll(from, delta, x.Args))
	case Nil, Discard, *CData:
		return x
	case Arg, *AppArg:
		anomalyf("clause slot reached lift")
		return nil
	default:
		anomalyf("lift: unexpected term %T", t)
		return nil
	}
}

func (vm *VM) shiftAll(from, delta int, args []Term) []Term {
	out := make([]Term, len(args))
	for i, a := range args {
		out[i] = vm.shift(from, delta, a)
	}
	return out
}

// move rewrites a term valid at depth from for use at depth to. Levels >=
// from shift by (to-from); when to < from, a level in [to, from) cannot be
// represented at the target depth: inside a uvar's argument list the uvar is
// pruned, anywhere else move fails with a scope error.
func (vm *VM) move(from, to int, t Term) (Term, error) {
	if to >= from {
		return vm.lift(from, to, t), nil
	}
	return vm.lower(from, to, t)
}

func (vm *VM) lower(from, to int, t Term) (Term, error) {
	delta := to - from
	switch x := t.(type) {
	case Const:
		return lowerConst(x, from, delta)
	case *Lam:
		b, err := vm.lower(from, to, x.Body)
		if err != nil {
			return nil, err
		}
		return &Lam{Body: b}, nil
	case *App:
		h, err := lowerConst(x.Head, from, delta)
		if err != nil {
			return nil, err
		}
		args, err := vm.lowerAll(from, to, x.Args)
		if err != nil {
			return nil, err
		}
		return applyTerm(h, args), nil
	case *Cons:
		h, err := vm.lower(from, to, x.Head)
		if err != nil {
			return nil, err
		}
		tl, err := vm.lower(from, to, x.Tail)
		if err != nil {
			return nil, err
		}
		return &Cons{Head: h, Tail: tl}, nil
	case *Builtin:
		args, err := vm.lowerAll(from, to, x.Args)
		if err != nil {
			return nil, err
		}
		return &Builtin{ID: x.ID, Args: args}, nil
	case *UVar:
		if !x.Ref.Unbound() {
			return vm.lower(from, to, vm.derefUV(x.Ref, x.From, from, x.NArgs))
		}
		return vm.lowerUVar(from, to, x.Ref, x.From, etaArgs(x.From, x.NArgs))
	case *AppUVar:
		if !x.Ref.Unbound() {
			return vm.lower(from, to, vm.appDeref(x.Ref, x.From, from, x.Args))
		}
		return vm.lowerUVar(from, to, x.Ref, x.From, x.Args)
	case Nil, Discard, *CData:
		return x, nil
	default:
		anomalyf("move: unexpected term %T", t)
		return nil, nil
	}
}

func lowerConst(c Const, from, delta int) (Term, error) {
	switch {
	case c < 0 || int(c) < from+delta:
		return c, nil
	case int(c) >= from:
		return Const(int(c) + delta), nil
	default:
		return nil, errScope{level: int(c)}
	}
}

func (vm *VM) lowerAll(from, to int, args []Term) ([]Term, error) {
	out := make([]Term, len(args))
	for i, a := range args {
		b, err := vm.lower(from, to, a)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// lowerUVar moves an unbound uvar occurrence downward. Arguments that escape
// the target depth are pruned away: the cell is assigned a restriction that
// routes the surviving arguments through a fresh, narrower variable.
func (vm *VM) lowerUVar(from, to int, r *VarBody, nodeFrom int, args []Term) (Term, error) {
	kept := make([]int, 0, len(args))
	mapped := make([]Term, 0, len(args))
	prune := false
	for i, a := range args {
		b, err := vm.lower(from, to, a)
		if err != nil {
			if _, ok := a.(Const); !ok {
				// A non-variable argument mentions an escaping level; there
				// is no single restriction that removes it.
				return nil, err
			}
			prune = true
			continue
		}
		kept = append(kept, i)
		mapped = append(mapped, b)
	}
	f := nodeFrom
	if f > to {
		f = to
	}
	if r.Depth > to {
		// The variable itself could capture levels invisible at the target
		// depth; narrow it unconditionally.
		prune = true
	}
	if !prune {
		return mkUVarApp(r, f, mapped), nil
	}
	nr := vm.pruneVar(r, len(args), kept, to)
	return mkUVarApp(nr, f, mapped), nil
}

// pruneVar assigns r a restriction keeping only the argument positions in
// keep, routed through a fresh variable allocated at depth at most maxDepth.
// The assignment is trailed like any other.
func (vm *VM) pruneVar(r *VarBody, nargs int, keep []int, maxDepth int) *VarBody {
	d := r.Depth
	if maxDepth < d {
		d = maxDepth
	}
	nr := vm.NewVar(d)
	inner := make([]Term, len(keep))
	for i, k := range keep {
		inner[i] = Const(r.Depth + k)
	}
	vm.assign(r, MkLam(nargs, mkUVarApp(nr, d, inner)))
	return nr
}

// beta contracts the leading λs of t against args. t is valid at depth from
// (its first binder is entered at from); args and the result are valid at
// depth to.
func (vm *VM) beta(from, to int, t Term, args []Term) Term {
	n := 0
	for n < len(args) {
		l, ok := t.(*Lam)
		if !ok {
			break
		}
		t = l.Body
		n++
	}
	s := substitution{vm: vm, base: from, args: args[:n], to: to}
	t = s.apply(t)
	if n < len(args) {
		t = vm.applyAt(to, t, args[n:])
	}
	return t
}

// substitution replaces binder levels base..base+len(args)-1 with args and
// renumbers the surviving inner binders for depth to. Because args are valid
// at to and inner binders renumber above to, no capture is possible and no
// lifting of args is needed.
type substitution struct {
	vm   *VM
	base int
	args []Term
	to   int
}

func (s *substitution) lookup(c Const) (Term, bool) {
	if c < 0 {
		return nil, false
	}
	i := int(c)
	switch {
	case i < s.base:
		return nil, false
	case i < s.base+len(s.args):
		return s.args[i-s.base], true
	default:
		return Const(i - s.base - len(s.args) + s.to), true
	}
}

func (s *substitution) apply(t Term) Term {
	switch x := t.(type) {
	case Const:
		if v, ok := s.lookup(x); ok {
			return v
		}
		return x
	case *Lam:
		return &Lam{Body: s.apply(x.Body)}
	case *App:
		args := s.applyAll(x.Args)
		if v, ok := s.lookup(x.Head); ok {
			return s.vm.applyAt(s.to, v, args)
		}
		return applyTerm(x.Head, args)
	case *Cons:
		return &Cons{Head: s.apply(x.Head), Tail: s.apply(x.Tail)}
	case *Builtin:
		return &Builtin{ID: x.ID, Args: s.applyAll(x.Args)}
	case *UVar:
		if !x.Ref.Unbound() {
			return s.apply(s.vm.derefUV(x.Ref, x.From, x.From+x.NArgs, x.NArgs))
		}
		if x.From >= s.base+len(s.args) {
			return &UVar{Ref: x.Ref, From: x.From - s.base - len(s.args) + s.to, NArgs: x.NArgs}
		}
		if x.From+x.NArgs <= s.base {
			return x
		}
		return mkUVarApp(x.Ref, s.clampFrom(x.Ref, x.From), s.applyAll(etaArgs(x.From, x.NArgs)))
	case *AppUVar:
		if !x.Ref.Unbound() {
			return s.apply(s.vm.appDeref(x.Ref, x.From, x.From, x.Args))
		}
		f := x.From
		if f >= s.base+len(s.args) {
			f = f - s.base - len(s.args) + s.to
		} else {
			f = s.clampFrom(x.Ref, f)
		}
		return mkUVarApp(x.Ref, f, s.applyAll(x.Args))
	case Nil, Discard, *CData:
		return x
	default:
		anomalyf("subst: unexpected term %T", t)
		return nil
	}
}

// clampFrom picks a lift base for a rebuilt uvar node: at most the
// substitution base, never below the cell's allocation depth.
func (s *substitution) clampFrom(r *VarBody, f int) int {
	if f > s.base {
		f = s.base
	}
	if f < r.Depth {
		f = r.Depth
	}
	return f
}

func (s *substitution) applyAll(args []Term) []Term {
	out := make([]Term, len(args))
	for i, a := range args {
		out[i] = s.apply(a)
	}
	return out
}
