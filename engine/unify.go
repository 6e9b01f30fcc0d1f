package engine

// UnifyOutcome is the result of a unification attempt.
type UnifyOutcome uint8

const (
	// UnifyOK means the terms were unified; the mgu is applied to the heap.
	UnifyOK UnifyOutcome = iota
	// UnifyFail means the terms cannot be unified.
	UnifyFail
	// UnifyDelay means the equation falls outside the pattern fragment and
	// was not solved; the caller should suspend it on the returned blockers.
	UnifyDelay
)

// Unify unifies a and b at the given depth. Successful assignments are
// trailed; on fail or delay the trail is unwound to the mark taken at entry.
// Equations outside the decidable pattern fragment yield UnifyDelay together
// with the unbound cells they are blocked on when DelayOutsideFragment is
// set, and an error otherwise.
func (vm *VM) Unify(depth int, a, b Term) (UnifyOutcome, []*VarBody, error) {
	m := vm.mark()
	u := unifier{vm: vm}
	out := u.unify(depth, a, b)
	if out != UnifyOK {
		vm.undoTo(m)
	}
	if out == UnifyDelay && !vm.DelayOutsideFragment {
		return UnifyFail, nil, vm.runtimeError("unification outside the pattern fragment")
	}
	return out, u.blockers, nil
}

type unifier struct {
	vm       *VM
	blockers []*VarBody
}

func (u *unifier) delay(cells ...*VarBody) UnifyOutcome {
	for _, c := range cells {
		for _, b := range u.blockers {
			if b == c {
				c = nil
				break
			}
		}
		if c != nil {
			u.blockers = append(u.blockers, c)
		}
	}
	return UnifyDelay
}

func (u *unifier) unify(depth int, a, b Term) UnifyOutcome {
	vm := u.vm
	a = vm.deref(depth, a)
	b = vm.deref(depth, b)

	if _, ok := a.(Discard); ok {
		return UnifyOK
	}
	if _, ok := b.(Discard); ok {
		return UnifyOK
	}

	ra, aok := flexArgs(vm, depth, a)
	rb, bok := flexArgs(vm, depth, b)
	switch {
	case aok && bok:
		return u.flexFlex(depth, ra, rb)
	case aok:
		return u.bindFlex(depth, ra, b)
	case bok:
		return u.bindFlex(depth, rb, a)
	case isFlex(a) || isFlex(b):
		// A flex head applied to non-variable arguments.
		return u.delay(flexCells(a, b)...)
	}

	return u.rigid(depth, a, b)
}

func (u *unifier) rigid(depth int, a, b Term) UnifyOutcome {
	vm := u.vm
	switch x := a.(type) {
	case Const:
		if y, ok := b.(Const); ok && x == y {
			return UnifyOK
		}
		return UnifyFail
	case *Lam:
		if y, ok := b.(*Lam); ok {
			return u.unify(depth+1, x.Body, y.Body)
		}
		// η-expand the rigid side.
		e := vm.applyAt(depth+1, vm.lift(depth, depth+1, b), []Term{Const(depth)})
		return u.unify(depth+1, x.Body, e)
	case *App:
		if y, ok := b.(*Lam); ok {
			e := vm.applyAt(depth+1, vm.lift(depth, depth+1, a), []Term{Const(depth)})
			return u.unify(depth+1, e, y.Body)
		}
		y, ok := b.(*App)
		if !ok || x.Head != y.Head || len(x.Args) != len(y.Args) {
			return UnifyFail
		}
		for i := range x.Args {
			if out := u.unify(depth, x.Args[i], y.Args[i]); out != UnifyOK {
				return out
			}
		}
		return UnifyOK
	case *Cons:
		y, ok := b.(*Cons)
		if !ok {
			return UnifyFail
		}
		if out := u.unify(depth, x.Head, y.Head); out != UnifyOK {
			return out
		}
		return u.unify(depth, x.Tail, y.Tail)
	case Nil:
		if _, ok := b.(Nil); ok {
			return UnifyOK
		}
		return UnifyFail
	case *Builtin:
		y, ok := b.(*Builtin)
		if !ok || x.ID != y.ID || len(x.Args) != len(y.Args) {
			return UnifyFail
		}
		for i := range x.Args {
			if out := u.unify(depth, x.Args[i], y.Args[i]); out != UnifyOK {
				return out
			}
		}
		return UnifyOK
	case *CData:
		y, ok := b.(*CData)
		if !ok || !x.Type.Equal(x, y) {
			return UnifyFail
		}
		return UnifyOK
	default:
		if _, ok := b.(*Lam); ok {
			e := vm.applyAt(depth+1, vm.lift(depth, depth+1, a), []Term{Const(depth)})
			return u.unify(depth+1, e, b.(*Lam).Body)
		}
		return UnifyFail
	}
}

// flexPattern is an unbound variable applied to distinct bound variables: the
// left-hand shape of a pattern-fragment equation.
type flexPattern struct {
	ref    *VarBody
	from   int
	levels []int
}

// flexArgs recognises the pattern shape of a flex term: every argument must
// dereference to a bound variable and the arguments must be pairwise
// distinct.
func flexArgs(vm *VM, depth int, t Term) (flexPattern, bool) {
	switch x := t.(type) {
	case *UVar:
		levels := make([]int, x.NArgs)
		for i := range levels {
			levels[i] = x.From + i
		}
		return flexPattern{ref: x.Ref, from: x.From, levels: levels}, true
	case *AppUVar:
		levels := make([]int, len(x.Args))
		seen := make(map[int]bool, len(x.Args))
		for i, a := range x.Args {
			c, ok := vm.deref(depth, a).(Const)
			if !ok || c < 0 || seen[int(c)] {
				return flexPattern{}, false
			}
			levels[i] = int(c)
			seen[int(c)] = true
		}
		return flexPattern{ref: x.Ref, from: x.From, levels: levels}, true
	default:
		return flexPattern{}, false
	}
}

func isFlex(t Term) bool {
	switch t.(type) {
	case *UVar, *AppUVar:
		return true
	}
	return false
}

func flexCells(ts ...Term) []*VarBody {
	var cells []*VarBody
	for _, t := range ts {
		switch x := t.(type) {
		case *UVar:
			cells = append(cells, x.Ref)
		case *AppUVar:
			cells = append(cells, x.Ref)
		}
	}
	return cells
}

// bindFlex solves X a1 … an = t for pattern-shaped X. The right-hand side is
// rewritten into X's scope (occurrences of the ai become binders, variables
// mentioning out-of-scope levels are pruned) and X is assigned the
// η-abstracted result.
func (u *unifier) bindFlex(depth int, p flexPattern, t Term) UnifyOutcome {
	b := binder{
		u:     u,
		r:     p.ref,
		depth: depth,
		pos:   make(map[int]int, len(p.levels)),
	}
	for i, l := range p.levels {
		b.pos[l] = i
	}
	body, out := b.walk(t)
	if out != UnifyOK {
		return out
	}
	u.vm.assign(p.ref, MkLam(len(p.levels), body))
	return UnifyOK
}

// binder rewrites the right-hand side of a pattern equation into the scope of
// the cell being assigned. The resulting body is valid at r.Depth+n where n
// is the number of pattern arguments; levels at or above the equation depth
// are inner binders and renumber uniformly.
type binder struct {
	u     *unifier
	r     *VarBody
	depth int
	pos   map[int]int
}

func (b *binder) mapConst(c Const) (Term, UnifyOutcome) {
	if c < 0 {
		return c, UnifyOK
	}
	l := int(c)
	if i, ok := b.pos[l]; ok {
		return Const(b.r.Depth + i), UnifyOK
	}
	switch {
	case l >= b.depth:
		return Const(l - b.depth + b.r.Depth + len(b.pos)), UnifyOK
	case l < b.r.Depth:
		return c, UnifyOK
	default:
		// A bound variable neither visible to the cell nor among the pattern
		// arguments: no assignment can mention it.
		return nil, UnifyFail
	}
}

func (b *binder) walk(t Term) (Term, UnifyOutcome) {
	vm := b.u.vm
	switch x := vm.deref(b.depth, t).(type) {
	case Const:
		return b.mapConst(x)
	case *Lam:
		// Entering the Lam raises the inner-binder region, which the uniform
		// renumbering in mapConst already accounts for.
		body, out := b.walk(x.Body)
		if out != UnifyOK {
			return nil, out
		}
		return &Lam{Body: body}, UnifyOK
	case *App:
		h, out := b.mapConst(x.Head)
		if out != UnifyOK {
			return nil, out
		}
		args, out := b.walkAll(x.Args)
		if out != UnifyOK {
			return nil, out
		}
		return vm.applyAt(b.r.Depth+len(b.pos), h, args), UnifyOK
	case *Cons:
		h, out := b.walk(x.Head)
		if out != UnifyOK {
			return nil, out
		}
		tl, out := b.walk(x.Tail)
		if out != UnifyOK {
			return nil, out
		}
		return &Cons{Head: h, Tail: tl}, UnifyOK
	case *Builtin:
		args, out := b.walkAll(x.Args)
		if out != UnifyOK {
			return nil, out
		}
		return &Builtin{ID: x.ID, Args: args}, UnifyOK
	case *UVar:
		if x.Ref == b.r {
			// Occurs check.
			return nil, UnifyFail
		}
		return b.walkUVar(x.Ref, x.From, etaArgs(x.From, x.NArgs))
	case *AppUVar:
		if x.Ref == b.r {
			return nil, UnifyFail
		}
		return b.walkUVar(x.Ref, x.From, x.Args)
	case Nil, Discard, *CData:
		return x, UnifyOK
	default:
		anomalyf("bind: unexpected term %T", t)
		return nil, UnifyFail
	}
}

func (b *binder) walkAll(args []Term) ([]Term, UnifyOutcome) {
	out := make([]Term, len(args))
	for i, a := range args {
		m, o := b.walk(a)
		if o != UnifyOK {
			return nil, o
		}
		out[i] = m
	}
	return out, UnifyOK
}

// walkUVar rewrites an unbound variable occurring in the right-hand side.
// Arguments that would escape the cell's scope force pruning of the occurring
// variable; non-variable arguments that cannot be rewritten push the equation
// outside the fragment.
func (b *binder) walkUVar(r *VarBody, from int, args []Term) (Term, UnifyOutcome) {
	vm := b.u.vm
	mapped := make([]Term, 0, len(args))
	kept := make([]int, 0, len(args))
	prune := false
	for i, a := range args {
		a = vm.deref(b.depth, a)
		if c, ok := a.(Const); ok && c >= 0 {
			m, out := b.mapConst(c)
			if out != UnifyOK {
				prune = true
				continue
			}
			kept = append(kept, i)
			mapped = append(mapped, m)
			continue
		}
		m, out := b.walk(a)
		if out != UnifyOK {
			// A compound argument mentions an escaping level; restriction
			// cannot express the result.
			return nil, b.u.delay(b.r, r)
		}
		kept = append(kept, i)
		mapped = append(mapped, m)
	}
	if r.Depth > b.r.Depth {
		prune = true
	}
	if prune {
		nr := vm.pruneVar(r, len(args), kept, b.r.Depth)
		return mkUVarApp(nr, nr.Depth, mapped), UnifyOK
	}
	f := from
	if f > b.r.Depth {
		f = r.Depth
	}
	return mkUVarApp(r, f, mapped), UnifyOK
}

// flexFlex solves equations whose both sides are pattern-shaped.
func (u *unifier) flexFlex(depth int, a, b flexPattern) UnifyOutcome {
	vm := u.vm
	if a.ref == b.ref {
		if len(a.levels) == len(b.levels) {
			same := true
			for i := range a.levels {
				if a.levels[i] != b.levels[i] {
					same = false
					break
				}
			}
			if same {
				return UnifyOK
			}
		}
		// X l1… = X l2…: X may depend only on the positions where the two
		// argument lists agree.
		n := len(a.levels)
		if len(b.levels) < n {
			n = len(b.levels)
		}
		keep := make([]int, 0, n)
		for i := 0; i < n; i++ {
			if a.levels[i] == b.levels[i] {
				keep = append(keep, i)
			}
		}
		vm.pruneVar(a.ref, len(a.levels), keep, a.ref.Depth)
		return UnifyOK
	}

	// Different cells: restrict both sides to the common arguments through a
	// fresh variable allocated at the smaller depth. When the argument lists
	// coincide this degenerates to assigning the younger cell to the older.
	older, younger := a, b
	if a.ref.id > b.ref.id {
		older, younger = b, a
	}
	if equalLevels(a.levels, b.levels) {
		t := mkUVarApp(older.ref, older.from, levelConsts(older.levels))
		return u.bindFlex(depth, younger, t)
	}
	d := a.ref.Depth
	if b.ref.Depth < d {
		d = b.ref.Depth
	}
	common := intersectLevels(a.levels, b.levels)
	z := vm.NewVar(d)
	t := mkUVarApp(z, d, levelConsts(common))
	if out := u.bindFlex(depth, a, t); out != UnifyOK {
		return out
	}
	return u.bindFlex(depth, b, t)
}

func equalLevels(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func intersectLevels(a, b []int) []int {
	in := make(map[int]bool, len(b))
	for _, l := range b {
		in[l] = true
	}
	var out []int
	for _, l := range a {
		if in[l] {
			out = append(out, l)
		}
	}
	return out
}

func levelConsts(levels []int) []Term {
	out := make([]Term, len(levels))
	for i, l := range levels {
		out[i] = Const(l)
	}
	return out
}
