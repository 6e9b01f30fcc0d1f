package engine

// VarBody is the mutable cell behind a unification variable. Identity is
// pointer identity: two UVar nodes alias iff they share the same cell. Ref is
// nil while the variable is unbound; once assigned it holds a term whose free
// bound-variable levels are all below Depth.
type VarBody struct {
	Ref   Term
	Depth int

	id uint64
}

// Unbound reports whether the cell has not been assigned.
func (r *VarBody) Unbound() bool {
	return r.Ref == nil
}

// NewVar allocates a fresh unbound variable at the given binding depth.
func (vm *VM) NewVar(depth int) *VarBody {
	vm.varID++
	return &VarBody{Depth: depth, id: vm.varID}
}

type trailKind uint8

const (
	trailAssign trailKind = iota
	trailSuspend
	trailResume
	trailState
)

type trailEntry struct {
	kind  trailKind
	cell  *VarBody
	prior Term
	susp  *suspension
	key   string
	prev  interface{}
	had   bool
}

// mark records the current trail length. Choice points take a mark on entry
// and undoTo replays the entries above it on backtrack.
func (vm *VM) mark() int {
	return len(vm.trail)
}

// undoTo pops trail entries down to mark, restoring each mutation in reverse
// order. This is the only mechanism by which the solver backtracks heap and
// constraint-store state.
func (vm *VM) undoTo(mark int) {
	for i := len(vm.trail) - 1; i >= mark; i-- {
		e := &vm.trail[i]
		switch e.kind {
		case trailAssign:
			e.cell.Ref = e.prior
		case trailSuspend:
			e.susp.alive = false
		case trailResume:
			e.susp.alive = true
		case trailState:
			if e.had {
				vm.state[e.key] = e.prev
			} else {
				delete(vm.state, e.key)
			}
		}
		e.cell, e.prior, e.susp, e.prev = nil, nil, nil, nil
	}
	vm.trail = vm.trail[:mark]
}

// assign writes t into the cell, trailing the prior state and waking any
// suspended goals blocked on it.
func (vm *VM) assign(r *VarBody, t Term) {
	vm.trail = append(vm.trail, trailEntry{kind: trailAssign, cell: r, prior: r.Ref})
	r.Ref = t
	vm.wake(r)
}

// setState updates a host state component, trailing the prior value so the
// component rolls back on backtrack.
func (vm *VM) setState(key string, v interface{}) {
	prev, had := vm.state[key]
	vm.trail = append(vm.trail, trailEntry{kind: trailState, key: key, prev: prev, had: had})
	vm.state[key] = v
}
