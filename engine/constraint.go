package engine

// suspension is a goal the solver cannot dispatch yet, parked in the
// constraint store until one of its blockers is assigned. Insertions and
// removals are trailed, so the store follows backtracking exactly.
type suspension struct {
	goal     Term
	depth    int
	db       *DB
	blockers []*VarBody
	alive    bool
	user     bool
}

// Suspension is the host-visible snapshot of a suspended goal.
type Suspension struct {
	Goal     Term
	Depth    int
	Blockers []*VarBody
	// User marks constraints promoted via declare_constraint.
	User bool
}

// suspend parks a goal on the given blockers.
func (vm *VM) suspend(goal Term, depth int, db *DB, blockers []*VarBody, user bool) {
	if len(blockers) == 0 {
		// Nothing can ever wake it; this is a stuck equation, not a
		// constraint.
		vm.warn("suspending goal with no blockers")
	}
	s := &suspension{goal: goal, depth: depth, db: db, blockers: blockers, alive: true, user: user}
	vm.store = append(vm.store, s)
	vm.trail = append(vm.trail, trailEntry{kind: trailSuspend, susp: s})
}

// wake re-enqueues every suspension blocked on r. It runs on every
// assignment, before the solver installs its next choice point.
func (vm *VM) wake(r *VarBody) {
	for _, s := range vm.store {
		if !s.alive {
			continue
		}
		for _, b := range s.blockers {
			if b != r {
				continue
			}
			s.alive = false
			vm.trail = append(vm.trail, trailEntry{kind: trailResume, susp: s})
			vm.woken = append(vm.woken, s)
			break
		}
	}
}

// Constraints snapshots the live constraint store.
func (vm *VM) Constraints() []Suspension {
	var out []Suspension
	for _, s := range vm.store {
		if !s.alive {
			continue
		}
		out = append(out, Suspension{
			Goal:     s.goal,
			Depth:    s.depth,
			Blockers: s.blockers,
			User:     s.user,
		})
	}
	return out
}

// compactStore drops dead suspensions that can no longer be resurrected,
// i.e. when the trail below the current mark holds no reference to them.
// Called whenever a solution is reached; it does nothing unless the trail is
// empty at that point.
func (vm *VM) compactStore() {
	if len(vm.trail) != 0 {
		return
	}
	live := vm.store[:0]
	for _, s := range vm.store {
		if s.alive {
			live = append(live, s)
		}
	}
	for i := len(live); i < len(vm.store); i++ {
		vm.store[i] = nil
	}
	vm.store = live
}
