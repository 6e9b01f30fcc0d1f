package lprolog

import "github.com/ichiban/lprolog/engine"

// Solutions is the result of a query. Every time the Next method is called,
// it searches for the next solution by resuming the interpreter's
// backtracking search.
type Solutions struct {
	vm      *engine.VM
	query   *engine.Query
	current *engine.Solution
	err     error
	started bool
	done    bool
}

// Next prepares the next solution for reading. It returns true if it finds
// another solution, or false if there are no further solutions or an error
// occurred.
func (s *Solutions) Next() bool {
	if s.done || s.err != nil {
		return false
	}
	var sol *engine.Solution
	if !s.started {
		s.started = true
		sol, s.err = s.vm.Solve(s.query)
	} else {
		sol, s.err = s.vm.Next()
	}
	if s.err != nil || sol == nil {
		s.done = true
		s.current = nil
		return false
	}
	s.current = sol
	return true
}

// Get returns the binding of a query variable in the current solution.
func (s *Solutions) Get(name string) (engine.Term, bool) {
	if s.current == nil {
		return nil, false
	}
	t, ok := s.current.Assignments[name]
	return t, ok
}

// Solution returns the current solution with its constraint snapshot and
// state components.
func (s *Solutions) Solution() *engine.Solution {
	return s.current
}

// Vars returns the user-visible variable names of the query.
func (s *Solutions) Vars() []string {
	ns := make([]string, 0, len(s.query.VarNames))
	for n := range s.query.VarNames {
		ns = append(ns, n)
	}
	return ns
}

// Err returns the error that stopped the search, if any.
func (s *Solutions) Err() error {
	return s.err
}

// Close terminates the search for further solutions.
func (s *Solutions) Close() error {
	s.done = true
	return nil
}
