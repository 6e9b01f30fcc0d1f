package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrail_UndoRestoresHeap(t *testing.T) {
	vm := NewVM()
	three := vm.CData.MkInt(3)
	four := vm.CData.MkInt(4)

	a := vm.NewVar(0)
	vm.assign(a, three)

	m := vm.mark()
	b := vm.NewVar(0)
	vm.assign(b, four)
	vm.assign(a, four) // overwrite; the prior state must come back

	vm.undoTo(m)
	assert.Equal(t, Term(three), a.Ref)
	assert.True(t, b.Unbound())
	assert.Equal(t, m, vm.mark())
}

func TestTrail_UndoRestoresConstraints(t *testing.T) {
	vm := NewVM()
	x := vm.NewVar(0)

	m := vm.mark()
	vm.suspend(ConstTrue, 0, vm.db, []*VarBody{x}, false)
	assert.Len(t, vm.Constraints(), 1)

	vm.undoTo(m)
	assert.Empty(t, vm.Constraints())
}

func TestTrail_UndoRestoresWokenSuspension(t *testing.T) {
	vm := NewVM()
	x := vm.NewVar(0)
	vm.suspend(ConstTrue, 0, vm.db, []*VarBody{x}, false)

	m := vm.mark()
	vm.assign(x, vm.CData.MkInt(1))
	assert.Empty(t, vm.Constraints()) // woken, no longer in the store
	assert.Len(t, vm.woken, 1)

	vm.undoTo(m)
	assert.Len(t, vm.Constraints(), 1)
	assert.True(t, x.Unbound())
}

func TestTrail_UndoRestoresState(t *testing.T) {
	vm := NewVM()
	vm.state["count"] = 1

	m := vm.mark()
	vm.setState("count", 2)
	vm.setState("fresh", "hello")

	assert.Equal(t, 2, vm.state["count"])
	vm.undoTo(m)
	assert.Equal(t, 1, vm.state["count"])
	_, ok := vm.state["fresh"]
	assert.False(t, ok)
}

func TestTrail_NestedMarks(t *testing.T) {
	vm := NewVM()
	one := vm.CData.MkInt(1)
	two := vm.CData.MkInt(2)

	a := vm.NewVar(0)
	m1 := vm.mark()
	vm.assign(a, one)
	b := vm.NewVar(0)
	m2 := vm.mark()
	vm.assign(b, two)

	vm.undoTo(m2)
	assert.Equal(t, Term(one), a.Ref)
	assert.True(t, b.Unbound())

	vm.undoTo(m1)
	assert.True(t, a.Unbound())
}
