package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnify_FirstOrder(t *testing.T) {
	vm := NewVM()
	f := vm.Symbols.Intern("f")
	g := vm.Symbols.Intern("g")

	t.Run("equal constants", func(t *testing.T) {
		out, _, err := vm.Unify(0, f, f)
		assert.NoError(t, err)
		assert.Equal(t, UnifyOK, out)
	})

	t.Run("distinct constants", func(t *testing.T) {
		out, _, err := vm.Unify(0, f, g)
		assert.NoError(t, err)
		assert.Equal(t, UnifyFail, out)
	})

	t.Run("rigid mismatch unwinds the trail", func(t *testing.T) {
		x := &UVar{Ref: vm.NewVar(0), From: 0}
		m := vm.mark()
		out, _, err := vm.Unify(0, MkApp(f, x, f), MkApp(f, g, g))
		assert.NoError(t, err)
		assert.Equal(t, UnifyFail, out)
		assert.Equal(t, m, vm.mark())
		assert.True(t, x.Ref.Unbound())
	})

	t.Run("variable binds and dereferences", func(t *testing.T) {
		x := &UVar{Ref: vm.NewVar(0), From: 0}
		out, _, err := vm.Unify(0, x, MkApp(f, g))
		assert.NoError(t, err)
		assert.Equal(t, UnifyOK, out)
		assert.Equal(t, MkApp(f, g), vm.deref(0, x))
	})

	t.Run("lists", func(t *testing.T) {
		x := &UVar{Ref: vm.NewVar(0), From: 0}
		one, two := vm.CData.MkInt(1), vm.CData.MkInt(2)
		out, _, err := vm.Unify(0, MkList(one, x), MkList(one, two))
		assert.NoError(t, err)
		assert.Equal(t, UnifyOK, out)
		assert.Equal(t, Term(two), vm.deref(0, x))
	})

	t.Run("cdata uses the type's equality", func(t *testing.T) {
		out, _, err := vm.Unify(0, vm.CData.MkString("a"), vm.CData.MkString("a"))
		assert.NoError(t, err)
		assert.Equal(t, UnifyOK, out)

		out, _, err = vm.Unify(0, vm.CData.MkString("a"), vm.CData.MkInt(1))
		assert.NoError(t, err)
		assert.Equal(t, UnifyFail, out)
	})

	t.Run("discard binds nothing", func(t *testing.T) {
		out, _, err := vm.Unify(0, Discard{}, MkApp(f, g))
		assert.NoError(t, err)
		assert.Equal(t, UnifyOK, out)
	})
}

func TestUnify_OccursCheck(t *testing.T) {
	vm := NewVM()
	f := vm.Symbols.Intern("f")

	x := &UVar{Ref: vm.NewVar(0), From: 0}

	t.Run("direct", func(t *testing.T) {
		out, _, err := vm.Unify(0, x, MkApp(f, x))
		assert.NoError(t, err)
		assert.Equal(t, UnifyFail, out)
		assert.True(t, x.Ref.Unbound())
	})

	t.Run("nested", func(t *testing.T) {
		out, _, err := vm.Unify(0, x, MkApp(f, MkApp(f, x)))
		assert.NoError(t, err)
		assert.Equal(t, UnifyFail, out)
	})
}

func TestUnify_Lambda(t *testing.T) {
	vm := NewVM()
	f := vm.Symbols.Intern("f")
	g := vm.Symbols.Intern("g")

	t.Run("alpha-equal abstractions", func(t *testing.T) {
		a := &Lam{Body: MkApp(f, Const(0))}
		b := &Lam{Body: MkApp(f, Const(0))}
		out, _, err := vm.Unify(0, a, b)
		assert.NoError(t, err)
		assert.Equal(t, UnifyOK, out)
	})

	t.Run("distinct bodies", func(t *testing.T) {
		a := &Lam{Body: MkApp(f, Const(0))}
		b := &Lam{Body: MkApp(g, Const(0))}
		out, _, err := vm.Unify(0, a, b)
		assert.NoError(t, err)
		assert.Equal(t, UnifyFail, out)
	})

	t.Run("locally quantified constants do not commute", func(t *testing.T) {
		// f x y = f y x at depth 2: rigid mismatch on the levels.
		a := MkApp(f, Const(0), Const(1))
		b := MkApp(f, Const(1), Const(0))
		out, _, err := vm.Unify(2, a, b)
		assert.NoError(t, err)
		assert.Equal(t, UnifyFail, out)
	})
}

func TestUnify_Pattern(t *testing.T) {
	vm := NewVM()
	g := vm.Symbols.Intern("g")

	t.Run("solves F x = g x x", func(t *testing.T) {
		r := vm.NewVar(0)
		lhs := &UVar{Ref: r, From: 0, NArgs: 1}
		rhs := MkApp(g, Const(0), Const(0))
		out, _, err := vm.Unify(1, lhs, rhs)
		assert.NoError(t, err)
		assert.Equal(t, UnifyOK, out)

		// F must be x\ g x x.
		l, ok := r.Ref.(*Lam)
		assert.True(t, ok)
		body := l.Body.(*App)
		assert.Equal(t, g, body.Head)
		assert.Equal(t, Term(Const(0)), body.Args[0])
		assert.Equal(t, Term(Const(0)), body.Args[1])
	})

	t.Run("fails when the rhs escapes the pattern arguments", func(t *testing.T) {
		// F x0 = g x1 where x1 is not among F's arguments and not visible
		// to F: no solution.
		r := vm.NewVar(0)
		lhs := &AppUVar{Ref: r, From: 0, Args: []Term{Const(0)}}
		rhs := MkApp(g, Const(1))
		out, _, err := vm.Unify(2, lhs, rhs)
		assert.NoError(t, err)
		assert.Equal(t, UnifyFail, out)
	})

	t.Run("permutes pattern arguments", func(t *testing.T) {
		// F x1 x0 = g x0 x1 means F = a\ b\ g b a.
		r := vm.NewVar(0)
		lhs := &AppUVar{Ref: r, From: 0, Args: []Term{Const(1), Const(0)}}
		rhs := MkApp(g, Const(0), Const(1))
		out, _, err := vm.Unify(2, lhs, rhs)
		assert.NoError(t, err)
		assert.Equal(t, UnifyOK, out)

		outer := r.Ref.(*Lam)
		inner := outer.Body.(*Lam)
		body := inner.Body.(*App)
		// First binder is level 0, second level 1: g b a = g x1 x0.
		assert.Equal(t, Term(Const(1)), body.Args[0])
		assert.Equal(t, Term(Const(0)), body.Args[1])
	})

	t.Run("agrees with first-order unification on flex-rigid", func(t *testing.T) {
		f := vm.Symbols.Intern("f")
		x := &UVar{Ref: vm.NewVar(0), From: 0}
		out, _, err := vm.Unify(0, MkApp(f, x), MkApp(f, g))
		assert.NoError(t, err)
		assert.Equal(t, UnifyOK, out)
		assert.Equal(t, Term(g), vm.deref(0, x))
	})
}

func TestUnify_OutsideFragment(t *testing.T) {
	g := ConstTrue // any rigid head works; use a constant we have

	t.Run("errors when delaying is disabled", func(t *testing.T) {
		vm := NewVM()
		r := vm.NewVar(0)
		// F x x is not a pattern: the arguments are not distinct.
		lhs := &AppUVar{Ref: r, From: 0, Args: []Term{Const(0), Const(0)}}
		out, _, err := vm.Unify(1, lhs, MkApp(g, Const(0)))
		assert.Error(t, err)
		assert.Equal(t, UnifyFail, out)
	})

	t.Run("delays when enabled", func(t *testing.T) {
		vm := NewVM()
		vm.DelayOutsideFragment = true
		r := vm.NewVar(0)
		lhs := &AppUVar{Ref: r, From: 0, Args: []Term{Const(0), Const(0)}}
		out, blockers, err := vm.Unify(1, lhs, MkApp(g, Const(0)))
		assert.NoError(t, err)
		assert.Equal(t, UnifyDelay, out)
		assert.Contains(t, blockers, r)
		assert.True(t, r.Unbound())
	})
}

func TestUnify_FlexFlex(t *testing.T) {
	vm := NewVM()

	t.Run("same cell same arguments", func(t *testing.T) {
		r := vm.NewVar(0)
		a := &UVar{Ref: r, From: 0, NArgs: 1}
		b := &UVar{Ref: r, From: 0, NArgs: 1}
		out, _, err := vm.Unify(1, a, b)
		assert.NoError(t, err)
		assert.Equal(t, UnifyOK, out)
		assert.True(t, r.Unbound())
	})

	t.Run("different cells alias", func(t *testing.T) {
		rx, ry := vm.NewVar(0), vm.NewVar(0)
		x := &UVar{Ref: rx, From: 0}
		y := &UVar{Ref: ry, From: 0}
		out, _, err := vm.Unify(0, x, y)
		assert.NoError(t, err)
		assert.Equal(t, UnifyOK, out)

		// Binding one now binds the other.
		one := vm.CData.MkInt(1)
		out, _, err = vm.Unify(0, x, one)
		assert.NoError(t, err)
		assert.Equal(t, UnifyOK, out)
		assert.Equal(t, Term(one), vm.deref(0, y))
	})

	t.Run("argument intersection", func(t *testing.T) {
		// X x0 x1 = Y x1: afterwards neither can depend on x0.
		rx, ry := vm.NewVar(0), vm.NewVar(0)
		x := &UVar{Ref: rx, From: 0, NArgs: 2}
		y := &AppUVar{Ref: ry, From: 0, Args: []Term{Const(1)}}
		out, _, err := vm.Unify(2, x, y)
		assert.NoError(t, err)
		assert.Equal(t, UnifyOK, out)
		assert.False(t, rx.Unbound())
		assert.False(t, ry.Unbound())
	})
}
