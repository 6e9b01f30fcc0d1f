package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func evalString(t *testing.T, vm *VM, expr Term) string {
	t.Helper()
	v, err := vm.Evaluables.Eval(0, expr)
	assert.NoError(t, err)
	return vm.Sprint(v)
}

func TestEval_Integers(t *testing.T) {
	vm := NewVM()
	plus := vm.Symbols.Intern("+")
	times := vm.Symbols.Intern("*")
	div := vm.Symbols.Intern("div")
	mod := vm.Symbols.Intern("mod")

	t.Run("nested expression", func(t *testing.T) {
		// (2 + 3) * 4 = 20
		e := MkApp(times, MkApp(plus, vm.CData.MkInt(2), vm.CData.MkInt(3)), vm.CData.MkInt(4))
		assert.Equal(t, "20", evalString(t, vm, e))
	})

	t.Run("integer division truncates", func(t *testing.T) {
		e := MkApp(div, vm.CData.MkInt(7), vm.CData.MkInt(2))
		assert.Equal(t, "3", evalString(t, vm, e))
	})

	t.Run("mod", func(t *testing.T) {
		e := MkApp(mod, vm.CData.MkInt(7), vm.CData.MkInt(2))
		assert.Equal(t, "1", evalString(t, vm, e))
	})

	t.Run("division by zero", func(t *testing.T) {
		e := MkApp(div, vm.CData.MkInt(1), vm.CData.MkInt(0))
		_, err := vm.Evaluables.Eval(0, e)
		assert.Error(t, err)
	})

	t.Run("overflow is an error, not a wraparound", func(t *testing.T) {
		e := MkApp(times, vm.CData.MkInt(math.MaxInt64), vm.CData.MkInt(2))
		_, err := vm.Evaluables.Eval(0, e)
		assert.Error(t, err)
	})
}

func TestEval_Floats(t *testing.T) {
	vm := NewVM()
	plus := vm.Symbols.Intern("+")
	sqrt := vm.Symbols.Intern("sqrt")

	t.Run("float addition", func(t *testing.T) {
		e := MkApp(plus, vm.CData.MkFloat(1.5), vm.CData.MkFloat(2.5))
		assert.Equal(t, "4", evalString(t, vm, e))
	})

	t.Run("sqrt", func(t *testing.T) {
		e := MkApp(sqrt, vm.CData.MkFloat(9))
		assert.Equal(t, "3", evalString(t, vm, e))
	})
}

func TestEval_NoImplicitCoercion(t *testing.T) {
	vm := NewVM()
	plus := vm.Symbols.Intern("+")

	e := MkApp(plus, vm.CData.MkInt(1), vm.CData.MkFloat(2))
	_, err := vm.Evaluables.Eval(0, e)
	assert.Error(t, err)
	var te *TypeError
	assert.ErrorAs(t, err, &te)
}

func TestEval_Strings(t *testing.T) {
	vm := NewVM()
	size := vm.Symbols.Intern("size")
	concat := vm.Symbols.Intern("^")
	substring := vm.Symbols.Intern("substring")

	t.Run("size", func(t *testing.T) {
		e := MkApp(size, vm.CData.MkString("hello"))
		assert.Equal(t, "5", evalString(t, vm, e))
	})

	t.Run("concat", func(t *testing.T) {
		e := MkApp(concat, vm.CData.MkString("foo"), vm.CData.MkString("bar"))
		assert.Equal(t, `"foobar"`, evalString(t, vm, e))
	})

	t.Run("substring", func(t *testing.T) {
		e := MkApp(substring, vm.CData.MkString("hello"), vm.CData.MkInt(1), vm.CData.MkInt(3))
		assert.Equal(t, `"ell"`, evalString(t, vm, e))
	})

	t.Run("substring out of range", func(t *testing.T) {
		e := MkApp(substring, vm.CData.MkString("hi"), vm.CData.MkInt(1), vm.CData.MkInt(5))
		_, err := vm.Evaluables.Eval(0, e)
		assert.Error(t, err)
	})
}

func TestEval_Errors(t *testing.T) {
	vm := NewVM()

	t.Run("non-closed term", func(t *testing.T) {
		x := &UVar{Ref: vm.NewVar(0), From: 0}
		_, err := vm.Evaluables.Eval(0, x)
		assert.Error(t, err)
	})

	t.Run("unregistered symbol", func(t *testing.T) {
		f := vm.Symbols.Intern("no_such_function")
		_, err := vm.Evaluables.Eval(0, MkApp(f, vm.CData.MkInt(1)))
		var te *TypeError
		assert.ErrorAs(t, err, &te)
	})

	t.Run("dereferences before evaluating", func(t *testing.T) {
		plus := vm.Symbols.Intern("+")
		r := vm.NewVar(0)
		vm.assign(r, vm.CData.MkInt(3))
		e := MkApp(plus, &UVar{Ref: r, From: 0}, vm.CData.MkInt(4))
		assert.Equal(t, "7", evalString(t, vm, e))
	})
}
