package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSprint(t *testing.T) {
	vm := NewVM()
	f := vm.Symbols.Intern("f")
	g := vm.Symbols.Intern("g")

	tests := []struct {
		title string
		term  Term
		want  string
	}{
		{title: "constant", term: f, want: "f"},
		{title: "application", term: MkApp(f, g, g), want: "f g g"},
		{title: "nested application", term: MkApp(f, MkApp(g, f)), want: "f (g f)"},
		{title: "abstraction", term: &Lam{Body: MkApp(f, Const(0))}, want: "x0\\ f x0"},
		{title: "list", term: MkList(vm.CData.MkInt(1), vm.CData.MkInt(2)), want: "[1, 2]"},
		{title: "empty list", term: Nil{}, want: "[]"},
		{title: "discard", term: Discard{}, want: "_"},
		{title: "string", term: vm.CData.MkString("hi"), want: `"hi"`},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, vm.Sprint(tt.term))
		})
	}

	t.Run("partial list", func(t *testing.T) {
		x := &UVar{Ref: vm.NewVar(0), From: 0}
		s := vm.Sprint(&Cons{Head: vm.CData.MkInt(1), Tail: x})
		assert.Contains(t, s, "[1|")
	})

	t.Run("assigned variables print through", func(t *testing.T) {
		r := vm.NewVar(0)
		vm.assign(r, MkApp(f, g))
		assert.Equal(t, "f g", vm.Sprint(&UVar{Ref: r, From: 0}))
	})
}
