package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolTable_Reserved(t *testing.T) {
	s := NewSymbolTable()

	tests := []struct {
		name string
		c    Const
	}{
		{name: "=", c: ConstEq},
		{name: ",", c: ConstComma},
		{name: ";", c: ConstSemicolon},
		{name: "&", c: ConstAnd},
		{name: ":-", c: ConstRImpl},
		{name: "=>", c: ConstImpl},
		{name: "pi", c: ConstPi},
		{name: "sigma", c: ConstSigma},
		{name: "!", c: ConstCut},
		{name: "true", c: ConstTrue},
		{name: "fail", c: ConstFail},
		{name: "ctype", c: ConstCType},
		{name: "[]", c: ConstNil},
		{name: ".", c: ConstCons},
		{name: "is", c: ConstIs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.c, s.Intern(tt.name))
			assert.Equal(t, tt.name, s.Name(tt.c))
		})
	}
}

func TestSymbolTable_Intern(t *testing.T) {
	s := NewSymbolTable()

	t.Run("fresh names get fresh negative ids", func(t *testing.T) {
		foo := s.Intern("foo")
		bar := s.Intern("bar")
		assert.True(t, foo.Global())
		assert.True(t, bar.Global())
		assert.NotEqual(t, foo, bar)
	})

	t.Run("interning is idempotent", func(t *testing.T) {
		assert.Equal(t, s.Intern("foo"), s.Intern("foo"))
	})

	t.Run("lookup does not intern", func(t *testing.T) {
		_, ok := s.Lookup("never-seen")
		assert.False(t, ok)
	})

	t.Run("bound variables print by level", func(t *testing.T) {
		assert.Equal(t, "x3", s.Name(Const(3)))
		assert.False(t, Const(3).Global())
	})
}
