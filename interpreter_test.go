package lprolog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ichiban/lprolog/engine"
)

func loadAppend(t *testing.T, i *Interpreter) engine.Const {
	t.Helper()
	app := i.Const("append")
	assert.NoError(t, i.Load(engine.Program{
		{
			Head:  app,
			Args:  []engine.Term{engine.Nil{}, engine.Arg{Slot: 0}, engine.Arg{Slot: 0}},
			NVars: 1,
		},
		{
			Head: app,
			Args: []engine.Term{
				&engine.Cons{Head: engine.Arg{Slot: 0}, Tail: engine.Arg{Slot: 1}},
				engine.Arg{Slot: 2},
				&engine.Cons{Head: engine.Arg{Slot: 0}, Tail: engine.Arg{Slot: 3}},
			},
			Body:  engine.MkApp(app, engine.Arg{Slot: 1}, engine.Arg{Slot: 2}, engine.Arg{Slot: 3}),
			NVars: 4,
		},
	}))
	return app
}

func TestInterpreter_Append(t *testing.T) {
	i := New()
	app := loadAppend(t, i)

	sols := i.Query(&engine.Query{
		NVars:    1,
		VarNames: map[string]int{"X": 0},
		Goal: engine.MkApp(app,
			engine.MkList(i.Int(1), i.Int(2)),
			engine.MkList(i.Int(3)),
			engine.Arg{Slot: 0},
		),
	})
	defer func() { assert.NoError(t, sols.Close()) }()

	assert.True(t, sols.Next())
	x, ok := sols.Get("X")
	assert.True(t, ok)
	assert.Equal(t, "[1, 2, 3]", i.Sprint(x))

	assert.False(t, sols.Next())
	assert.NoError(t, sols.Err())
}

func TestInterpreter_AllSplits(t *testing.T) {
	i := New()
	app := loadAppend(t, i)

	// append X Y [1, 2] has three splits, enumerated in clause order.
	sols := i.Query(&engine.Query{
		NVars:    2,
		VarNames: map[string]int{"X": 0, "Y": 1},
		Goal: engine.MkApp(app,
			engine.Arg{Slot: 0},
			engine.Arg{Slot: 1},
			engine.MkList(i.Int(1), i.Int(2)),
		),
	})

	var got []string
	for sols.Next() {
		x, _ := sols.Get("X")
		y, _ := sols.Get("Y")
		got = append(got, i.Sprint(x)+" / "+i.Sprint(y))
	}
	assert.NoError(t, sols.Err())
	assert.Equal(t, []string{
		"[] / [1, 2]",
		"[1] / [2]",
		"[1, 2] / []",
	}, got)
}

func TestInterpreter_Options(t *testing.T) {
	i := New()
	i.SetOptions(Options{Trace: false, DelayOutsideFragment: true, MaxSteps: 9})
	assert.True(t, i.DelayOutsideFragment)
	assert.Equal(t, uint64(9), i.MaxSteps)
}

func TestInterpreter_MaxSteps(t *testing.T) {
	i := New()
	loop := i.Const("loop")
	assert.NoError(t, i.Load(engine.Program{{Head: loop, Body: loop}}))
	i.SetOptions(Options{MaxSteps: 50})

	sols := i.Query(&engine.Query{VarNames: map[string]int{}, Goal: loop})
	assert.False(t, sols.Next())
	assert.ErrorIs(t, sols.Err(), engine.ErrNoMoreSteps)
}

func TestInterpreter_SolutionContract(t *testing.T) {
	i := New()
	i.SetOptions(Options{DelayOutsideFragment: true})
	g := i.Const("g")

	// pi a\ (F a a = g a): the equation suspends and is part of the
	// published solution.
	sols := i.Query(&engine.Query{
		NVars:    1,
		VarNames: map[string]int{"F": 0},
		Goal: engine.MkApp(i.Const("pi"), &engine.Lam{Body: engine.MkApp(i.Const("="),
			&engine.AppArg{Slot: 0, Args: []engine.Term{engine.Const(0), engine.Const(0)}},
			engine.MkApp(g, engine.Const(0)),
		)}),
	})

	assert.True(t, sols.Next())
	sol := sols.Solution()
	assert.Len(t, sol.Constraints, 1)
	assert.Contains(t, sol.State, "constraints")
}

func TestInterpreter_RegisterBuiltin(t *testing.T) {
	i := New()

	greet := i.Builtins.Register(&engine.BuiltinDecl{
		Name:  "greeting",
		Arity: 1,
		Doc:   "greeting S: unifies S with a fixed string",
		Fn: func(p *engine.BuiltinCall) ([]engine.Term, error) {
			return []engine.Term{p.Eq(p.Args[0], p.VM.CData.MkString("hello"))}, nil
		},
	})

	sols := i.Query(&engine.Query{
		NVars:    1,
		VarNames: map[string]int{"S": 0},
		Goal:     &engine.Builtin{ID: greet, Args: []engine.Term{engine.Arg{Slot: 0}}},
	})
	assert.True(t, sols.Next())
	s, _ := sols.Get("S")
	assert.Equal(t, `"hello"`, i.Sprint(s))
}

func TestInterpreter_QuotationRegistry(t *testing.T) {
	i := New()
	i.RegisterQuotation("calc", func(depth int, state map[string]interface{}, loc engine.Loc, src string) (map[string]interface{}, engine.Term, error) {
		return state, i.Str(src), nil
	})

	q, ok := i.LookupQuotation("calc")
	assert.True(t, ok)
	_, term, err := q(0, nil, engine.Loc{}, "1+2")
	assert.NoError(t, err)
	assert.Equal(t, `"1+2"`, i.Sprint(term))
}
