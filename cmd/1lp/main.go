// Command 1lp is the reference driver: a small demonstration REPL around the
// interpreter. It loads a sample program and steps through the solutions of a
// demo query; type ; for the next solution, anything else to stop.
package main

import (
	"fmt"
	"os"

	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"

	"github.com/ichiban/lprolog"
	"github.com/ichiban/lprolog/engine"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts, unknown, err := lprolog.ParseFlags(os.Args[1:])
	if err != nil {
		logrus.Error(err)
		return 2
	}
	if len(unknown) > 0 {
		logrus.Errorf("unknown arguments: %v", unknown)
		return 2
	}

	i := lprolog.New()
	i.SetOptions(opts)

	if opts.DocumentBuiltins {
		for _, d := range i.Builtins.Decls() {
			arity := fmt.Sprint(d.Arity)
			if d.Arity < 0 {
				arity = "variadic"
			}
			fmt.Printf("%s (%s)\n    %s\n", d.Name, arity, d.Doc)
		}
		return 0
	}

	if err := i.Load(appendProgram(i)); err != nil {
		logrus.Error(err)
		return 1
	}

	q := appendQuery(i)
	fmt.Println("?- append [1, 2] [3] X.")

	line := liner.NewLiner()
	defer func() { _ = line.Close() }()
	line.SetCtrlCAborts(true)

	sols := i.Query(q)
	defer func() { _ = sols.Close() }()

	found := false
	for sols.Next() {
		found = true
		x, _ := sols.Get("X")
		fmt.Printf("X = %s ", i.Sprint(x))
		in, err := line.Prompt("")
		if err != nil || in != ";" {
			fmt.Println(".")
			break
		}
		line.AppendHistory(in)
	}
	if err := sols.Err(); err != nil {
		logrus.Error(err)
		return 1
	}
	if !found {
		fmt.Println("false.")
		return 1
	}
	return 0
}

// appendProgram compiles the two standard append clauses by hand, the way
// the external compiler would lower them.
func appendProgram(i *lprolog.Interpreter) engine.Program {
	app := i.Const("append")
	return engine.Program{
		{
			// append [] L L.
			Head: app,
			Args: []engine.Term{engine.Nil{}, engine.Arg{Slot: 0}, engine.Arg{Slot: 0}},
			NVars: 1,
		},
		{
			// append [H|T] L [H|R] :- append T L R.
			Head: app,
			Args: []engine.Term{
				&engine.Cons{Head: engine.Arg{Slot: 0}, Tail: engine.Arg{Slot: 1}},
				engine.Arg{Slot: 2},
				&engine.Cons{Head: engine.Arg{Slot: 0}, Tail: engine.Arg{Slot: 3}},
			},
			Body:  engine.MkApp(app, engine.Arg{Slot: 1}, engine.Arg{Slot: 2}, engine.Arg{Slot: 3}),
			NVars: 4,
		},
	}
}

func appendQuery(i *lprolog.Interpreter) *engine.Query {
	app := i.Const("append")
	return &engine.Query{
		NVars:    1,
		VarNames: map[string]int{"X": 0},
		Goal: engine.MkApp(app,
			engine.MkList(i.Int(1), i.Int(2)),
			engine.MkList(i.Int(3)),
			engine.Arg{Slot: 0},
		),
	}
}
