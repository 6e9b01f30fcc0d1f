package engine

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// stateConstraints is the state component declare_constraint writes through,
// so promoted constraints are visible to the host and follow the trail.
const stateConstraints = "constraints"

// RegisterCoreBuiltins installs the foreign predicates every interpreter is
// expected to carry: arithmetic evaluation and comparison, constraint
// declaration, printing and the stream primitives.
func (vm *VM) RegisterCoreBuiltins() {
	vm.Builtins.Register(&BuiltinDecl{Name: "is", Arity: 2, Doc: "is Res Expr: evaluates Expr and unifies Res with it", Fn: builtinIs})
	for name, keep := range map[string]func(int) bool{
		"<":   func(c int) bool { return c < 0 },
		"=<":  func(c int) bool { return c <= 0 },
		">":   func(c int) bool { return c > 0 },
		">=":  func(c int) bool { return c >= 0 },
		"=:=": func(c int) bool { return c == 0 },
		"=\\=": func(c int) bool { return c != 0 },
	} {
		keep := keep
		vm.Builtins.Register(&BuiltinDecl{
			Name:  name,
			Arity: 2,
			Doc:   name + " A B: evaluates both sides and compares them",
			Fn: func(p *BuiltinCall) ([]Term, error) {
				cmp, err := builtinCompare(p)
				if err != nil {
					return nil, err
				}
				if !keep(cmp) {
					return nil, ErrNoClause
				}
				return nil, nil
			},
		})
	}
	vm.Builtins.Register(&BuiltinDecl{Name: "var", Arity: 1, Doc: "var T: succeeds iff T is an unbound variable", Fn: builtinVar})
	vm.Builtins.Register(&BuiltinDecl{Name: "declare_constraint", Arity: 2, Doc: "declare_constraint Goal Vars: suspends Goal until a variable in Vars is assigned", Fn: builtinDeclareConstraint})
	vm.Builtins.Register(&BuiltinDecl{Name: "print", Arity: -1, Doc: "print Args…: writes the arguments to the current output", Fn: builtinPrint})
	vm.Builtins.Register(&BuiltinDecl{Name: "term_to_string", Arity: 2, Doc: "term_to_string T S: unifies S with the printed form of T", Fn: builtinTermToString})
	vm.Builtins.Register(&BuiltinDecl{Name: "open_in", Arity: 2, Doc: "open_in File H: opens File for reading", Fn: builtinOpenIn})
	vm.Builtins.Register(&BuiltinDecl{Name: "open_out", Arity: 2, Doc: "open_out File H: opens File for writing", Fn: builtinOpenOut})
	vm.Builtins.Register(&BuiltinDecl{Name: "close_in", Arity: 1, Doc: "close_in H: closes an input stream", Fn: builtinClose})
	vm.Builtins.Register(&BuiltinDecl{Name: "close_out", Arity: 1, Doc: "close_out H: closes an output stream", Fn: builtinClose})
	vm.Builtins.Register(&BuiltinDecl{Name: "output", Arity: 2, Doc: "output H S: writes string S to stream H", Fn: builtinOutput})
	vm.Builtins.Register(&BuiltinDecl{Name: "input_line", Arity: 2, Doc: "input_line H S: reads a line from stream H", Fn: builtinInputLine})
	vm.Builtins.Register(&BuiltinDecl{Name: "flush", Arity: 1, Doc: "flush H: flushes stream H", Fn: builtinFlush})

	vm.DeclareState(stateConstraints, StateComponent{
		Init: func() interface{} { return []Term(nil) },
		Pp: func(v interface{}) string {
			gs, _ := v.([]Term)
			return fmt.Sprintf("%d declared constraints", len(gs))
		},
	})
}

func builtinIs(p *BuiltinCall) ([]Term, error) {
	v, err := p.VM.Evaluables.Eval(p.Depth, p.Args[1])
	if err != nil {
		return nil, err
	}
	return []Term{p.Eq(p.Args[0], v)}, nil
}

func builtinCompare(p *BuiltinCall) (int, error) {
	a, err := p.VM.Evaluables.Eval(p.Depth, p.Args[0])
	if err != nil {
		return 0, err
	}
	b, err := p.VM.Evaluables.Eval(p.Depth, p.Args[1])
	if err != nil {
		return 0, err
	}
	return comparePrimitive(p.VM, a, b)
}

func builtinVar(p *BuiltinCall) ([]Term, error) {
	switch p.Deref(p.Args[0]).(type) {
	case *UVar, *AppUVar:
		return nil, nil
	}
	return nil, ErrNoClause
}

// builtinDeclareConstraint promotes a goal into the constraint store. The
// promotion is recorded in the "constraints" state component; both writes go
// through the trail, so the declaration respects backtracking.
func builtinDeclareConstraint(p *BuiltinCall) ([]Term, error) {
	var blockers []*VarBody
	vars := p.Deref(p.Args[1])
	for {
		c, ok := vars.(*Cons)
		if !ok {
			break
		}
		switch v := p.Deref(c.Head).(type) {
		case *UVar:
			blockers = append(blockers, v.Ref)
		case *AppUVar:
			blockers = append(blockers, v.Ref)
		default:
			return nil, p.VM.typeError("unbound variable in blocker list", c.Head)
		}
		vars = p.Deref(c.Tail)
	}
	if _, ok := vars.(Nil); !ok {
		return nil, p.VM.typeError("list of variables", p.Args[1])
	}
	p.VM.suspend(p.Args[0], p.Depth, p.Hyps, blockers, true)
	declared, _ := p.State[stateConstraints].([]Term)
	p.SetState(stateConstraints, append(declared[:len(declared):len(declared)], p.Args[0]))
	return nil, nil
}

func builtinPrint(p *BuiltinCall) ([]Term, error) {
	s, ok := p.VM.Streams.Get(1)
	if !ok {
		return nil, p.VM.runtimeError("no output stream")
	}
	parts := make([]string, len(p.Args))
	for i, a := range p.Args {
		parts[i] = p.VM.SprintDepth(p.Depth, a)
	}
	if _, err := io.WriteString(s.writer, strings.Join(parts, " ")+"\n"); err != nil {
		return nil, p.VM.runtimeError("print: %v", err)
	}
	return nil, nil
}

func builtinTermToString(p *BuiltinCall) ([]Term, error) {
	return []Term{p.Eq(p.Args[1], p.VM.CData.MkString(p.VM.SprintDepth(p.Depth, p.Args[0])))}, nil
}

func builtinOpenIn(p *BuiltinCall) ([]Term, error) {
	name, err := stringCData(p, 0)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, p.VM.runtimeError("open_in: %v", err)
	}
	h := p.VM.Streams.Add(NewInputStream(name, f))
	return []Term{p.Eq(p.Args[1], p.VM.CData.MkInt(int64(h)))}, nil
}

func builtinOpenOut(p *BuiltinCall) ([]Term, error) {
	name, err := stringCData(p, 0)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, p.VM.runtimeError("open_out: %v", err)
	}
	h := p.VM.Streams.Add(NewOutputStream(name, f))
	return []Term{p.Eq(p.Args[1], p.VM.CData.MkInt(int64(h)))}, nil
}

func builtinClose(p *BuiltinCall) ([]Term, error) {
	h, err := intCData(p, 0)
	if err != nil {
		return nil, err
	}
	if err := p.VM.Streams.Close(int(h)); err != nil {
		return nil, p.VM.fatal(err)
	}
	return nil, nil
}

func builtinOutput(p *BuiltinCall) ([]Term, error) {
	h, err := intCData(p, 0)
	if err != nil {
		return nil, err
	}
	text, err := stringCData(p, 1)
	if err != nil {
		return nil, err
	}
	s, ok := p.VM.Streams.Get(int(h))
	if !ok || s.writer == nil {
		return nil, p.VM.runtimeError("not an output stream")
	}
	if _, err := io.WriteString(s.writer, text); err != nil {
		return nil, p.VM.runtimeError("output: %v", err)
	}
	return nil, nil
}

func builtinInputLine(p *BuiltinCall) ([]Term, error) {
	h, err := intCData(p, 0)
	if err != nil {
		return nil, err
	}
	s, ok := p.VM.Streams.Get(int(h))
	if !ok || s.reader == nil {
		return nil, p.VM.runtimeError("not an input stream")
	}
	line, err := s.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, p.VM.runtimeError("input_line: %v", err)
	}
	return []Term{p.Eq(p.Args[1], p.VM.CData.MkString(strings.TrimSuffix(line, "\n")))}, nil
}

func builtinFlush(p *BuiltinCall) ([]Term, error) {
	h, err := intCData(p, 0)
	if err != nil {
		return nil, err
	}
	s, ok := p.VM.Streams.Get(int(h))
	if !ok || s.writer == nil {
		return nil, p.VM.runtimeError("not an output stream")
	}
	type flusher interface{ Flush() error }
	if f, ok := s.writer.(flusher); ok {
		if err := f.Flush(); err != nil {
			return nil, p.VM.runtimeError("flush: %v", err)
		}
	}
	return nil, nil
}

func intCData(p *BuiltinCall, i int) (int64, error) {
	d, ok := p.Deref(p.Args[i]).(*CData)
	if !ok || d.Type != p.VM.CData.Int {
		return 0, p.VM.typeError("int", p.Args[i])
	}
	return d.Value.(int64), nil
}

func stringCData(p *BuiltinCall, i int) (string, error) {
	d, ok := p.Deref(p.Args[i]).(*CData)
	if !ok || d.Type != p.VM.CData.String {
		return "", p.VM.typeError("string", p.Args[i])
	}
	return d.Value.(string), nil
}
