package engine

import (
	"fmt"
	"io"
	"strings"
)

// WriteTerm writes one external representation of t, dereferencing as it
// goes. Bound variables print as x0, x1, … by their level; unbound
// unification variables as X followed by their allocation number.
func (vm *VM) WriteTerm(w io.Writer, depth int, t Term) error {
	p := printer{vm: vm, w: w}
	p.write(depth, t, false)
	return p.err
}

// Sprint renders a closed term.
func (vm *VM) Sprint(t Term) string {
	return vm.SprintDepth(0, t)
}

// SprintDepth renders a term inspected at the given depth.
func (vm *VM) SprintDepth(depth int, t Term) string {
	var sb strings.Builder
	_ = vm.WriteTerm(&sb, depth, t)
	return sb.String()
}

type printer struct {
	vm  *VM
	w   io.Writer
	err error
}

func (p *printer) print(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *printer) printf(format string, args ...interface{}) {
	p.print(fmt.Sprintf(format, args...))
}

func (p *printer) write(depth int, t Term, nested bool) {
	// Clause slots never reach the solver but do reach the printer, e.g.
	// when diagnostics render a compiled clause. Keep them out of deref.
	switch t.(type) {
	case Arg, *AppArg:
	default:
		t = p.vm.deref(depth, t)
	}
	switch x := t.(type) {
	case Const:
		p.print(p.vm.Symbols.Name(x))
	case *Lam:
		if nested {
			p.print("(")
		}
		p.printf("x%d\\ ", depth)
		p.write(depth+1, x.Body, false)
		if nested {
			p.print(")")
		}
	case *App:
		if nested {
			p.print("(")
		}
		p.print(p.vm.Symbols.Name(x.Head))
		for _, a := range x.Args {
			p.print(" ")
			p.write(depth, a, true)
		}
		if nested {
			p.print(")")
		}
	case *Cons:
		p.print("[")
		p.write(depth, x.Head, false)
		tail := p.vm.deref(depth, x.Tail)
		for {
			c, ok := tail.(*Cons)
			if !ok {
				break
			}
			p.print(", ")
			p.write(depth, c.Head, false)
			tail = p.vm.deref(depth, c.Tail)
		}
		if _, ok := tail.(Nil); !ok {
			p.print("|")
			p.write(depth, tail, false)
		}
		p.print("]")
	case Nil:
		p.print("[]")
	case Discard:
		p.print("_")
	case *CData:
		p.print(x.String())
	case *Builtin:
		d := p.vm.Builtins.decl(x.ID)
		name := "?builtin"
		if d != nil {
			name = d.Name
		}
		if nested && len(x.Args) > 0 {
			p.print("(")
		}
		p.print(name)
		for _, a := range x.Args {
			p.print(" ")
			p.write(depth, a, true)
		}
		if nested && len(x.Args) > 0 {
			p.print(")")
		}
	case *UVar:
		if nested && x.NArgs > 0 {
			p.print("(")
		}
		p.printf("X%d", x.Ref.id)
		for i := 0; i < x.NArgs; i++ {
			p.printf(" x%d", x.From+i)
		}
		if nested && x.NArgs > 0 {
			p.print(")")
		}
	case *AppUVar:
		if nested {
			p.print("(")
		}
		p.printf("X%d", x.Ref.id)
		for _, a := range x.Args {
			p.print(" ")
			p.write(depth, a, true)
		}
		if nested {
			p.print(")")
		}
	case Arg:
		p.printf("A%d", x.Slot)
	case *AppArg:
		if nested {
			p.print("(")
		}
		p.printf("A%d", x.Slot)
		for _, a := range x.Args {
			p.print(" ")
			p.write(depth, a, true)
		}
		if nested {
			p.print(")")
		}
	default:
		p.printf("?%T", t)
	}
}
