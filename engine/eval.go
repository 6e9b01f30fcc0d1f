package engine

import (
	"math"
	"strings"

	"github.com/cockroachdb/apd"
)

// evalCtx is the decimal context used for overflow-checked integer
// arithmetic: operations are computed exactly and must convert back to int64
// losslessly.
var evalCtx = apd.BaseContext.WithPrecision(64)

type evalKey struct {
	c     Const
	arity int
}

// EvalFn computes an evaluable symbol over already evaluated arguments.
type EvalFn func(p *BuiltinCall) (Term, error)

// EvalTable maps evaluable symbols to their implementations. It is separate
// from the predicate database: a symbol is evaluable only if registered here,
// whatever clauses exist for it.
type EvalTable struct {
	vm  *VM
	fns map[evalKey]EvalFn
}

// NewEvalTable creates a table with the arithmetic and string primitives
// registered.
func NewEvalTable(vm *VM) *EvalTable {
	e := &EvalTable{vm: vm, fns: map[evalKey]EvalFn{}}
	e.registerDefaults()
	return e
}

// Register adds an evaluable symbol of the given arity.
func (e *EvalTable) Register(name string, arity int, fn EvalFn) {
	e.fns[evalKey{c: e.vm.Symbols.Intern(name), arity: arity}] = fn
}

// Eval reduces an expression to a primitive leaf. It is pure: no
// unification, no assignment. Every subterm must be a primitive leaf or an
// application of a registered evaluable symbol.
func (e *EvalTable) Eval(depth int, t Term) (Term, error) {
	vm := e.vm
	switch x := vm.deref(depth, t).(type) {
	case *CData:
		return x, nil
	case Const:
		if x >= 0 {
			return nil, vm.runtimeError("cannot evaluate a bound variable")
		}
		fn, ok := e.fns[evalKey{c: x}]
		if !ok {
			return nil, vm.typeError("evaluable expression", x)
		}
		return fn(&BuiltinCall{VM: vm, Depth: depth})
	case *App:
		fn, ok := e.fns[evalKey{c: x.Head, arity: len(x.Args)}]
		if !ok {
			return nil, vm.typeError("evaluable expression", x)
		}
		args := make([]Term, len(x.Args))
		for i, a := range x.Args {
			v, err := e.Eval(depth, a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return fn(&BuiltinCall{VM: vm, Depth: depth, Args: args})
	case *UVar, *AppUVar:
		return nil, vm.runtimeError("cannot evaluate a non-closed term")
	default:
		return nil, vm.typeError("evaluable expression", t)
	}
}

func (e *EvalTable) registerDefaults() {
	e.Register("+", 2, e.arith(evalCtx.Add, func(x, y float64) float64 { return x + y }))
	e.Register("-", 2, e.arith(evalCtx.Sub, func(x, y float64) float64 { return x - y }))
	e.Register("*", 2, e.arith(evalCtx.Mul, func(x, y float64) float64 { return x * y }))
	e.Register("div", 2, e.intOp(evalCtx.QuoInteger))
	e.Register("mod", 2, e.intOp(evalCtx.Rem))
	e.Register("/", 2, e.floatOp(func(x, y float64) float64 { return x / y }))
	e.Register("-", 1, func(p *BuiltinCall) (Term, error) {
		v, ok := p.Args[0].(*CData)
		switch {
		case ok && v.Type == p.VM.CData.Int:
			i := v.Value.(int64)
			if i == math.MinInt64 {
				return nil, p.VM.runtimeError("integer overflow")
			}
			return p.VM.CData.MkInt(-i), nil
		case ok && v.Type == p.VM.CData.Float:
			return p.VM.CData.MkFloat(-v.Value.(float64)), nil
		default:
			return nil, p.VM.typeError("number", p.Args[0])
		}
	})
	e.Register("abs", 1, func(p *BuiltinCall) (Term, error) {
		v, ok := p.Args[0].(*CData)
		switch {
		case ok && v.Type == p.VM.CData.Int:
			i := v.Value.(int64)
			if i == math.MinInt64 {
				return nil, p.VM.runtimeError("integer overflow")
			}
			if i < 0 {
				i = -i
			}
			return p.VM.CData.MkInt(i), nil
		case ok && v.Type == p.VM.CData.Float:
			return p.VM.CData.MkFloat(math.Abs(v.Value.(float64))), nil
		default:
			return nil, p.VM.typeError("number", p.Args[0])
		}
	})
	e.Register("min", 2, e.pick(func(cmp int) bool { return cmp <= 0 }))
	e.Register("max", 2, e.pick(func(cmp int) bool { return cmp >= 0 }))
	e.Register("sqrt", 1, e.floatFn(math.Sqrt))
	e.Register("sin", 1, e.floatFn(math.Sin))
	e.Register("cos", 1, e.floatFn(math.Cos))
	e.Register("arctan", 1, e.floatFn(math.Atan))
	e.Register("ln", 1, e.floatFn(math.Log))
	e.Register("int_to_real", 1, func(p *BuiltinCall) (Term, error) {
		i, err := e.intArg(p, 0)
		if err != nil {
			return nil, err
		}
		return p.VM.CData.MkFloat(float64(i)), nil
	})
	e.Register("truncate", 1, func(p *BuiltinCall) (Term, error) {
		f, err := e.floatArg(p, 0)
		if err != nil {
			return nil, err
		}
		return p.VM.CData.MkInt(int64(f)), nil
	})
	e.Register("floor", 1, func(p *BuiltinCall) (Term, error) {
		f, err := e.floatArg(p, 0)
		if err != nil {
			return nil, err
		}
		return p.VM.CData.MkInt(int64(math.Floor(f))), nil
	})
	e.Register("ceil", 1, func(p *BuiltinCall) (Term, error) {
		f, err := e.floatArg(p, 0)
		if err != nil {
			return nil, err
		}
		return p.VM.CData.MkInt(int64(math.Ceil(f))), nil
	})

	e.Register("size", 1, func(p *BuiltinCall) (Term, error) {
		s, err := e.stringArg(p, 0)
		if err != nil {
			return nil, err
		}
		return p.VM.CData.MkInt(int64(len(s))), nil
	})
	e.Register("^", 2, func(p *BuiltinCall) (Term, error) {
		a, err := e.stringArg(p, 0)
		if err != nil {
			return nil, err
		}
		b, err := e.stringArg(p, 1)
		if err != nil {
			return nil, err
		}
		return p.VM.CData.MkString(a + b), nil
	})
	e.Register("substring", 3, func(p *BuiltinCall) (Term, error) {
		s, err := e.stringArg(p, 0)
		if err != nil {
			return nil, err
		}
		i, err := e.intArg(p, 1)
		if err != nil {
			return nil, err
		}
		n, err := e.intArg(p, 2)
		if err != nil {
			return nil, err
		}
		if i < 0 || n < 0 || i+n > int64(len(s)) {
			return nil, p.VM.runtimeError("substring out of range")
		}
		return p.VM.CData.MkString(s[i : i+n]), nil
	})
	e.Register("chr", 1, func(p *BuiltinCall) (Term, error) {
		i, err := e.intArg(p, 0)
		if err != nil {
			return nil, err
		}
		return p.VM.CData.MkString(string(rune(i))), nil
	})
	e.Register("string_to_int", 1, func(p *BuiltinCall) (Term, error) {
		s, err := e.stringArg(p, 0)
		if err != nil {
			return nil, err
		}
		if len(s) == 0 {
			return nil, p.VM.runtimeError("string_to_int of empty string")
		}
		return p.VM.CData.MkInt(int64(s[0])), nil
	})
}

type decOp func(d, x, y *apd.Decimal) (apd.Condition, error)

// arith dispatches a binary operation on exact types: two ints compute in
// decimal with an overflow check, two floats in float64. Mixed numeric
// arguments are a type error, never an implicit coercion.
func (e *EvalTable) arith(iop decOp, fop func(x, y float64) float64) EvalFn {
	return func(p *BuiltinCall) (Term, error) {
		a, aok := p.Args[0].(*CData)
		b, bok := p.Args[1].(*CData)
		if !aok || !bok {
			return nil, p.VM.typeError("number", p.Args[0])
		}
		cd := p.VM.CData
		switch {
		case a.Type == cd.Int && b.Type == cd.Int:
			i, err := e.decimal(p.VM, iop, a.Value.(int64), b.Value.(int64))
			if err != nil {
				return nil, err
			}
			return cd.MkInt(i), nil
		case a.Type == cd.Float && b.Type == cd.Float:
			return cd.MkFloat(fop(a.Value.(float64), b.Value.(float64))), nil
		case a.Type == cd.Int && b.Type == cd.Float || a.Type == cd.Float && b.Type == cd.Int:
			return nil, p.VM.typeError("operands of one numeric type", p.Args[1])
		default:
			return nil, p.VM.typeError("number", p.Args[0])
		}
	}
}

func (e *EvalTable) intOp(iop decOp) EvalFn {
	return func(p *BuiltinCall) (Term, error) {
		x, err := e.intArg(p, 0)
		if err != nil {
			return nil, err
		}
		y, err := e.intArg(p, 1)
		if err != nil {
			return nil, err
		}
		i, err := e.decimal(p.VM, iop, x, y)
		if err != nil {
			return nil, err
		}
		return p.VM.CData.MkInt(i), nil
	}
}

func (e *EvalTable) floatOp(fop func(x, y float64) float64) EvalFn {
	return func(p *BuiltinCall) (Term, error) {
		x, err := e.floatArg(p, 0)
		if err != nil {
			return nil, err
		}
		y, err := e.floatArg(p, 1)
		if err != nil {
			return nil, err
		}
		return p.VM.CData.MkFloat(fop(x, y)), nil
	}
}

func (e *EvalTable) floatFn(f func(float64) float64) EvalFn {
	return func(p *BuiltinCall) (Term, error) {
		x, err := e.floatArg(p, 0)
		if err != nil {
			return nil, err
		}
		return p.VM.CData.MkFloat(f(x)), nil
	}
}

func (e *EvalTable) pick(keep func(cmp int) bool) EvalFn {
	return func(p *BuiltinCall) (Term, error) {
		cmp, err := comparePrimitive(p.VM, p.Args[0], p.Args[1])
		if err != nil {
			return nil, err
		}
		if keep(cmp) {
			return p.Args[0], nil
		}
		return p.Args[1], nil
	}
}

// decimal runs an integer operation in exact decimal arithmetic and converts
// back, reporting overflow and division by zero as evaluation errors.
func (e *EvalTable) decimal(vm *VM, op decOp, x, y int64) (int64, error) {
	var d apd.Decimal
	if _, err := op(&d, apd.New(x, 0), apd.New(y, 0)); err != nil {
		if strings.Contains(err.Error(), "division by zero") {
			return 0, vm.runtimeError("division by zero")
		}
		return 0, vm.runtimeError("arithmetic error: %v", err)
	}
	i, err := d.Int64()
	if err != nil {
		return 0, vm.runtimeError("integer overflow")
	}
	return i, nil
}

func (e *EvalTable) intArg(p *BuiltinCall, i int) (int64, error) {
	d, ok := p.Args[i].(*CData)
	if !ok || d.Type != p.VM.CData.Int {
		return 0, p.VM.typeError("int", p.Args[i])
	}
	return d.Value.(int64), nil
}

func (e *EvalTable) floatArg(p *BuiltinCall, i int) (float64, error) {
	d, ok := p.Args[i].(*CData)
	if !ok || d.Type != p.VM.CData.Float {
		return 0, p.VM.typeError("float", p.Args[i])
	}
	return d.Value.(float64), nil
}

func (e *EvalTable) stringArg(p *BuiltinCall, i int) (string, error) {
	d, ok := p.Args[i].(*CData)
	if !ok || d.Type != p.VM.CData.String {
		return "", p.VM.typeError("string", p.Args[i])
	}
	return d.Value.(string), nil
}

// comparePrimitive orders two primitive leaves of the same type. Mixed
// numeric types are a type error.
func comparePrimitive(vm *VM, a, b Term) (int, error) {
	x, xok := a.(*CData)
	y, yok := b.(*CData)
	if !xok || !yok || x.Type != y.Type {
		return 0, vm.typeError("comparable values of one type", b)
	}
	cd := vm.CData
	switch x.Type {
	case cd.Int:
		i, j := x.Value.(int64), y.Value.(int64)
		switch {
		case i < j:
			return -1, nil
		case i > j:
			return 1, nil
		}
		return 0, nil
	case cd.Float:
		f, g := x.Value.(float64), y.Value.(float64)
		switch {
		case f < g:
			return -1, nil
		case f > g:
			return 1, nil
		}
		return 0, nil
	case cd.String:
		return strings.Compare(x.Value.(string), y.Value.(string)), nil
	default:
		return 0, vm.typeError("comparable value", a)
	}
}
