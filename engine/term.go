package engine

// Term is a runtime term. The set of implementations is closed: the solver
// dispatches on the dynamic type of a dereferenced head and anything else is
// an anomaly.
//
// Depth convention: a term valid at depth d has all free bound-variable
// levels in [0, d). A Lam entered at depth d binds level d in its body.
type Term interface {
	term()
}

// Lam is an abstraction. The bound variable occurs in Body as Const(d) where
// d is the depth at which the Lam is entered.
type Lam struct {
	Body Term
}

func (*Lam) term() {}

// App is an application of a constant head to at least one argument.
type App struct {
	Head Const
	Args []Term
}

func (*App) term() {}

// Cons is the list constructor.
type Cons struct {
	Head, Tail Term
}

func (*Cons) term() {}

// Nil is the empty list.
type Nil struct{}

func (Nil) term() {}

// Discard is the anonymous "don't care" pattern. It unifies with anything
// without binding.
type Discard struct{}

func (Discard) term() {}

// Builtin is a call to a registered foreign predicate, distinguished from
// ordinary application so the solver can dispatch without a database lookup.
type Builtin struct {
	ID   BuiltinID
	Args []Term
}

func (*Builtin) term() {}

// UVar is a unification variable η-expanded over NArgs bound variables: it
// stands for Ref applied to Const(From) … Const(From+NArgs-1). From is the
// binding depth at the point of creation and is required for correct lifting
// when the node is inspected at a different depth.
type UVar struct {
	Ref   *VarBody
	From  int
	NArgs int
}

func (*UVar) term() {}

// AppUVar is a unification variable applied to arbitrary arguments, the
// general case outside the η-expanded fragment.
type AppUVar struct {
	Ref  *VarBody
	From int
	Args []Term
}

func (*AppUVar) term() {}

// Arg is a clause-variable slot. It occurs only in compiled clauses and
// queries; reaching the solver with one is an anomaly.
type Arg struct {
	Slot int
}

func (Arg) term() {}

// AppArg is a clause-variable slot applied to arguments.
type AppArg struct {
	Slot int
	Args []Term
}

func (*AppArg) term() {}

// MkApp builds an application, collapsing the zero-argument case to the bare
// head so the invariant len(App.Args) >= 1 holds by construction.
func MkApp(head Const, args ...Term) Term {
	if len(args) == 0 {
		return head
	}
	if head == ConstCons && len(args) == 2 {
		return &Cons{Head: args[0], Tail: args[1]}
	}
	return &App{Head: head, Args: args}
}

// MkLam wraps t in n abstractions.
func MkLam(n int, t Term) Term {
	for i := 0; i < n; i++ {
		t = &Lam{Body: t}
	}
	return t
}

// MkList builds a list term from items.
func MkList(items ...Term) Term {
	var t Term = Nil{}
	for i := len(items) - 1; i >= 0; i-- {
		t = &Cons{Head: items[i], Tail: t}
	}
	return t
}

// mkUVarApp applies arguments to an unbound uvar, collapsing to the
// η-expanded form when the arguments are exactly the consecutive levels
// starting at from.
func mkUVarApp(r *VarBody, from int, args []Term) Term {
	if len(args) == 0 {
		return &UVar{Ref: r, From: from}
	}
	consecutive := true
	for i, a := range args {
		if c, ok := a.(Const); !ok || c != Const(from+i) {
			consecutive = false
			break
		}
	}
	if consecutive {
		return &UVar{Ref: r, From: from, NArgs: len(args)}
	}
	return &AppUVar{Ref: r, From: from, Args: args}
}

// etaArgs returns the implicit argument list of an η-expanded uvar node.
func etaArgs(from, nargs int) []Term {
	args := make([]Term, nargs)
	for i := range args {
		args[i] = Const(from + i)
	}
	return args
}

// applyTerm attaches extra arguments to an already dereferenced head. It
// returns nil when the head cannot take arguments.
func applyTerm(t Term, args []Term) Term {
	if len(args) == 0 {
		return t
	}
	switch t := t.(type) {
	case Const:
		return MkApp(t, args...)
	case *App:
		return &App{Head: t.Head, Args: append(append([]Term{}, t.Args...), args...)}
	case *UVar:
		return &AppUVar{Ref: t.Ref, From: t.From, Args: append(etaArgs(t.From, t.NArgs), args...)}
	case *AppUVar:
		return &AppUVar{Ref: t.Ref, From: t.From, Args: append(append([]Term{}, t.Args...), args...)}
	case *Builtin:
		return &Builtin{ID: t.ID, Args: append(append([]Term{}, t.Args...), args...)}
	default:
		return nil
	}
}
