package engine

// Clause is the compiled form of a program clause, produced by the external
// compiler and immutable in the core. Clause variables occur as Arg/AppArg
// slots and are renamed to fresh uvars at selection time.
type Clause struct {
	Head  Const
	Args  []Term
	Body  Term // nil for facts
	NVars int
	// Depth is the binding depth the clause was stated at: 0 for compiled
	// program clauses, the implication's depth for hypothetical ones.
	Depth int
	// Name labels the clause for grafting.
	Name string
	// Graft splices the clause relative to a named clause at load time.
	Graft *Graft
	Loc   *Loc
}

// GraftKind says on which side of the referenced clause a graft lands.
type GraftKind uint8

const (
	// GraftBefore inserts the clause before the referenced one.
	GraftBefore GraftKind = iota
	// GraftAfter inserts the clause after the referenced one.
	GraftAfter
)

// Graft is a clause placement annotation.
type Graft struct {
	Kind GraftKind
	Ref  string
}

// Program is an ordered list of compiled clauses.
type Program []*Clause

// Query is a compiled query: a goal over NVars variable slots, with the
// user-visible names of the slots that should be reported in solutions.
type Query struct {
	NVars    int
	VarNames map[string]int
	Goal     Term
}

// keyKind classifies the top constructor of a first argument.
type keyKind uint8

const (
	keyFlex keyKind = iota // unification variable or discard: matches any
	keyConst
	keyNil
	keyCons
	keyLam
	keyCData
	keyBuiltin
)

type indexKey struct {
	kind keyKind
	c    Const
	ct   *CDataType
}

// pred holds the clauses of one predicate in source order, plus a two-level
// index from the first argument's top constructor to the candidates.
type pred struct {
	clauses []*Clause
	byKey   map[indexKey][]*Clause
}

func (p *pred) invalidate() {
	p.byKey = nil
}

func (p *pred) insert(c *Clause) error {
	defer p.invalidate()
	if c.Graft == nil {
		p.clauses = append(p.clauses, c)
		return nil
	}
	for i, d := range p.clauses {
		if d.Name != c.Graft.Ref {
			continue
		}
		at := i
		if c.Graft.Kind == GraftAfter {
			at = i + 1
		}
		p.clauses = append(p.clauses, nil)
		copy(p.clauses[at+1:], p.clauses[at:])
		p.clauses[at] = c
		return nil
	}
	return &RuntimeError{Msg: "graft target " + c.Graft.Ref + " not found"}
}

// candidates returns the clauses compatible with the key, in source order.
// The per-key lists are built on first use and dropped on insertion.
func (p *pred) candidates(k indexKey) []*Clause {
	if k.kind == keyFlex {
		return p.clauses
	}
	if p.byKey == nil {
		p.byKey = map[indexKey][]*Clause{}
	}
	if cs, ok := p.byKey[k]; ok {
		return cs
	}
	var cs []*Clause
	for _, c := range p.clauses {
		ck := clauseKey(c)
		if ck.kind == keyFlex || ck == k {
			cs = append(cs, c)
		}
	}
	p.byKey[k] = cs
	return cs
}

func clauseKey(c *Clause) indexKey {
	if len(c.Args) == 0 {
		return indexKey{kind: keyFlex}
	}
	return termKey(c.Args[0])
}

func termKey(t Term) indexKey {
	switch x := t.(type) {
	case Const:
		return indexKey{kind: keyConst, c: x}
	case *App:
		return indexKey{kind: keyConst, c: x.Head}
	case *Cons:
		return indexKey{kind: keyCons}
	case Nil:
		return indexKey{kind: keyNil}
	case *Lam:
		return indexKey{kind: keyLam}
	case *CData:
		return indexKey{kind: keyCData, ct: x.Type}
	case *Builtin:
		return indexKey{kind: keyBuiltin}
	default:
		// Arg, AppArg, UVar, AppUVar, Discard.
		return indexKey{kind: keyFlex}
	}
}

// DB is a layer of the program database. The outermost layer is loaded at
// startup and is append-only; implication goals stack local layers above it
// and discard them on backtrack past the entry.
type DB struct {
	parent *DB
	preds  map[Const]*pred
}

// NewDB creates an empty database layer above parent.
func NewDB(parent *DB) *DB {
	return &DB{parent: parent, preds: map[Const]*pred{}}
}

// Load appends a compiled program to the layer, splicing grafted clauses.
func (db *DB) Load(p Program) error {
	for _, c := range p {
		if err := db.Assert(c); err != nil {
			return err
		}
	}
	return nil
}

// Assert adds a single clause to the layer.
func (db *DB) Assert(c *Clause) error {
	pr, ok := db.preds[c.Head]
	if !ok {
		pr = &pred{}
		db.preds[c.Head] = pr
	}
	return pr.insert(c)
}

// Candidates returns the clauses that can match a call to head whose first
// argument dereferences to firstArg (nil for a zero-arity call). Layers are
// searched innermost first: hypothetical clauses take precedence over the
// program's.
func (db *DB) Candidates(head Const, firstArg Term) []*Clause {
	k := indexKey{kind: keyFlex}
	if firstArg != nil {
		k = termKey(firstArg)
	}
	var out []*Clause
	for layer := db; layer != nil; layer = layer.parent {
		if pr, ok := layer.preds[head]; ok {
			out = append(out, pr.candidates(k)...)
		}
	}
	return out
}

// Defined reports whether any layer has clauses for head.
func (db *DB) Defined(head Const) bool {
	for layer := db; layer != nil; layer = layer.parent {
		if pr, ok := layer.preds[head]; ok && len(pr.clauses) > 0 {
			return true
		}
	}
	return false
}
