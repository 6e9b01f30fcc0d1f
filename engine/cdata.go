package engine

import (
	"fmt"
	"hash/fnv"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CData is an opaque host value injected into terms. Values are compared
// with the Eq of their type descriptor; values of different types never
// compare equal.
type CData struct {
	Type  *CDataType
	Value interface{}
}

func (*CData) term() {}

func (d *CData) String() string {
	if d.Type.Pp != nil {
		return d.Type.Pp(d.Value)
	}
	return fmt.Sprintf("<%s>", d.Type.Name)
}

// CDataType describes a class of opaque host values. Eq and Hash must be
// pure: they are called from the unifier and from the intern table and must
// not touch the unification or constraint store.
type CDataType struct {
	Name    string
	Pp      func(interface{}) string
	Eq      func(a, b interface{}) bool
	Hash    func(interface{}) uint64
	Hconsed bool

	intern *lru.Cache[uint64, []*CData]
}

const internSize = 4096

// New injects a value of the type. Hconsed types share structurally equal
// injections through a bounded intern table keyed on Hash/Eq.
func (t *CDataType) New(v interface{}) *CData {
	if !t.Hconsed {
		return &CData{Type: t, Value: v}
	}
	if t.intern == nil {
		t.intern, _ = lru.New[uint64, []*CData](internSize)
	}
	h := t.Hash(v)
	bucket, _ := t.intern.Get(h)
	for _, d := range bucket {
		if t.Eq(d.Value, v) {
			return d
		}
	}
	d := &CData{Type: t, Value: v}
	t.intern.Add(h, append(bucket, d))
	return d
}

// Equal compares two injected values.
func (t *CDataType) Equal(a, b *CData) bool {
	if a.Type != b.Type {
		return false
	}
	if a == b {
		return true
	}
	return t.Eq(a.Value, b.Value)
}

// Loc is a source location.
type Loc struct {
	File      string
	Line, Col int
}

func (l Loc) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// CDataRegistry holds the type descriptors known to an interpreter. It is
// grow-only and read-only during solving.
type CDataRegistry struct {
	types map[string]*CDataType

	Int    *CDataType
	Float  *CDataType
	String *CDataType
	Loc    *CDataType
}

// NewCDataRegistry creates a registry with the built-in primitive types.
func NewCDataRegistry() *CDataRegistry {
	r := &CDataRegistry{types: map[string]*CDataType{}}
	r.Int = r.Declare(&CDataType{
		Name: "int",
		Pp:   func(v interface{}) string { return strconv.FormatInt(v.(int64), 10) },
		Eq:   func(a, b interface{}) bool { return a.(int64) == b.(int64) },
		Hash: func(v interface{}) uint64 { return uint64(v.(int64)) },
	})
	r.Float = r.Declare(&CDataType{
		Name: "float",
		Pp:   func(v interface{}) string { return strconv.FormatFloat(v.(float64), 'g', -1, 64) },
		Eq:   func(a, b interface{}) bool { return a.(float64) == b.(float64) },
	})
	r.String = r.Declare(&CDataType{
		Name:    "string",
		Pp:      func(v interface{}) string { return strconv.Quote(v.(string)) },
		Eq:      func(a, b interface{}) bool { return a.(string) == b.(string) },
		Hash:    hashString,
		Hconsed: true,
	})
	r.Loc = r.Declare(&CDataType{
		Name: "loc",
		Pp:   func(v interface{}) string { return v.(Loc).String() },
		Eq:   func(a, b interface{}) bool { return a.(Loc) == b.(Loc) },
	})
	return r
}

// Declare registers a type descriptor and returns it. Declaring a name twice
// returns the existing descriptor unchanged.
func (r *CDataRegistry) Declare(t *CDataType) *CDataType {
	if old, ok := r.types[t.Name]; ok {
		return old
	}
	if t.Hconsed && t.Hash == nil {
		t.Hconsed = false
	}
	r.types[t.Name] = t
	return t
}

// Type returns the descriptor for name.
func (r *CDataRegistry) Type(name string) (*CDataType, bool) {
	t, ok := r.types[name]
	return t, ok
}

// MkInt injects an int64.
func (r *CDataRegistry) MkInt(i int64) *CData { return r.Int.New(i) }

// MkFloat injects a float64.
func (r *CDataRegistry) MkFloat(f float64) *CData { return r.Float.New(f) }

// MkString injects a string.
func (r *CDataRegistry) MkString(s string) *CData { return r.String.New(s) }

// MkLoc injects a source location.
func (r *CDataRegistry) MkLoc(l Loc) *CData { return r.Loc.New(l) }

func hashString(v interface{}) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(v.(string)))
	return h.Sum64()
}
