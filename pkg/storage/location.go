// Package storage decomposes declared variables into trees of elementary
// storage locations and provides set operations over them.
package storage

import (
	"strconv"
	"sync/atomic"

	"github.com/p4lang/p4c-sub009/pkg/diag"
	"github.com/p4lang/p4c-sub009/pkg/ir"
)

// Names of the synthetic leaves.
const (
	ValidField     = "$valid"
	LastIndexField = "$lastIndex"
)

// Location is a node of a storage tree. The shape of a tree is fixed when
// it is built and never changes.
type Location interface {
	Name() string
	Type() ir.Type
	aLocation()
}

var seq atomic.Uint64

type location struct {
	name  string
	typ   ir.Type
	order uint64
}

func newLocation(name string, t ir.Type) location {
	return location{name: name, typ: t, order: seq.Add(1)}
}

func (l *location) Name() string   { return l.name }
func (l *location) Type() ir.Type  { return l.typ }
func (l *location) aLocation()     {}
func (l *location) String() string { return l.name }

// Base is a leaf: a scalar, an enumerant, a synthetic validity or index
// slot, or an aggregate without members.
type Base struct {
	location
	lastIndex bool
}

// Struct is a struct, header or header union. Headers carry a validity
// leaf; the header members of a union share the union's validity leaf.
type Struct struct {
	location
	names  []string
	fields map[string]Location
	valid  *Base // nil for plain structs
}

// Field returns the named member, or nil.
func (s *Struct) Field(name string) Location { return s.fields[name] }

// Fields returns the members in declaration order.
func (s *Struct) Fields() []Location {
	out := make([]Location, len(s.names))
	for i, n := range s.names {
		out[i] = s.fields[n]
	}
	return out
}

// Valid returns the validity leaf, or nil for plain structs.
func (s *Struct) Valid() *Base { return s.valid }

// IsHeader reports whether s is a header.
func (s *Struct) IsHeader() bool {
	_, ok := s.typ.(*ir.HeaderType)
	return ok
}

// IsUnion reports whether s is a header union.
func (s *Struct) IsUnion() bool {
	_, ok := s.typ.(*ir.HeaderUnionType)
	return ok
}

// Tuple is a fixed-size positional aggregate.
type Tuple struct {
	location
	elems []Location
}

// Elems returns the components.
func (t *Tuple) Elems() []Location { return t.elems }

// Array is a header stack. Besides its elements it carries a leaf for the
// index most recently pushed or popped.
type Array struct {
	location
	elems     []Location
	lastIndex *Base
}

// Elems returns the elements.
func (a *Array) Elems() []Location { return a.elems }

// LastIndex returns the last-index leaf.
func (a *Array) LastIndex() *Base { return a.lastIndex }

// Build constructs the storage tree for a value of type t. It returns nil
// for types that have no storage, such as externs and methods.
func Build(t ir.Type, name string) Location {
	if t == nil {
		diag.Bugf("%s: no type", name)
	}
	return build(t, name, nil)
}

func build(t ir.Type, name string, sharedValid *Base) Location {
	switch t := t.(type) {
	case *ir.BitsType, *ir.IntType, *ir.BoolType, *ir.ErrorType, *ir.EnumType:
		return &Base{location: newLocation(name, t)}
	case *ir.StructType:
		if len(t.Fields) == 0 {
			return &Base{location: newLocation(name, t)}
		}
		return buildStruct(t, name, t.Fields, nil)
	case *ir.HeaderType:
		valid := sharedValid
		if valid == nil {
			valid = &Base{location: newLocation(name+"."+ValidField, ir.Bool)}
		}
		return buildStruct(t, name, t.Fields, valid)
	case *ir.HeaderUnionType:
		valid := &Base{location: newLocation(name+"."+ValidField, ir.Bool)}
		return buildStruct(t, name, t.Fields, valid)
	case *ir.StackType:
		a := &Array{
			location:  newLocation(name, t),
			lastIndex: &Base{location: newLocation(name+"."+LastIndexField, ir.Bits(32)), lastIndex: true},
		}
		for i := 0; i < t.Size; i++ {
			a.elems = append(a.elems, build(t.Elem, name+"["+strconv.Itoa(i)+"]", nil))
		}
		return a
	case *ir.TupleType:
		if len(t.Components) == 0 {
			return &Base{location: newLocation(name, t)}
		}
		tu := &Tuple{location: newLocation(name, t)}
		for i, c := range t.Components {
			tu.elems = append(tu.elems, build(c, name+"["+strconv.Itoa(i)+"]", nil))
		}
		return tu
	case *ir.VoidType, *ir.ExternType, *ir.MethodType, *ir.TableResultType, *ir.ActionRunType:
		return nil
	}
	diag.Bugf("%s: unexpected type %T", name, t)
	return nil
}

func buildStruct(t ir.Type, name string, fields []ir.Field, valid *Base) *Struct {
	s := &Struct{
		location: newLocation(name, t),
		fields:   make(map[string]Location, len(fields)),
		valid:    valid,
	}
	_, union := t.(*ir.HeaderUnionType)
	for _, f := range fields {
		var shared *Base
		if union {
			shared = valid
		}
		loc := build(f.Type, name+"."+f.Name, shared)
		if loc == nil {
			continue
		}
		s.names = append(s.names, f.Name)
		s.fields[f.Name] = loc
	}
	return s
}

// leaves appends the leaves of l to out.
func leaves(l Location, out map[Location]struct{}) {
	switch l := l.(type) {
	case *Base:
		out[l] = struct{}{}
	case *Struct:
		for _, f := range l.fields {
			leaves(f, out)
		}
		if l.valid != nil {
			out[l.valid] = struct{}{}
		}
	case *Tuple:
		for _, e := range l.elems {
			leaves(e, out)
		}
	case *Array:
		for _, e := range l.elems {
			leaves(e, out)
		}
		out[l.lastIndex] = struct{}{}
	default:
		diag.Bugf("%s: unexpected location %T", l.Name(), l)
	}
}
