package ir

import (
	"fmt"
	"strings"
)

// Type is the interface implemented by all resolved types.
type Type interface {
	String() string
	aType()
}

// BitsType is a fixed-width integer, bit<W> or int<W>.
type BitsType struct {
	Width  int
	Signed bool
}

// IntType is the arbitrary-precision type of unsized integer literals.
type IntType struct{}

// BoolType is the boolean type.
type BoolType struct{}

// ErrorType is the type of error constants.
type ErrorType struct{}

// VoidType is the result type of calls that return nothing.
type VoidType struct{}

// EnumType is an enumeration with a closed set of members.
type EnumType struct {
	Name    string
	Members []string
}

// Field is a named member of a struct-like type.
type Field struct {
	Name string
	Type Type
}

// StructType is a plain record.
type StructType struct {
	Name   string
	Fields []Field
}

// HeaderType is a record carrying an implicit validity bit.
type HeaderType struct {
	Name   string
	Fields []Field
}

// HeaderUnionType is a record whose header members share one validity bit.
type HeaderUnionType struct {
	Name   string
	Fields []Field
}

// StackType is a fixed-size array of elements, usually headers.
type StackType struct {
	Elem Type
	Size int
}

// TupleType is a fixed-size heterogeneous sequence.
type TupleType struct {
	Components []Type
}

// ExternType is the type of values of an extern object type, such as a
// packet parameter.
type ExternType struct {
	Extern *Extern
}

// MethodType is the type of an expression that names a method or callable.
type MethodType struct {
	Name string
}

// TableResultType is the type of t.apply().
type TableResultType struct {
	Table *Table
}

// ActionRunType is the type of t.apply().action_run.
type ActionRunType struct {
	Table *Table
}

func (*BitsType) aType()        {}
func (*IntType) aType()         {}
func (*BoolType) aType()        {}
func (*ErrorType) aType()       {}
func (*VoidType) aType()        {}
func (*EnumType) aType()        {}
func (*StructType) aType()      {}
func (*HeaderType) aType()      {}
func (*HeaderUnionType) aType() {}
func (*StackType) aType()       {}
func (*TupleType) aType()       {}
func (*ExternType) aType()      {}
func (*MethodType) aType()      {}
func (*TableResultType) aType() {}
func (*ActionRunType) aType()   {}

func (t *BitsType) String() string {
	if t.Signed {
		return fmt.Sprintf("int<%d>", t.Width)
	}
	return fmt.Sprintf("bit<%d>", t.Width)
}

func (*IntType) String() string   { return "int" }
func (*BoolType) String() string  { return "bool" }
func (*ErrorType) String() string { return "error" }
func (*VoidType) String() string  { return "void" }

func (t *EnumType) String() string        { return t.Name }
func (t *StructType) String() string      { return t.Name }
func (t *HeaderType) String() string      { return t.Name }
func (t *HeaderUnionType) String() string { return t.Name }

func (t *StackType) String() string {
	return fmt.Sprintf("%s[%d]", t.Elem, t.Size)
}

func (t *TupleType) String() string {
	parts := make([]string, len(t.Components))
	for i, c := range t.Components {
		parts[i] = c.String()
	}
	return "tuple<" + strings.Join(parts, ", ") + ">"
}

func (t *ExternType) String() string      { return t.Extern.Name }
func (t *MethodType) String() string      { return "method " + t.Name }
func (t *TableResultType) String() string { return "apply_result(" + t.Table.Name + ")" }
func (t *ActionRunType) String() string   { return "action_list(" + t.Table.Name + ")" }

// Shared singletons for types without parameters.
var (
	Bool  Type = &BoolType{}
	Int   Type = &IntType{}
	Void  Type = &VoidType{}
	Error Type = &ErrorType{}
)

// Bits returns the unsigned type of the given width.
func Bits(width int) *BitsType {
	return &BitsType{Width: width}
}

// IsBase reports whether t has no substructure the analysis tracks.
func IsBase(t Type) bool {
	switch t.(type) {
	case *BitsType, *IntType, *BoolType, *ErrorType, *EnumType:
		return true
	}
	return false
}

// FieldsOf returns the fields of a struct-like type, or nil.
func FieldsOf(t Type) []Field {
	switch t := t.(type) {
	case *StructType:
		return t.Fields
	case *HeaderType:
		return t.Fields
	case *HeaderUnionType:
		return t.Fields
	}
	return nil
}

// FieldType returns the type of the named field of a struct-like type.
func FieldType(t Type, name string) (Type, bool) {
	for _, f := range FieldsOf(t) {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// ContainsHeaders reports whether a value of type t holds any header.
func ContainsHeaders(t Type) bool {
	switch t := t.(type) {
	case *HeaderType, *HeaderUnionType:
		return true
	case *StructType:
		for _, f := range t.Fields {
			if ContainsHeaders(f.Type) {
				return true
			}
		}
	case *StackType:
		return ContainsHeaders(t.Elem)
	case *TupleType:
		for _, c := range t.Components {
			if ContainsHeaders(c) {
				return true
			}
		}
	}
	return false
}

// ContainsUnion reports whether a value of type t holds a header union.
func ContainsUnion(t Type) bool {
	switch t := t.(type) {
	case *HeaderUnionType:
		return true
	case *StructType:
		for _, f := range t.Fields {
			if ContainsUnion(f.Type) {
				return true
			}
		}
	case *StackType:
		return ContainsUnion(t.Elem)
	case *TupleType:
		for _, c := range t.Components {
			if ContainsUnion(c) {
				return true
			}
		}
	}
	return false
}
