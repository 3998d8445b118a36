// Package ir defines the typed, name-resolved intermediate tree consumed by
// the def-use analyses.
//
// There are 3 main classes of nodes: Expressions, Statements, and
// Declarations. Every node carries a stable ID assigned by NewProgram; all
// analysis tables are keyed by that ID so rewriting the tree does not
// invalidate them.
package ir

import "fmt"

// ID identifies a node for the lifetime of a program.
type ID uint32

// NoID is the zero ID, never assigned to a node.
const NoID ID = 0

// Pos is a source position.
type Pos struct {
	File string `json:"file,omitempty" yaml:"file,omitempty" msgpack:"file,omitempty"`
	Line int    `json:"line" yaml:"line" msgpack:"line"`
	Col  int    `json:"col" yaml:"col" msgpack:"col"`
}

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// ----------------------------------------------------------------------------
// Interfaces

// Node is the interface implemented by all tree nodes.
type Node interface {
	ID() ID
	Pos() Pos
	aNode()
}

// Expr is the interface for all expression nodes.
type Expr interface {
	Node
	aExpr()
}

// Stmt is the interface for all statement nodes.
type Stmt interface {
	Node
	aStmt()
}

// Decl is the interface for all declaration nodes.
type Decl interface {
	Node
	DeclName() string
	aDecl()
}

// ----------------------------------------------------------------------------
// Base node types

type node struct {
	id  ID
	pos Pos
}

func (n *node) ID() ID         { return n.id }
func (n *node) Pos() Pos       { return n.pos }
func (n *node) SetPos(pos Pos) { n.pos = pos }
func (n *node) setID(id ID)    { n.id = id }
func (n *node) aNode()         {}

type expr struct{ node }

func (*expr) aExpr() {}

type stmt struct{ node }

func (*stmt) aStmt() {}

type decl struct{ node }

func (*decl) aDecl() {}

// ----------------------------------------------------------------------------
// Declarations

// Direction is the direction of a parameter.
type Direction string

const (
	DirNone  Direction = ""      // directionless (action data, compile-time)
	DirIn    Direction = "in"    // read-only
	DirOut   Direction = "out"   // write-only, uninitialized on entry
	DirInOut Direction = "inout" // copy-in/copy-out
)

// Writes reports whether the callee writes arguments passed with
// direction d.
func (d Direction) Writes() bool { return d == DirOut || d == DirInOut }

// Param is a formal parameter.
type Param struct {
	decl
	Name string
	Type Type
	Dir  Direction
}

// VarDecl declares a local variable. It is also a statement.
type VarDecl struct {
	decl
	Name string
	Type Type
	Init Expr // may be nil
}

func (*VarDecl) aStmt() {}

// ConstDecl declares a named constant. It is also a statement.
type ConstDecl struct {
	decl
	Name  string
	Type  Type
	Value Expr
}

func (*ConstDecl) aStmt() {}

// TypeDecl names a type so expressions such as E.A can refer to it.
type TypeDecl struct {
	decl
	Name string
	Type Type
}

// Action is a procedure invoked directly or through a table.
type Action struct {
	decl
	Name   string
	Params []*Param
	Body   *Block
}

// Function is a procedure returning a value. Virtual method
// implementations of instances are also functions.
type Function struct {
	decl
	Name   string
	Params []*Param
	Result Type
	Body   *Block
}

// Table is a match-action table: applying it runs one of its actions.
type Table struct {
	decl
	Name    string
	Keys    []Expr
	Actions []*Call // action list entries, each a call of an action
	Default *Call   // may be nil
}

// ExternMethod is a method prototype of an extern type.
type ExternMethod struct {
	decl
	Name     string
	Params   []*Param
	Result   Type
	Abstract bool // implemented by the instance's virtual functions
}

// Extern declares an opaque object type.
type Extern struct {
	decl
	Name    string
	Methods []*ExternMethod
}

// Method returns the named method, or nil.
func (e *Extern) Method(name string) *ExternMethod {
	for _, m := range e.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// ExternFunc declares an opaque free function.
type ExternFunc struct {
	decl
	Name   string
	Params []*Param
	Result Type
}

// Instance instantiates an extern, control or parser.
type Instance struct {
	decl
	Name     string
	TypeName string      // name of the instantiated Extern, Control or Parser
	Args     []Expr      // constructor arguments
	Virtual  []*Function // implementations of abstract methods
}

// VirtualMethod returns the implementation of the named abstract method.
func (i *Instance) VirtualMethod(name string) *Function {
	for _, f := range i.Virtual {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Control is a control block: locals plus an apply body.
type Control struct {
	decl
	Name   string
	Params []*Param
	Locals []Decl
	Body   *Block
}

// Parser is a finite state machine over ParserStates.
type Parser struct {
	decl
	Name   string
	Params []*Param
	Locals []Decl
	States []*ParserState
}

// State returns the named state, or nil.
func (p *Parser) State(name string) *ParserState {
	for _, s := range p.States {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Well-known parser state names.
const (
	StateStart  = "start"
	StateAccept = "accept"
	StateReject = "reject"
)

// ParserState is a single state of a parser.
type ParserState struct {
	decl
	Name string
	Body []Stmt
	Next Expr // *PathExpr naming a state, *SelectExpr, or nil (reject)
}

func (d *Param) DeclName() string        { return d.Name }
func (d *VarDecl) DeclName() string      { return d.Name }
func (d *ConstDecl) DeclName() string    { return d.Name }
func (d *TypeDecl) DeclName() string     { return d.Name }
func (d *Action) DeclName() string       { return d.Name }
func (d *Function) DeclName() string     { return d.Name }
func (d *Table) DeclName() string        { return d.Name }
func (d *ExternMethod) DeclName() string { return d.Name }
func (d *Extern) DeclName() string       { return d.Name }
func (d *ExternFunc) DeclName() string   { return d.Name }
func (d *Instance) DeclName() string     { return d.Name }
func (d *Control) DeclName() string      { return d.Name }
func (d *Parser) DeclName() string       { return d.Name }
func (d *ParserState) DeclName() string  { return d.Name }

// ----------------------------------------------------------------------------
// Expressions

// PathExpr refers to a declaration by name.
type PathExpr struct {
	expr
	Name string
}

// Member selects a field, a stack property or a method.
type Member struct {
	expr
	X    Expr
	Name string
}

// Index selects an element of a stack or tuple.
type Index struct {
	expr
	X     Expr
	Index Expr
}

// Slice extracts bits [Hi:Lo].
type Slice struct {
	expr
	X      Expr
	Hi, Lo int
}

// IntLit is an integer literal. Width 0 means unsized.
type IntLit struct {
	expr
	Value  uint64
	Width  int
	Signed bool
}

// BoolLit is true or false.
type BoolLit struct {
	expr
	Value bool
}

// Unary applies !, ~ or - to an operand.
type Unary struct {
	expr
	Op string
	X  Expr
}

// Binary applies an infix operator.
type Binary struct {
	expr
	Op   string
	X, Y Expr
}

// Mux is Cond ? Then : Else.
type Mux struct {
	expr
	Cond, Then, Else Expr
}

// Cast converts X to type To.
type Cast struct {
	expr
	To Type
	X  Expr
}

// ListExpr is a brace-enclosed list {a, b, c}.
type ListExpr struct {
	expr
	Elems []Expr
}

// NamedExpr is one field = value pair of a StructExpr.
type NamedExpr struct {
	Name  string
	Value Expr
}

// StructExpr is a brace-enclosed struct value {f = a, g = b}.
type StructExpr struct {
	expr
	Fields []NamedExpr
}

// Call invokes a method, action, function or builtin.
type Call struct {
	expr
	Fun  Expr
	Args []Expr
}

// SelectCase is one keyset: state arm of a select.
type SelectCase struct {
	Keyset Expr
	State  *PathExpr
}

// SelectExpr is a parser transition select.
type SelectExpr struct {
	expr
	Keys  []Expr
	Cases []SelectCase
}

// DefaultExpr is the default label or keyset.
type DefaultExpr struct{ expr }

// DontCare is the _ keyset or argument.
type DontCare struct{ expr }

// ----------------------------------------------------------------------------
// Statements

// Block is a sequence of statements with its own scope.
type Block struct {
	stmt
	Stmts []Stmt
}

// Assign is LHS = RHS.
type Assign struct {
	stmt
	LHS, RHS Expr
}

// CallStmt evaluates a call for its effects.
type CallStmt struct {
	stmt
	Call *Call
}

// If is a two-way conditional. Else may be nil.
type If struct {
	stmt
	Cond Expr
	Then Stmt
	Else Stmt
}

// SwitchCase is one label of a switch. A nil Body falls through to the
// next case.
type SwitchCase struct {
	Label Expr // *PathExpr (action name), *Member (enum constant) or *DefaultExpr
	Body  *Block
}

// Switch dispatches on an action_run or enum value.
type Switch struct {
	stmt
	X     Expr
	Cases []SwitchCase
}

// Return leaves the enclosing action or function.
type Return struct {
	stmt
	X Expr // may be nil
}

// Exit terminates the whole enclosing control.
type Exit struct{ stmt }

// Empty does nothing.
type Empty struct{ stmt }
