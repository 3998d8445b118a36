package ir

// Program is a complete compilation unit.
type Program struct {
	Name  string
	Types []*TypeDecl
	Decls []Decl

	maxID ID
}

// NewProgram assembles a program and numbers every node. Parsers that do
// not declare the accept and reject states receive empty ones.
func NewProgram(name string, types []*TypeDecl, decls []Decl) *Program {
	p := &Program{Name: name, Types: types, Decls: decls}
	for _, d := range decls {
		if parser, ok := d.(*Parser); ok {
			addFinalStates(parser)
		}
	}
	for _, t := range types {
		p.Number(t)
	}
	for _, d := range decls {
		p.Number(d)
	}
	return p
}

func addFinalStates(p *Parser) {
	for _, name := range []string{StateAccept, StateReject} {
		if p.State(name) == nil {
			s := &ParserState{Name: name}
			s.SetPos(p.Pos())
			p.States = append(p.States, s)
		}
	}
}

// NewID returns an ID not yet used in the program.
func (p *Program) NewID() ID {
	p.maxID++
	return p.maxID
}

// Number assigns IDs to n and its descendants that do not have one yet.
func (p *Program) Number(n Node) {
	Inspect(n, func(n Node) bool {
		if n.ID() == NoID {
			n.(interface{ setID(ID) }).setID(p.NewID())
		} else if n.ID() > p.maxID {
			p.maxID = n.ID()
		}
		return true
	})
}

// Lookup returns the top-level declaration with the given name, or nil.
func (p *Program) Lookup(name string) Decl {
	for _, d := range p.Decls {
		if d.DeclName() == name {
			return d
		}
	}
	return nil
}

// Inspect traverses the tree rooted at n in depth-first order. It calls
// f(n) for each node; if f returns false the children are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	walkExprs := func(list []Expr) {
		for _, e := range list {
			Inspect(e, f)
		}
	}
	walkParams := func(list []*Param) {
		for _, p := range list {
			Inspect(p, f)
		}
	}
	switch n := n.(type) {
	case *Param, *TypeDecl, *PathExpr, *IntLit, *BoolLit, *DefaultExpr, *DontCare, *Exit, *Empty:
		// leaves
	case *VarDecl:
		if n.Init != nil {
			Inspect(n.Init, f)
		}
	case *ConstDecl:
		if n.Value != nil {
			Inspect(n.Value, f)
		}
	case *Action:
		walkParams(n.Params)
		if n.Body != nil {
			Inspect(n.Body, f)
		}
	case *Function:
		walkParams(n.Params)
		if n.Body != nil {
			Inspect(n.Body, f)
		}
	case *Table:
		walkExprs(n.Keys)
		for _, a := range n.Actions {
			Inspect(a, f)
		}
		if n.Default != nil {
			Inspect(n.Default, f)
		}
	case *ExternMethod:
		walkParams(n.Params)
	case *Extern:
		for _, m := range n.Methods {
			Inspect(m, f)
		}
	case *ExternFunc:
		walkParams(n.Params)
	case *Instance:
		walkExprs(n.Args)
		for _, v := range n.Virtual {
			Inspect(v, f)
		}
	case *Control:
		walkParams(n.Params)
		for _, l := range n.Locals {
			Inspect(l, f)
		}
		if n.Body != nil {
			Inspect(n.Body, f)
		}
	case *Parser:
		walkParams(n.Params)
		for _, l := range n.Locals {
			Inspect(l, f)
		}
		for _, s := range n.States {
			Inspect(s, f)
		}
	case *ParserState:
		for _, s := range n.Body {
			Inspect(s, f)
		}
		if n.Next != nil {
			Inspect(n.Next, f)
		}
	case *Member:
		Inspect(n.X, f)
	case *Index:
		Inspect(n.X, f)
		Inspect(n.Index, f)
	case *Slice:
		Inspect(n.X, f)
	case *Unary:
		Inspect(n.X, f)
	case *Binary:
		Inspect(n.X, f)
		Inspect(n.Y, f)
	case *Mux:
		Inspect(n.Cond, f)
		Inspect(n.Then, f)
		Inspect(n.Else, f)
	case *Cast:
		Inspect(n.X, f)
	case *ListExpr:
		walkExprs(n.Elems)
	case *StructExpr:
		for _, fe := range n.Fields {
			Inspect(fe.Value, f)
		}
	case *Call:
		Inspect(n.Fun, f)
		walkExprs(n.Args)
	case *SelectExpr:
		walkExprs(n.Keys)
		for _, c := range n.Cases {
			Inspect(c.Keyset, f)
			Inspect(c.State, f)
		}
	case *Block:
		for _, s := range n.Stmts {
			Inspect(s, f)
		}
	case *Assign:
		Inspect(n.LHS, f)
		Inspect(n.RHS, f)
	case *CallStmt:
		Inspect(n.Call, f)
	case *If:
		Inspect(n.Cond, f)
		Inspect(n.Then, f)
		if n.Else != nil {
			Inspect(n.Else, f)
		}
	case *Switch:
		Inspect(n.X, f)
		for _, c := range n.Cases {
			Inspect(c.Label, f)
			if c.Body != nil {
				Inspect(c.Body, f)
			}
		}
	case *Return:
		if n.X != nil {
			Inspect(n.X, f)
		}
	default:
		panic("ir.Inspect: unexpected node type")
	}
}

// Procedure returns the parameters and body of an action or function.
func Procedure(d Decl) ([]*Param, *Block, bool) {
	switch d := d.(type) {
	case *Action:
		return d.Params, d.Body, true
	case *Function:
		return d.Params, d.Body, true
	}
	return nil, nil, false
}

// LocalVars returns the variables declared anywhere below n.
func LocalVars(n Node) []*VarDecl {
	var vars []*VarDecl
	Inspect(n, func(n Node) bool {
		if v, ok := n.(*VarDecl); ok {
			vars = append(vars, v)
		}
		return true
	})
	return vars
}

// Successors returns the states a parser state may transition to, in
// order of first appearance. A select without a default case may also
// reject.
func Successors(p *Parser, st *ParserState, info *Info) []*ParserState {
	var out []*ParserState
	seen := make(map[*ParserState]bool)
	add := func(s *ParserState) {
		if s != nil && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	target := func(e *PathExpr) *ParserState {
		s, _ := info.Declaration(e).(*ParserState)
		return s
	}
	switch next := st.Next.(type) {
	case nil:
		if st.Name != StateAccept && st.Name != StateReject {
			add(p.State(StateReject))
		}
	case *PathExpr:
		add(target(next))
	case *SelectExpr:
		hasDefault := false
		for _, c := range next.Cases {
			switch c.Keyset.(type) {
			case *DefaultExpr, *DontCare:
				hasDefault = true
			}
			add(target(c.State))
		}
		if !hasDefault {
			add(p.State(StateReject))
		}
	}
	return out
}
