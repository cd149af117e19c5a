package tree

// Traversable is implemented by any Operation that owns child
// operations or blocks, exposing them to external tools (a validator,
// a serializer) that walk the tree without re-implementing dispatch.
// Operations with no children (Literal, ReadVariable, BreakOp,
// ExitIfChain, GetTaskCallerOp,...) simply do not implement it;
// TraverseOperation treats them as leaves.
type Traversable interface {
	Children() []Operation
}

// TraverseOperation visits op, then recurses depth-first into every
// child op exposes via Traversable (if any).
func TraverseOperation(op Operation, visit func(Operation)) {
	if op == nil {
		return
	}
	visit(op)
	if t, ok := op.(Traversable); ok {
		for _, c := range t.Children() {
			TraverseOperation(c, visit)
		}
	}
}

// Traverse visits every operation in b, depth-first, including the
// operations owned by any nested block a composite operation exposes
// through Traversable.
func (b *Block) Traverse(visit func(Operation)) {
	for _, op := range b.Ops {
		TraverseOperation(op, visit)
	}
}

func (n *If) Children() []Operation {
	children := append([]Operation{n.Cond}, n.Then.Ops...)
	if n.Else != nil {
		children = append(children, n.Else)
	}
	return children
}

func (n *ElseIf) Children() []Operation {
	var children []Operation
	if n.Cond != nil {
		children = append(children, n.Cond)
	}
	children = append(children, n.Body.Ops...)
	if n.Next != nil {
		children = append(children, n.Next)
	}
	return children
}

func (n *ElseIfWrapper) Children() []Operation { return []Operation{n.Chain} }

func (n *WhileLoop) Children() []Operation {
	return append([]Operation{n.Cond}, n.Body.Ops...)
}

func (n *WhileLoopConditional) Children() []Operation {
	children := append([]Operation{}, n.CondBlock.Ops...)
	children = append(children, n.CondExpr)
	return append(children, n.Body.Ops...)
}

func (n *DoWhileLoop) Children() []Operation {
	children := append([]Operation{}, n.Body.Ops...)
	return append(children, n.Cond)
}

func (e *ExecuteBlock) Children() []Operation { return e.Body.Ops }

func (n *Invoke) Children() []Operation { return n.Args }

func (n *InvokeIndirect) Children() []Operation {
	return append([]Operation{n.Target}, n.Args...)
}

func (n *ReturnOp) Children() []Operation { return n.Values }

func (n *Compound) Children() []Operation { return n.Operands }

func (n *Not) Children() []Operation { return []Operation{n.Operand} }

func (n *BitNot) Children() []Operation { return []Operation{n.Operand} }

func (n *WriteVariable) Children() []Operation { return []Operation{n.Value} }

func (n *BuildTuple) Children() []Operation { return n.FieldValues }

func (n *BuildRecord) Children() []Operation { return n.FieldValues }

func (n *MemberAccess) Children() []Operation { return []Operation{n.Source} }

func (n *BuildArray) Children() []Operation { return n.Elements }

func (n *ArrayIndex) Children() []Operation { return []Operation{n.Source, n.Index} }

func (n *ArrayLength) Children() []Operation { return []Operation{n.Source} }

func (n *StringLength) Children() []Operation { return []Operation{n.Source} }

func (n *DebugWrite) Children() []Operation { return []Operation{n.Value} }

func (n *PushOperand) Children() []Operation { return []Operation{n.Source} }

func (n *MapArray) Children() []Operation { return append([]Operation{n.Source}, n.Body.Ops...) }

func (n *ReduceArray) Children() []Operation {
	return append([]Operation{n.Source, n.Initial}, n.Body.Ops...)
}
