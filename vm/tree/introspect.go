package tree

import "github.com/fuguevm/fuguevm/vm/types"

// PayloadKind tags the one characteristic value an operation exposes
// to external tools: an integer, a real, a boolean, an identifier, a
// pointer to another operation, a type id, or a parameter count.
type PayloadKind int

const (
	NoPayload PayloadKind = iota
	IntegerPayload
	RealPayload
	BooleanPayload
	IdentifierPayload
	OperationPayload
	TypeIDPayload
	ParamCountPayload
)

// Payload is the tagged introspection value; exactly one field beyond
// Kind is meaningful, selected by Kind.
type Payload struct {
	Kind  PayloadKind
	Int   int32
	Real  float32
	Bool  bool
	Ident string
	Op    Operation
	Type  types.TypeID
	Count int
}

func identPayload(s string) Payload         { return Payload{Kind: IdentifierPayload, Ident: s} }
func opPayload(op Operation) Payload        { return Payload{Kind: OperationPayload, Op: op} }
func typeIDPayload(id types.TypeID) Payload { return Payload{Kind: TypeIDPayload, Type: id} }
func countPayload(n int) Payload            { return Payload{Kind: ParamCountPayload, Count: n} }

func (o Operator) String() string {
	switch o {
	case Add:
		return "add"
	case Sub:
		return "subtract"
	case Mul:
		return "multiply"
	case Div:
		return "divide"
	case Mod:
		return "modulo"
	case Eq:
		return "equal"
	case Neq:
		return "not-equal"
	case Lt:
		return "less"
	case Le:
		return "less-equal"
	case Gt:
		return "greater"
	case Ge:
		return "greater-equal"
	case And:
		return "and"
	case Or:
		return "or"
	case BitAnd:
		return "bit-and"
	case BitOr:
		return "bit-or"
	case BitXor:
		return "bit-xor"
	case ShiftLeft:
		return "shift-left"
	case ShiftRight:
		return "shift-right"
	case Concat:
		return "concat"
	default:
		return "operator(?)"
	}
}

// Token/Payload pairs, one per operation type. Tokens are stable
// across program loads; a serializer keys its wire format on them.

func (n *Literal) Token() string { return "literal" }
func (n *Literal) Payload() Payload {
	switch n.Value.Kind() {
	case types.Integer, types.Integer16, types.TaskHandle:
		return Payload{Kind: IntegerPayload, Int: n.Value.Int()}
	case types.Real:
		return Payload{Kind: RealPayload, Real: n.Value.Real()}
	case types.Boolean:
		return Payload{Kind: BooleanPayload, Bool: n.Value.Bool()}
	case types.String:
		return Payload{Kind: IntegerPayload, Int: int32(n.Value.StringHandle())}
	default:
		return Payload{}
	}
}

func (n *ReadVariable) Token() string    { return "read-variable" }
func (n *ReadVariable) Payload() Payload { return identPayload(n.Name) }

func (n *WriteVariable) Token() string    { return "write-variable" }
func (n *WriteVariable) Payload() Payload { return identPayload(n.Name) }

func (n *BuildTuple) Token() string    { return "build-tuple" }
func (n *BuildTuple) Payload() Payload { return typeIDPayload(n.TypeID) }

func (n *BuildRecord) Token() string    { return "build-record" }
func (n *BuildRecord) Payload() Payload { return typeIDPayload(n.TypeID) }

func (n *MemberAccess) Token() string    { return "member-access" }
func (n *MemberAccess) Payload() Payload { return identPayload(n.Name) }

func (n *BuildArray) Token() string    { return "build-array" }
func (n *BuildArray) Payload() Payload { return countPayload(len(n.Elements)) }

func (n *ArrayIndex) Token() string    { return "array-index" }
func (n *ArrayIndex) Payload() Payload { return opPayload(n.Source) }

func (n *ArrayLength) Token() string    { return "array-length" }
func (n *ArrayLength) Payload() Payload { return opPayload(n.Source) }

func (n *StringLength) Token() string    { return "string-length" }
func (n *StringLength) Payload() Payload { return opPayload(n.Source) }

func (n *DebugWrite) Token() string    { return "debug-write" }
func (n *DebugWrite) Payload() Payload { return opPayload(n.Value) }

func (n *ReadLine) Token() string    { return "read-line" }
func (n *ReadLine) Payload() Payload { return Payload{} }

func (n *Compound) Token() string    { return "compound" }
func (n *Compound) Payload() Payload { return identPayload(n.Op.String()) }

func (n *Not) Token() string    { return "not" }
func (n *Not) Payload() Payload { return opPayload(n.Operand) }

func (n *BitNot) Token() string    { return "bit-not" }
func (n *BitNot) Payload() Payload { return opPayload(n.Operand) }

func (n *If) Token() string    { return "if" }
func (n *If) Payload() Payload { return opPayload(n.Cond) }

func (n *ElseIf) Token() string    { return "else-if" }
func (n *ElseIf) Payload() Payload { return opPayload(n.Cond) }

func (n *ElseIfWrapper) Token() string    { return "else-if-wrapper" }
func (n *ElseIfWrapper) Payload() Payload { return opPayload(n.Chain) }

func (ExitIfChain) Token() string    { return "exit-if-chain" }
func (ExitIfChain) Payload() Payload { return Payload{} }

func (n *WhileLoop) Token() string    { return "while" }
func (n *WhileLoop) Payload() Payload { return opPayload(n.Cond) }

func (n *WhileLoopConditional) Token() string    { return "while-conditional" }
func (n *WhileLoopConditional) Payload() Payload { return opPayload(n.CondExpr) }

func (n *DoWhileLoop) Token() string    { return "do-while" }
func (n *DoWhileLoop) Payload() Payload { return opPayload(n.Cond) }

func (BreakOp) Token() string    { return "break" }
func (BreakOp) Payload() Payload { return Payload{} }

func (n *ReturnOp) Token() string    { return "return" }
func (n *ReturnOp) Payload() Payload { return countPayload(len(n.Values)) }

func (e *ExecuteBlock) Token() string    { return "execute-block" }
func (e *ExecuteBlock) Payload() Payload { return countPayload(len(e.Body.Ops)) }

func (n *Invoke) Token() string    { return "invoke" }
func (n *Invoke) Payload() Payload { return identPayload(n.FuncName) }

func (n *InvokeIndirect) Token() string    { return "invoke-indirect" }
func (n *InvokeIndirect) Payload() Payload { return opPayload(n.Target) }

func (n *MapArray) Token() string    { return "map" }
func (n *MapArray) Payload() Payload { return opPayload(n.Source) }

func (n *ReduceArray) Token() string    { return "reduce" }
func (n *ReduceArray) Payload() Payload { return opPayload(n.Source) }

func (n *PushOperand) Token() string    { return "push" }
func (n *PushOperand) Payload() Payload { return opPayload(n.Source) }
