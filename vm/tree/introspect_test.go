package tree_test

import (
	"testing"

	"github.com/fuguevm/fuguevm/vm/scope"
	"github.com/fuguevm/fuguevm/vm/tree"
	"github.com/fuguevm/fuguevm/vm/types"
)

// TestTokensAndPayloads covers the introspection surface external
// tools depend on: every node of a representative tree
// reports a stable, non-empty token, and payloads carry the node's
// characteristic value without the caller dispatching on concrete
// types.
func TestTokensAndPayloads(t *testing.T) {
	body := &tree.Block{Ops: []tree.Operation{
		&tree.WriteVariable{Name: "x", Value: &tree.Literal{Value: types.NewInteger(3)}},
		&tree.If{
			Cond: &tree.Compound{Op: tree.Lt, Operands: []tree.Operation{
				&tree.ReadVariable{Name: "x", Kind: types.Integer},
				&tree.Literal{Value: types.NewInteger(10)},
			}},
			Then: &tree.Block{Ops: []tree.Operation{
				&tree.ReturnOp{Values: []tree.Operation{&tree.ReadVariable{Name: "x", Kind: types.Integer}}},
			}},
		},
	}}

	tokens := make(map[string]int)
	body.Traverse(func(op tree.Operation) {
		tok := op.Token()
		if tok == "" {
			t.Fatalf("operation %T reports an empty token", op)
		}
		tokens[tok]++
	})

	for _, want := range []string{"write-variable", "literal", "if", "compound", "read-variable", "return"} {
		if tokens[want] == 0 {
			t.Errorf("expected traversal to surface token %q, saw %v", want, tokens)
		}
	}

	write := body.Ops[0].(*tree.WriteVariable)
	if p := write.Payload(); p.Kind != tree.IdentifierPayload || p.Ident != "x" {
		t.Errorf("write-variable payload = %+v, want identifier \"x\"", p)
	}
	cond := body.Ops[1].(*tree.If).Cond.(*tree.Compound)
	if p := cond.Payload(); p.Kind != tree.IdentifierPayload || p.Ident != "less" {
		t.Errorf("compound payload = %+v, want identifier \"less\"", p)
	}
	lit := write.Value.(*tree.Literal)
	if p := lit.Payload(); p.Kind != tree.IntegerPayload || p.Int != 3 {
		t.Errorf("literal payload = %+v, want integer 3", p)
	}
	ret := body.Ops[1].(*tree.If).Then.Ops[0].(*tree.ReturnOp)
	if p := ret.Payload(); p.Kind != tree.ParamCountPayload || p.Count != 1 {
		t.Errorf("return payload = %+v, want parameter count 1", p)
	}
}

// TestPushOperand covers the explicit stack materialization path:
// pushing a primitive reserves exactly
// its storage size, the pushed bytes decode back to the value, and a
// matching pop restores stack balance.
func TestPushOperand(t *testing.T) {
	ec, _ := newTestContext()
	before := ec.Stack.CurrentTop()

	push := &tree.PushOperand{Source: &tree.Literal{Value: types.NewInteger(1234)}}
	v := push.ExecuteAndStore(ec)
	if v.Int() != 1234 {
		t.Fatalf("push hands back its operand value, got %v", v)
	}
	if push.Pushed() != 4 {
		t.Fatalf("expected 4 bytes pushed for an Integer, got %d", push.Pushed())
	}
	if ec.Stack.CurrentTop() != before+4 {
		t.Fatalf("stack top moved by %d, want 4", ec.Stack.CurrentTop()-before)
	}
	ec.Stack.Pop(push.Pushed())
	if ec.Stack.CurrentTop() != before {
		t.Fatalf("stack not balanced after pop")
	}
}

// TestPushOperand_Composite checks the composite encoding: members in
// reverse declared order followed by the word-sized type-ID header.
func TestPushOperand_Composite(t *testing.T) {
	ec, prog := newTestProgramWithTuple()
	before := ec.Stack.CurrentTop()

	pair := types.NewTuple(prog.pairID, []types.Member{
		{Name: "a", Value: types.NewInteger(3)},
		{Name: "b", Value: types.NewInteger(4)},
	})
	push := &tree.PushOperand{Source: &tree.Literal{Value: pair}}
	push.ExecuteFast(ec)

	// Two 4-byte Integers plus the 8-byte type-ID header.
	if push.Pushed() != 16 {
		t.Fatalf("expected 16 bytes pushed for (Integer, Integer) tuple, got %d", push.Pushed())
	}
	ec.Stack.Pop(push.Pushed())
	if ec.Stack.CurrentTop() != before {
		t.Fatalf("stack not balanced after composite pop")
	}
}

type tupleTestProgram struct {
	*testProgram
	pairID types.TypeID
}

func newTestProgramWithTuple() (*scope.ExecutionContext, *tupleTestProgram) {
	ec, prog := newTestContext()
	id := prog.tuples.Register([]types.MemberSpec{
		{Name: "a", Kind: types.Integer},
		{Name: "b", Kind: types.Integer},
	})
	return ec, &tupleTestProgram{testProgram: prog, pairID: id}
}
