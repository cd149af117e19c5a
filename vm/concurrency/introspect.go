package concurrency

import "github.com/fuguevm/fuguevm/vm/tree"

// Token/Payload implementations for the concurrency operations,
// completing the introspection surface external tools read without
// re-implementing dispatch; the tree-level operations'
// counterparts live in tree/introspect.go.

func (GetTaskCallerOp) Token() string         { return "get-task-caller" }
func (GetTaskCallerOp) Payload() tree.Payload { return tree.Payload{} }

func (GetMessageSenderOp) Token() string         { return "get-message-sender" }
func (GetMessageSenderOp) Payload() tree.Payload { return tree.Payload{} }

func (n *SpawnTaskOp) Token() string { return "fork-task" }
func (n *SpawnTaskOp) Payload() tree.Payload {
	return tree.Payload{Kind: tree.IdentifierPayload, Ident: n.TaskName}
}

func (n *SpawnPoolWorkOp) Token() string { return "fork-thread" }
func (n *SpawnPoolWorkOp) Payload() tree.Payload {
	return tree.Payload{Kind: tree.IdentifierPayload, Ident: n.PoolName}
}

func (n *SpawnFutureOp) Token() string { return "fork-future" }
func (n *SpawnFutureOp) Payload() tree.Payload {
	return tree.Payload{Kind: tree.IdentifierPayload, Ident: n.VarName}
}

func (n *AcceptMessageOp) Token() string { return "accept-message-from-response-map" }
func (n *AcceptMessageOp) Payload() tree.Payload {
	return tree.Payload{Kind: tree.IdentifierPayload, Ident: n.ResponseMapName}
}

func (n *AcceptSingleOp) Token() string { return "accept-message" }
func (n *AcceptSingleOp) Payload() tree.Payload {
	return tree.Payload{Kind: tree.IdentifierPayload, Ident: n.Entry.MessageName}
}

func (n *SendMessageOp) Token() string { return "send-task-message" }
func (n *SendMessageOp) Payload() tree.Payload {
	return tree.Payload{Kind: tree.IdentifierPayload, Ident: n.Name}
}

func (n *ParallelForOp) Token() string { return "parallel-for" }
func (n *ParallelForOp) Payload() tree.Payload {
	return tree.Payload{Kind: tree.ParamCountPayload, Count: n.NumChunks}
}

// Children implementations so tree.TraverseOperation descends into the
// concurrency operations' nested blocks and operand expressions.

func (n *SpawnTaskOp) Children() []tree.Operation { return n.Body.Ops }

func (n *SpawnPoolWorkOp) Children() []tree.Operation { return n.Body.Ops }

func (n *SpawnFutureOp) Children() []tree.Operation { return []tree.Operation{n.Body} }

func (n *SendMessageOp) Children() []tree.Operation {
	return append([]tree.Operation{n.Target}, n.PayloadOps...)
}

func (n *ParallelForOp) Children() []tree.Operation {
	return append([]tree.Operation{n.Lower, n.Upper}, n.Body.Ops...)
}
