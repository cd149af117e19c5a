package concurrency

import (
	"sync"
	"time"

	"golang.org/x/exp/rand"

	"github.com/fuguevm/fuguevm/vm/scope"
	"github.com/fuguevm/fuguevm/vm/tree"
	"github.com/fuguevm/fuguevm/vm/types"
)

// ParallelForOp partitions [Lower,Upper) into NumChunks contiguous
// chunks and runs Body once per index within each chunk, the chunks
// themselves running concurrently on PoolName's thread pool. A Return
// inside Body ends only the chunk that executed it; every other chunk
// keeps iterating to completion.
type ParallelForOp struct {
	Lower, Upper Operation
	NumChunks    int
	IndexParam   string
	FnScope      *scope.ScopeDescription
	Body         *tree.Block
	LeadIn       int // body instructions reserved for counter binding, skipped on every iteration
	Rt           *Runtime
	PoolName     string
}

// Operation is a local alias so this file reads naturally without a
// second import of package tree's identifier under a different name;
// ParallelForOp itself satisfies tree.Operation.
type Operation = tree.Operation

func (n *ParallelForOp) ReturnKind() types.Kind { return types.Null }
func (n *ParallelForOp) StackParams() int       { return 0 }

func (n *ParallelForOp) ExecuteFast(ec *scope.ExecutionContext) {
	lower := n.Lower.ExecuteAndStore(ec).Int()
	upper := n.Upper.ExecuteAndStore(ec).Int()
	total := int(upper - lower)
	if total <= 0 {
		return
	}
	chunks := n.NumChunks
	if chunks < 1 {
		chunks = 1
	}
	if chunks > total {
		chunks = total
	}
	chunkSize := (total + chunks - 1) / chunks

	pool := n.Rt.pools.GetOrCreate(n.PoolName, chunks)
	pools := scope.Pools{Strings: ec.Prog.Strings(), Buffers: ec.Prog.Buffers(), Arrays: ec.Prog.Arrays()}
	tuples, records := ec.Prog.Tuples(), ec.Prog.Records()

	// Chunk boundaries are fixed by the partition above; only the
	// order in which chunks are handed to the pool is randomized, so
	// full non-duplicated [L,U) coverage holds regardless of
	// submission order.
	order := make([]int, chunks)
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	var wg sync.WaitGroup
	for _, c := range order {
		start := lower + int32(c*chunkSize)
		end := start + int32(chunkSize)
		if end > upper {
			end = upper
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		runChunk := func(start, end int32) {
			defer wg.Done()
			chunkStack := scope.NewValueStack()
			activated := scope.EnterOnStack(n.FnScope, ec.Scope, chunkStack, tuples, records, pools)
			chunkCtx := &scope.ExecutionContext{Prog: ec.Prog, Scope: activated, Stack: chunkStack, Flow: scope.Normal, TaskID: ec.TaskID}
			for i := start; i < end; i++ {
				if err := activated.Write(n.IndexParam, types.NewInteger(i), tuples, records); err != nil {
					panic(err)
				}
				chunkCtx.Flow = scope.Normal
				n.Body.RunBlockFrom(chunkCtx, n.LeadIn)
				// Break stops this chunk's remaining iterations; Return
				// likewise ends only the emitting chunk. Peer chunks
				// keep running either way.
				if chunkCtx.Flow == scope.Break || chunkCtx.Flow == scope.Return {
					break
				}
			}
			activated.Exit()
		}
		pool.Submit(func() { runChunk(start, end) })
	}
	wg.Wait()
}

func (n *ParallelForOp) ExecuteAndStore(ec *scope.ExecutionContext) types.RValue {
	n.ExecuteFast(ec)
	return types.NullValue
}
