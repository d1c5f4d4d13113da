package netmock

import (
	"cmp"
	"time"

	"github.com/eapache/queue"
	rb "github.com/glycerine/rbtree"
)

// opState is the explicit tagged-variant state machine DESIGN NOTES §9
// asks for, in place of an implicit coroutine/future representation.
type opState int

const (
	opUnscheduled opState = iota
	opProcessing
	opBlackholed
	opFinished
)

func (s opState) String() string {
	switch s {
	case opUnscheduled:
		return "Unscheduled"
	case opProcessing:
		return "Processing"
	case opBlackholed:
		return "Blackholed"
	case opFinished:
		return "Finished"
	default:
		return "opState(?)"
	}
}

// NetworkOperation represents one in-flight remote command (§3). Once
// created it is owned exclusively by the OperationRegistry; every other
// reference to it is a non-owning NetworkOperationIterator.
type NetworkOperation struct {
	seq         int64
	handle      CallbackHandle
	request     RemoteCommandRequest
	requestDate time.Time

	state     opState
	isExhaust bool

	onResponse ResponseFn

	// hasPendingResponse is true while exactly one NetworkResponse for
	// this operation sits in the ResponseQueue (§3 invariant).
	hasPendingResponse bool
}

func (op *NetworkOperation) Handle() CallbackHandle             { return op.handle }
func (op *NetworkOperation) Request() RemoteCommandRequest      { return op.request }
func (op *NetworkOperation) RequestDate() time.Time             { return op.requestDate }
func (op *NetworkOperation) IsProcessing() bool                 { return op.state == opProcessing || op.state == opBlackholed }
func (op *NetworkOperation) IsBlackholed() bool                 { return op.state == opBlackholed }
func (op *NetworkOperation) IsFinished() bool                   { return op.state == opFinished }

// hasReadyRequest reports whether this operation has not yet been
// observed via getNextReadyRequest, canceled, or timed out (§4.6).
func (op *NetworkOperation) hasReadyRequest() bool {
	return op.state == opUnscheduled
}

func (op *NetworkOperation) markAsProcessing() {
	assertf(op.state == opUnscheduled, "markAsProcessing: operation %v not Unscheduled (got %v)", op.handle, op.state)
	op.state = opProcessing
}

func (op *NetworkOperation) markAsBlackholed() {
	assertf(op.state == opProcessing, "markAsBlackholed: operation %v not Processing (got %v)", op.handle, op.state)
	op.state = opBlackholed
}

// assertNotBlackholed enforces the §4.4 precondition that a response
// may never be scheduled for a blackholed operation.
func (op *NetworkOperation) assertNotBlackholed() {
	assertf(op.state != opBlackholed, "response scheduled for a blackholed operation %v", op.handle)
}

func (op *NetworkOperation) markFinished() {
	op.state = opFinished
}

// NetworkOperationIterator is a long-lived, non-owning reference into
// the OperationRegistry's append-only log. Per DESIGN NOTES §9 it must
// stay valid across concurrent appends; it holds a pointer to the
// heap-allocated *NetworkOperation itself, which the registry never
// moves or frees, so appends cannot invalidate it (unlike an index into
// a slice, which may relocate on growth).
type NetworkOperationIterator struct {
	op *NetworkOperation
}

// Valid reports whether the iterator refers to a real operation.
func (it NetworkOperationIterator) Valid() bool { return it.op != nil }

// Op dereferences the iterator. Panics (an assertion, per §7) if Valid
// is false, mirroring dereferencing NetworkOperationList::end().
func (it NetworkOperationIterator) Op() *NetworkOperation {
	assertf(it.op != nil, "dereferenced an invalid NetworkOperationIterator")
	return it.op
}

// OperationRegistry is the append-only log of every command ever
// submitted (§3). It is backed by an rb.Tree keyed on insertion
// sequence number purely so that iteration is available in submission
// order; lookup by handle goes through the map.
type OperationRegistry struct {
	tree    *rb.Tree
	byHandle map[CallbackHandle]*NetworkOperation
	nextSeq int64

	// unscheduled holds, in FIFO order, the operations currently in
	// state opUnscheduled, for O(1) hasReadyRequests/getNextReadyRequest
	// and O(1) positional getNthUnscheduledRequest. Grounded on
	// github.com/eapache/queue, the ring-buffer FIFO
	// momentics-hioload-ws uses for its write queue.
	unscheduled *queue.Queue
}

func newOperationRegistry() *OperationRegistry {
	r := &OperationRegistry{
		byHandle:    make(map[CallbackHandle]*NetworkOperation),
		unscheduled: queue.New(),
	}
	r.tree = rb.NewTree(func(a, b rb.Item) int {
		return cmp.Compare(a.(*NetworkOperation).seq, b.(*NetworkOperation).seq)
	})
	return r
}

// append registers a brand-new operation in state Unscheduled and
// returns a stable iterator to it.
func (r *OperationRegistry) append(handle CallbackHandle, req RemoteCommandRequest, requestDate time.Time, onResponse ResponseFn, isExhaust bool) NetworkOperationIterator {
	op := &NetworkOperation{
		seq:         r.nextSeq,
		handle:      handle,
		request:     req,
		requestDate: requestDate,
		state:       opUnscheduled,
		isExhaust:   isExhaust,
		onResponse:  onResponse,
	}
	r.nextSeq++
	r.tree.Insert(op)
	r.byHandle[handle] = op
	r.unscheduled.Add(op)
	return NetworkOperationIterator{op: op}
}

// find looks an operation up by its handle. The zero iterator (Valid()
// == false) is returned for an unknown handle.
func (r *OperationRegistry) find(handle CallbackHandle) NetworkOperationIterator {
	op, ok := r.byHandle[handle]
	if !ok {
		return NetworkOperationIterator{}
	}
	return NetworkOperationIterator{op: op}
}

// hasReadyRequests reports whether any operation is still Unscheduled
// (§4.6). Exhaust operations waiting on further replies are Processing,
// not Unscheduled, so they never count here.
func (r *OperationRegistry) hasReadyRequests() bool {
	return r.unscheduled.Length() > 0
}

// frontUnscheduled peeks the oldest unscheduled operation without
// removing it.
func (r *OperationRegistry) frontUnscheduled() NetworkOperationIterator {
	assertf(r.unscheduled.Length() > 0, "frontUnscheduled: no unscheduled requests")
	return NetworkOperationIterator{op: r.unscheduled.Peek().(*NetworkOperation)}
}

// nthUnscheduled peeks the n-th (0-indexed) unscheduled operation.
func (r *OperationRegistry) nthUnscheduled(n int) NetworkOperationIterator {
	assertf(r.unscheduled.Length() > n, "nthUnscheduled(%d): only %d unscheduled requests present", n, r.unscheduled.Length())
	return NetworkOperationIterator{op: r.unscheduled.Get(n).(*NetworkOperation)}
}

// popNextReadyRequest removes and returns the oldest unscheduled
// operation, transitioning it to Processing.
func (r *OperationRegistry) popNextReadyRequest() NetworkOperationIterator {
	op := r.unscheduled.Remove().(*NetworkOperation)
	op.markAsProcessing()
	return NetworkOperationIterator{op: op}
}

// removeFromUnscheduled drops op out of the unscheduled FIFO ahead of a
// cancellation that reaches it before the network thread ever observed
// it. The FIFO has no O(1) random-delete, so this rebuilds it; that is
// acceptable because cancellation races are rare relative to normal
// delivery and registries in tests are small.
func (r *OperationRegistry) removeFromUnscheduled(target *NetworkOperation) {
	n := r.unscheduled.Length()
	rebuilt := queue.New()
	for i := 0; i < n; i++ {
		op := r.unscheduled.Remove().(*NetworkOperation)
		if op != target {
			rebuilt.Add(op)
		}
	}
	r.unscheduled = rebuilt
}

// forEach iterates every operation ever submitted, in submission order.
func (r *OperationRegistry) forEach(fn func(*NetworkOperation)) {
	for it := r.tree.Min(); !it.Limit(); it = it.Next() {
		fn(it.Item().(*NetworkOperation))
	}
}

// countByState is a diagnostics helper (§6).
func (r *OperationRegistry) countByState() map[opState]int {
	counts := make(map[opState]int, 4)
	r.forEach(func(op *NetworkOperation) {
		counts[op.state]++
	})
	return counts
}
