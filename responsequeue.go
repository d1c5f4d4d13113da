package netmock

import (
	"time"

	rb "github.com/glycerine/rbtree"
)

// NetworkResponse is a pending delivery: which operation it answers,
// the virtual time it should fire at, and the response value (§3).
type NetworkResponse struct {
	seq      int64
	noi      NetworkOperationIterator
	when     time.Time
	response RemoteCommandResponse
}

// ResponseQueue is the time-ordered queue of pending responses (§2).
// Backed by an rb.Tree ordered by (when, insertion sequence) for the
// same pointer-stability reason the OperationRegistry uses one (DESIGN
// NOTES §9); ties are broken by insertion order per §5's ordering
// guarantee.
type ResponseQueue struct {
	tree    *rb.Tree
	nextSeq int64
}

func newResponseQueue() *ResponseQueue {
	q := &ResponseQueue{}
	q.tree = rb.NewTree(func(a, b rb.Item) int {
		av := a.(*NetworkResponse)
		bv := b.(*NetworkResponse)
		if av == bv {
			return 0
		}
		if av.when.Before(bv.when) {
			return -1
		}
		if av.when.After(bv.when) {
			return 1
		}
		if av.seq < bv.seq {
			return -1
		}
		if av.seq > bv.seq {
			return 1
		}
		return 0
	})
	return q
}

func (q *ResponseQueue) Len() int { return q.tree.Len() }

// push inserts a response, ordered ascending by when, ties preserving
// insertion order (§4.4).
func (q *ResponseQueue) push(noi NetworkOperationIterator, when time.Time, response RemoteCommandResponse) {
	r := &NetworkResponse{
		seq:      q.nextSeq,
		noi:      noi,
		when:     when,
		response: response,
	}
	q.nextSeq++
	added := q.tree.Insert(r)
	assertf(added, "duplicate NetworkResponse insert (seq=%d)", r.seq)
}

// front peeks the earliest-due response without removing it. Returns
// nil if the queue is empty.
func (q *ResponseQueue) front() *NetworkResponse {
	it := q.tree.Min()
	if it.Limit() {
		return nil
	}
	return it.Item().(*NetworkResponse)
}

// popFront removes and returns the earliest-due response.
func (q *ResponseQueue) popFront() *NetworkResponse {
	it := q.tree.Min()
	assertf(!it.Limit(), "popFront on empty ResponseQueue")
	r := it.Item().(*NetworkResponse)
	q.tree.DeleteWithIterator(it)
	return r
}

// removeForOperation drops any response already queued for op, if one
// exists, so a replacement (e.g. a newly scheduled response, or
// shutdown's synthetic reply, superseding a not-yet-delivered one) can
// be inserted without duplicating a
// pending delivery (§3 invariant: at most one outstanding response per
// operation).
func (q *ResponseQueue) removeForOperation(op *NetworkOperation) (removed bool) {
	for it := q.tree.Min(); !it.Limit(); it = it.Next() {
		r := it.Item().(*NetworkResponse)
		if r.noi.op == op {
			q.tree.DeleteWithIterator(it)
			return true
		}
	}
	return false
}

// hasResponseFor reports whether op has an outstanding queued response.
func (q *ResponseQueue) hasResponseFor(op *NetworkOperation) bool {
	for it := q.tree.Min(); !it.Limit(); it = it.Next() {
		if it.Item().(*NetworkResponse).noi.op == op {
			return true
		}
	}
	return false
}
