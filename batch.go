package netmock

import "time"

// ResponseBatch collects several test-driver mutations — scheduled
// responses, blackholes — and applies them in one critical section via
// Submit, rather than one lock acquisition per call. Grounded on the
// teacher's SimnetBatch/SubmitBatch (simnet_api.go): build with add,
// apply once (§4.9 supplemental batching).
type ResponseBatch struct {
	mock *NetworkInterfaceMock
	ops  []func()
}

// NewResponseBatch starts an empty batch bound to n.
func (n *NetworkInterfaceMock) NewResponseBatch() *ResponseBatch {
	return &ResponseBatch{mock: n}
}

func (b *ResponseBatch) add(op func()) *ResponseBatch {
	b.ops = append(b.ops, op)
	return b
}

// ScheduleSuccessfulResponse queues a success response for noi at when.
func (b *ResponseBatch) ScheduleSuccessfulResponse(noi NetworkOperationIterator, when time.Time, body any) *ResponseBatch {
	return b.add(func() {
		b.mock.scheduleResponseInlock(noi, when, RemoteCommandResponse{Status: StatusOK, Body: body})
	})
}

// ScheduleErrorResponse queues an error response for noi at when.
func (b *ResponseBatch) ScheduleErrorResponse(noi NetworkOperationIterator, when time.Time, status Status) *ResponseBatch {
	return b.add(func() {
		b.mock.scheduleResponseInlock(noi, when, RemoteCommandResponse{Status: status})
	})
}

// BlackHole queues a blackhole for noi.
func (b *ResponseBatch) BlackHole(noi NetworkOperationIterator) *ResponseBatch {
	return b.add(func() {
		noi.Op().markAsBlackholed()
	})
}

// CancelAlarm queues an alarm cancellation.
func (b *ResponseBatch) CancelAlarm(handle CallbackHandle) *ResponseBatch {
	return b.add(func() {
		b.mock.alarms.cancel(handle)
	})
}

// Submit applies every queued mutation under a single lock acquisition
// and wakes the executor once, after all of them are visible, instead
// of once per mutation.
func (b *ResponseBatch) Submit() {
	b.mock.mu.Lock()
	defer b.mock.mu.Unlock()
	b.mock.assertNetworkRoleInlock()
	for _, op := range b.ops {
		op()
	}
	b.mock.coord.signalExecutorRunnableInlock()
}
