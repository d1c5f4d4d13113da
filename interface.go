package netmock

import (
	"sync"
	"time"
)

// hostName is the constant value GetHostName returns (§6); the mock
// never resolves a real hostname.
const hostName = "netmock.invalid"

// NetworkInterfaceMock is the facade described in §2: it exposes the
// executor-facing API (startCommand, cancelCommand, setAlarm, ...) and
// the network-facing test-driver API (enterNetwork, scheduleResponse,
// runUntil, ...). Construct with NewNetworkInterfaceMock, call Startup
// once, and Shutdown when done.
type NetworkInterfaceMock struct {
	mu    sync.Mutex
	coord *ThreadCoordinator
	clock *virtualClock

	registry  *OperationRegistry
	responses *ResponseQueue
	alarms    *AlarmHeap
	conns     *connectionTable

	hook         ConnectionHook
	metadataHook MetadataHook

	scenario *Scenario
	trace    *executionTrace

	started bool
}

// NewNetworkInterfaceMock constructs a mock with a fresh virtual clock
// starting at the Unix epoch and default (no-op) hooks.
func NewNetworkInterfaceMock() *NetworkInterfaceMock {
	n := &NetworkInterfaceMock{
		clock:        newVirtualClock(time.Time{}),
		registry:     newOperationRegistry(),
		responses:    newResponseQueue(),
		alarms:       newAlarmHeap(),
		conns:        newConnectionTable(),
		hook:         NoopConnectionHook{},
		metadataHook: NoopMetadataHook{},
		trace:        newExecutionTrace(),
	}
	n.coord = newThreadCoordinator(&n.mu)
	return n
}

// SetConnectionHook installs hook. Must be called before Startup; the
// hook is read-only thereafter and invoked with the lock released (§5).
func (n *NetworkInterfaceMock) SetConnectionHook(hook ConnectionHook) {
	n.mu.Lock()
	defer n.mu.Unlock()
	assertf(!n.started, "SetConnectionHook must be called before Startup")
	n.hook = hook
}

// SetEgressMetadataHook installs hook. Must be called before Startup.
func (n *NetworkInterfaceMock) SetEgressMetadataHook(hook MetadataHook) {
	n.mu.Lock()
	defer n.mu.Unlock()
	assertf(!n.started, "SetEgressMetadataHook must be called before Startup")
	n.metadataHook = hook
}

// SetScenario attaches optional seeded jitter (§4.10). Must be called
// before Startup.
func (n *NetworkInterfaceMock) SetScenario(s *Scenario) {
	n.mu.Lock()
	defer n.mu.Unlock()
	assertf(!n.started, "SetScenario must be called before Startup")
	n.scenario = s
}

////////////////////////////////////////////////////////////////////////////
// Executor-facing API (§6)
////////////////////////////////////////////////////////////////////////////

// Startup is idempotent: the first call marks the mock running. Neither
// thread holds the running role yet; EnterNetwork may be called
// immediately, and an executor goroutine may call StartCommand or park
// in WaitForWork at its own pace. Subsequent calls are no-ops.
func (n *NetworkInterfaceMock) Startup() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return
	}
	n.started = true
	n.coord.currentlyRunning = roleNone
}

// Shutdown is idempotent (§8). Per §4.1: flips inShutdown, schedules a
// ShutdownInProgress response for every non-Finished operation, fires
// every pending alarm with CallbackCanceled, drains the ResponseQueue
// on this thread, and wakes both condition variables.
func (n *NetworkInterfaceMock) Shutdown() {
	n.mu.Lock()
	if n.coord.halt.ReqStop.IsClosed() {
		n.mu.Unlock()
		return
	}
	n.coord.halt.ReqStop.Close()
	now := n.clock.Now()

	n.registry.forEach(func(op *NetworkOperation) {
		if op.IsFinished() {
			return
		}
		if op.state == opUnscheduled {
			n.registry.removeFromUnscheduled(op)
			op.markAsProcessing()
		}
		// Bypasses assertNotBlackholed: shutdown is the one path that
		// is allowed to unstick a blackholed operation (§4.1).
		n.responses.removeForOperation(op)
		op.hasPendingResponse = true
		n.responses.push(NetworkOperationIterator{op: op}, now, RemoteCommandResponse{Status: statusShutdownInProgress()})
	})

	liveAlarms := n.alarms.drainAll()
	n.drainAllResponsesLocked()
	n.coord.wakeBothForShutdownInlock()
	n.mu.Unlock()

	for _, info := range liveAlarms {
		invokeAlarmAction(info.action, statusCallbackCanceled())
	}
}

// InShutdown reports whether Shutdown has begun.
func (n *NetworkInterfaceMock) InShutdown() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.coord.inShutdownInlock()
}

// Now returns the current virtual time.
func (n *NetworkInterfaceMock) Now() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.clock.Now()
}

// GetHostName returns the mock's constant host name.
func (n *NetworkInterfaceMock) GetHostName() string { return hostName }

// SignalWorkAvailable sets the executor's runnable bit (§4.2, §6).
func (n *NetworkInterfaceMock) SignalWorkAvailable() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.coord.signalExecutorRunnableInlock()
}

// WaitForWork blocks the calling (executor) goroutine until it is
// signaled runnable, with no virtual deadline.
func (n *NetworkInterfaceMock) WaitForWork() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.coord.waitForWorkUntilInlock(n.clock, false, time.Time{}, n.registry.hasReadyRequests())
}

// WaitForWorkUntil blocks the calling (executor) goroutine until it is
// signaled runnable or the virtual clock reaches deadline (§4.2).
func (n *NetworkInterfaceMock) WaitForWorkUntil(deadline time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.coord.waitForWorkUntilInlock(n.clock, true, deadline, n.registry.hasReadyRequests())
}

// StartCommand registers a remote command request (§4.1). onFinish
// fires exactly once, later, on the network thread.
func (n *NetworkInterfaceMock) StartCommand(handle CallbackHandle, req RemoteCommandRequest, onFinish ResponseFn) Status {
	return n.startCommand(handle, req, onFinish, false)
}

// StartExhaustCommand is like StartCommand, except onReply may be
// invoked more than once; see RemoteCommandResponse.ExhaustMore (§4.1).
func (n *NetworkInterfaceMock) StartExhaustCommand(handle CallbackHandle, req RemoteCommandRequest, onReply ResponseFn) Status {
	return n.startCommand(handle, req, onReply, true)
}

func (n *NetworkInterfaceMock) startCommand(handle CallbackHandle, req RemoteCommandRequest, onFinish ResponseFn, isExhaust bool) Status {
	n.mu.Lock()
	if n.coord.inShutdownInlock() {
		n.mu.Unlock()
		return statusShutdownInProgress()
	}
	hook, metaHook := n.hook, n.metadataHook
	n.mu.Unlock()

	metaHook.WriteRequestMetadata(&req)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.coord.inShutdownInlock() {
		return statusShutdownInProgress()
	}

	host := req.primaryHost()
	if host != "" && !n.conns.isConnected(host) {
		n.handshakeThenEnqueueInlock(host, handle, req, onFinish, isExhaust, hook)
		return StatusOK
	}

	n.registry.append(handle, req, n.clock.Now(), onFinish, isExhaust)
	n.coord.signalNetworkRunnableInlock()
	return StatusOK
}

// handshakeThenEnqueueInlock implements §4.7: before a host's first
// real request is enqueued, the connection hook validates a canned
// handshake reply. On success the host is marked connected; on failure
// the user's onFinish runs immediately with the validator's error. A
// successful validation may also return a follow-up request from
// RequestOnHandshakeComplete, which is enqueued ahead of the user's and
// must itself complete successfully (observed and answered through the
// ordinary GetNextReadyRequest/ScheduleResponse path, like any other
// operation) before the user's request is appended; a failed follow-up
// fails the user's command with the follow-up's status instead. If a
// Scenario is attached, the validation (and everything downstream of
// it) is deferred behind a synthetic jittered delay rather than
// happening at the current instant, so two hosts handshaking at once
// don't necessarily both become ready on the same tick (§4.10).
func (n *NetworkInterfaceMock) handshakeThenEnqueueInlock(host string, handle CallbackHandle, req RemoteCommandRequest, onFinish ResponseFn, isExhaust bool, hook ConnectionHook) {
	reply := n.conns.handshakeReplyFor(host)
	enqueueRealRequestInlock := func() {
		n.registry.append(handle, req, n.clock.Now(), onFinish, isExhaust)
		n.coord.signalNetworkRunnableInlock()
	}
	completeInlock := func() {
		status := hook.ValidateHost(host, reply)
		if !status.OK() {
			n.mu.Unlock()
			onFinish(RemoteCommandResponse{Status: status})
			n.mu.Lock()
			return
		}
		n.conns.markConnected(host)
		followReq, ok := hook.RequestOnHandshakeComplete(host)
		if !ok {
			enqueueRealRequestInlock()
			return
		}
		n.registry.append(NewCallbackHandle(), followReq, n.clock.Now(), func(resp RemoteCommandResponse) {
			if !resp.Status.OK() {
				onFinish(RemoteCommandResponse{Status: resp.Status})
				return
			}
			n.mu.Lock()
			enqueueRealRequestInlock()
			n.mu.Unlock()
		}, false)
		n.coord.signalNetworkRunnableInlock()
	}

	var jitter time.Duration
	if n.scenario != nil {
		jitter = n.scenario.HandshakeJitter()
	}
	if jitter <= 0 {
		completeInlock()
		return
	}
	n.alarms.push(NewCallbackHandle(), n.clock.Now().Add(jitter), func(status Status) {
		if !status.OK() {
			// Shutdown canceled the handshake before its jitter elapsed;
			// fail the pending command instead of completing it, since
			// Shutdown's own drain loop has already moved past it.
			onFinish(RemoteCommandResponse{Status: status})
			return
		}
		n.mu.Lock()
		completeInlock()
		n.mu.Unlock()
	})
	n.coord.signalNetworkRunnableInlock()
}

// CancelCommand (§4.1, §8): a no-op once the operation has an
// outstanding scheduled response, is Finished, or is unknown.
func (n *NetworkInterfaceMock) CancelCommand(handle CallbackHandle) {
	n.mu.Lock()
	defer n.mu.Unlock()

	noi := n.registry.find(handle)
	if !noi.Valid() {
		return
	}
	op := noi.Op()
	if op.IsFinished() {
		return
	}
	if n.responses.hasResponseFor(op) {
		return
	}
	if op.state != opUnscheduled && op.state != opProcessing {
		return
	}
	if op.state == opUnscheduled {
		n.registry.removeFromUnscheduled(op)
		op.markAsProcessing()
	}
	n.scheduleResponseInlock(noi, n.clock.Now(), RemoteCommandResponse{Status: statusCallbackCanceled()})
	n.coord.signalNetworkRunnableInlock()
}

// SetAlarm (§4.3): when <= now runs action synchronously with success,
// lock dropped, before returning; otherwise the alarm is queued.
func (n *NetworkInterfaceMock) SetAlarm(handle CallbackHandle, when time.Time, action AlarmAction) Status {
	n.mu.Lock()
	if n.coord.inShutdownInlock() {
		n.mu.Unlock()
		return statusShutdownInProgress()
	}
	if !when.After(n.clock.Now()) {
		n.mu.Unlock()
		invokeAlarmAction(action, StatusOK)
		return StatusOK
	}
	n.alarms.push(handle, when, action)
	n.coord.signalNetworkRunnableInlock()
	n.mu.Unlock()
	return StatusOK
}

// CancelAlarm (§4.3, §8): idempotent no-op for an unknown or
// already-fired handle.
func (n *NetworkInterfaceMock) CancelAlarm(handle CallbackHandle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alarms.cancel(handle)
}

// Schedule (§4.8) is equivalent to an immediate-fire alarm anchored at
// now: action runs on the network thread during the next
// runReadyNetworkOperations sweep, or during shutdown with
// CallbackCanceled.
func (n *NetworkInterfaceMock) Schedule(action AlarmAction) Status {
	n.mu.Lock()
	if n.coord.inShutdownInlock() {
		n.mu.Unlock()
		invokeAlarmAction(action, statusCallbackCanceled())
		return statusShutdownInProgress()
	}
	n.alarms.push(NewCallbackHandle(), n.clock.Now(), action)
	n.coord.signalNetworkRunnableInlock()
	n.mu.Unlock()
	return StatusOK
}

////////////////////////////////////////////////////////////////////////////
// Test-driver API (§6) — requires holding the network role.
////////////////////////////////////////////////////////////////////////////

func (n *NetworkInterfaceMock) assertNetworkRoleInlock() {
	assertf(n.coord.currentlyRunning == roleNetwork, "test-driver method called outside the network role; call EnterNetwork first")
}

// EnterNetwork claims the network role and returns a guard that
// releases it when closed (§4.2, §6).
func (n *NetworkInterfaceMock) EnterNetwork() *InNetworkGuard {
	n.mu.Lock()
	n.coord.enterNetworkInlock()
	n.mu.Unlock()
	return &InNetworkGuard{NetworkInterfaceMock: n}
}

// ExitNetwork releases the network role; safe to call even if the
// network role was never claimed.
func (n *NetworkInterfaceMock) ExitNetwork() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.coord.exitNetworkInlock()
}

// HasReadyRequests (§4.6): true iff an Unscheduled operation exists.
func (n *NetworkInterfaceMock) HasReadyRequests() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assertNetworkRoleInlock()
	return n.registry.hasReadyRequests()
}

// GetNextReadyRequest blocks until hasReadyRequests is true and the
// executor is parked, then returns an iterator to the oldest
// unscheduled operation, transitioning it to Processing (§4.6).
func (n *NetworkInterfaceMock) GetNextReadyRequest() NetworkOperationIterator {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assertNetworkRoleInlock()
	for !n.registry.hasReadyRequests() || !n.coord.isExecutorParkedInlock() {
		n.coord.networkCond.Wait()
	}
	return n.registry.popNextReadyRequest()
}

// GetFrontOfUnscheduledQueue is getNthUnscheduledRequest(0) (§4.6).
func (n *NetworkInterfaceMock) GetFrontOfUnscheduledQueue() NetworkOperationIterator {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assertNetworkRoleInlock()
	return n.registry.frontUnscheduled()
}

// GetNthUnscheduledRequest peeks the n-th (0-indexed) unscheduled
// request (§4.6).
func (n *NetworkInterfaceMock) GetNthUnscheduledRequest(idx int) NetworkOperationIterator {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assertNetworkRoleInlock()
	return n.registry.nthUnscheduled(idx)
}

// ScheduleResponse schedules response for noi at virtual time when
// (§4.4). when must be >= now; noi must not be blackholed.
func (n *NetworkInterfaceMock) ScheduleResponse(noi NetworkOperationIterator, when time.Time, response RemoteCommandResponse) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assertNetworkRoleInlock()
	n.scheduleResponseInlock(noi, when, response)
	n.coord.signalExecutorRunnableInlock()
}

func (n *NetworkInterfaceMock) scheduleResponseInlock(noi NetworkOperationIterator, when time.Time, response RemoteCommandResponse) {
	op := noi.Op()
	op.assertNotBlackholed()
	assertf(!when.Before(n.clock.Now()), "scheduleResponse: when (%v) before now (%v)", when, n.clock.Now())
	n.responses.removeForOperation(op)
	op.hasPendingResponse = true
	n.responses.push(noi, when, response)
}

// ScheduleSuccessfulResponse is shorthand for "pop the next ready
// request, schedule a success response containing body at now" (§6).
func (n *NetworkInterfaceMock) ScheduleSuccessfulResponse(body any) RemoteCommandRequest {
	noi := n.GetNextReadyRequest()
	n.ScheduleResponse(noi, n.Now(), RemoteCommandResponse{Status: StatusOK, Body: body})
	return noi.Op().Request()
}

// ScheduleErrorResponse is the error analogue of
// ScheduleSuccessfulResponse (§6).
func (n *NetworkInterfaceMock) ScheduleErrorResponse(status Status) RemoteCommandRequest {
	noi := n.GetNextReadyRequest()
	n.ScheduleResponse(noi, n.Now(), RemoteCommandResponse{Status: status})
	return noi.Op().Request()
}

// BlackHole swallows noi: the mock will never respond to it until
// Shutdown (§4.1, §6).
func (n *NetworkInterfaceMock) BlackHole(noi NetworkOperationIterator) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assertNetworkRoleInlock()
	noi.Op().markAsBlackholed()
}

// SetHandshakeReplyForHost sets the canned 'isMaster'-style handshake
// reply for host, used only by the connection hook's ValidateHost
// (§4.7, §6).
func (n *NetworkInterfaceMock) SetHandshakeReplyForHost(host string, reply RemoteCommandResponse) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assertNetworkRoleInlock()
	n.conns.setHandshakeReply(host, reply)
}

// RunReadyNetworkOperations drains the ResponseQueue and AlarmHeap up
// to now, delivering each in order (responses before alarms at equal
// times, §5), and does not return until the executor is parked or has
// nothing further queued as a direct synchronous consequence of what we
// just delivered (§4.4, §4.5 design note (b)).
func (n *NetworkInterfaceMock) RunReadyNetworkOperations() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assertNetworkRoleInlock()
	n.runReadyNetworkOperationsInlock()
}

func (n *NetworkInterfaceMock) runReadyNetworkOperationsInlock() {
	for {
		progressed := false
		for {
			r := n.responses.front()
			if r == nil || r.when.After(n.clock.Now()) {
				break
			}
			n.responses.popFront()
			n.deliverResponseInlock(r)
			n.coord.signalExecutorRunnableInlock()
			progressed = true
		}
		for {
			info, ok := n.alarms.popReady(n.clock.Now())
			if !ok {
				break
			}
			n.trace.record("alarm", info.seq, n.clock.Now())
			n.mu.Unlock()
			invokeAlarmAction(info.action, StatusOK)
			n.mu.Lock()
			n.coord.signalExecutorRunnableInlock()
			progressed = true
		}
		if n.coord.currentlyRunning == roleExecutor {
			for n.coord.currentlyRunning == roleExecutor {
				n.coord.networkCond.Wait()
			}
			n.coord.currentlyRunning = roleNetwork
			continue
		}
		if !progressed {
			return
		}
	}
}

// deliverResponseInlock invokes r's operation's completion callback
// with the lock released (§5), then marks the operation Finished unless
// it is a non-terminal exhaust reply (§4.1, §4.4).
func (n *NetworkInterfaceMock) deliverResponseInlock(r *NetworkResponse) {
	op := r.noi.Op()
	op.hasPendingResponse = false
	if op.IsFinished() {
		return
	}
	resp := r.response
	metaHook := n.metadataHook
	cb := op.onResponse
	isExhaust := op.isExhaust
	elapsed := n.clock.Now().Sub(op.requestDate)
	resp.Elapsed = elapsed
	seq := op.seq

	n.mu.Unlock()
	metaHook.ReadReplyMetadata(&resp)
	cb(resp)
	n.mu.Lock()

	n.trace.record("response", seq, n.clock.Now())
	if !(isExhaust && resp.ExhaustMore) {
		op.markFinished()
	}
}

func (n *NetworkInterfaceMock) drainAllResponsesLocked() {
	for n.responses.Len() > 0 {
		r := n.responses.popFront()
		n.deliverResponseInlock(r)
	}
}

// invokeAlarmAction runs action, catching and discarding any panic
// (§7: "Alarm-action exceptions are caught and logged, never propagated
// across threads"). A production build would log the recovered value;
// this mock drops it to avoid pulling in a logging dependency for a
// path its own tests never need to assert on.
func invokeAlarmAction(action AlarmAction, status Status) {
	if action == nil {
		return
	}
	defer func() { _ = recover() }()
	action(status)
}

// nextWakeupInlock returns the earliest virtual time before or at cap
// at which there is something for the network thread to do: a queued
// response, a live alarm, a Processing operation's own timeout
// deadline, or the executor's own deadline-only wait. Including the
// timeout deadline here (rather than only acting on it once reached)
// keeps stepToInlock from jumping the clock past it in a single hop,
// which would otherwise misreport the response's Elapsed duration.
func (n *NetworkInterfaceMock) nextWakeupInlock(cap time.Time) time.Time {
	next := cap
	if r := n.responses.front(); r != nil && r.when.Before(next) {
		next = r.when
	}
	if when, ok := n.alarms.peekWhen(); ok && when.Before(next) {
		next = when
	}
	if when, ok := n.earliestTimeoutDeadlineInlock(); ok && when.Before(next) {
		next = when
	}
	if n.coord.executorHasDeadline && n.coord.executorNextWakeupDate.Before(next) {
		next = n.coord.executorNextWakeupDate
	}
	return next
}

// earliestTimeoutDeadlineInlock returns the soonest requestDate+Timeout
// among Processing operations with no response already pending.
func (n *NetworkInterfaceMock) earliestTimeoutDeadlineInlock() (time.Time, bool) {
	var earliest time.Time
	found := false
	n.registry.forEach(func(op *NetworkOperation) {
		if op.state != opProcessing || op.hasPendingResponse || op.request.Timeout <= 0 {
			return
		}
		deadline := op.requestDate.Add(op.request.Timeout)
		if !found || deadline.Before(earliest) {
			earliest = deadline
			found = true
		}
	})
	return earliest, found
}

// stepToInlock advances the clock to the earliest of newTime or any
// pending work, applies per-request timeouts due at that instant, runs
// the network sweep, and repeats until newTime is reached.
func (n *NetworkInterfaceMock) stepToInlock(newTime time.Time) {
	for n.clock.Now().Before(newTime) {
		next := n.nextWakeupInlock(newTime)
		n.applyTimeoutsUpTo(next)
		n.clock.advanceTo(next)
		n.coord.executorCond.Broadcast() // wake any deadline-only executor wait
		n.runReadyNetworkOperationsInlock()
	}
}

// RunUntil (§4.5): advances virtual time towards deadline, delivering
// ready work as it goes, and returns early (before reaching deadline)
// the moment hasReadyRequests becomes true. Returns the final now.
func (n *NetworkInterfaceMock) RunUntil(deadline time.Time) time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assertNetworkRoleInlock()

	for n.clock.Now().Before(deadline) && !n.registry.hasReadyRequests() {
		next := n.nextWakeupInlock(deadline)
		n.applyTimeoutsUpTo(next)
		n.clock.advanceTo(next)
		n.coord.executorCond.Broadcast()
		n.runReadyNetworkOperationsInlock()
	}
	return n.clock.Now()
}

// AdvanceTime (§4.5) is the unconditional variant: steps to newTime
// without the "ready requests" short-circuit.
func (n *NetworkInterfaceMock) AdvanceTime(newTime time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assertNetworkRoleInlock()
	n.stepToInlock(newTime)
}

// applyTimeoutsUpTo is the per-request timeout enforcement §5 requires:
// any Processing operation whose requestDate+Timeout <= asOf, and which
// has no response already pending, receives a synthetic NetworkTimeout.
func (n *NetworkInterfaceMock) applyTimeoutsUpTo(asOf time.Time) {
	n.registry.forEach(func(op *NetworkOperation) {
		if op.state != opProcessing {
			return
		}
		if op.hasPendingResponse {
			return
		}
		if op.request.Timeout <= 0 {
			return
		}
		deadline := op.requestDate.Add(op.request.Timeout)
		if deadline.After(asOf) {
			return
		}
		n.scheduleResponseInlock(NetworkOperationIterator{op: op}, deadline, RemoteCommandResponse{Status: statusNetworkTimeout()})
	})
}

// HasReadyNetworkOperations reports whether the network thread has
// scheduled work (a response due now, or a live alarm due now) to
// process.
func (n *NetworkInterfaceMock) HasReadyNetworkOperations() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.clock.Now()
	if r := n.responses.front(); r != nil && !r.when.After(now) {
		return true
	}
	if when, ok := n.alarms.peekWhen(); ok && !when.After(now) {
		return true
	}
	return false
}
