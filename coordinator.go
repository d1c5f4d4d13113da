package netmock

import (
	"sync"
	"time"

	"github.com/glycerine/idem"
)

// threadRole names which of the two cooperating threads, if any, is
// currently permitted to run (§4.2).
type threadRole int

const (
	roleNone     threadRole = 0
	roleExecutor threadRole = 1
	roleNetwork  threadRole = 2
)

func (r threadRole) String() string {
	switch r {
	case roleNone:
		return "none"
	case roleExecutor:
		return "executor"
	case roleNetwork:
		return "network"
	default:
		return "threadRole(?)"
	}
}

// bits of waitingToRunMask.
const (
	bitExecutor = 1 << iota
	bitNetwork
)

// ThreadCoordinator centralizes the "exactly one runner" handoff per
// DESIGN NOTES §9: "implementers should centralize the handoff in one
// function whose post-condition is always 'I released the role; the
// other side was signaled iff eligible', and route every API entry
// point through it." It does not own its own mutex; every method here
// assumes the caller already holds the NetworkInterfaceMock's single
// mutex (the "_inlock" convention the original mongo source uses), and
// the two sync.Cond values share that mutex as their Locker.
//
// Shutdown is modeled on github.com/glycerine/idem's Halter, the
// teacher's standard "s.halt *idem.Halter" field: closing halt.ReqStop
// is the single idempotent signal this coordinator, and the mock built
// on top of it, consult everywhere a shutdown check is needed.
type ThreadCoordinator struct {
	executorCond *sync.Cond
	networkCond  *sync.Cond

	waitingToRunMask int
	currentlyRunning threadRole

	executorHasDeadline    bool
	executorNextWakeupDate time.Time

	halt *idem.Halter
}

func newThreadCoordinator(mu *sync.Mutex) *ThreadCoordinator {
	return &ThreadCoordinator{
		executorCond:     sync.NewCond(mu),
		networkCond:      sync.NewCond(mu),
		currentlyRunning: roleNone,
		halt:             idem.NewHalterNamed("netmock.NetworkInterfaceMock"),
	}
}

func (tc *ThreadCoordinator) inShutdownInlock() bool {
	return tc.halt.ReqStop.IsClosed()
}

// signalExecutorRunnableInlock sets the executor's bit and wakes it.
// Per §4.2 this is how signalWorkAvailable, response delivery, and
// alarm firing all make the executor eligible to run next.
func (tc *ThreadCoordinator) signalExecutorRunnableInlock() {
	tc.waitingToRunMask |= bitExecutor
	tc.executorCond.Broadcast()
}

// signalNetworkRunnableInlock sets the network's bit and wakes it.
func (tc *ThreadCoordinator) signalNetworkRunnableInlock() {
	tc.waitingToRunMask |= bitNetwork
	tc.networkCond.Broadcast()
}

// enterNetworkInlock blocks until the network bit is set and no thread
// is currently running, then claims the network role (§4.2). Calling it
// also sets the network bit, so a test driver thread calling
// enterNetwork with nothing else going on still gets to run. Entering
// while the network role is already held is an assertion failure.
func (tc *ThreadCoordinator) enterNetworkInlock() {
	assertf(tc.currentlyRunning != roleNetwork, "enterNetwork called while the network role is already held")
	tc.signalNetworkRunnableInlock()
	for !(tc.waitingToRunMask&bitNetwork != 0 && tc.currentlyRunning == roleNone) {
		tc.networkCond.Wait()
	}
	tc.waitingToRunMask &^= bitNetwork
	tc.currentlyRunning = roleNetwork
}

// exitNetworkInlock releases the network role and wakes the executor if
// it is eligible to run (§4.2). Safe to call even if the network role
// was never claimed (no-op), matching InNetworkGuard's destructor
// contract.
func (tc *ThreadCoordinator) exitNetworkInlock() {
	if tc.currentlyRunning != roleNetwork {
		return
	}
	tc.currentlyRunning = roleNone
	if tc.waitingToRunMask&bitExecutor != 0 {
		tc.executorCond.Broadcast()
	}
}

// waitForWorkUntilInlock is the executor-thread wait point (§4.2, §5):
// it gives up the running role, signals the network thread (so it has a
// chance to service whatever the executor just enqueued), and sleeps
// until either the executor bit is set or, if hasDeadline, the virtual
// clock reaches deadline. clock.Now is re-read on every wake, so the
// network thread advancing time past deadline (and broadcasting this
// coordinator's executorCond afterwards) is what lets a deadline-only
// wakeup happen — there is no real-time timer involved anywhere here.
func (tc *ThreadCoordinator) waitForWorkUntilInlock(clock *virtualClock, hasDeadline bool, deadline time.Time, networkHasWork bool) {
	assertf(tc.currentlyRunning != roleNetwork, "waitForWork called while the network thread holds the role")
	tc.currentlyRunning = roleNone
	tc.executorHasDeadline = hasDeadline
	tc.executorNextWakeupDate = deadline
	if networkHasWork {
		tc.signalNetworkRunnableInlock()
	} else {
		tc.networkCond.Broadcast()
	}
	for tc.waitingToRunMask&bitExecutor == 0 {
		if hasDeadline && !clock.Now().Before(deadline) {
			break
		}
		if tc.inShutdownInlock() {
			break
		}
		tc.executorCond.Wait()
	}
	tc.waitingToRunMask &^= bitExecutor
	tc.currentlyRunning = roleExecutor
}

// isExecutorParkedInlock reports whether the executor is not currently
// the active runner — either nobody is running (the common case, once
// the network thread already holds the role) or the network thread
// itself holds it. Several network-thread operations (§4.4, §4.6) must
// not return (or proceed) while a concurrently running executor
// goroutine could still be in the middle of producing more work.
func (tc *ThreadCoordinator) isExecutorParkedInlock() bool {
	return tc.currentlyRunning != roleExecutor
}

// wakeBothForShutdownInlock is called once, by shutdown, to release any
// thread sleeping on either condition so it can observe inShutdown and
// unwind.
func (tc *ThreadCoordinator) wakeBothForShutdownInlock() {
	tc.waitingToRunMask |= bitExecutor | bitNetwork
	tc.executorCond.Broadcast()
	tc.networkCond.Broadcast()
}
