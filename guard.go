package netmock

// InNetworkGuard is the scoped equivalent of the original's
// InNetworkGuard RAII type (§4.2, §6): EnterNetwork returns one, and
// every test-driver method is reachable directly on it (embedding
// promotes NetworkInterfaceMock's methods), so callers write
//
//	g := mock.EnterNetwork()
//	defer g.Close()
//	g.ScheduleSuccessfulResponse(reply)
//
// Go has no destructors, so Close (or the equivalent Dismiss, for
// callers that already released the role some other way) must be
// called explicitly; a deferred Close is the idiomatic substitute for
// the original's scope-exit release.
type InNetworkGuard struct {
	*NetworkInterfaceMock
	dismissed bool
}

// Dismiss marks the guard as already released, without itself calling
// ExitNetwork. Used when the caller already released the role by some
// other path (e.g. shutdown woke it).
func (g *InNetworkGuard) Dismiss() {
	g.dismissed = true
}

// Close releases the network role, unless the guard was already
// dismissed. Safe to call more than once.
func (g *InNetworkGuard) Close() {
	if g.dismissed {
		return
	}
	g.dismissed = true
	g.NetworkInterfaceMock.ExitNetwork()
}
