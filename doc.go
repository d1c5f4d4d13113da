// Package netmock implements a deterministic, fully virtualized mock of
// a remote-command network interface, for unit-testing components that
// issue commands through a task executor.
//
// Two cooperating threads drive a NetworkInterfaceMock: an "executor"
// thread, which is the code under test, and a "network" thread, which is
// the test itself acting as the remote side. The mock enforces that
// exactly one of the two is ever running; the other is parked on a
// condition variable. Virtual time only advances from the network
// thread, via runUntil/advanceTime, and only the network thread may
// decide when a scheduled response or alarm fires. This gives tests
// precise, repeatable control over ordering, cancellation, and timeout
// behavior without touching a real clock or a real socket.
//
// Typical use:
//
//	net := netmock.NewNetworkInterfaceMock()
//	net.Startup()
//	defer net.Shutdown()
//
//	// executor side (code under test) calls net.StartCommand(...)
//
//	guard := net.EnterNetwork()
//	defer guard.Close()
//	req := guard.ScheduleSuccessfulResponse(map[string]any{"ok": 1})
//	guard.RunUntil(net.Now().Add(10 * time.Millisecond))
package netmock
