package netmock

import (
	"testing"
	"time"

	cv "github.com/glycerine/goconvey/convey"
)

func TestSimpleSuccessRoundTrip(t *testing.T) {
	cv.Convey("a command gets the response the network thread schedules for it", t, func() {
		net := NewNetworkInterfaceMock()
		net.Startup()
		defer net.Shutdown()

		var got RemoteCommandResponse
		h := NewCallbackHandle()
		net.StartCommand(h, RemoteCommandRequest{Cmd: "ping"}, func(r RemoteCommandResponse) { got = r })

		g := net.EnterNetwork()
		defer g.Close()

		cv.So(g.HasReadyRequests(), cv.ShouldBeTrue)
		noi := g.GetNextReadyRequest()
		cv.So(noi.Op().Handle(), cv.ShouldResemble, h)

		g.ScheduleResponse(noi, net.Now(), RemoteCommandResponse{Status: StatusOK, Body: "pong"})
		g.RunReadyNetworkOperations()

		cv.So(got.Status.OK(), cv.ShouldBeTrue)
		cv.So(got.Body, cv.ShouldEqual, "pong")
	})
}

func TestCancellationBeforeObservation(t *testing.T) {
	cv.Convey("canceling an Unscheduled command removes it from the ready queue immediately", t, func() {
		net := NewNetworkInterfaceMock()
		net.Startup()
		defer net.Shutdown()

		var got RemoteCommandResponse
		calls := 0
		h := NewCallbackHandle()
		net.StartCommand(h, RemoteCommandRequest{Cmd: "slow"}, func(r RemoteCommandResponse) {
			calls++
			got = r
		})

		net.CancelCommand(h)

		g := net.EnterNetwork()
		defer g.Close()

		cv.So(g.HasReadyRequests(), cv.ShouldBeFalse)
		g.RunReadyNetworkOperations()

		cv.So(calls, cv.ShouldEqual, 1)
		cv.So(got.Status.Code, cv.ShouldEqual, CodeCallbackCanceled)
	})

	cv.Convey("canceling an unknown handle is a no-op", t, func() {
		net := NewNetworkInterfaceMock()
		net.Startup()
		defer net.Shutdown()
		cv.So(func() { net.CancelCommand(NewCallbackHandle()) }, cv.ShouldNotPanic)
	})

	cv.Convey("canceling an already-finished command is a no-op", t, func() {
		net := NewNetworkInterfaceMock()
		net.Startup()
		defer net.Shutdown()

		calls := 0
		h := NewCallbackHandle()
		net.StartCommand(h, RemoteCommandRequest{}, func(RemoteCommandResponse) { calls++ })

		g := net.EnterNetwork()
		noi := g.GetNextReadyRequest()
		g.ScheduleResponse(noi, net.Now(), RemoteCommandResponse{Status: StatusOK})
		g.RunReadyNetworkOperations()
		g.Close()

		net.CancelCommand(h)
		cv.So(calls, cv.ShouldEqual, 1)
	})
}

func TestRequestTimeout(t *testing.T) {
	cv.Convey("a Processing request past its deadline gets a synthetic NetworkTimeout", t, func() {
		net := NewNetworkInterfaceMock()
		net.Startup()
		defer net.Shutdown()

		var got RemoteCommandResponse
		h := NewCallbackHandle()
		net.StartCommand(h, RemoteCommandRequest{Cmd: "slow", Timeout: 5 * time.Second}, func(r RemoteCommandResponse) {
			got = r
		})

		g := net.EnterNetwork()
		defer g.Close()

		noi := g.GetNextReadyRequest()
		cv.So(noi.Op().IsProcessing(), cv.ShouldBeTrue)

		g.AdvanceTime(net.Now().Add(10 * time.Second))

		cv.So(got.Status.Code, cv.ShouldEqual, CodeNetworkTimeout)
	})
}

func TestBlackholeSurvivesUntilShutdown(t *testing.T) {
	cv.Convey("a blackholed operation never finishes on its own, only at shutdown", t, func() {
		net := NewNetworkInterfaceMock()
		net.Startup()

		calls := 0
		var got RemoteCommandResponse
		h := NewCallbackHandle()
		net.StartCommand(h, RemoteCommandRequest{}, func(r RemoteCommandResponse) {
			calls++
			got = r
		})

		g := net.EnterNetwork()
		noi := g.GetNextReadyRequest()
		g.BlackHole(noi)
		g.RunReadyNetworkOperations()
		cv.So(calls, cv.ShouldEqual, 0)

		cv.So(func() { g.ScheduleResponse(noi, net.Now(), RemoteCommandResponse{Status: StatusOK}) }, cv.ShouldPanic)
		g.Close()

		net.Shutdown()
		cv.So(calls, cv.ShouldEqual, 1)
		cv.So(got.Status.Code, cv.ShouldEqual, CodeShutdownInProgress)
	})
}

func TestAlarmsFireAfterResponsesAtTheSameInstant(t *testing.T) {
	cv.Convey("at a shared virtual instant, queued responses are delivered before alarms", t, func() {
		net := NewNetworkInterfaceMock()
		net.Startup()
		defer net.Shutdown()

		var log []string
		h := NewCallbackHandle()
		net.StartCommand(h, RemoteCommandRequest{}, func(RemoteCommandResponse) { log = append(log, "response") })

		fireAt := net.Now().Add(time.Second)
		net.SetAlarm(NewCallbackHandle(), fireAt, func(Status) { log = append(log, "alarm") })

		g := net.EnterNetwork()
		defer g.Close()

		noi := g.GetNextReadyRequest()
		g.ScheduleResponse(noi, fireAt, RemoteCommandResponse{Status: StatusOK})

		g.AdvanceTime(fireAt.Add(time.Second))

		cv.So(log, cv.ShouldResemble, []string{"response", "alarm"})
	})
}

func TestExhaustStream(t *testing.T) {
	cv.Convey("an exhaust command keeps receiving replies until ExhaustMore is false", t, func() {
		net := NewNetworkInterfaceMock()
		net.Startup()
		defer net.Shutdown()

		var bodies []any
		h := NewCallbackHandle()
		net.StartExhaustCommand(h, RemoteCommandRequest{}, func(r RemoteCommandResponse) {
			bodies = append(bodies, r.Body)
		})

		g := net.EnterNetwork()
		defer g.Close()

		noi := g.GetNextReadyRequest()
		g.ScheduleResponse(noi, net.Now(), RemoteCommandResponse{Status: StatusOK, Body: 1, ExhaustMore: true})
		g.RunReadyNetworkOperations()
		cv.So(noi.Op().IsFinished(), cv.ShouldBeFalse)
		cv.So(noi.Op().IsProcessing(), cv.ShouldBeTrue)

		g.ScheduleResponse(noi, net.Now(), RemoteCommandResponse{Status: StatusOK, Body: 2, ExhaustMore: true})
		g.RunReadyNetworkOperations()

		g.ScheduleResponse(noi, net.Now(), RemoteCommandResponse{Status: StatusOK, Body: 3, ExhaustMore: false})
		g.RunReadyNetworkOperations()

		cv.So(bodies, cv.ShouldResemble, []any{1, 2, 3})
		cv.So(noi.Op().IsFinished(), cv.ShouldBeTrue)
	})
}

func TestShutdownIsIdempotentAndUnsticksEverything(t *testing.T) {
	cv.Convey("shutdown can be called more than once, and leaves no pending work behind", t, func() {
		net := NewNetworkInterfaceMock()
		net.Startup()

		var finishStatus, alarmStatus Status
		h := NewCallbackHandle()
		net.StartCommand(h, RemoteCommandRequest{}, func(r RemoteCommandResponse) { finishStatus = r.Status })
		net.SetAlarm(NewCallbackHandle(), net.Now().Add(time.Hour), func(s Status) { alarmStatus = s })

		net.Shutdown()
		cv.So(finishStatus.Code, cv.ShouldEqual, CodeShutdownInProgress)
		cv.So(alarmStatus.Code, cv.ShouldEqual, CodeCallbackCanceled)

		cv.So(func() { net.Shutdown() }, cv.ShouldNotPanic)

		status := net.StartCommand(NewCallbackHandle(), RemoteCommandRequest{}, func(RemoteCommandResponse) {})
		cv.So(status.Code, cv.ShouldEqual, CodeShutdownInProgress)
	})
}

func TestHandshakeGatesFirstRequestToAHost(t *testing.T) {
	cv.Convey("a noop connection hook lets the first request to a new host through untouched", t, func() {
		net := NewNetworkInterfaceMock()
		net.Startup()
		defer net.Shutdown()

		var got RemoteCommandResponse
		h := NewCallbackHandle()
		net.StartCommand(h, RemoteCommandRequest{Hosts: []string{"db1"}}, func(r RemoteCommandResponse) { got = r })

		g := net.EnterNetwork()
		defer g.Close()

		cv.So(g.HasReadyRequests(), cv.ShouldBeTrue)
		noi := g.GetNextReadyRequest()
		cv.So(noi.Op().Request().Hosts, cv.ShouldResemble, []string{"db1"})
		g.ScheduleResponse(noi, net.Now(), RemoteCommandResponse{Status: StatusOK, Body: "hello"})
		g.RunReadyNetworkOperations()

		cv.So(got.Body, cv.ShouldEqual, "hello")
	})

	cv.Convey("a rejecting connection hook fails the pending command without ever making it ready", t, func() {
		net := NewNetworkInterfaceMock()
		net.SetConnectionHook(rejectingHook{})
		net.Startup()
		defer net.Shutdown()

		var got RemoteCommandResponse
		h := NewCallbackHandle()
		net.StartCommand(h, RemoteCommandRequest{Hosts: []string{"db2"}}, func(r RemoteCommandResponse) { got = r })

		g := net.EnterNetwork()
		defer g.Close()

		cv.So(got.Status.Code, cv.ShouldEqual, CodeHostUnreachable)
		cv.So(g.HasReadyRequests(), cv.ShouldBeFalse)
	})

	cv.Convey("a Scenario's handshake jitter delays readiness until the network thread advances past it", t, func() {
		net := NewNetworkInterfaceMock()
		net.SetScenario(NewScenario([32]byte{1}, 3*time.Second, 3*time.Second))
		net.Startup()
		defer net.Shutdown()

		h := NewCallbackHandle()
		net.StartCommand(h, RemoteCommandRequest{Hosts: []string{"db3"}}, func(RemoteCommandResponse) {})

		g := net.EnterNetwork()
		defer g.Close()

		cv.So(g.HasReadyRequests(), cv.ShouldBeFalse)
		g.AdvanceTime(net.Now().Add(3 * time.Second))
		cv.So(g.HasReadyRequests(), cv.ShouldBeTrue)
	})

	cv.Convey("a hook's handshake follow-up request is enqueued and answered ahead of the user's", t, func() {
		net := NewNetworkInterfaceMock()
		net.SetConnectionHook(followUpHook{cmd: "isMaster"})
		net.Startup()
		defer net.Shutdown()

		var got RemoteCommandResponse
		h := NewCallbackHandle()
		net.StartCommand(h, RemoteCommandRequest{Hosts: []string{"db4"}, Cmd: "find"}, func(r RemoteCommandResponse) { got = r })

		g := net.EnterNetwork()
		defer g.Close()

		cv.So(g.HasReadyRequests(), cv.ShouldBeTrue)
		follow := g.GetNextReadyRequest()
		cv.So(follow.Op().Request().Cmd, cv.ShouldEqual, "isMaster")
		g.ScheduleResponse(follow, net.Now(), RemoteCommandResponse{Status: StatusOK})
		g.RunReadyNetworkOperations()

		cv.So(g.HasReadyRequests(), cv.ShouldBeTrue)
		real := g.GetNextReadyRequest()
		cv.So(real.Op().Request().Cmd, cv.ShouldEqual, "find")
		g.ScheduleResponse(real, net.Now(), RemoteCommandResponse{Status: StatusOK, Body: "rows"})
		g.RunReadyNetworkOperations()

		cv.So(got.Body, cv.ShouldEqual, "rows")
	})

	cv.Convey("a failed handshake follow-up fails the user's command without ever enqueueing it", t, func() {
		net := NewNetworkInterfaceMock()
		net.SetConnectionHook(followUpHook{cmd: "isMaster"})
		net.Startup()
		defer net.Shutdown()

		var got RemoteCommandResponse
		h := NewCallbackHandle()
		net.StartCommand(h, RemoteCommandRequest{Hosts: []string{"db5"}, Cmd: "find"}, func(r RemoteCommandResponse) { got = r })

		g := net.EnterNetwork()
		defer g.Close()

		follow := g.GetNextReadyRequest()
		g.ScheduleResponse(follow, net.Now(), RemoteCommandResponse{Status: statusHostUnreachable("isMaster refused")})
		g.RunReadyNetworkOperations()

		cv.So(got.Status.Code, cv.ShouldEqual, CodeHostUnreachable)
		cv.So(g.HasReadyRequests(), cv.ShouldBeFalse)
	})
}

type rejectingHook struct{ NoopConnectionHook }

func (rejectingHook) ValidateHost(host string, _ RemoteCommandResponse) Status {
	return statusHostUnreachable("refused " + host)
}

// followUpHook accepts every handshake but asks for one follow-up
// request (e.g. an isMaster-style probe) before the real request is
// released, exercising §4.7's RequestOnHandshakeComplete path.
type followUpHook struct {
	NoopConnectionHook
	cmd string
}

func (h followUpHook) RequestOnHandshakeComplete(host string) (RemoteCommandRequest, bool) {
	return RemoteCommandRequest{Hosts: []string{host}, Cmd: h.cmd}, true
}

func TestExecutionHashIsDeterministic(t *testing.T) {
	cv.Convey("two identical scripts against fresh mocks produce the same execution hash", t, func() {
		run := func() string {
			net := NewNetworkInterfaceMock()
			net.Startup()
			defer net.Shutdown()

			net.StartCommand(NewCallbackHandle(), RemoteCommandRequest{}, func(RemoteCommandResponse) {})
			net.SetAlarm(NewCallbackHandle(), net.Now().Add(time.Second), func(Status) {})

			g := net.EnterNetwork()
			defer g.Close()
			noi := g.GetNextReadyRequest()
			g.ScheduleResponse(noi, net.Now().Add(time.Second), RemoteCommandResponse{Status: StatusOK})
			g.AdvanceTime(net.Now().Add(2 * time.Second))

			return net.GetExecutionHash()
		}

		cv.So(run(), cv.ShouldEqual, run())
	})
}

func TestResponseBatchAppliesAtomically(t *testing.T) {
	cv.Convey("a batch applies every queued mutation before signaling the executor once", t, func() {
		net := NewNetworkInterfaceMock()
		net.Startup()
		defer net.Shutdown()

		var results []Status
		h1, h2 := NewCallbackHandle(), NewCallbackHandle()
		net.StartCommand(h1, RemoteCommandRequest{}, func(r RemoteCommandResponse) { results = append(results, r.Status) })
		net.StartCommand(h2, RemoteCommandRequest{}, func(r RemoteCommandResponse) { results = append(results, r.Status) })

		g := net.EnterNetwork()
		defer g.Close()

		noi1 := g.GetNextReadyRequest()
		noi2 := g.GetNextReadyRequest()

		b := net.NewResponseBatch()
		b.ScheduleSuccessfulResponse(noi1, net.Now(), "a")
		b.ScheduleErrorResponse(noi2, net.Now(), statusNetworkTimeout())
		b.Submit()

		g.RunReadyNetworkOperations()

		cv.So(results, cv.ShouldResemble, []Status{StatusOK, statusNetworkTimeout()})
	})
}
