package netmock

import (
	"fmt"
	"sync/atomic"
	"time"
)

// CallbackHandle is an opaque, comparable, hashable identity for a
// submitted command or alarm. It is cheap to mint and safe to use as a
// map key; callers never construct one directly.
type CallbackHandle struct {
	id int64
}

func (h CallbackHandle) String() string {
	if h.id == 0 {
		return "CallbackHandle(nil)"
	}
	return fmt.Sprintf("CallbackHandle(%d)", h.id)
}

// IsZero reports whether h was never assigned by NewCallbackHandle.
func (h CallbackHandle) IsZero() bool { return h.id == 0 }

var nextHandleID int64

// NewCallbackHandle mints a fresh, process-unique handle.
func NewCallbackHandle() CallbackHandle {
	return CallbackHandle{id: atomic.AddInt64(&nextHandleID, 1)}
}

// RemoteCommandRequest addresses a command body to one or more hosts,
// under a per-attempt timeout and an optional absolute deadline.
type RemoteCommandRequest struct {
	Hosts    []string
	DBName   string
	Cmd      any
	Timeout  time.Duration // zero means no per-attempt timeout
	Deadline time.Time     // zero means no absolute deadline

	// Metadata is decorated by a MetadataHook before the request is
	// considered sent, and is not interpreted by the mock itself.
	Metadata any
}

// primaryHost returns the first target, the one the mock's single
// simulated connection is keyed on.
func (r RemoteCommandRequest) primaryHost() string {
	if len(r.Hosts) == 0 {
		return ""
	}
	return r.Hosts[0]
}

// RemoteCommandResponse is a status plus payload plus elapsed virtual
// time, delivered to a command's completion callback.
type RemoteCommandResponse struct {
	Status   Status
	Body     any
	Elapsed  time.Duration
	Metadata any

	// ExhaustMore, when true on a startExhaustCommand reply, tells the
	// mock that the operation remains Processing and should expect
	// further responses. The final reply in an exhaust stream has
	// ExhaustMore == false.
	ExhaustMore bool
}

// Status is a minimal status code plus message, standing in for the
// richer mongo::Status the original interface uses.
type Status struct {
	Code ErrorCode
	Msg  string
}

// OK reports whether the status represents success.
func (s Status) OK() bool { return s.Code == CodeOK }

func (s Status) Error() string {
	if s.OK() {
		return "OK"
	}
	if s.Msg == "" {
		return s.Code.String()
	}
	return fmt.Sprintf("%s: %s", s.Code, s.Msg)
}

// StatusOK is the canonical success status.
var StatusOK = Status{Code: CodeOK}

// ErrorCode enumerates the error kinds §7 of the design requires.
type ErrorCode int

const (
	CodeOK ErrorCode = iota
	CodeShutdownInProgress
	CodeCallbackCanceled
	CodeNetworkTimeout
	CodeHostUnreachable
)

func (c ErrorCode) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeShutdownInProgress:
		return "ShutdownInProgress"
	case CodeCallbackCanceled:
		return "CallbackCanceled"
	case CodeNetworkTimeout:
		return "NetworkTimeout"
	case CodeHostUnreachable:
		return "HostUnreachable"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// ResponseFn is the completion callback invoked exactly once for a
// non-exhaust command, or at least once (with a final terminal call)
// for an exhaust command.
type ResponseFn func(RemoteCommandResponse)

// AlarmAction is the callback invoked when an alarm fires, or when it
// is canceled by shutdown.
type AlarmAction func(Status)
