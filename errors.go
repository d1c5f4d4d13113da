package netmock

import "fmt"

// AssertionError represents misuse of the mock by the test driver:
// scheduling a response on a blackholed operation, entering the network
// twice, calling a network-role method outside the guard, responding to
// an unknown iterator. Per §7, these are fatal within the test process.
type AssertionError struct {
	Msg string
}

func (e *AssertionError) Error() string { return "netmock assertion: " + e.Msg }

// assertf panics with an *AssertionError if cond is false. Mirrors the
// teacher's panicOn(err) convention for "this should never happen"
// paths, and the original source's uassert.
func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(&AssertionError{Msg: fmt.Sprintf(format, args...)})
	}
}

func panicOn(err error) {
	if err != nil {
		panic(err)
	}
}

func statusShutdownInProgress() Status {
	return Status{Code: CodeShutdownInProgress, Msg: "shutdown in progress"}
}

func statusCallbackCanceled() Status {
	return Status{Code: CodeCallbackCanceled, Msg: "callback canceled"}
}

func statusNetworkTimeout() Status {
	return Status{Code: CodeNetworkTimeout, Msg: "network timeout"}
}

func statusHostUnreachable(msg string) Status {
	return Status{Code: CodeHostUnreachable, Msg: msg}
}
