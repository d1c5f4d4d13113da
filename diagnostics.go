package netmock

import (
	"fmt"
	"time"

	cristalbase64 "github.com/cristalhq/base64"
	"github.com/glycerine/blake3"
)

// executionTrace accumulates a record of every response delivered and
// alarm fired, in the order the network thread processed them. It
// backs GetExecutionHash: two runs of the same script against the same
// Scenario produce byte-identical traces, and therefore identical
// hashes, which is the property the determinism tests lean on.
type executionTrace struct {
	buf []byte
}

func newExecutionTrace() *executionTrace {
	return &executionTrace{}
}

// record takes localSeq rather than a CallbackHandle deliberately:
// handles are minted from a process-global counter (see
// NewCallbackHandle), so two runs of the same script within the same
// process would otherwise get different handle numbers and diverge.
// localSeq is the operation's or alarm's own insertion sequence number,
// which restarts at zero for every freshly constructed mock.
func (t *executionTrace) record(kind string, localSeq int64, when time.Time) {
	_, err := fmt.Fprintf((*traceWriter)(t), "%s:%d@%s\n", kind, localSeq, when.Format(time.RFC3339Nano))
	panicOn(err)
}

// traceWriter adapts *executionTrace to io.Writer so record can reuse
// fmt.Fprintf instead of hand-rolling byte concatenation.
type traceWriter executionTrace

func (w *traceWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// blake3OfSeed32 is the teacher's diagnostic-hash shape
// (simnet_string.go's blake3OfSeed32): a 64-byte blake3 digest,
// truncated to 33 bytes and URL-base64 encoded with a format tag
// prefix, so hashes are safe to embed in log lines or test names.
func blake3OfSeed32(data []byte) string {
	h := blake3.New(64, nil)
	h.Write(data)
	sum := h.Sum(nil)
	return "blake3.33B-" + cristalbase64.URLEncoding.EncodeToString(sum[:33])
}

// GetExecutionHash returns a deterministic digest of every response
// and alarm delivery this mock has processed so far. Running the same
// sequence of test-driver calls against a freshly constructed mock
// (with the same Scenario, if any) reproduces the same hash; the
// DESIGN NOTES call this out as a useful regression guard for "did this
// refactor change delivery order".
func (n *NetworkInterfaceMock) GetExecutionHash() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return blake3OfSeed32(n.trace.buf)
}

// SnapshotState is a point-in-time read of the mock's internals for
// test assertions and failure diagnostics, grounded on the teacher's
// SimnetSnapshot/GetSimnetSnapshot.
type SnapshotState struct {
	Now              time.Time
	OperationCounts  map[string]int
	PendingResponses int
	PendingAlarms    int
	ConnectedHosts   []string
	InShutdown       bool
}

// SnapshotState captures the current state without requiring the
// network role, since it is read-only and intended for use from test
// assertions on either side of the handoff.
func (n *NetworkInterfaceMock) SnapshotState() SnapshotState {
	n.mu.Lock()
	defer n.mu.Unlock()

	counts := make(map[string]int, 4)
	for state, c := range n.registry.countByState() {
		counts[state.String()] = c
	}

	return SnapshotState{
		Now:              n.clock.Now(),
		OperationCounts:  counts,
		PendingResponses: n.responses.Len(),
		PendingAlarms:    n.alarms.Len(),
		ConnectedHosts:   n.conns.hosts(),
		InShutdown:       n.coord.inShutdownInlock(),
	}
}

// GetDiagnosticString renders a one-line human-readable summary of the
// mock's state, in the spirit of the original's getDiagnosticString
// (used in test failure output, not parsed by anything).
func (n *NetworkInterfaceMock) GetDiagnosticString() string {
	s := n.SnapshotState()
	return fmt.Sprintf(
		"netmock now=%s shutdown=%v ops=%v pendingResponses=%d pendingAlarms=%d connected=%v",
		s.Now.Format(time.RFC3339Nano), s.InShutdown, s.OperationCounts, s.PendingResponses, s.PendingAlarms, s.ConnectedHosts,
	)
}
