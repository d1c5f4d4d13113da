package netmock

// ConnectionHook validates the simulated handshake with a host the mock
// has not seen before, and may optionally emit a follow-up request that
// must complete before the user's original request is released (§4.7).
type ConnectionHook interface {
	// ValidateHost is invoked with the canned handshake reply for host
	// (from the per-host map, or a default empty success). Returning a
	// non-OK status fails the pending user operation with that status.
	ValidateHost(host string, handshakeReply RemoteCommandResponse) Status

	// RequestOnHandshakeComplete may return a follow-up request to
	// enqueue ahead of the user's; (RemoteCommandRequest{}, false)
	// means no follow-up is needed.
	RequestOnHandshakeComplete(host string) (RemoteCommandRequest, bool)
}

// MetadataHook decorates outgoing requests and inspects incoming
// responses (§4.7). Either method may be nil-safe no-ops by using
// NoopMetadataHook.
type MetadataHook interface {
	WriteRequestMetadata(req *RemoteCommandRequest)
	ReadReplyMetadata(resp *RemoteCommandResponse)
}

// NoopConnectionHook accepts every handshake unconditionally and never
// emits a follow-up request. It is the default when no hook is set.
type NoopConnectionHook struct{}

func (NoopConnectionHook) ValidateHost(string, RemoteCommandResponse) Status { return StatusOK }
func (NoopConnectionHook) RequestOnHandshakeComplete(string) (RemoteCommandRequest, bool) {
	return RemoteCommandRequest{}, false
}

// NoopMetadataHook decorates nothing and inspects nothing.
type NoopMetadataHook struct{}

func (NoopMetadataHook) WriteRequestMetadata(*RemoteCommandRequest) {}
func (NoopMetadataHook) ReadReplyMetadata(*RemoteCommandResponse) {}

// connectionTable is the set of hosts that have completed the
// simulated handshake, plus the per-host canned handshake reply used by
// the connection hook's validator (§3).
type connectionTable struct {
	connected        map[string]struct{}
	handshakeReplies map[string]RemoteCommandResponse
}

func newConnectionTable() *connectionTable {
	return &connectionTable{
		connected:        make(map[string]struct{}),
		handshakeReplies: make(map[string]RemoteCommandResponse),
	}
}

func (c *connectionTable) isConnected(host string) bool {
	_, ok := c.connected[host]
	return ok
}

func (c *connectionTable) markConnected(host string) {
	c.connected[host] = struct{}{}
}

// handshakeReplyFor returns the canned reply for host, or a default
// empty success if none was set via setHandshakeReplyForHost (§4.7).
func (c *connectionTable) handshakeReplyFor(host string) RemoteCommandResponse {
	if r, ok := c.handshakeReplies[host]; ok {
		return r
	}
	return RemoteCommandResponse{Status: StatusOK}
}

func (c *connectionTable) setHandshakeReply(host string, reply RemoteCommandResponse) {
	c.handshakeReplies[host] = reply
}

// hosts returns the set of known (connected) hosts, for diagnostics.
func (c *connectionTable) hosts() []string {
	out := make([]string, 0, len(c.connected))
	for h := range c.connected {
		out = append(out, h)
	}
	return out
}
