// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamable

import (
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-streamable/internal/jsonrpc2"
)

// standaloneStreamID is the reserved ID of the single long-lived GET stream
// per session, used for server-initiated messages that correlate with no
// client request.
const standaloneStreamID = "_GET_stream"

// A stream is one registered HTTP response carrying JSON-RPC server
// messages: either an SSE stream or a buffered JSON response, discriminated
// by jsonResponse. Representing both behind one type keeps the routing in
// Send a total switch rather than two parallel maps.
//
// The identity fields and the sink are set before the stream is registered
// with the transport (a resumed stream learns its ID after replay). requests and
// responses are guarded by the transport's mutex; writes to the sink are
// serialized by writeMu.
type stream struct {
	id           string
	jsonResponse bool
	sink         ResponseSink

	// requests holds the IDs of the JSON-RPC requests routed to this
	// stream, in input order. It is empty for the standalone GET stream.
	requests []jsonrpc2.ID
	// responses accumulates the response for each request ID. The stream is
	// complete when every ID in requests has an entry.
	responses map[jsonrpc2.ID]jsonrpc2.Message

	writeMu sync.Mutex

	// done is closed exactly once, when the stream completes or is torn
	// down. The request handler blocks on it, and the keep-alive timer
	// stops with it.
	done      chan struct{}
	closeOnce sync.Once
}

func newStream(id string, sink ResponseSink, jsonResponse bool, requests []jsonrpc2.ID) *stream {
	return &stream{
		id:           id,
		jsonResponse: jsonResponse,
		sink:         sink,
		requests:     requests,
		responses:    make(map[jsonrpc2.ID]jsonrpc2.Message),
		done:         make(chan struct{}),
	}
}

// finish releases the request handler blocked on the stream and stops its
// keep-alive timer. Idempotent.
func (s *stream) finish() {
	s.closeOnce.Do(func() { close(s.done) })
}

// writeSSE writes one frame and flushes. It reports false when the write
// fails, meaning the client is gone.
func (s *stream) writeSSE(evt event) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := writeEvent(s.sink, evt); err != nil {
		return false
	}
	s.sink.Flush()
	return true
}

// writeKeepAlive writes a keep-alive comment, reporting false on failure.
func (s *stream) writeKeepAlive(now time.Time) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.sink.Write(keepAliveComment(now)); err != nil {
		return false
	}
	s.sink.Flush()
	return true
}

// startKeepAlive arms a periodic keep-alive timer for s, running until the
// stream is finished. A failed write tears the stream down: the client is
// treated as disconnected.
func (t *ServerTransport) startKeepAlive(s *stream) {
	interval := t.keepAliveInterval
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				if !s.writeKeepAlive(now) {
					t.dropStream(s)
					return
				}
			case <-s.done:
				return
			}
		}
	}()
}
