// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamable

import (
	"net/http"
	"sync"
)

// An HTTPHandler is an http.Handler that serves many streamable sessions,
// keyed by the Mcp-Session-Id header. A request without a session header
// opens a new session: the handler creates a transport for it and the
// transport's initialization handshake assigns the ID.
//
// HTTPHandler is for stateful deployments; a stateless server binds a
// single [ServerTransport] directly.
type HTTPHandler struct {
	newTransport func(*http.Request) *ServerTransport

	mu         sync.Mutex
	closed     bool
	transports map[string]*ServerTransport // keyed by session ID
}

// NewHTTPHandler returns a handler that serves a session per client.
//
// newTransport constructs and wires the transport for a new session:
// typically [NewServerTransport] with a SessionIDGenerator and an OnMessage
// bound to the application. The handler starts the transport itself. It is
// OK for newTransport to return nil to refuse the connection.
func NewHTTPHandler(newTransport func(*http.Request) *ServerTransport) *HTTPHandler {
	return &HTTPHandler{
		newTransport: newTransport,
		transports:   make(map[string]*ServerTransport),
	}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if id := req.Header.Get(sessionIDHeader); id != "" {
		h.mu.Lock()
		t := h.transports[id]
		h.mu.Unlock()
		if t == nil {
			writeError(httpSink{w}, http.StatusNotFound, codeSessionNotFound, "Session not found")
			return
		}
		t.ServeHTTP(w, req)
		return
	}

	// No session header: only an initialization POST can open a session.
	// Anything else is served by the fresh transport, which rejects it with
	// the appropriate envelope.
	t := h.newTransport(req)
	if t == nil {
		writeError(httpSink{w}, http.StatusInternalServerError, codeTransportError,
			"Internal Server Error: failed to create session")
		return
	}
	t.sessionHook = func(sessionID string) {
		h.mu.Lock()
		if !h.closed {
			h.transports[sessionID] = t
		}
		h.mu.Unlock()
	}
	t.closeHook = func() {
		sessionID := t.SessionID()
		if sessionID == "" {
			return
		}
		h.mu.Lock()
		if h.transports[sessionID] == t {
			delete(h.transports, sessionID)
		}
		h.mu.Unlock()
	}
	if err := t.Start(); err != nil {
		writeError(httpSink{w}, http.StatusInternalServerError, codeTransportError,
			"Internal Server Error: failed to start session")
		return
	}
	t.ServeHTTP(w, req)
}

// Close shuts down every ongoing session.
func (h *HTTPHandler) Close() error {
	h.mu.Lock()
	h.closed = true
	open := make([]*ServerTransport, 0, len(h.transports))
	for _, t := range h.transports {
		open = append(open, t)
	}
	h.transports = make(map[string]*ServerTransport)
	h.mu.Unlock()
	for _, t := range open {
		t.Close()
	}
	return nil
}
