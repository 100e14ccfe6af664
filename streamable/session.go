// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamable

import "net/http"

// sessionIDHeader is the HTTP header carrying the session identifier.
const sessionIDHeader = "Mcp-Session-Id"

// sessionState tracks the initialization handshake and session identity of a
// single transport. It is guarded by the transport's mutex.
//
// In stateful mode (generator != nil), the first initialization request
// assigns a fresh session ID, which is echoed in the Mcp-Session-Id response
// header and required on every subsequent request. In stateless mode the
// generator is nil, no ID is assigned, and no session header is validated.
type sessionState struct {
	generator   func() string
	initialized bool
	id          string
}

func (s *sessionState) stateless() bool { return s.generator == nil }

// initialize marks the handshake complete and assigns the session ID. It
// returns an error if the session was already initialized with an ID.
func (s *sessionState) initialize() (string, *requestError) {
	if s.initialized && s.id != "" {
		return "", &requestError{
			status:  http.StatusBadRequest,
			code:    codeInvalidRequest,
			message: "Invalid Request: Server already initialized",
		}
	}
	if !s.stateless() {
		s.id = s.generator()
	}
	s.initialized = true
	return s.id, nil
}

// validate checks a non-initialization request against the session state,
// given the request's Mcp-Session-Id header value.
//
// The checks run in order: initialization gating first, then (stateful mode
// only) header presence and match. Stateless servers still require the
// initialization handshake before accepting other requests.
func (s *sessionState) validate(header string) *requestError {
	if !s.initialized {
		return &requestError{
			status:  http.StatusBadRequest,
			code:    codeTransportError,
			message: "Bad Request: Server not initialized",
		}
	}
	if s.stateless() {
		return nil
	}
	if header == "" {
		return &requestError{
			status:  http.StatusBadRequest,
			code:    codeTransportError,
			message: "Bad Request: Mcp-Session-Id header is required",
		}
	}
	if header != s.id {
		return &requestError{
			status:  http.StatusNotFound,
			code:    codeSessionNotFound,
			message: "Session not found",
		}
	}
	return nil
}
