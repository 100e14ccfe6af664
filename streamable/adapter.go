// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamable

import (
	"context"
	"io"
	"net/http"
)

// A Request is the transport's view of one incoming HTTP request. It is
// deliberately small so the transport can be bound to HTTP stacks other than
// net/http; [ServerTransport.ServeHTTP] provides the net/http binding.
type Request struct {
	// Method is the HTTP method, e.g. "POST".
	Method string
	// Header holds the request headers. Lookups are case-insensitive via
	// http.Header's canonical form.
	Header http.Header
	// Body is the request body. It is read at most once.
	Body io.Reader
	// Context carries the request lifetime: it is done when the client
	// disconnects. A nil Context behaves like context.Background().
	Context context.Context
}

func (r *Request) context() context.Context {
	if r.Context == nil {
		return context.Background()
	}
	return r.Context
}

// A ResponseSink is the write side of one HTTP response.
//
// Sinks may be buffered or streaming. A buffered sink concatenates writes
// and commits status, headers, and body when the request handling returns. A
// streaming sink commits status and headers on the first Flush and pushes
// each subsequent write to the wire. The transport signals streaming intent
// by setting Content-Type: text/event-stream and calling Flush before the
// first event; a sink that is never flushed may treat the response as
// buffered.
//
// A sink is owned by the transport from registration until the stream
// closes, and is never written from two goroutines at once.
type ResponseSink interface {
	// Header returns the response header map, mutable until WriteStatus.
	Header() http.Header
	// WriteStatus sets the response status code. It is called at most once,
	// before the first Write.
	WriteStatus(statusCode int)
	// Write appends body bytes.
	Write(p []byte) (int, error)
	// Flush pushes buffered bytes to the wire, best effort.
	Flush() error
	// Close marks the response complete. For adapters whose response ends
	// when the handler returns (net/http), Close may be a no-op.
	Close() error
}

// httpSink adapts an http.ResponseWriter to the ResponseSink interface.
type httpSink struct {
	w http.ResponseWriter
}

func (s httpSink) Header() http.Header        { return s.w.Header() }
func (s httpSink) WriteStatus(code int)       { s.w.WriteHeader(code) }
func (s httpSink) Write(p []byte) (int, error) { return s.w.Write(p) }

func (s httpSink) Flush() error {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// Close is a no-op: a net/http response ends when the handler returns.
func (s httpSink) Close() error { return nil }

// ServeHTTP implements http.Handler by binding the net/http request and
// response to the transport's generic adapter and dispatching to
// [ServerTransport.Handle]. The request body is capped per MaxBodyBytes.
func (t *ServerTransport) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var body io.Reader = req.Body
	if limit := effectiveMaxBodyBytes(t.maxBodyBytes); limit > 0 {
		body = http.MaxBytesReader(w, req.Body, limit)
	}
	t.Handle(&Request{
		Method:  req.Method,
		Header:  req.Header,
		Body:    body,
		Context: req.Context(),
	}, httpSink{w})
}
