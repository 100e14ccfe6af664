// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package streamable implements the server side of the streamable HTTP
// transport for the Model Context Protocol (MCP): a bidirectional JSON-RPC
// 2.0 transport over HTTP that answers each POST with either a single JSON
// response or a server-sent event stream, supports a long-lived GET stream
// for server-initiated messages, and can resume SSE streams from a stored
// event log.
//
// The transport carries messages; it does not interpret them. The layer
// above receives inbound messages through [ServerTransport.OnMessage] and
// delivers outbound ones through [ServerTransport.Send].
//
// [MCP spec]: https://modelcontextprotocol.io/specification/2025-03-26/basic/transports#streamable-http
package streamable

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"mime"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"

	"github.com/modelcontextprotocol/go-streamable/internal/jsonrpc2"
)

const methodInitialize = "initialize"

// defaultKeepAliveInterval is the keep-alive period used when the option is
// left at its zero value.
const defaultKeepAliveInterval = 25 * time.Second

// ServerTransportOptions configures a [ServerTransport].
type ServerTransportOptions struct {
	// SessionIDGenerator returns a fresh opaque session ID. It is invoked
	// once, when the initialization request arrives. If nil, the transport
	// runs in stateless mode: no session ID is assigned and the
	// Mcp-Session-Id header is not validated.
	SessionIDGenerator func() string

	// OnSessionInitialized, if set, is invoked with the assigned session ID
	// after a successful initialization request. In stateless mode the ID is
	// empty.
	OnSessionInitialized func(sessionID string)

	// EnableJSONResponse makes POSTs that contain requests answer with a
	// single buffered application/json body instead of an SSE stream.
	EnableJSONResponse bool

	// EventStore, if set, records every SSE event so that clients can
	// resume a broken stream with the Last-Event-ID header. Without a
	// store, SSE frames carry no IDs and no replay is offered.
	EventStore EventStore

	// KeepAliveInterval is the period between keep-alive comments written
	// to idle SSE streams. The zero value means 25 seconds; a negative
	// value disables keep-alives.
	KeepAliveInterval time.Duration

	// MaxBodyBytes bounds POST request bodies. The zero value means
	// DefaultMaxBodyBytes; a negative value removes the limit.
	MaxBodyBytes int64

	// Logger receives transport diagnostics. Message payloads are never
	// logged. If nil, logging is disabled.
	Logger *slog.Logger
}

// A ServerTransport is one server-side streamable HTTP session.
//
// The callback fields must be set before [ServerTransport.Start] and not
// modified afterward. All other methods are safe for concurrent use.
type ServerTransport struct {
	// OnMessage receives every JSON-RPC message the client POSTs, one call
	// per message, in batch order. It must not block indefinitely. If nil,
	// inbound messages are dropped.
	OnMessage func(msg jsonrpc2.Message)

	// OnError receives internal invariant breaches, such as a Send for a
	// request whose stream is gone. Client protocol violations are answered
	// over HTTP and do not reach OnError.
	OnError func(err error)

	// OnClose is invoked once, after Close has torn down every stream.
	OnClose func()

	onSessionInitialized func(string)
	enableJSONResponse   bool
	eventStore           EventStore
	keepAliveInterval    time.Duration
	maxBodyBytes         int64
	logger               *slog.Logger

	// sessionHook and closeHook let the multi-session HTTPHandler track the
	// transport's lifecycle; they run before the user callbacks.
	sessionHook func(sessionID string)
	closeHook   func()

	mu             sync.Mutex
	started        bool
	closed         bool
	session        sessionState
	streams        map[string]*stream     // stream ID -> open stream
	requestStreams map[jsonrpc2.ID]string // request ID -> stream ID
}

// NewServerTransport creates a transport for a single session. opts may be
// nil, which yields a stateless transport with default limits.
func NewServerTransport(opts *ServerTransportOptions) *ServerTransport {
	t := &ServerTransport{
		keepAliveInterval: defaultKeepAliveInterval,
		logger:            slog.New(slog.DiscardHandler),
		streams:           make(map[string]*stream),
		requestStreams:    make(map[jsonrpc2.ID]string),
	}
	if opts != nil {
		t.session.generator = opts.SessionIDGenerator
		t.onSessionInitialized = opts.OnSessionInitialized
		t.enableJSONResponse = opts.EnableJSONResponse
		t.eventStore = opts.EventStore
		t.maxBodyBytes = opts.MaxBodyBytes
		if opts.KeepAliveInterval != 0 {
			t.keepAliveInterval = opts.KeepAliveInterval
		}
		if opts.Logger != nil {
			t.logger = opts.Logger
		}
	}
	return t
}

// Start makes the transport ready to serve requests. It returns an error if
// the transport was already started or closed.
func (t *ServerTransport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("streamable: transport is closed")
	}
	if t.started {
		return fmt.Errorf("streamable: transport already started")
	}
	t.started = true
	return nil
}

// SessionID returns the session ID assigned during initialization, or the
// empty string before initialization and in stateless mode.
func (t *ServerTransport) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.id
}

// Handle serves one HTTP request through the generic adapter. It blocks for
// the lifetime of the response: for SSE responses, until the stream
// completes, the client disconnects, or the transport closes.
//
// net/http callers use [ServerTransport.ServeHTTP] instead.
func (t *ServerTransport) Handle(req *Request, sink ResponseSink) {
	defer sink.Close()

	t.mu.Lock()
	started, closed := t.started, t.closed
	t.mu.Unlock()
	if closed {
		writeError(sink, http.StatusBadRequest, codeTransportError, "Bad Request: Transport is closed")
		return
	}
	if !started {
		writeError(sink, http.StatusInternalServerError, codeTransportError, "Internal Server Error: Transport not started")
		return
	}

	switch req.Method {
	case http.MethodPost:
		t.handlePOST(req, sink)
	case http.MethodGet:
		t.handleGET(req, sink)
	case http.MethodDelete:
		t.handleDELETE(req, sink)
	default:
		sink.Header().Set("Allow", "GET, POST, DELETE")
		writeError(sink, http.StatusMethodNotAllowed, codeTransportError, "Method Not Allowed")
	}
}

// accepts reports whether the request's Accept header covers every media
// type in want. Parameters (;q=...) are ignored; */* matches anything.
func accepts(header http.Header, want ...string) bool {
	var accepted []string
	for _, v := range header.Values("Accept") {
		accepted = append(accepted, strings.Split(v, ",")...)
	}
	for _, w := range want {
		ok := false
		for _, a := range accepted {
			mt := strings.TrimSpace(a)
			if i := strings.IndexByte(mt, ';'); i >= 0 {
				mt = strings.TrimSpace(mt[:i])
			}
			if mt == w || mt == "*/*" {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func (t *ServerTransport) handlePOST(req *Request, sink ResponseSink) {
	if !accepts(req.Header, "application/json", "text/event-stream") {
		writeError(sink, http.StatusNotAcceptable, codeTransportError,
			"Not Acceptable: Client must accept both application/json and text/event-stream")
		return
	}
	mt, _, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err != nil || mt != "application/json" {
		writeError(sink, http.StatusUnsupportedMediaType, codeTransportError,
			"Unsupported Media Type: Content-Type must be application/json")
		return
	}

	body, err := t.readBody(req)
	if err != nil {
		if isMaxBytesError(err) {
			writeRequestBodyTooLarge(sink)
			return
		}
		writeError(sink, http.StatusBadRequest, codeParseError, "Parse error: failed to read body")
		return
	}
	msgs, _, err := readBatch(body)
	if err != nil {
		writeError(sink, http.StatusBadRequest, codeParseError, "Parse error: "+err.Error())
		return
	}

	isInit := false
	for _, m := range msgs {
		if isInitialize(m) {
			isInit = true
		}
	}
	if isInit {
		if len(msgs) > 1 {
			writeError(sink, http.StatusBadRequest, codeInvalidRequest,
				"Invalid Request: Only one initialization request is allowed")
			return
		}
		t.mu.Lock()
		sid, rerr := t.session.initialize()
		t.mu.Unlock()
		if rerr != nil {
			writeRequestError(sink, rerr)
			return
		}
		if hook := t.sessionHook; hook != nil && sid != "" {
			hook(sid)
		}
		if cb := t.onSessionInitialized; cb != nil {
			cb(sid)
		}
	} else {
		t.mu.Lock()
		rerr := t.session.validate(req.Header.Get(sessionIDHeader))
		t.mu.Unlock()
		if rerr != nil {
			writeRequestError(sink, rerr)
			return
		}
	}

	var requestIDs []jsonrpc2.ID
	for _, m := range msgs {
		if r, ok := m.(*jsonrpc2.Request); ok && r.IsCall() {
			requestIDs = append(requestIDs, r.ID)
		}
	}

	// Only notifications and responses: acknowledge, then hand everything
	// to the upper layer.
	if len(requestIDs) == 0 {
		if sid := t.SessionID(); sid != "" {
			sink.Header().Set(sessionIDHeader, sid)
		}
		sink.WriteStatus(http.StatusAccepted)
		for _, m := range msgs {
			t.deliver(m)
		}
		return
	}

	s := newStream(uuid.NewString(), sink, t.enableJSONResponse, requestIDs)
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		writeError(sink, http.StatusBadRequest, codeTransportError, "Bad Request: Transport is closed")
		return
	}
	t.streams[s.id] = s
	for _, id := range requestIDs {
		t.requestStreams[id] = s.id
	}
	t.mu.Unlock()

	if s.jsonResponse {
		h := sink.Header()
		h.Set("Content-Type", "application/json")
		if sid := t.SessionID(); sid != "" {
			h.Set(sessionIDHeader, sid)
		}
		// Status and body are written when the last response arrives.
	} else {
		t.setSSEHeaders(sink)
		sink.WriteStatus(http.StatusOK)
		sink.Flush()
		t.startKeepAlive(s)
	}

	for _, m := range msgs {
		t.deliver(m)
	}

	select {
	case <-s.done:
	case <-req.context().Done():
		t.dropStream(s)
	}
}

func (t *ServerTransport) handleGET(req *Request, sink ResponseSink) {
	if !accepts(req.Header, "text/event-stream") {
		writeError(sink, http.StatusNotAcceptable, codeTransportError,
			"Not Acceptable: Client must accept text/event-stream")
		return
	}
	t.mu.Lock()
	rerr := t.session.validate(req.Header.Get(sessionIDHeader))
	t.mu.Unlock()
	if rerr != nil {
		writeRequestError(sink, rerr)
		return
	}

	if lastEventID := req.Header.Get("Last-Event-ID"); lastEventID != "" && t.eventStore != nil {
		t.handleResume(req, sink, lastEventID)
		return
	}

	s := newStream(standaloneStreamID, sink, false, nil)
	// Hold the stream's write lock until the headers are committed, so a
	// concurrent Send cannot write a frame before the status.
	s.writeMu.Lock()
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		s.writeMu.Unlock()
		writeError(sink, http.StatusBadRequest, codeTransportError, "Bad Request: Transport is closed")
		return
	}
	if _, ok := t.streams[standaloneStreamID]; ok {
		t.mu.Unlock()
		s.writeMu.Unlock()
		writeError(sink, http.StatusConflict, codeTransportError,
			"Conflict: Only one SSE stream is allowed per session")
		return
	}
	t.streams[standaloneStreamID] = s
	t.mu.Unlock()

	t.setSSEHeaders(sink)
	sink.WriteStatus(http.StatusOK)
	sink.Flush()
	s.writeMu.Unlock()
	t.startKeepAlive(s)

	select {
	case <-s.done:
	case <-req.context().Done():
		t.dropStream(s)
	}
}

// handleResume re-attaches a client to the stream holding lastEventID:
// events after it are replayed from the store, and the stream then stays
// open under the replayed stream's ID until the client disconnects or the
// transport closes. New messages reach it only when that ID is the
// standalone GET stream's; no requests are routed to a resumed response
// stream.
func (t *ServerTransport) handleResume(req *Request, sink ResponseSink, lastEventID string) {
	t.setSSEHeaders(sink)
	sink.WriteStatus(http.StatusOK)
	sink.Flush()

	s := newStream("", sink, false, nil)
	streamID, err := t.eventStore.ReplayEventsAfter(req.context(), lastEventID, func(eventID string, msg jsonrpc2.Message) error {
		data, err := jsonrpc2.EncodeMessage(msg)
		if err != nil {
			return err
		}
		if !s.writeSSE(event{name: "message", id: eventID, data: data}) {
			return io.ErrClosedPipe
		}
		return nil
	})
	if err != nil {
		t.logger.Warn("streamable: event replay failed", "lastEventID", lastEventID, "err", err)
		return
	}

	s.id = streamID
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if _, ok := t.streams[streamID]; ok {
		// The original response stream is still attached; refuse to shadow it.
		t.mu.Unlock()
		t.logger.Warn("streamable: resumed stream conflicts with an open stream", "stream", streamID)
		return
	}
	t.streams[streamID] = s
	t.mu.Unlock()
	t.startKeepAlive(s)

	select {
	case <-s.done:
	case <-req.context().Done():
		t.dropStream(s)
	}
}

func (t *ServerTransport) handleDELETE(req *Request, sink ResponseSink) {
	t.mu.Lock()
	rerr := t.session.validate(req.Header.Get(sessionIDHeader))
	t.mu.Unlock()
	if rerr != nil {
		writeRequestError(sink, rerr)
		return
	}
	t.Close()
	sink.WriteStatus(http.StatusOK)
}

// Send delivers a server-to-client message.
//
// Responses are routed to the stream of the request they answer. Other
// messages are routed by related: the ID of the inbound request that caused
// them, or the zero ID to target the standalone GET stream. Messages for
// the standalone stream are dropped silently when no GET stream is open.
//
// Send returns an error, and invokes OnError, when the message answers a
// request whose stream is gone (for example after a client disconnect).
func (t *ServerTransport) Send(ctx context.Context, msg jsonrpc2.Message, related jsonrpc2.ID) error {
	resp, isResponse := msg.(*jsonrpc2.Response)
	key := related
	if isResponse {
		key = resp.ID
	}

	if !key.IsValid() {
		if isResponse {
			err := fmt.Errorf("streamable: response without a request ID cannot target the standalone stream")
			t.reportError(err)
			return err
		}
		return t.sendStandalone(ctx, msg)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("streamable: transport is closed")
	}
	var s *stream
	if streamID, ok := t.requestStreams[key]; ok {
		s = t.streams[streamID]
	}
	if s == nil {
		t.mu.Unlock()
		err := fmt.Errorf("streamable: no open stream for request %v", key)
		t.reportError(err)
		return err
	}
	complete := false
	if isResponse {
		s.responses[key] = msg
		complete = len(s.responses) == len(s.requests)
		if complete {
			t.purgeLocked(s)
		}
	}
	t.mu.Unlock()

	if s.jsonResponse {
		if !isResponse {
			// A buffered JSON response cannot interleave notifications.
			t.logger.Debug("streamable: dropping non-response message for JSON-mode request")
			return nil
		}
		if !complete {
			return nil
		}
		return t.finishJSONStream(s)
	}

	var eventID string
	if t.eventStore != nil {
		var err error
		eventID, err = t.eventStore.StoreEvent(ctx, s.id, msg)
		if err != nil {
			return fmt.Errorf("streamable: storing event: %w", err)
		}
	}
	data, err := jsonrpc2.EncodeMessage(msg)
	if err != nil {
		return err
	}
	if !s.writeSSE(event{name: "message", id: eventID, data: data}) {
		// Client gone; tear down quietly.
		t.dropStream(s)
		return nil
	}
	if complete {
		s.finish()
	}
	return nil
}

// sendStandalone writes msg to the standalone GET stream, if one is open.
func (t *ServerTransport) sendStandalone(ctx context.Context, msg jsonrpc2.Message) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("streamable: transport is closed")
	}
	s := t.streams[standaloneStreamID]
	t.mu.Unlock()
	if s == nil {
		t.logger.Debug("streamable: no standalone stream; dropping message")
		return nil
	}
	var eventID string
	if t.eventStore != nil {
		var err error
		eventID, err = t.eventStore.StoreEvent(ctx, s.id, msg)
		if err != nil {
			return fmt.Errorf("streamable: storing event: %w", err)
		}
	}
	data, err := jsonrpc2.EncodeMessage(msg)
	if err != nil {
		return err
	}
	if !s.writeSSE(event{name: "message", id: eventID, data: data}) {
		t.dropStream(s)
	}
	return nil
}

// finishJSONStream writes the buffered JSON response body: a single object
// when the POST carried one request, else an array in input order.
func (t *ServerTransport) finishJSONStream(s *stream) error {
	var body []byte
	if len(s.requests) == 1 {
		data, err := jsonrpc2.EncodeMessage(s.responses[s.requests[0]])
		if err != nil {
			return err
		}
		body = data
	} else {
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, id := range s.requests {
			if i > 0 {
				buf.WriteByte(',')
			}
			data, err := jsonrpc2.EncodeMessage(s.responses[id])
			if err != nil {
				return err
			}
			buf.Write(data)
		}
		buf.WriteByte(']')
		body = buf.Bytes()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.sink.WriteStatus(http.StatusOK)
	s.sink.Write(body)
	s.finish()
	return nil
}

// Close shuts the transport down: every open stream is released exactly
// once, all correlation state is cleared, and OnClose fires. Close is
// idempotent.
func (t *ServerTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	// Snapshot, then release outside the lock: finishing a stream unblocks
	// its request handler, which must not contend for transport state
	// mid-iteration.
	open := slices.Collect(maps.Values(t.streams))
	t.streams = make(map[string]*stream)
	t.requestStreams = make(map[jsonrpc2.ID]string)
	t.mu.Unlock()

	for _, s := range open {
		s.finish()
	}
	if hook := t.closeHook; hook != nil {
		hook()
	}
	if cb := t.OnClose; cb != nil {
		cb()
	}
	return nil
}

// dropStream removes s from the correlation maps and releases its handler.
// Requests that were routed to s become orphans: a later Send for them
// reports an error through OnError.
func (t *ServerTransport) dropStream(s *stream) {
	t.mu.Lock()
	if cur, ok := t.streams[s.id]; ok && cur == s {
		delete(t.streams, s.id)
		for id, sid := range t.requestStreams {
			if sid == s.id {
				delete(t.requestStreams, id)
			}
		}
	}
	t.mu.Unlock()
	s.finish()
}

// purgeLocked removes a completed stream's correlation state. The caller
// holds t.mu.
func (t *ServerTransport) purgeLocked(s *stream) {
	if cur, ok := t.streams[s.id]; ok && cur == s {
		delete(t.streams, s.id)
	}
	for _, id := range s.requests {
		delete(t.requestStreams, id)
	}
}

func (t *ServerTransport) setSSEHeaders(sink ResponseSink) {
	h := sink.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	if sid := t.SessionID(); sid != "" {
		h.Set(sessionIDHeader, sid)
	}
}

// deliver hands one inbound message to the upper layer.
func (t *ServerTransport) deliver(msg jsonrpc2.Message) {
	if cb := t.OnMessage; cb != nil {
		cb(msg)
		return
	}
	t.logger.Debug("streamable: no OnMessage handler; dropping inbound message")
}

func (t *ServerTransport) reportError(err error) {
	if cb := t.OnError; cb != nil {
		cb(err)
		return
	}
	t.logger.Warn("streamable: transport error", "err", err)
}

// readBody reads the request body, applying the configured size limit for
// adapters that did not already wrap the body (ServeHTTP does).
func (t *ServerTransport) readBody(req *Request) ([]byte, error) {
	if req.Body == nil {
		return nil, nil
	}
	limit := effectiveMaxBodyBytes(t.maxBodyBytes)
	r := req.Body
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if limit > 0 && int64(len(body)) > limit {
		return nil, &http.MaxBytesError{Limit: limit}
	}
	return body, nil
}

// readBatch parses a POST body: a single JSON-RPC message or a batch array.
// Batch decoding fails as a whole on any element error.
func readBatch(data []byte) (msgs []jsonrpc2.Message, batch bool, err error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("empty body")
	}
	if trimmed[0] != '[' {
		msg, err := jsonrpc2.DecodeMessage(data)
		if err != nil {
			return nil, false, err
		}
		return []jsonrpc2.Message{msg}, false, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, true, fmt.Errorf("invalid batch: %w", err)
	}
	if len(raw) == 0 {
		return nil, true, fmt.Errorf("empty batch")
	}
	msgs = make([]jsonrpc2.Message, 0, len(raw))
	for _, data := range raw {
		msg, err := jsonrpc2.DecodeMessage(data)
		if err != nil {
			return nil, true, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, true, nil
}

func isInitialize(msg jsonrpc2.Message) bool {
	req, ok := msg.(*jsonrpc2.Request)
	return ok && req.IsCall() && req.Method == methodInitialize
}
