// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package jsonrpc2 implements the subset of JSON-RPC 2.0 needed by the
// streamable HTTP transport: typed messages, IDs, and a strict wire codec.
package jsonrpc2

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/segmentio/encoding/json"
)

// Error codes defined by JSON-RPC 2.0, plus the transport-level codes used
// by the streamable HTTP transport.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600

	// CodeTransportError is the generic code for transport-level failures
	// (bad headers, missing session, stream conflicts).
	CodeTransportError = -32000
	// CodeSessionNotFound reports a session ID that the server does not know.
	CodeSessionNotFound = -32001
)

// An ID is a JSON-RPC request identifier: a string, an integer, or absent.
// The zero value is the absent (invalid) ID.
//
// IDs are comparable and may be used as map keys.
type ID struct {
	value any // nil, string, or int64
}

// StringID returns an ID holding the string s.
func StringID(s string) ID { return ID{value: s} }

// Int64ID returns an ID holding the integer n.
func Int64ID(n int64) ID { return ID{value: n} }

// IsValid reports whether the ID is set. Notifications carry an invalid ID.
func (id ID) IsValid() bool { return id.value != nil }

// Raw returns the underlying value of the ID: a string, an int64, or nil.
func (id ID) Raw() any { return id.value }

func (id ID) String() string {
	switch v := id.value.(type) {
	case string:
		return strconv.Quote(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return "<nil>"
	}
}

// MarshalJSON encodes the ID as a JSON string, number, or null.
func (id ID) MarshalJSON() ([]byte, error) {
	switch v := id.value.(type) {
	case string:
		return json.Marshal(v)
	case int64:
		return strconv.AppendInt(nil, v, 10), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON string, integer, or null into the ID.
// Fractional numbers are rejected: JSON-RPC 2.0 says numeric IDs should not
// contain fractional parts, and a lossy float key would break correlation.
func (id *ID) UnmarshalJSON(data []byte) error { return id.unmarshal(data) }

func (id *ID) unmarshal(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ID{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid string ID: %w", err)
		}
		*id = ID{value: s}
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid ID %s: must be a string or an integer", data)
	}
	*id = ID{value: n}
	return nil
}

// A Message is either a *Request or a *Response.
type Message interface {
	isJSONRPCMessage()
}

// A Request is a JSON-RPC request or notification. It is a call if its ID is
// valid, and a notification otherwise.
type Request struct {
	ID     ID
	Method string
	Params json.RawMessage
}

func (*Request) isJSONRPCMessage() {}

// IsCall reports whether the request expects a response.
func (r *Request) IsCall() bool { return r.ID.IsValid() }

// A Response is a reply to a call: exactly one of Result and Error is
// meaningful. A transport-level error envelope is a Response with an invalid
// ID and a non-nil Error.
type Response struct {
	ID     ID
	Result json.RawMessage
	Error  *WireError
}

func (*Response) isJSONRPCMessage() {}

// A WireError is the error object of a JSON-RPC response.
type WireError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *WireError) Error() string { return e.Message }

// NewError returns a *WireError with the given code and message.
func NewError(code int64, message string) *WireError {
	return &WireError{Code: code, Message: message}
}

// wire shapes. Field order is fixed so that encoded messages are stable.

type wireRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type wireResultResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id"`
	Result  json.RawMessage `json:"result"`
}

type wireErrorResponse struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      ID         `json:"id"`
	Error   *WireError `json:"error"`
}

// EncodeMessage serializes msg as compact JSON.
func EncodeMessage(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case *Request:
		w := wireRequest{JSONRPC: "2.0", Method: m.Method, Params: m.Params}
		if m.ID.IsValid() {
			id, err := m.ID.MarshalJSON()
			if err != nil {
				return nil, err
			}
			w.ID = id
		}
		return json.Marshal(w)
	case *Response:
		if m.Error != nil {
			return json.Marshal(wireErrorResponse{JSONRPC: "2.0", ID: m.ID, Error: m.Error})
		}
		result := m.Result
		if result == nil {
			result = json.RawMessage("null")
		}
		return json.Marshal(wireResultResponse{JSONRPC: "2.0", ID: m.ID, Result: result})
	default:
		return nil, fmt.Errorf("unknown message type %T", msg)
	}
}

// wireCombined is the decoding shape covering every message kind.
type wireCombined struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	Result  json.RawMessage `json:"result"`
	Error   *WireError      `json:"error"`
}

// DecodeMessage parses a single JSON-RPC message, classifying it as a
// request, notification, or response. The envelope is validated strictly
// (see StrictValidate): field names are case-sensitive and case-variant
// duplicate keys are rejected.
func DecodeMessage(data []byte) (Message, error) {
	if err := StrictValidate(data); err != nil {
		return nil, err
	}
	var w wireCombined
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	if w.JSONRPC != "2.0" {
		return nil, fmt.Errorf("invalid message: jsonrpc version %q", w.JSONRPC)
	}
	var id ID
	if w.ID != nil {
		if err := id.unmarshal(w.ID); err != nil {
			return nil, fmt.Errorf("invalid message: %w", err)
		}
	}
	if w.Method != "" {
		return &Request{ID: id, Method: w.Method, Params: w.Params}, nil
	}
	if w.Error != nil {
		return &Response{ID: id, Error: w.Error}, nil
	}
	if w.Result != nil {
		return &Response{ID: id, Result: w.Result}, nil
	}
	return nil, fmt.Errorf("invalid message: no method, result, or error")
}
