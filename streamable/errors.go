// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamable

import (
	"github.com/modelcontextprotocol/go-streamable/internal/jsonrpc2"
)

const (
	codeParseError      = jsonrpc2.CodeParseError
	codeInvalidRequest  = jsonrpc2.CodeInvalidRequest
	codeTransportError  = jsonrpc2.CodeTransportError
	codeSessionNotFound = jsonrpc2.CodeSessionNotFound
)

// A requestError is a transport-level rejection of one HTTP request. It is
// written to the client as a JSON-RPC error envelope with a null ID; it is
// not surfaced through OnError.
type requestError struct {
	status  int // HTTP status code
	code    int64
	message string
}

func (e *requestError) Error() string { return e.message }

// writeError writes a JSON-RPC error envelope for a transport-level failure:
//
//	{"jsonrpc":"2.0","id":null,"error":{"code":...,"message":...}}
func writeError(sink ResponseSink, status int, code int64, message string) {
	body, err := jsonrpc2.EncodeMessage(&jsonrpc2.Response{
		Error: jsonrpc2.NewError(code, message),
	})
	if err != nil {
		// Encoding a flat error envelope cannot fail; keep the status.
		body = nil
	}
	sink.Header().Set("Content-Type", "application/json")
	sink.WriteStatus(status)
	sink.Write(body)
}

func writeRequestError(sink ResponseSink, rerr *requestError) {
	writeError(sink, rerr.status, rerr.code, rerr.message)
}
