// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamable

import "github.com/modelcontextprotocol/go-streamable/internal/jsonrpc2"

// The JSON-RPC message types are implemented in an internal package and
// aliased here, so that the wire representation can evolve without breaking
// the public surface.

// A JSONRPCMessage is either a *JSONRPCRequest or a *JSONRPCResponse.
type JSONRPCMessage = jsonrpc2.Message

// A JSONRPCRequest is a JSON-RPC request or notification.
type JSONRPCRequest = jsonrpc2.Request

// A JSONRPCResponse is a JSON-RPC response or error.
type JSONRPCResponse = jsonrpc2.Response

// A JSONRPCID identifies a JSON-RPC request. The zero value marks
// notifications.
type JSONRPCID = jsonrpc2.ID

// A WireError is the error object of a JSON-RPC response.
type WireError = jsonrpc2.WireError

// StringID returns a string-valued request ID.
func StringID(s string) JSONRPCID { return jsonrpc2.StringID(s) }

// Int64ID returns an integer-valued request ID.
func Int64ID(n int64) JSONRPCID { return jsonrpc2.Int64ID(n) }

// EncodeMessage serializes a JSON-RPC message as compact JSON.
func EncodeMessage(msg JSONRPCMessage) ([]byte, error) { return jsonrpc2.EncodeMessage(msg) }

// DecodeMessage parses and classifies a single JSON-RPC message.
func DecodeMessage(data []byte) (JSONRPCMessage, error) { return jsonrpc2.DecodeMessage(data) }
