// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package jsonrpc2

import (
	"bytes"
	"encoding/json" // token scanning only; the codec hot path uses segmentio
	"fmt"
	"strings"
)

// envelopeKeys are the members a JSON-RPC 2.0 message may carry, with the
// exact spelling the spec requires.
var envelopeKeys = map[string]bool{
	"jsonrpc": true,
	"id":      true,
	"method":  true,
	"params":  true,
	"result":  true,
	"error":   true,
}

// StrictValidate checks the envelope of a JSON-RPC message:
//   - envelope members must match the spec's names case-sensitively
//   - duplicate keys differing only in case are rejected
//
// This prevents message smuggling that exploits Go's case-insensitive JSON
// unmarshalling, which violates JSON-RPC 2.0's case-sensitive field
// matching. Non-object payloads pass through; the decoder rejects them
// later.
func StrictValidate(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	if tok != json.Delim('{') {
		return nil
	}
	seen := make(map[string]string) // lowercase -> spelling first seen
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("invalid message: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("invalid message: non-string object key")
		}
		lower := strings.ToLower(key)
		if first, dup := seen[lower]; dup && first != key {
			return fmt.Errorf("invalid message: duplicate key with different case: %q and %q", first, key)
		}
		seen[lower] = key
		if envelopeKeys[lower] && !envelopeKeys[key] {
			return fmt.Errorf("invalid message: field %q must be spelled %q", key, lower)
		}
		if err := skipValue(dec); err != nil {
			return fmt.Errorf("invalid message: %w", err)
		}
	}
	return nil
}

// skipValue consumes one JSON value, including nested objects and arrays.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch tok {
	case json.Delim('{'), json.Delim('['):
		for dec.More() {
			if err := skipValue(dec); err != nil {
				return err
			}
		}
		_, err := dec.Token() // closing delimiter
		return err
	}
	return nil
}
