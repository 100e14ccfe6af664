// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package jsonrpc2

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var msgCmpOpts = []cmp.Option{
	cmp.AllowUnexported(ID{}),
	cmpopts.EquateEmpty(),
}

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Message
	}{
		{
			"request",
			`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
			&Request{ID: Int64ID(1), Method: "initialize", Params: []byte(`{}`)},
		},
		{
			"string id",
			`{"jsonrpc":"2.0","id":"abc","method":"ping"}`,
			&Request{ID: StringID("abc"), Method: "ping"},
		},
		{
			"notification",
			`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
			&Request{Method: "notifications/initialized"},
		},
		{
			"response",
			`{"jsonrpc":"2.0","id":2,"result":{"ok":true}}`,
			&Response{ID: Int64ID(2), Result: []byte(`{"ok":true}`)},
		},
		{
			"null result",
			`{"jsonrpc":"2.0","id":2,"result":null}`,
			&Response{ID: Int64ID(2), Result: []byte(`null`)},
		},
		{
			"error",
			`{"jsonrpc":"2.0","id":3,"error":{"code":-32000,"message":"boom"}}`,
			&Response{ID: Int64ID(3), Error: &WireError{Code: -32000, Message: "boom"}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := DecodeMessage([]byte(test.data))
			if err != nil {
				t.Fatalf("DecodeMessage(%q) failed: %v", test.data, err)
			}
			if diff := cmp.Diff(test.want, got, msgCmpOpts...); diff != "" {
				t.Errorf("DecodeMessage(%q) mismatch (-want +got):\n%s", test.data, diff)
			}
		})
	}
}

func TestDecodeMessageErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"m"}`},
		{"missing version", `{"id":1,"method":"m"}`},
		{"no method or result", `{"jsonrpc":"2.0","id":1}`},
		{"fractional id", `{"jsonrpc":"2.0","id":1.5,"method":"m"}`},
		{"object id", `{"jsonrpc":"2.0","id":{},"method":"m"}`},
		{"case-variant keys", `{"jsonrpc":"2.0","id":1,"Id":2,"method":"m"}`},
		{"miscased member", `{"jsonrpc":"2.0","ID":1,"method":"m"}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if msg, err := DecodeMessage([]byte(test.data)); err == nil {
				t.Errorf("DecodeMessage(%q) = %#v, want error", test.data, msg)
			}
		})
	}
}

func TestEncodeMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{
			"response",
			&Response{ID: Int64ID(1), Result: []byte(`{"ok":true}`)},
			`{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`,
		},
		{
			"empty result",
			&Response{ID: StringID("x")},
			`{"jsonrpc":"2.0","id":"x","result":null}`,
		},
		{
			"error with null id",
			&Response{Error: NewError(CodeTransportError, "Bad Request")},
			`{"jsonrpc":"2.0","id":null,"error":{"code":-32000,"message":"Bad Request"}}`,
		},
		{
			"request",
			&Request{ID: Int64ID(7), Method: "ping"},
			`{"jsonrpc":"2.0","id":7,"method":"ping"}`,
		},
		{
			"notification",
			&Request{Method: "notifications/progress", Params: []byte(`{"n":1}`)},
			`{"jsonrpc":"2.0","method":"notifications/progress","params":{"n":1}}`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := EncodeMessage(test.msg)
			if err != nil {
				t.Fatalf("EncodeMessage failed: %v", err)
			}
			if string(got) != test.want {
				t.Errorf("EncodeMessage = %s, want %s", got, test.want)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msgs := []Message{
		&Request{ID: Int64ID(42), Method: "tools/call", Params: []byte(`{"name":"greet"}`)},
		&Request{Method: "notifications/cancelled"},
		&Response{ID: StringID("s"), Result: []byte(`[1,2,3]`)},
		&Response{ID: Int64ID(9), Error: &WireError{Code: -32600, Message: "bad", Data: []byte(`"detail"`)}},
	}
	for _, msg := range msgs {
		data, err := EncodeMessage(msg)
		if err != nil {
			t.Fatalf("EncodeMessage failed: %v", err)
		}
		got, err := DecodeMessage(data)
		if err != nil {
			t.Fatalf("DecodeMessage(%s) failed: %v", data, err)
		}
		if diff := cmp.Diff(msg, got, msgCmpOpts...); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestIDValidity(t *testing.T) {
	if (ID{}).IsValid() {
		t.Error("zero ID should be invalid")
	}
	if !Int64ID(0).IsValid() {
		t.Error("Int64ID(0) should be valid")
	}
	if !StringID("").IsValid() {
		t.Error("StringID(\"\") should be valid")
	}
	if Int64ID(1) != Int64ID(1) {
		t.Error("equal IDs should compare equal")
	}
}
