// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package jsonrpc2

import (
	"strings"
	"testing"
)

func TestStrictValidate(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string // empty means valid
	}{
		{"valid request", `{"jsonrpc":"2.0","id":1,"method":"ping","params":{}}`, ""},
		{"valid response", `{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`, ""},
		{"nested keys ignored", `{"jsonrpc":"2.0","id":1,"method":"m","params":{"Method":"x","ID":[{"Id":1}]}}`, ""},
		{"non-object", `[1,2,3]`, ""},
		{"case-variant duplicate", `{"method":"a","Method":"b","jsonrpc":"2.0"}`, "duplicate key"},
		{"miscased jsonrpc", `{"JSONRPC":"2.0","id":1,"method":"m"}`, "must be spelled"},
		{"miscased id", `{"jsonrpc":"2.0","Id":1,"method":"m"}`, "must be spelled"},
		{"truncated", `{"jsonrpc":`, "invalid message"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := StrictValidate([]byte(test.data))
			if test.wantErr == "" {
				if err != nil {
					t.Errorf("StrictValidate(%q) = %v, want nil", test.data, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("StrictValidate(%q) = %v, want error containing %q", test.data, err, test.wantErr)
			}
		})
	}
}
