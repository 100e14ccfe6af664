// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamable

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestWriteEvent(t *testing.T) {
	tests := []struct {
		name string
		evt  event
		want string
	}{
		{
			"with id",
			event{name: "message", id: "s_1", data: []byte(`{"x":1}`)},
			"event: message\nid: s_1\ndata: {\"x\":1}\n\n",
		},
		{
			"without id",
			event{name: "message", data: []byte(`{}`)},
			"event: message\ndata: {}\n\n",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := writeEvent(&buf, test.evt)
			if err != nil {
				t.Fatal(err)
			}
			if got := buf.String(); got != test.want {
				t.Errorf("writeEvent:\ngot  %q\nwant %q", got, test.want)
			}
			if n != buf.Len() {
				t.Errorf("writeEvent returned %d bytes, wrote %d", n, buf.Len())
			}
		})
	}
}

func TestKeepAliveComment(t *testing.T) {
	now := time.Date(2025, 6, 18, 12, 30, 0, 0, time.UTC)
	want := ": keep-alive 2025-06-18T12:30:00Z\n\n"
	if got := string(keepAliveComment(now)); got != want {
		t.Errorf("keepAliveComment: got %q, want %q", got, want)
	}
	// Non-UTC times are rendered in UTC.
	est := time.FixedZone("EST", -5*3600)
	if got := string(keepAliveComment(now.In(est))); got != want {
		t.Errorf("keepAliveComment (EST): got %q, want %q", got, want)
	}
}

func TestScanEvents(t *testing.T) {
	input := strings.Join([]string{
		"event: message\nid: a_0\ndata: {\"n\":1}\n\n",
		": keep-alive 2025-06-18T12:30:00Z\n\n",
		"event: message\ndata: line1\ndata: line2\n\n",
	}, "")
	var got []event
	for evt, err := range scanEvents(strings.NewReader(input)) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, evt)
	}
	want := []event{
		{name: "message", id: "a_0", data: []byte(`{"n":1}`)},
		{name: "message", data: []byte("line1\nline2")},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(event{})); diff != "" {
		t.Errorf("scanEvents mismatch (-want +got):\n%s", diff)
	}
}

func TestScanEventsRoundTrip(t *testing.T) {
	events := []event{
		{name: "message", id: "x_0", data: []byte(`{"jsonrpc":"2.0","method":"a"}`)},
		{name: "message", data: []byte(`{"jsonrpc":"2.0","id":1,"result":null}`)},
	}
	var buf bytes.Buffer
	for _, evt := range events {
		if _, err := writeEvent(&buf, evt); err != nil {
			t.Fatal(err)
		}
	}
	var got []event
	for evt, err := range scanEvents(&buf) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, evt)
	}
	if diff := cmp.Diff(events, got, cmp.AllowUnexported(event{})); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
