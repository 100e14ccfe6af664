// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamable

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/modelcontextprotocol/go-streamable/internal/jsonrpc2"
)

func TestMemoryEventStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStore()

	var ids []string
	for i := range 3 {
		id, err := store.StoreEvent(ctx, "X", &jsonrpc2.Request{Method: fmt.Sprintf("n%d", i)})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	// A second stream must not perturb the first one's IDs.
	if _, err := store.StoreEvent(ctx, "Y", &jsonrpc2.Request{Method: "other"}); err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate event ID %q", id)
		}
		seen[id] = true
	}

	var (
		replayedIDs []string
		methods     []string
	)
	streamID, err := store.ReplayEventsAfter(ctx, ids[0], func(eventID string, msg jsonrpc2.Message) error {
		replayedIDs = append(replayedIDs, eventID)
		methods = append(methods, msg.(*jsonrpc2.Request).Method)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if streamID != "X" {
		t.Errorf("stream ID: got %q, want %q", streamID, "X")
	}
	if diff := cmp.Diff(ids[1:], replayedIDs); diff != "" {
		t.Errorf("replayed IDs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"n1", "n2"}, methods); diff != "" {
		t.Errorf("replayed methods mismatch (-want +got):\n%s", diff)
	}

	// Replaying after the last event yields nothing, but still names the stream.
	streamID, err = store.ReplayEventsAfter(ctx, ids[2], func(string, jsonrpc2.Message) error {
		t.Error("unexpected replay past the last event")
		return nil
	})
	if err != nil || streamID != "X" {
		t.Errorf("ReplayEventsAfter(last) = %q, %v; want \"X\", nil", streamID, err)
	}

	if _, err := store.ReplayEventsAfter(ctx, "bogus", func(string, jsonrpc2.Message) error { return nil }); err == nil {
		t.Error("ReplayEventsAfter with unknown ID should fail")
	}
}

func TestMemoryEventStoreStopsOnSendError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStore()
	var ids []string
	for i := range 3 {
		id, err := store.StoreEvent(ctx, "S", &jsonrpc2.Request{Method: fmt.Sprintf("n%d", i)})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	calls := 0
	_, err := store.ReplayEventsAfter(ctx, ids[0], func(string, jsonrpc2.Message) error {
		calls++
		return fmt.Errorf("sink gone")
	})
	if err == nil {
		t.Error("want error from failed send")
	}
	if calls != 1 {
		t.Errorf("send called %d times after failure, want 1", calls)
	}
}
