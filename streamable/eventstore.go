// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamable

import (
	"context"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-streamable/internal/jsonrpc2"
)

// An EventStore records the events written to SSE streams so that a client
// reconnecting with a Last-Event-ID header can resume where it left off.
//
// Implementations must be safe for concurrent use. Event IDs must be unique
// within the store and strictly ordered within a stream.
type EventStore interface {
	// StoreEvent appends msg to the log for streamID and returns the event
	// ID assigned to it. The message must not be modified after the call.
	StoreEvent(ctx context.Context, streamID string, msg jsonrpc2.Message) (eventID string, err error)

	// ReplayEventsAfter calls send, in order, for every event stored
	// strictly after lastEventID, and returns the ID of the stream those
	// events belong to. It stops at the first send error.
	ReplayEventsAfter(ctx context.Context, lastEventID string, send func(eventID string, msg jsonrpc2.Message) error) (streamID string, err error)
}

// A MemoryEventStore is an in-memory EventStore.
//
// It is primarily intended for testing or simple deployments: it retains
// every event for the lifetime of the store.
type MemoryEventStore struct {
	mu      sync.Mutex
	streams map[string][]storedEvent
}

type storedEvent struct {
	id  string
	msg jsonrpc2.Message
}

// NewMemoryEventStore returns an empty MemoryEventStore.
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{streams: make(map[string][]storedEvent)}
}

// StoreEvent implements EventStore. Event IDs encode the stream ID and the
// event's index in the stream, as <streamID>_<index>.
func (s *MemoryEventStore) StoreEvent(ctx context.Context, streamID string, msg jsonrpc2.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := fmt.Sprintf("%s_%d", streamID, len(s.streams[streamID]))
	s.streams[streamID] = append(s.streams[streamID], storedEvent{id: id, msg: msg})
	return id, nil
}

// ReplayEventsAfter implements EventStore. The stream is located by scanning
// for lastEventID, so the ID remains opaque to callers.
func (s *MemoryEventStore) ReplayEventsAfter(ctx context.Context, lastEventID string, send func(string, jsonrpc2.Message) error) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	var (
		streamID string
		pending  []storedEvent
	)
	for sid, events := range s.streams {
		for i, evt := range events {
			if evt.id == lastEventID {
				streamID = sid
				pending = append(pending, events[i+1:]...)
				break
			}
		}
		if streamID != "" {
			break
		}
	}
	s.mu.Unlock()
	if streamID == "" {
		return "", fmt.Errorf("unknown event ID %q", lastEventID)
	}
	for _, evt := range pending {
		if err := send(evt.id, evt.msg); err != nil {
			return streamID, err
		}
	}
	return streamID, nil
}
