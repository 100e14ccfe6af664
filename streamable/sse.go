// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package streamable

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"
)

// An event is a single server-sent event.
type event struct {
	name string
	id   string
	data []byte
}

// writeEvent writes one SSE frame to w:
//
//	event: <name>\n    (only when the event has a name)
//	id: <id>\n        (only when the event has an ID)
//	data: <data>\n
//	\n
//
// It returns the number of bytes written. The caller flushes.
func writeEvent(w io.Writer, evt event) (int, error) {
	var b bytes.Buffer
	if evt.name != "" {
		fmt.Fprintf(&b, "event: %s\n", evt.name)
	}
	if evt.id != "" {
		fmt.Fprintf(&b, "id: %s\n", evt.id)
	}
	fmt.Fprintf(&b, "data: %s\n\n", evt.data)
	return w.Write(b.Bytes())
}

// keepAliveComment formats the keep-alive frame sent on idle SSE streams: an
// SSE comment, which clients ignore.
func keepAliveComment(now time.Time) []byte {
	return fmt.Appendf(nil, ": keep-alive %s\n\n", now.UTC().Format(time.RFC3339))
}

// scanEvents iterates over the SSE events in r. Comment frames (such as
// keep-alives) are skipped. Iteration ends at EOF; any other read error is
// yielded with a zero event.
func scanEvents(r io.Reader) iter.Seq2[event, error] {
	return func(yield func(event, error) bool) {
		var (
			scanner = bufio.NewScanner(r)
			evt     event
			dirty   bool
		)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				if dirty && !yield(evt, nil) {
					return
				}
				evt, dirty = event{}, false
				continue
			}
			if strings.HasPrefix(line, ":") {
				continue
			}
			field, value, ok := strings.Cut(line, ":")
			if !ok {
				continue // field with no value; ignored
			}
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				evt.name = value
				dirty = true
			case "id":
				evt.id = value
				dirty = true
			case "data":
				if evt.data != nil {
					evt.data = append(evt.data, '\n')
				}
				evt.data = append(evt.data, value...)
				dirty = true
			}
		}
		if err := scanner.Err(); err != nil {
			yield(event{}, err)
			return
		}
		if dirty {
			yield(evt, nil)
		}
	}
}
