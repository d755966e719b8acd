package remote

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// readEventStream parses a text/event-stream body and invokes onEvent per
// complete event. Only the "event" and "data" fields are used; comment lines
// (":" prefix) keep the connection alive and are skipped.
func readEventStream(r io.Reader, onEvent func(Event)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventType string
	var data strings.Builder

	flush := func() error {
		defer func() {
			eventType = ""
			data.Reset()
		}()
		if data.Len() == 0 {
			return nil
		}
		var payload struct {
			ID  string          `json:"id"`
			Doc json.RawMessage `json:"doc"`
		}
		if err := json.Unmarshal([]byte(data.String()), &payload); err != nil {
			return fmt.Errorf("malformed feed payload: %w", err)
		}
		onEvent(Event{Type: ChangeType(eventType), ID: payload.ID, Doc: payload.Doc})
		return nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if err := flush(); err != nil {
				return err
			}
		case strings.HasPrefix(line, ":"):
			// keep-alive comment
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}
