package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/sketchbook/internal/event"
)

// marshalJSON encodes v with HTML escaping disabled so stored payloads stay
// byte-identical to what the sketch produced.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// marshalPath converts event path segments to a JSON array for storage.
func marshalPath(path []string) (string, error) {
	if path == nil {
		path = []string{}
	}
	data, err := marshalJSON(path)
	if err != nil {
		return "", fmt.Errorf("marshal path: %w", err)
	}
	return data, nil
}

// marshalPayload maps an absent payload to NULL. An empty payload is
// stored as the empty string.
func marshalPayload(ev event.Event) sql.NullString {
	payload, ok := ev.Payload()
	return sql.NullString{String: payload, Valid: ok}
}

// marshalEvent converts an event to its JSON form ({"path":[...],"payload":...}).
func marshalEvent(ev event.Event) (string, error) {
	data, err := marshalJSON(ev)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

func unmarshalPath(data string) ([]string, error) {
	var path []string
	if err := json.Unmarshal([]byte(data), &path); err != nil {
		return nil, fmt.Errorf("unmarshal path: %w", err)
	}
	return path, nil
}

func unmarshalEvent(data string) (event.Event, error) {
	var ev event.Event
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return event.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return ev, nil
}

// rebuildEvent reassembles an event from its path column and nullable
// payload column.
func rebuildEvent(pathJSON string, payload sql.NullString) (event.Event, error) {
	path, err := unmarshalPath(pathJSON)
	if err != nil {
		return event.Event{}, err
	}
	if payload.Valid {
		return event.New(payload.String, path...), nil
	}
	return event.At(path...), nil
}
