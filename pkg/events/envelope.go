package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformed = errors.New("malformed event envelope")

// fields holds a JSON object's members undecoded, so a member of the wrong
// type reads as absent instead of failing the whole envelope.
type fields map[string]json.RawMessage

func (f fields) str(key string) string {
	var v string
	if json.Unmarshal(f[key], &v) != nil {
		return ""
	}
	return v
}

func (f fields) int(key string) int64 {
	var v int64
	if json.Unmarshal(f[key], &v) != nil {
		return 0
	}
	return v
}

// Parse normalizes an inbound body into an Event.
//
//	{"event":{"name":..,"data":..}}  wrapped
//	{"name":..,"data":..}            flat
//	{...}                            bare payload, no name
//
// The name comes from the wrapped event first, then the outer body. Data comes
// from the wrapped event, then the outer data, then the whole body. Only a
// body that is not a JSON object is malformed.
func Parse(body []byte) (Event, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return Event{}, ErrMalformed
	}

	var outer fields
	if err := json.Unmarshal(body, &outer); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	ev := Event{
		ID:        outer.str("id"),
		Name:      outer.str("name"),
		Data:      outer["data"],
		Timestamp: outer.int("ts"),
	}
	var inner fields
	if json.Unmarshal(outer["event"], &inner) == nil && inner != nil {
		if v := inner.str("name"); v != "" {
			ev.Name = v
		}
		if v := inner.str("id"); v != "" {
			ev.ID = v
		}
		if v := inner.int("ts"); v != 0 {
			ev.Timestamp = v
		}
		if !isNull(inner["data"]) {
			ev.Data = inner["data"]
		}
	}
	if isNull(ev.Data) {
		ev.Data = json.RawMessage(body)
	}
	return ev, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
