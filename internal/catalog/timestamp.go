package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp is an optional ISO-8601 instant. The zero value means the field was
// absent, null or empty.
type Timestamp struct {
	time.Time
}

// At wraps t as a defined Timestamp.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// Defined reports whether the timestamp carries a value.
func (t Timestamp) Defined() bool {
	return !t.Time.IsZero()
}

// UnmarshalJSON accepts RFC 3339 strings, bare dates (midnight UTC), null and "".
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON renders defined timestamps as RFC 3339 and undefined ones as null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Defined() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

// ParseTimestamp parses one of the accepted layouts. Layouts without a zone are UTC.
func ParseTimestamp(raw string) (Timestamp, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Timestamp{}, nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return Timestamp{Time: parsed}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("timestamp: unsupported format %q", raw)
}
