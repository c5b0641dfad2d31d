package repository

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// localLayout is the zone-less ISO form (Python isoformat) found in data
// files written by earlier deployments. Such values are read as UTC.
const localLayout = "2006-01-02T15:04:05.999999999"

// Timestamp is a time.Time that decodes both RFC 3339 and zone-less ISO
// strings. It always encodes as RFC 3339 with nanoseconds in UTC.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses s in either accepted form.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(localLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// LenientTimestamp decodes raw as a Timestamp and yields the zero time when
// it is missing or unparsable.
func LenientTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Time{}
	}
	var ts Timestamp
	if err := json.Unmarshal(raw, &ts); err != nil {
		return time.Time{}
	}
	return ts.Time
}
