package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampDecodesBothForms(t *testing.T) {
	cases := map[string]time.Time{
		`"2024-01-02T03:04:05.123456"`:     time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC),
		`"2024-01-02T03:04:05"`:            time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		`"2024-01-02T03:04:05Z"`:           time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		`"2024-01-02T05:04:05.5+02:00"`:    time.Date(2024, 1, 2, 3, 4, 5, 500000000, time.UTC),
		`"2024-01-02T03:04:05.987654321Z"`: time.Date(2024, 1, 2, 3, 4, 5, 987654321, time.UTC),
	}
	for raw, want := range cases {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(raw), &ts), raw)
		assert.True(t, want.Equal(ts.Time), "%s decoded to %s", raw, ts.Time)
	}
}

func TestTimestampRejectsGarbage(t *testing.T) {
	var ts Timestamp
	require.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
	require.Error(t, json.Unmarshal([]byte(`42`), &ts))
}

func TestTimestampRoundTrip(t *testing.T) {
	want := time.Date(2024, 6, 1, 10, 30, 0, 123456789, time.UTC)
	data, err := json.Marshal(Timestamp{Time: want})
	require.NoError(t, err)
	assert.Equal(t, `"2024-06-01T10:30:00.123456789Z"`, string(data))

	var got Timestamp
	require.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, want.Equal(got.Time))
}

func TestLenientTimestamp(t *testing.T) {
	assert.True(t, LenientTimestamp(nil).IsZero())
	assert.True(t, LenientTimestamp(json.RawMessage(`"not a time"`)).IsZero())
	assert.Equal(t, 2024, LenientTimestamp(json.RawMessage(`"2024-01-02T03:04:05.123456"`)).Year())
}
