package domain

import (
	"encoding/json"
	"time"
)

// ConfigRecord is the configuration blob a user stored last. Config is kept
// as raw JSON and never interpreted.
type ConfigRecord struct {
	UserID    string
	Config    json.RawMessage
	UpdatedAt time.Time
}
