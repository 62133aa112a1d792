package domain

import (
	"time"
)

// Setting is a persisted key-value row. Watchlists are stored JSON-encoded
// under a single fixed key.
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
