package domain

import "time"

const (
	MaxPreferenceKeyLen   = 128
	MaxPreferenceValueLen = 4096
)

// Preference is a per-user string setting. An empty Value is a real value,
// distinct from an absent key.
type Preference struct {
	UserID    string
	Key       string
	Value     string
	UpdatedAt time.Time
}
