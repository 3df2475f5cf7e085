package template

import (
	"encoding/json"
	"errors"
	"time"
)

// Template is a stored page design document. The payload is opaque JSON:
// the server validates well-formedness but never interprets its structure.
type Template struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	CreatorID   string          `json:"creator_id"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DefaultData is the payload assigned to templates created without one.
var DefaultData = json.RawMessage("[]")

// Sentinel errors for template operations.
var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrNotOwner         = errors.New("actor does not own template")
	ErrEmptyPayload     = errors.New("payload is empty")
	ErrInvalidPayload   = errors.New("payload is not valid JSON")
)

// IsEmptyPayload reports whether a payload counts as empty for update
// validation. Empty means absent, JSON null, empty string, empty object,
// empty array, zero, or false. Non-empty structures containing only empty
// values (e.g. {"a": null}) are not empty.
func IsEmptyPayload(data json.RawMessage) bool {
	if len(data) == 0 {
		return true
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		// Malformed payloads are rejected elsewhere; treat as empty here
		// so the cheaper check fires first.
		return true
	}

	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	case float64:
		return val == 0
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	default:
		return false
	}
}
