package domain

import "encoding/json"

// Setting is a persisted user preference. Value holds arbitrary JSON.
type Setting struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}
