package domain

import "time"

// SwipeAction is the user's decision on a deck card.
type SwipeAction string

const (
	SwipeLike SwipeAction = "like"
	SwipePass SwipeAction = "pass"
)

// String returns the string representation of SwipeAction.
func (a SwipeAction) String() string {
	return string(a)
}

// IsValid checks if the action is a valid value.
func (a SwipeAction) IsValid() bool {
	return a == SwipeLike || a == SwipePass
}

// SwipeRecord is the last action taken on a ticker.
// Re-swiping a ticker overwrites the previous record.
type SwipeRecord struct {
	Ticker    string      `json:"ticker"`
	Action    SwipeAction `json:"action"`
	Timestamp time.Time   `json:"timestamp"`
}
