package model

import "time"

// TurnEvent describes one completed chat turn for downstream consumers.
type TurnEvent struct {
	SessionID string     `json:"session_id"`
	Question  string     `json:"question"`
	Answer    string     `json:"answer"`
	Sources   []Document `json:"sources"`
	Failed    bool       `json:"failed"`
	CreatedAt time.Time  `json:"created_at"`
}
