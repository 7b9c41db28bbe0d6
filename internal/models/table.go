package models

import (
	"time"

	"github.com/google/uuid"
)

// FrameTask is the message published to NATS for worker processing.
type FrameTask struct {
	StreamID  uuid.UUID `json:"stream_id"`
	FrameID   uuid.UUID `json:"frame_id"`
	Timestamp time.Time `json:"timestamp"`
	FrameRef  string    `json:"frame_ref"` // MinIO object key
	Width     int       `json:"width"`
	Height    int       `json:"height"`
}

// TrackInfo is one card track as seen in a table update.
type TrackInfo struct {
	TrackID int        `json:"track_id"`
	Box     [4]float64 `json:"box"` // x1, y1, x2, y2
	Label   int        `json:"label"`
	State   string     `json:"state"`
}

// HandInfo is one grouped hand with its blackjack score.
type HandInfo struct {
	HandID string `json:"hand_id"`
	Cards  []int  `json:"cards"`
	Score  int    `json:"score"`
}

// HandEvaluation holds per-action expected values for a player hand.
type HandEvaluation struct {
	HandID     string             `json:"hand_id"`
	EVs        map[string]float64 `json:"evs"`
	BestAction string             `json:"best_action"`
}

// TableUpdate is the output from a vision worker for one analyzed frame.
type TableUpdate struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	StreamID    uuid.UUID        `json:"stream_id" db:"stream_id"`
	Timestamp   time.Time        `json:"timestamp" db:"timestamp"`
	FrameKey    string           `json:"frame_key" db:"frame_key"` // MinIO key of the full frame
	Tracks      []TrackInfo      `json:"tracks"`
	Hands       []HandInfo       `json:"hands"`
	Evaluations []HandEvaluation `json:"evaluations"`
	ShoeCounts  map[int]int      `json:"shoe_counts"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}
