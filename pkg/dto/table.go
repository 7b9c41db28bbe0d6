package dto

import "github.com/google/uuid"

// TrackResponse is one tracked card in a table update.
type TrackResponse struct {
	TrackID int        `json:"track_id"`
	Box     [4]float64 `json:"box"`
	Label   int        `json:"label"`
	State   string     `json:"state"`
}

// HandResponse is one grouped hand with its blackjack score.
type HandResponse struct {
	HandID string `json:"hand_id"`
	Cards  []int  `json:"cards"`
	Score  int    `json:"score"`
}

// EvaluationResponse holds per-action expected values for a player hand.
type EvaluationResponse struct {
	HandID     string             `json:"hand_id"`
	EVs        map[string]float64 `json:"evs"`
	BestAction string             `json:"best_action"`
}

type TableUpdateResponse struct {
	ID          uuid.UUID            `json:"id"`
	StreamID    uuid.UUID            `json:"stream_id"`
	Timestamp   string               `json:"timestamp"`
	Tracks      []TrackResponse      `json:"tracks"`
	Hands       []HandResponse       `json:"hands"`
	Evaluations []EvaluationResponse `json:"evaluations"`
	ShoeCounts  map[int]int          `json:"shoe_counts"`
	FrameURL    string               `json:"frame_url,omitempty"`
	CreatedAt   string               `json:"created_at"`
}

type TableUpdateListResponse struct {
	Updates []TableUpdateResponse `json:"updates"`
	Total   int                   `json:"total"`
}

type TableUpdateQuery struct {
	From   string `form:"from"`
	To     string `form:"to"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// ShoeResponse is the remaining card composition of a stream's shoe.
type ShoeResponse struct {
	StreamID  uuid.UUID   `json:"stream_id"`
	Counts    map[int]int `json:"counts"`
	Remaining int         `json:"remaining"`
}

type ResetShoeRequest struct {
	DeckCount int `json:"deck_count"`
}

// WSEvent is a WebSocket message for real-time table update delivery.
type WSEvent struct {
	Type     string              `json:"type"` // table_update, stream_status
	StreamID uuid.UUID           `json:"stream_id"`
	Data     TableUpdateResponse `json:"data,omitempty"`
	Status   string              `json:"status,omitempty"`
}
