package dto

import (
	"encoding/json"

	"github.com/google/uuid"
)

type CreateStreamRequest struct {
	URL        string          `json:"url" binding:"required"`
	StreamType string          `json:"stream_type" binding:"required,oneof=rtsp youtube http file"`
	FPS        int             `json:"fps"`
	DeckCount  int             `json:"deck_count"`
	Config     json.RawMessage `json:"config,omitempty"`
}

type StreamResponse struct {
	ID           uuid.UUID       `json:"id"`
	URL          string          `json:"url"`
	StreamType   string          `json:"stream_type"`
	FPS          int             `json:"fps"`
	DeckCount    int             `json:"deck_count"`
	Status       string          `json:"status"`
	Config       json.RawMessage `json:"config,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}

type StreamListResponse struct {
	Streams []StreamResponse `json:"streams"`
	Total   int              `json:"total"`
}
