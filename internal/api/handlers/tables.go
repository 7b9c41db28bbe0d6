package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/deckwatch/internal/models"
	"github.com/your-org/deckwatch/internal/queue"
	"github.com/your-org/deckwatch/internal/storage"
	"github.com/your-org/deckwatch/pkg/dto"
)

type TableHandler struct {
	db       *storage.PostgresStore
	frames   *storage.FrameStore
	producer *queue.Producer
}

func NewTableHandler(db *storage.PostgresStore, frames *storage.FrameStore, producer *queue.Producer) *TableHandler {
	return &TableHandler{db: db, frames: frames, producer: producer}
}

// Latest returns the most recent table state for a stream.
func (h *TableHandler) Latest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stream id"})
		return
	}

	tu, err := h.db.GetLatestTableUpdate(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if tu == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no table updates for stream"})
		return
	}

	c.JSON(http.StatusOK, TableUpdateToResponse(tu))
}

// List returns table updates for a stream within an optional time range.
func (h *TableHandler) List(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stream id"})
		return
	}

	var q dto.TableUpdateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var from, to *time.Time
	if q.From != "" {
		t, err := time.Parse(time.RFC3339, q.From)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from timestamp"})
			return
		}
		from = &t
	}
	if q.To != "" {
		t, err := time.Parse(time.RFC3339, q.To)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to timestamp"})
			return
		}
		to = &t
	}

	updates, total, err := h.db.ListTableUpdates(c.Request.Context(), id, from, to, q.Limit, q.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.TableUpdateResponse, 0, len(updates))
	for i := range updates {
		resp = append(resp, TableUpdateToResponse(&updates[i]))
	}

	c.JSON(http.StatusOK, dto.TableUpdateListResponse{Updates: resp, Total: total})
}

// Frame serves the stored full frame for a table update.
func (h *TableHandler) Frame(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update id"})
		return
	}

	tu, err := h.db.GetTableUpdate(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if tu == nil || tu.FrameKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "frame not found"})
		return
	}

	data, err := h.frames.GetFrame(c.Request.Context(), tu.FrameKey)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "frame not found"})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}

// Shoe returns the remaining card composition for a stream's shoe, as
// of the latest table update.
func (h *TableHandler) Shoe(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stream id"})
		return
	}

	tu, err := h.db.GetLatestTableUpdate(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if tu == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no table updates for stream"})
		return
	}

	remaining := 0
	for _, n := range tu.ShoeCounts {
		remaining += n
	}

	c.JSON(http.StatusOK, dto.ShoeResponse{
		StreamID:  id,
		Counts:    tu.ShoeCounts,
		Remaining: remaining,
	})
}

// ResetShoe publishes a shoe reset command for the stream's worker.
func (h *TableHandler) ResetShoe(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stream id"})
		return
	}

	st, err := h.db.GetStream(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "stream not found"})
		return
	}

	var req dto.ResetShoeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deckCount := req.DeckCount
	if deckCount <= 0 {
		deckCount = st.DeckCount
	}

	cmd := queue.TableCommand{
		Command:   queue.CommandResetShoe,
		StreamID:  id,
		DeckCount: deckCount,
	}
	if err := h.producer.PublishTableCommand(cmd); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send reset command"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "reset", "stream_id": id, "deck_count": deckCount})
}

// TableUpdateToResponse converts a stored table update to its API shape.
func TableUpdateToResponse(tu *models.TableUpdate) dto.TableUpdateResponse {
	tracks := make([]dto.TrackResponse, 0, len(tu.Tracks))
	for _, t := range tu.Tracks {
		tracks = append(tracks, dto.TrackResponse{
			TrackID: t.TrackID,
			Box:     t.Box,
			Label:   t.Label,
			State:   t.State,
		})
	}

	hands := make([]dto.HandResponse, 0, len(tu.Hands))
	for _, h := range tu.Hands {
		hands = append(hands, dto.HandResponse{
			HandID: h.HandID,
			Cards:  h.Cards,
			Score:  h.Score,
		})
	}

	evals := make([]dto.EvaluationResponse, 0, len(tu.Evaluations))
	for _, ev := range tu.Evaluations {
		evals = append(evals, dto.EvaluationResponse{
			HandID:     ev.HandID,
			EVs:        ev.EVs,
			BestAction: ev.BestAction,
		})
	}

	frameURL := ""
	if tu.FrameKey != "" {
		frameURL = "/v1/updates/" + tu.ID.String() + "/frame"
	}

	return dto.TableUpdateResponse{
		ID:          tu.ID,
		StreamID:    tu.StreamID,
		Timestamp:   tu.Timestamp.Format(time.RFC3339),
		Tracks:      tracks,
		Hands:       hands,
		Evaluations: evals,
		ShoeCounts:  tu.ShoeCounts,
		FrameURL:    frameURL,
		CreatedAt:   tu.CreatedAt.Format(time.RFC3339),
	}
}
