package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/deckwatch/internal/models"
	"github.com/your-org/deckwatch/internal/queue"
	"github.com/your-org/deckwatch/internal/storage"
	"github.com/your-org/deckwatch/pkg/dto"
)

type StreamHandler struct {
	db       *storage.PostgresStore
	frames   *storage.FrameStore
	producer *queue.Producer
}

func NewStreamHandler(db *storage.PostgresStore, frames *storage.FrameStore, producer *queue.Producer) *StreamHandler {
	return &StreamHandler{db: db, frames: frames, producer: producer}
}

func (h *StreamHandler) Create(c *gin.Context) {
	var req dto.CreateStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fps := req.FPS
	if fps <= 0 {
		fps = 5
	}
	deckCount := req.DeckCount
	if deckCount <= 0 {
		deckCount = 1
	}

	st := &models.Stream{
		URL:        req.URL,
		StreamType: models.StreamType(req.StreamType),
		FPS:        fps,
		DeckCount:  deckCount,
		Config:     req.Config,
	}

	if err := h.db.CreateStream(c.Request.Context(), st); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, streamToResponse(st))
}

func (h *StreamHandler) Get(c *gin.Context) {
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

	c.JSON(http.StatusOK, streamToResponse(st))
}

func (h *StreamHandler) List(c *gin.Context) {
	streams, err := h.db.ListStreams(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.StreamResponse, 0, len(streams))
	for _, st := range streams {
		resp = append(resp, streamToResponse(&st))
	}

	c.JSON(http.StatusOK, dto.StreamListResponse{Streams: resp, Total: len(resp)})
}

func (h *StreamHandler) Start(c *gin.Context) {
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

	if st.Status == models.StreamStatusRunning {
		c.JSON(http.StatusConflict, gin.H{"error": "stream already running"})
		return
	}

	// Update status to starting
	if err := h.db.UpdateStreamStatus(c.Request.Context(), id, models.StreamStatusStarting, ""); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	cmd := queue.StreamCommand{
		Action:   queue.ActionStart,
		StreamID: id.String(),
		URL:      st.URL,
		Type:     string(st.StreamType),
		FPS:      st.FPS,
	}
	if err := h.producer.PublishStreamCommand(cmd); err != nil {
		_ = h.db.UpdateStreamStatus(c.Request.Context(), id, models.StreamStatusError, "failed to publish start command")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send start command"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "starting", "stream_id": id})
}

func (h *StreamHandler) Stop(c *gin.Context) {
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

	_ = h.producer.PublishStreamCommand(queue.StreamCommand{
		Action:   queue.ActionStop,
		StreamID: id.String(),
	})

	if err := h.db.UpdateStreamStatus(c.Request.Context(), id, models.StreamStatusStopped, ""); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "stopped", "stream_id": id})
}

func (h *StreamHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stream id"})
		return
	}

	// Stop stream first if running
	st, err := h.db.GetStream(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if st != nil && st.Status == models.StreamStatusRunning {
		_ = h.producer.PublishStreamCommand(queue.StreamCommand{
			Action:   queue.ActionStop,
			StreamID: id.String(),
		})
	}

	if err := h.db.DeleteStream(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	if n, err := h.frames.DeleteStreamFrames(c.Request.Context(), id); err != nil {
		slog.Warn("delete stream frames", "stream_id", id, "error", err)
	} else if n > 0 {
		slog.Info("deleted stream frames", "stream_id", id, "count", n)
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func streamToResponse(st *models.Stream) dto.StreamResponse {
	return dto.StreamResponse{
		ID:           st.ID,
		URL:          st.URL,
		StreamType:   string(st.StreamType),
		FPS:          st.FPS,
		DeckCount:    st.DeckCount,
		Status:       string(st.Status),
		Config:       st.Config,
		ErrorMessage: st.ErrorMessage,
		CreatedAt:    st.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:    st.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
