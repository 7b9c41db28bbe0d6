package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/deckwatch/internal/models"
	"github.com/your-org/deckwatch/internal/observability"
	"github.com/your-org/deckwatch/internal/queue"
	"github.com/your-org/deckwatch/internal/storage"
)

type activeStream struct {
	cancel    context.CancelFunc
	extractor *FFmpegExtractor
	buffer    *frameBuffer
}

// Manager manages video stream ingestion lifecycle. Extraction and
// publication are decoupled through a single-slot buffer: frames arrive
// at the source rate, but tasks are published at most once per
// inference interval and always carry the freshest frame.
type Manager struct {
	producer *queue.Producer
	frames   *storage.FrameStore
	db       *storage.PostgresStore
	width    int
	interval time.Duration

	mu      sync.RWMutex
	streams map[string]*activeStream
}

func NewManager(producer *queue.Producer, frames *storage.FrameStore, db *storage.PostgresStore, frameWidth int, inferenceInterval time.Duration) *Manager {
	return &Manager{
		producer: producer,
		frames:   frames,
		db:       db,
		width:    frameWidth,
		interval: inferenceInterval,
		streams:  make(map[string]*activeStream),
	}
}

// HandleCommand processes a stream control command.
func (m *Manager) HandleCommand(ctx context.Context, cmd queue.StreamCommand) error {
	switch cmd.Action {
	case queue.ActionStart:
		return m.startStream(ctx, cmd)
	case queue.ActionStop:
		return m.stopStream(cmd.StreamID)
	default:
		return fmt.Errorf("unknown action: %s", cmd.Action)
	}
}

func (m *Manager) startStream(ctx context.Context, cmd queue.StreamCommand) error {
	m.mu.Lock()
	if _, exists := m.streams[cmd.StreamID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("stream %s already running", cmd.StreamID)
	}
	m.mu.Unlock()

	streamURL := cmd.URL

	// Resolve YouTube URLs
	if cmd.Type == "youtube" {
		resolved, err := ResolveYouTubeURL(ctx, cmd.URL)
		if err != nil {
			m.updateStatus(cmd.StreamID, models.StreamStatusError, err.Error())
			return fmt.Errorf("resolve youtube url: %w", err)
		}
		streamURL = resolved
		slog.Info("resolved youtube url", "stream_id", cmd.StreamID)
	}

	fps := cmd.FPS
	if fps <= 0 {
		fps = 5
	}

	streamCtx, cancel := context.WithCancel(ctx)
	extractor := &FFmpegExtractor{}
	buffer := newFrameBuffer()

	as := &activeStream{
		cancel:    cancel,
		extractor: extractor,
		buffer:    buffer,
	}

	m.mu.Lock()
	m.streams[cmd.StreamID] = as
	m.mu.Unlock()

	observability.ActiveStreams.Inc()
	m.updateStatus(cmd.StreamID, models.StreamStatusRunning, "")

	slog.Info("starting stream ingestion", "stream_id", cmd.StreamID, "url", cmd.URL, "fps", fps)

	go m.publishLoop(streamCtx, cmd.StreamID, buffer)

	// Run extraction in a goroutine with retry logic
	go func() {
		defer func() {
			buffer.Close()
			m.mu.Lock()
			delete(m.streams, cmd.StreamID)
			m.mu.Unlock()
			observability.ActiveStreams.Dec()
			slog.Info("stream ingestion stopped", "stream_id", cmd.StreamID)
		}()

		const maxRetries = 3
		currentURL := streamURL

		for attempt := 0; attempt <= maxRetries; attempt++ {
			if attempt > 0 {
				delay := time.Duration(1<<uint(attempt)) * time.Second // 2s, 4s, 8s
				slog.Warn("retrying stream extraction",
					"stream_id", cmd.StreamID,
					"attempt", attempt,
					"delay", delay,
				)
				select {
				case <-streamCtx.Done():
					m.updateStatus(cmd.StreamID, models.StreamStatusStopped, "")
					return
				case <-time.After(delay):
				}

				// Re-resolve YouTube URLs (they expire)
				if cmd.Type == "youtube" {
					resolved, err := ResolveYouTubeURL(streamCtx, cmd.URL)
					if err != nil {
						slog.Warn("youtube re-resolve failed", "stream_id", cmd.StreamID, "error", err)
						continue
					}
					currentURL = resolved
				}

				// Need a fresh extractor for retry
				extractor = &FFmpegExtractor{}
			}

			err := extractor.StartExtraction(streamCtx, currentURL, fps, m.width, func(frameData []byte) error {
				buffer.Put(frameData)
				return nil
			})

			if err == nil || streamCtx.Err() != nil {
				// Clean exit or context cancelled (user stopped stream)
				m.updateStatus(cmd.StreamID, models.StreamStatusStopped, "")
				return
			}

			slog.Error("stream extraction failed",
				"stream_id", cmd.StreamID,
				"attempt", attempt,
				"error", err,
			)
		}

		// All retries exhausted
		m.updateStatus(cmd.StreamID, models.StreamStatusError, "stream failed after retries")
	}()

	return nil
}

// publishLoop drains the buffer at the inference interval: take the
// latest frame, upload it, publish the task, then wait out the
// remainder of the interval.
func (m *Manager) publishLoop(ctx context.Context, streamID string, buffer *frameBuffer) {
	streamUUID, err := uuid.Parse(streamID)
	if err != nil {
		slog.Error("bad stream id", "stream_id", streamID, "error", err)
		return
	}

	for {
		frameData, ok := buffer.Take(ctx)
		if !ok {
			return
		}

		start := time.Now()
		frameID := uuid.New()

		key, err := m.frames.PutFrame(ctx, streamUUID, frameID, frameData)
		if err != nil {
			slog.Warn("store frame", "stream_id", streamID, "error", err)
			continue
		}

		task := models.FrameTask{
			StreamID:  streamUUID,
			FrameID:   frameID,
			Timestamp: time.Now(),
			FrameRef:  key,
			Width:     m.width,
			Height:    0, // Will be determined by worker
		}

		if err := m.producer.PublishFrameTask(ctx, task); err != nil {
			slog.Warn("publish frame task", "stream_id", streamID, "error", err)
		}

		if remaining := m.interval - time.Since(start); remaining > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(remaining):
			}
		}
	}
}

func (m *Manager) stopStream(streamID string) error {
	m.mu.RLock()
	as, exists := m.streams[streamID]
	m.mu.RUnlock()

	if !exists {
		return nil // Already stopped
	}

	as.extractor.Stop()
	as.cancel()

	slog.Info("stop command sent", "stream_id", streamID)
	return nil
}

func (m *Manager) updateStatus(streamID string, status models.StreamStatus, errMsg string) {
	id, err := uuid.Parse(streamID)
	if err != nil {
		return
	}
	if err := m.db.UpdateStreamStatus(context.Background(), id, status, errMsg); err != nil {
		slog.Error("update stream status", "stream_id", streamID, "error", err)
	}
}

// ActiveCount returns the number of currently running streams.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.streams)
}

// StopAll stops all running streams.
func (m *Manager) StopAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.streams))
	for id := range m.streams {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		_ = m.stopStream(id)
	}
}
