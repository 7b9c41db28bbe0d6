package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/deckwatch/internal/models"
)

// JetStream streams. FRAMES carries frame tasks from the ingestor to the
// analysis workers; work-queue retention guarantees each frame is analysed
// by exactly one worker. EVENTS carries table updates from the workers to
// the API fan-out.
const (
	framesStream    = "FRAMES"
	framesSubjects  = "frames"
	updatesStream   = "EVENTS"
	updatesSubjects = "events"
)

// Raw NATS subjects for operator commands. These bypass JetStream on
// purpose: a start/stop or shoe reset aimed at a process that is down
// should vanish, not replay on restart.
const (
	StreamControlSubject = "stream.control"
	TableControlSubject  = "table.control"
)

// Stream command actions and table commands.
const (
	ActionStart = "start"
	ActionStop  = "stop"

	CommandResetShoe = "reset_shoe"
)

// StreamCommand starts or stops ingestion for one table feed.
type StreamCommand struct {
	Action   string `json:"action"`
	StreamID string `json:"stream_id"`
	URL      string `json:"url,omitempty"`
	Type     string `json:"type,omitempty"`
	FPS      int    `json:"fps,omitempty"`
}

// TableCommand adjusts a live table's analysis state, e.g. re-seeding the
// shoe when the dealer swaps in fresh decks.
type TableCommand struct {
	Command   string    `json:"command"`
	StreamID  uuid.UUID `json:"stream_id"`
	DeckCount int       `json:"deck_count,omitempty"`
}

// DecodeStreamCommand parses a stream.control payload.
func DecodeStreamCommand(data []byte) (StreamCommand, error) {
	var cmd StreamCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, fmt.Errorf("decode stream command: %w", err)
	}
	return cmd, nil
}

// DecodeTableCommand parses a table.control payload.
func DecodeTableCommand(data []byte) (TableCommand, error) {
	var cmd TableCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, fmt.Errorf("decode table command: %w", err)
	}
	return cmd, nil
}

func frameSubject(streamID uuid.UUID) string {
	return framesSubjects + "." + streamID.String()
}

func updateSubject(streamID uuid.UUID) string {
	return updatesSubjects + "." + streamID.String()
}

type Producer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewProducer(natsURL string) (*Producer, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Producer{nc: nc, js: js}, nil
}

// EnsureStreams creates the JetStream streams if they don't exist.
// Retries up to 30 times (1s apart) to handle NATS startup delay.
func (p *Producer) EnsureStreams(ctx context.Context) error {
	streams := []jetstream.StreamConfig{
		{
			Name:        framesStream,
			Subjects:    []string{framesSubjects + ".>"},
			Retention:   jetstream.WorkQueuePolicy,
			MaxAge:      5 * time.Minute,
			MaxMsgs:     100000,
			MaxBytes:    1 * 1024 * 1024 * 1024, // 1GB
			Storage:     jetstream.FileStorage,
			Discard:     jetstream.DiscardOld,
			Duplicates:  30 * time.Second,
			Description: "Table frames awaiting analysis",
		},
		{
			Name:        updatesStream,
			Subjects:    []string{updatesSubjects + ".>"},
			Retention:   jetstream.InterestPolicy,
			MaxAge:      24 * time.Hour,
			MaxMsgs:     1000000,
			Storage:     jetstream.FileStorage,
			Description: "Table state updates for API fan-out",
		},
	}

	const maxAttempts = 30
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		allOK := true
		for _, cfg := range streams {
			opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			_, err := p.js.CreateOrUpdateStream(opCtx, cfg)
			cancel()
			if err != nil {
				allOK = false
				if attempt == maxAttempts {
					return fmt.Errorf("create stream %s: %w (after %d attempts)", cfg.Name, err, maxAttempts)
				}
				slog.Warn("ensure NATS stream (retrying...)", "name", cfg.Name, "attempt", attempt, "error", err)
				break
			}
			slog.Info("ensured NATS stream", "name", cfg.Name)
		}
		if allOK {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
	return nil
}

// PublishFrameTask hands a captured frame to the analysis workers.
func (p *Producer) PublishFrameTask(ctx context.Context, task models.FrameTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal frame task: %w", err)
	}

	if _, err := p.js.Publish(ctx, frameSubject(task.StreamID), payload); err != nil {
		return fmt.Errorf("publish frame task: %w", err)
	}
	return nil
}

// PublishTableUpdate emits the result of one analysis cycle.
func (p *Producer) PublishTableUpdate(ctx context.Context, update models.TableUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal table update: %w", err)
	}

	if _, err := p.js.Publish(ctx, updateSubject(update.StreamID), payload); err != nil {
		return fmt.Errorf("publish table update: %w", err)
	}
	return nil
}

// PublishStreamCommand sends a start/stop command to the ingestor.
func (p *Producer) PublishStreamCommand(cmd StreamCommand) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal stream command: %w", err)
	}
	return p.nc.Publish(StreamControlSubject, payload)
}

// PublishTableCommand sends a table command to the analysis workers.
func (p *Producer) PublishTableCommand(cmd TableCommand) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal table command: %w", err)
	}
	return p.nc.Publish(TableControlSubject, payload)
}

// QueueDepth returns the number of frames waiting for a worker.
func (p *Producer) QueueDepth(ctx context.Context) (uint64, error) {
	stream, err := p.js.Stream(ctx, framesStream)
	if err != nil {
		return 0, err
	}
	info, err := stream.Info(ctx)
	if err != nil {
		return 0, err
	}
	return info.State.Msgs, nil
}

func (p *Producer) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *Producer) Close() {
	p.nc.Close()
}
