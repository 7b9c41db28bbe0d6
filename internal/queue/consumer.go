package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/deckwatch/internal/models"
)

// FrameTaskHandler processes one captured frame. A returned error
// redelivers the task up to the MaxDeliver limit.
type FrameTaskHandler func(ctx context.Context, task models.FrameTask) error

// TableUpdateHandler receives each analysis cycle's table update.
type TableUpdateHandler func(ctx context.Context, update models.TableUpdate) error

type Consumer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewConsumer(natsURL string) (*Consumer, error) {
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

	return &Consumer{nc: nc, js: js}, nil
}

// Conn exposes the raw NATS connection for request/reply (EV engine
// calls) and plain subject subscriptions (table control).
func (c *Consumer) Conn() *nats.Conn {
	return c.nc
}

// ConsumeFrameTasks pulls frame tasks off the FRAMES stream and fans them
// out to workerCount goroutines. A frame that cannot be decoded is acked
// and dropped: redelivering it can never help.
func (c *Consumer) ConsumeFrameTasks(ctx context.Context, consumerName string, handler FrameTaskHandler, workerCount int) error {
	stream, err := c.js.Stream(ctx, framesStream)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", framesStream, err)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
		FilterSubject: framesSubjects + ".>",
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumerName, err)
	}

	msgCh := make(chan jetstream.Msg, workerCount*2)
	go fetchLoop(ctx, cons, workerCount, msgCh)

	for i := 0; i < workerCount; i++ {
		go func(workerID int) {
			for msg := range msgCh {
				var task models.FrameTask
				if err := json.Unmarshal(msg.Data(), &task); err != nil {
					slog.Error("drop malformed frame task", "worker", workerID, "subject", msg.Subject(), "error", err)
					_ = msg.Ack()
					continue
				}

				if err := handler(ctx, task); err != nil {
					slog.Error("frame task failed", "worker", workerID, "stream_id", task.StreamID, "frame_id", task.FrameID, "error", err)
					_ = msg.Nak()
					continue
				}
				_ = msg.Ack()
			}
		}(i)
	}

	slog.Info("frame task consumer started", "consumer", consumerName, "workers", workerCount)
	return nil
}

// ConsumeTableUpdates delivers table updates from the EVENTS stream, new
// messages only: a WebSocket viewer reconnecting after downtime wants the
// live table, not a replay of stale rounds.
func (c *Consumer) ConsumeTableUpdates(ctx context.Context, consumerName string, handler TableUpdateHandler) error {
	stream, err := c.js.Stream(ctx, updatesStream)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", updatesStream, err)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       10 * time.Second,
		MaxDeliver:    3,
		FilterSubject: updatesSubjects + ".>",
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumerName, err)
	}

	msgCh := make(chan jetstream.Msg, 16)
	go fetchLoop(ctx, cons, 10, msgCh)

	go func() {
		for msg := range msgCh {
			var update models.TableUpdate
			if err := json.Unmarshal(msg.Data(), &update); err != nil {
				slog.Error("drop malformed table update", "subject", msg.Subject(), "error", err)
				_ = msg.Ack()
				continue
			}

			if err := handler(ctx, update); err != nil {
				slog.Error("table update handler failed", "stream_id", update.StreamID, "error", err)
				_ = msg.Nak()
				continue
			}
			_ = msg.Ack()
		}
	}()

	slog.Info("table update consumer started", "consumer", consumerName)
	return nil
}

// fetchLoop pulls message batches until the context ends, then closes out.
func fetchLoop(ctx context.Context, cons jetstream.Consumer, batchSize int, out chan<- jetstream.Msg) {
	defer close(out)

	for {
		if ctx.Err() != nil {
			return
		}

		batch, err := cons.Fetch(batchSize, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("jetstream fetch", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for msg := range batch.Messages() {
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (c *Consumer) Close() {
	c.nc.Close()
}
