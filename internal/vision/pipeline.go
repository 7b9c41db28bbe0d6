package vision

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/deckwatch/internal/config"
	"github.com/your-org/deckwatch/internal/models"
	"github.com/your-org/deckwatch/internal/observability"
	"github.com/your-org/deckwatch/internal/queue"
	"github.com/your-org/deckwatch/internal/storage"
)

// Pipeline orchestrates the full table analysis for each frame:
// detect → track → group hands → score → evaluate → emit update.
type Pipeline struct {
	detector *Detector
	db       *storage.PostgresStore
	frames   *storage.FrameStore
	producer *queue.Producer
	valuer   ActionValuer
	cfg      config.VisionConfig
	trackCfg config.TrackingConfig
	shoeCfg  config.ShoeConfig

	mu      sync.Mutex
	tables  map[uuid.UUID]*TableAnalyzer // per-stream analyzers
	pending map[uuid.UUID]int            // shoe resets received before the stream's first frame
}

// NewPipeline initialises the ONNX model and returns a ready pipeline.
func NewPipeline(
	cfg config.VisionConfig,
	trackCfg config.TrackingConfig,
	shoeCfg config.ShoeConfig,
	db *storage.PostgresStore,
	frames *storage.FrameStore,
	producer *queue.Producer,
	valuer ActionValuer,
) (*Pipeline, error) {

	slog.Info("loading card detection model", "path", cfg.ModelPath)
	det, err := NewDetector(cfg.ModelPath, float32(cfg.ConfidenceThreshold), float32(cfg.NMSThreshold), nil)
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	slog.Info("vision pipeline ready")

	return &Pipeline{
		detector: det,
		db:       db,
		frames:   frames,
		producer: producer,
		valuer:   valuer,
		cfg:      cfg,
		trackCfg: trackCfg,
		shoeCfg:  shoeCfg,
		tables:   make(map[uuid.UUID]*TableAnalyzer),
		pending:  make(map[uuid.UUID]int),
	}, nil
}

// ProcessFrame handles one frame task end to end and publishes the
// resulting table update.
func (p *Pipeline) ProcessFrame(ctx context.Context, task models.FrameTask) error {
	// 1. Load frame from MinIO
	frameData, err := p.frames.GetFrame(ctx, task.FrameRef)
	if err != nil {
		return fmt.Errorf("load frame: %w", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(frameData))
	if err != nil {
		return fmt.Errorf("decode jpeg: %w", err)
	}

	bounds := img.Bounds()
	origW := bounds.Dx()
	origH := bounds.Dy()

	// 2. Preprocess for detection
	start := time.Now()
	detInput := PreprocessFrame(img, p.detector.inputW, p.detector.inputH)
	observability.InferenceDuration.WithLabelValues("preprocess").Observe(time.Since(start).Seconds())

	// 3. Detect cards
	start = time.Now()
	detections, err := p.detector.Detect(detInput, origW, origH)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())

	observability.FramesProcessed.WithLabelValues(task.StreamID.String()).Inc()
	if len(detections) > 0 {
		observability.CardsDetected.WithLabelValues(task.StreamID.String()).Add(float64(len(detections)))
	}

	// 4. Run table analysis: tracking, hand grouping, scoring, EV
	table, err := p.getTable(ctx, task.StreamID)
	if err != nil {
		return err
	}

	start = time.Now()
	snapshot := table.Analyze(ctx, detections)
	observability.InferenceDuration.WithLabelValues("analyze").Observe(time.Since(start).Seconds())

	// 5. Publish and persist the update
	update := buildTableUpdate(task, snapshot)

	if err := p.db.CreateTableUpdate(ctx, &update); err != nil {
		slog.Warn("persist table update", "error", err, "stream", task.StreamID)
	}

	if err := p.producer.PublishTableUpdate(ctx, update); err != nil {
		return fmt.Errorf("publish table update: %w", err)
	}

	return nil
}

// HandleTableControl processes a raw control command such as a shoe
// reset. A reset that arrives before the stream's first frame is
// stashed and applied when the analyzer is created.
func (p *Pipeline) HandleTableControl(data []byte) {
	cmd, err := queue.DecodeTableCommand(data)
	if err != nil {
		slog.Warn("bad table control command", "error", err)
		return
	}

	switch cmd.Command {
	case queue.CommandResetShoe:
		deckCount := cmd.DeckCount
		if deckCount <= 0 {
			deckCount = p.shoeCfg.DeckCount
		}

		p.mu.Lock()
		table, ok := p.tables[cmd.StreamID]
		if !ok {
			p.pending[cmd.StreamID] = deckCount
		}
		p.mu.Unlock()

		if !ok {
			slog.Info("shoe reset deferred until first frame", "stream", cmd.StreamID, "deck_count", deckCount)
			return
		}
		table.ResetShoe(deckCount)
		slog.Info("shoe reset", "stream", cmd.StreamID, "deck_count", deckCount)
	default:
		slog.Warn("unknown table control command", "command", cmd.Command)
	}
}

// getTable returns the stream's analyzer, creating it on first use. The
// shoe is sized from the stream record when one exists, otherwise from
// the configured default.
func (p *Pipeline) getTable(ctx context.Context, streamID uuid.UUID) (*TableAnalyzer, error) {
	p.mu.Lock()
	if table, ok := p.tables[streamID]; ok {
		p.mu.Unlock()
		return table, nil
	}
	p.mu.Unlock()

	deckCount := p.shoeCfg.DeckCount
	stream, err := p.db.GetStream(ctx, streamID)
	if err != nil {
		slog.Warn("lookup stream for table", "error", err, "stream", streamID)
	} else if stream != nil && stream.DeckCount > 0 {
		deckCount = stream.DeckCount
	}

	return p.newTable(streamID, deckCount), nil
}

// newTable registers an analyzer for the stream. A pending shoe reset
// overrides the caller's deck count.
func (p *Pipeline) newTable(streamID uuid.UUID, deckCount int) *TableAnalyzer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.tables[streamID]; ok {
		return existing
	}

	if stashed, ok := p.pending[streamID]; ok {
		deckCount = stashed
		delete(p.pending, streamID)
	}

	params := TrackerParams{
		ConfidenceThreshold: p.cfg.ConfidenceThreshold,
		IoUThreshold:        p.trackCfg.IoUThreshold,
		ConfirmationFrames:  p.trackCfg.ConfirmationFrames,
		RemovalFrames:       p.trackCfg.RemovalFrames,
	}

	table := NewTableAnalyzer(streamID.String(), params, p.trackCfg.OverlapThreshold, deckCount, p.valuer)
	p.tables[streamID] = table
	return table
}

func buildTableUpdate(task models.FrameTask, snapshot TableSnapshot) models.TableUpdate {
	tracks := make([]models.TrackInfo, 0, len(snapshot.Tracks))
	for id, tv := range snapshot.Tracks {
		tracks = append(tracks, models.TrackInfo{
			TrackID: id,
			Box:     [4]float64{tv.Box.X1, tv.Box.Y1, tv.Box.X2, tv.Box.Y2},
			Label:   tv.Label,
			State:   tv.State.String(),
		})
	}

	sort.Slice(tracks, func(i, j int) bool { return tracks[i].TrackID < tracks[j].TrackID })

	hands := make([]models.HandInfo, 0, len(snapshot.Hands))
	for _, h := range snapshot.Hands {
		hands = append(hands, models.HandInfo{
			HandID: h.ID,
			Cards:  h.Cards,
			Score:  h.Score,
		})
	}

	evals := make([]models.HandEvaluation, 0, len(snapshot.Evaluations))
	for _, ev := range snapshot.Evaluations {
		evs := make(map[string]float64, len(ev.EVs))
		for action, v := range ev.EVs {
			evs[string(action)] = v
		}
		evals = append(evals, models.HandEvaluation{
			HandID:     ev.HandID,
			EVs:        evs,
			BestAction: string(ev.BestAction),
		})
	}

	return models.TableUpdate{
		StreamID:    task.StreamID,
		Timestamp:   task.Timestamp,
		FrameKey:    task.FrameRef,
		Tracks:      tracks,
		Hands:       hands,
		Evaluations: evals,
		ShoeCounts:  snapshot.ShoeCounts,
	}
}

func (p *Pipeline) Close() {
	if p.detector != nil {
		p.detector.Close()
	}
}
