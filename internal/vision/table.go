package vision

import (
	"context"
	"log/slog"

	"github.com/your-org/deckwatch/internal/observability"
)

// TableAnalyzer owns the analysis state for one table stream: the card
// tracker, the shoe, and the hand evaluator. One full cycle runs
// detections → tracks → hands → evaluations; a cycle always runs to
// completion.
//
// The shoe is decremented by the tracker's confirmation hook and read later
// in the same cycle by the evaluator. That is the one cross-cutting
// read/write pair in the system, which is why both the shoe and the tracker
// carry their own locks even though a single stream's cycles are serial.
type TableAnalyzer struct {
	streamID         string
	tracker          *Tracker
	shoe             *Shoe
	evaluator        *HandEvaluator
	overlapThreshold float64
}

// TableSnapshot is the result of one analysis cycle.
type TableSnapshot struct {
	Tracks      map[int]TrackView
	Hands       []Hand
	Evaluations []Evaluation
	ShoeCounts  map[int]int
}

// NewTableAnalyzer wires a tracker, shoe and evaluator for one stream.
// Confirming a card removes its rank from the shoe: a confirmed card has
// left the undealt pile. Cards are never returned on track deletion.
func NewTableAnalyzer(streamID string, params TrackerParams, overlapThreshold float64, deckCount int, valuer ActionValuer) *TableAnalyzer {
	shoe := NewShoe(deckCount)

	a := &TableAnalyzer{
		streamID:         streamID,
		shoe:             shoe,
		evaluator:        NewHandEvaluator(shoe, valuer),
		overlapThreshold: overlapThreshold,
	}

	a.tracker = NewTracker(params, func(tr Track) {
		observability.CardsConfirmed.WithLabelValues(streamID).Inc()
		if tr.Label == LabelNone {
			slog.Warn("confirmed card without label", "stream_id", streamID, "track_id", tr.ID)
			return
		}
		if !shoe.Remove(tr.Label) {
			slog.Warn("shoe decrement failed, bucket empty",
				"stream_id", streamID, "track_id", tr.ID, "rank", NormalizeRank(tr.Label))
		}
	})
	return a
}

// Analyze runs one detect-to-evaluate cycle over a frame's detections.
func (a *TableAnalyzer) Analyze(ctx context.Context, detections []Detection) TableSnapshot {
	tracks := a.tracker.Update(detections)
	hands := GroupHands(tracks, a.overlapThreshold)
	evals := a.evaluator.EvaluateHands(ctx, hands)

	return TableSnapshot{
		Tracks:      tracks,
		Hands:       hands,
		Evaluations: evals,
		ShoeCounts:  a.shoe.Counts(),
	}
}

// ResetShoe re-seeds the shoe, e.g. when the dealer swaps in a fresh shoe.
// Track state is left alone; the operator decides shoe boundaries.
func (a *TableAnalyzer) ResetShoe(deckCount int) {
	a.shoe.Reset(deckCount)
	slog.Info("shoe reset", "stream_id", a.streamID, "decks", deckCount)
}

// ShoeCounts returns the current remaining-card counts.
func (a *TableAnalyzer) ShoeCounts() map[int]int {
	return a.shoe.Counts()
}
