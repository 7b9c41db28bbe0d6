package vision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAnalyzerConfirmDecrementsShoe(t *testing.T) {
	valuer := &stubValuer{evs: map[Action]float64{ActionStand: 0.1}}
	a := NewTableAnalyzer("table-1", testParams(), DefaultOverlapThreshold, 1, valuer)

	var snap TableSnapshot
	for i := 0; i < 5; i++ {
		snap = a.Analyze(context.Background(), []Detection{det(0, 0)})
	}

	require.Len(t, snap.Tracks, 1)
	for _, tv := range snap.Tracks {
		assert.Equal(t, TrackConfirmed, tv.State)
	}
	assert.Equal(t, 3, snap.ShoeCounts[0], "one ace dealt out of the shoe")
	assert.Equal(t, 3, a.ShoeCounts()[0])

	// Further cycles confirm nothing new and leave the shoe alone.
	snap = a.Analyze(context.Background(), []Detection{det(0, 0)})
	assert.Equal(t, 3, snap.ShoeCounts[0])
}

func TestTableAnalyzerLoneCardBecomesDealerHand(t *testing.T) {
	valuer := &stubValuer{evs: map[Action]float64{ActionStand: 0.1}}
	a := NewTableAnalyzer("table-1", testParams(), DefaultOverlapThreshold, 1, valuer)

	var snap TableSnapshot
	for i := 0; i < 5; i++ {
		snap = a.Analyze(context.Background(), []Detection{det(0, 0)})
	}

	require.Len(t, snap.Hands, 1)
	assert.Equal(t, DealerHandID, snap.Hands[0].ID)
	assert.Equal(t, 11, snap.Hands[0].Score)

	// No player hands, so nothing to evaluate.
	assert.Empty(t, snap.Evaluations)
}

func TestTableAnalyzerFullCycle(t *testing.T) {
	valuer := &stubValuer{evs: map[Action]float64{
		ActionStand: -0.1,
		ActionHit:   0.2,
	}}
	a := NewTableAnalyzer("table-1", testParams(), DefaultOverlapThreshold, 1, valuer)

	// Two overlapping player cards on the left, one isolated dealer card on
	// the right.
	frame := []Detection{det(0, 4), det(4, 5), det(500, 9)}

	var snap TableSnapshot
	for i := 0; i < 5; i++ {
		snap = a.Analyze(context.Background(), frame)
	}

	require.Len(t, snap.Hands, 2)
	assert.Equal(t, DealerHandID, snap.Hands[0].ID)
	assert.Equal(t, "Player 1", snap.Hands[1].ID)

	require.Len(t, snap.Evaluations, 1)
	assert.Equal(t, "Player 1", snap.Evaluations[0].HandID)
	assert.Equal(t, ActionHit, snap.Evaluations[0].BestAction)

	assert.Equal(t, 3, snap.ShoeCounts[4])
	assert.Equal(t, 3, snap.ShoeCounts[5])
	assert.Equal(t, 15, snap.ShoeCounts[9])
}

func TestTableAnalyzerResetShoe(t *testing.T) {
	a := NewTableAnalyzer("table-1", testParams(), DefaultOverlapThreshold, 1, &stubValuer{})

	for i := 0; i < 5; i++ {
		a.Analyze(context.Background(), []Detection{det(0, 2)})
	}
	require.Equal(t, 3, a.ShoeCounts()[2])

	a.ResetShoe(2)
	assert.Equal(t, 8, a.ShoeCounts()[2])
	assert.Equal(t, 32, a.ShoeCounts()[9])
}

func TestTableAnalyzerTentativeCardsUntouchedShoe(t *testing.T) {
	a := NewTableAnalyzer("table-1", testParams(), DefaultOverlapThreshold, 1, &stubValuer{})

	snap := a.Analyze(context.Background(), []Detection{det(0, 0)})
	require.Len(t, snap.Tracks, 1)
	assert.Empty(t, snap.Hands)
	assert.Equal(t, 4, snap.ShoeCounts[0])
}
