package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() TrackerParams {
	return TrackerParams{
		ConfidenceThreshold: 0.5,
		IoUThreshold:        0.3,
		ConfirmationFrames:  5,
		RemovalFrames:       10,
	}
}

func det(x float64, label int) Detection {
	return Detection{
		Box:        Box{X1: x, Y1: 0, X2: x + 10, Y2: 10},
		Label:      label,
		Confidence: 0.9,
	}
}

func TestTrackerSpawnsTentative(t *testing.T) {
	tr := NewTracker(testParams(), nil)

	views := tr.Update([]Detection{det(0, 3)})
	require.Len(t, views, 1)
	for _, v := range views {
		assert.Equal(t, TrackTentative, v.State)
		assert.Equal(t, 3, v.Label)
	}
}

func TestTrackerConfidenceFilter(t *testing.T) {
	tr := NewTracker(testParams(), nil)

	d := det(0, 3)
	d.Confidence = 0.4
	views := tr.Update([]Detection{d})
	assert.Empty(t, views)
}

func TestTrackerConfirmsAtThreshold(t *testing.T) {
	confirmed := 0
	tr := NewTracker(testParams(), func(track Track) {
		confirmed++
		assert.Equal(t, 5, track.Hits)
	})

	for frame := 1; frame <= 4; frame++ {
		views := tr.Update([]Detection{det(0, 3)})
		for _, v := range views {
			assert.Equal(t, TrackTentative, v.State, "frame %d", frame)
		}
	}
	assert.Equal(t, 0, confirmed)

	views := tr.Update([]Detection{det(0, 3)})
	for _, v := range views {
		assert.Equal(t, TrackConfirmed, v.State)
	}
	assert.Equal(t, 1, confirmed)

	// The hook never fires again for an already confirmed track.
	for frame := 0; frame < 10; frame++ {
		tr.Update([]Detection{det(0, 3)})
	}
	assert.Equal(t, 1, confirmed)
}

func TestTrackerMissResetsConfirmationProgress(t *testing.T) {
	confirmed := 0
	tr := NewTracker(testParams(), func(Track) { confirmed++ })

	// 4 hits, one miss, then 4 more hits: still not confirmed, because
	// hits must be consecutive.
	for i := 0; i < 4; i++ {
		tr.Update([]Detection{det(0, 3)})
	}
	tr.Update(nil)
	for i := 0; i < 4; i++ {
		tr.Update([]Detection{det(0, 3)})
	}
	assert.Equal(t, 0, confirmed)

	tr.Update([]Detection{det(0, 3)})
	assert.Equal(t, 1, confirmed)
}

func TestTrackerRemovalIsStrictlyGreater(t *testing.T) {
	params := testParams()
	params.RemovalFrames = 3
	tr := NewTracker(params, nil)

	tr.Update([]Detection{det(0, 3)})
	require.Equal(t, 1, tr.TrackCount())

	// Exactly RemovalFrames misses: track survives.
	for i := 0; i < 3; i++ {
		tr.Update(nil)
	}
	assert.Equal(t, 1, tr.TrackCount())

	// One more miss exceeds the threshold.
	tr.Update(nil)
	assert.Equal(t, 0, tr.TrackCount())
}

func TestTrackerIDsNeverReused(t *testing.T) {
	params := testParams()
	params.RemovalFrames = 0
	tr := NewTracker(params, nil)

	views := tr.Update([]Detection{det(0, 3)})
	var firstID int
	for id := range views {
		firstID = id
	}

	// Miss kills it (strictly greater than 0).
	tr.Update(nil)
	require.Equal(t, 0, tr.TrackCount())

	views = tr.Update([]Detection{det(0, 3)})
	for id := range views {
		assert.Greater(t, id, firstID)
	}
}

func TestTrackerMatchingFollowsMotion(t *testing.T) {
	tr := NewTracker(testParams(), nil)

	views := tr.Update([]Detection{det(0, 3)})
	var id int
	for trackID := range views {
		id = trackID
	}

	// Shift by 2px per frame; IoU stays high, same track follows.
	for i := 1; i <= 5; i++ {
		views = tr.Update([]Detection{det(float64(2 * i), 3)})
		require.Len(t, views, 1)
		_, ok := views[id]
		require.True(t, ok, "track %d lost at step %d", id, i)
	}
}

func TestTrackerLowIoURejectedSpawnsNew(t *testing.T) {
	tr := NewTracker(testParams(), nil)

	tr.Update([]Detection{det(0, 3)})
	// Far away detection: assignment exists but IoU is 0, so the old track
	// misses and a new tentative track spawns.
	views := tr.Update([]Detection{det(500, 7)})
	assert.Len(t, views, 2)
	assert.Equal(t, 2, tr.TrackCount())
}

func TestTrackerTwoCardsKeepIdentity(t *testing.T) {
	tr := NewTracker(testParams(), nil)

	a := det(0, 1)
	b := det(100, 2)
	views := tr.Update([]Detection{a, b})
	require.Len(t, views, 2)

	labelByID := make(map[int]int)
	for id, v := range views {
		labelByID[id] = v.Label
	}

	// Swap detection order; identities must not swap.
	views = tr.Update([]Detection{b, a})
	require.Len(t, views, 2)
	for id, v := range views {
		assert.Equal(t, labelByID[id], v.Label)
	}
}

func TestTrackerEmptyUpdate(t *testing.T) {
	tr := NewTracker(testParams(), nil)
	assert.Empty(t, tr.Update(nil))
	assert.Empty(t, tr.Update([]Detection{}))
}
