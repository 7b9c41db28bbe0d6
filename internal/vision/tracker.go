package vision

import (
	"sort"
	"sync"
)

// TrackerParams are the association and lifecycle thresholds for a Tracker.
type TrackerParams struct {
	// ConfidenceThreshold drops detections below this confidence before
	// association.
	ConfidenceThreshold float64
	// IoUThreshold is the minimum IoU for an assignment to be accepted. The
	// solver considers every pair; pairs below the threshold are rejected
	// afterwards rather than forced together.
	IoUThreshold float64
	// ConfirmationFrames is the consecutive hit count at which a tentative
	// track is confirmed.
	ConfirmationFrames int
	// RemovalFrames is the miss count a track must strictly exceed before it
	// is deleted.
	RemovalFrames int
}

// ConfirmFunc is invoked synchronously, exactly once per track, at the
// instant the track transitions tentative → confirmed. The Track is passed
// by value; receivers must not assume it stays current.
type ConfirmFunc func(Track)

// TrackView is the per-track snapshot returned from Update.
type TrackView struct {
	Box   Box
	Label int
	State TrackState
}

// Tracker maintains card tracks across frames. Each Update associates the
// frame's detections to live tracks by solving a bipartite assignment over
// 1−IoU costs, advances hit/miss lifecycles, spawns tentative tracks for
// unmatched detections and purges stale tracks.
type Tracker struct {
	mu        sync.Mutex
	tracks    map[int]*Track
	nextID    int
	params    TrackerParams
	onConfirm ConfirmFunc
}

// NewTracker creates a tracker. onConfirm may be nil.
func NewTracker(params TrackerParams, onConfirm ConfirmFunc) *Tracker {
	return &Tracker{
		tracks:    make(map[int]*Track),
		params:    params,
		onConfirm: onConfirm,
	}
}

// Update processes one frame of detections and returns a snapshot of the
// live track set keyed by track ID.
func (t *Tracker) Update(detections []Detection) map[int]TrackView {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := detections[:0:0]
	for _, d := range detections {
		if d.Confidence >= t.params.ConfidenceThreshold {
			kept = append(kept, d)
		}
	}

	assignments, unmatched := t.associate(kept)

	// Matched tracks register hits; a tentative track reaching the
	// confirmation threshold is promoted and the hook fires inline. The
	// promotion happens at most once because the state check never sees
	// TrackTentative again.
	for trackID, detIdx := range assignments {
		tr := t.tracks[trackID]
		det := kept[detIdx]
		tr.registerHit(det.Box, det.Label)

		if tr.State == TrackTentative && tr.Hits >= t.params.ConfirmationFrames {
			tr.State = TrackConfirmed
			if t.onConfirm != nil {
				t.onConfirm(*tr)
			}
		}
	}

	// Unmatched tracks register misses and are purged once the miss count
	// strictly exceeds the removal threshold. Deleted tracks are never
	// emitted again.
	for id, tr := range t.tracks {
		if _, matched := assignments[id]; matched {
			continue
		}
		tr.registerMiss()
		if tr.Misses > t.params.RemovalFrames {
			tr.State = TrackDeleted
			delete(t.tracks, id)
		}
	}

	// Unmatched detections spawn tentative tracks. IDs are monotonically
	// increasing and never reused, even after deletion.
	for _, detIdx := range unmatched {
		t.tracks[t.nextID] = newTrack(t.nextID, kept[detIdx])
		t.nextID++
	}

	views := make(map[int]TrackView, len(t.tracks))
	for id, tr := range t.tracks {
		views[id] = TrackView{Box: tr.Box, Label: tr.Label, State: tr.State}
	}
	return views
}

// TrackCount returns the number of live tracks.
func (t *Tracker) TrackCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tracks)
}

// associate solves the track-to-detection assignment. It returns accepted
// assignments (track ID → detection index) and the indices of detections
// left unmatched. Callers hold t.mu.
func (t *Tracker) associate(detections []Detection) (map[int]int, []int) {
	assignments := make(map[int]int)

	if len(detections) == 0 {
		return assignments, nil
	}
	if len(t.tracks) == 0 {
		unmatched := make([]int, len(detections))
		for i := range detections {
			unmatched[i] = i
		}
		return assignments, unmatched
	}

	// Stable row order: map iteration is randomised, the solver is not.
	trackIDs := make([]int, 0, len(t.tracks))
	for id := range t.tracks {
		trackIDs = append(trackIDs, id)
	}
	sort.Ints(trackIDs)

	iou := make([][]float64, len(trackIDs))
	cost := make([][]float64, len(trackIDs))
	for i, id := range trackIDs {
		iou[i] = make([]float64, len(detections))
		cost[i] = make([]float64, len(detections))
		for j, det := range detections {
			iou[i][j] = IoU(t.tracks[id].Box, det.Box)
			cost[i][j] = 1 - iou[i][j]
		}
	}

	assign := hungarianAssign(cost)

	matchedDet := make([]bool, len(detections))
	for i, j := range assign {
		if j < 0 || iou[i][j] < t.params.IoUThreshold {
			continue
		}
		assignments[trackIDs[i]] = j
		matchedDet[j] = true
	}

	var unmatched []int
	for j := range detections {
		if !matchedDet[j] {
			unmatched = append(unmatched, j)
		}
	}
	return assignments, unmatched
}
