package vision

// LabelNone marks a detection or track whose rank the detector could not
// classify.
const LabelNone = -1

// TrackState is the lifecycle state of a track.
type TrackState int

const (
	TrackTentative TrackState = iota // new track, not yet confirmed
	TrackConfirmed                   // stable track after consecutive hits
	TrackDeleted                     // too many misses, purged from the live set
)

func (s TrackState) String() string {
	switch s {
	case TrackTentative:
		return "tentative"
	case TrackConfirmed:
		return "confirmed"
	case TrackDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Detection is one detector output for a single frame: a box, the card rank
// (0=ace .. 12=king, or LabelNone) and the detector confidence in [0,1].
// Detections carry no identity across frames; identity is established only by
// the Tracker.
type Detection struct {
	Box        Box
	Label      int
	Confidence float64
}

// Track is a single tracked card. The Tracker exclusively owns all Track
// instances; callers only ever see copies.
//
// Hits and misses are mutually exclusive counters: every hit resets misses to
// zero and vice versa, so after any update at most one of them is nonzero.
type Track struct {
	ID     int
	Box    Box
	Label  int
	State  TrackState
	Hits   int
	Misses int
}

func newTrack(id int, det Detection) *Track {
	return &Track{
		ID:    id,
		Box:   det.Box,
		Label: det.Label,
		State: TrackTentative,
		Hits:  1,
	}
}

// registerHit folds a matched detection into the track.
func (t *Track) registerHit(box Box, label int) {
	t.Box = box
	t.Label = label
	t.Misses = 0
	t.Hits++
}

// registerMiss records a frame with no matching detection.
func (t *Track) registerMiss() {
	t.Misses++
	t.Hits = 0
}
