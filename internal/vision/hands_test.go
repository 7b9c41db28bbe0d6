package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreHand(t *testing.T) {
	cases := []struct {
		name  string
		cards []int
		want  int
	}{
		{"empty", nil, 0},
		{"lone ace is eleven", []int{0}, 11},
		{"blackjack", []int{0, 12}, 21},
		{"two aces", []int{0, 0}, 12},
		{"soft seventeen", []int{0, 5}, 17},
		{"hard sixteen", []int{9, 5}, 16},
		{"ace demoted on bust risk", []int{0, 5, 9}, 17},
		{"three aces", []int{0, 0, 0}, 13},
		{"face cards are ten", []int{10, 11}, 20},
		{"three nines", []int{8, 8, 8}, 27},
		{"three tens", []int{9, 9, 9}, 30},
		{"five card hand", []int{1, 2, 3, 4, 5}, 20},
		{"unreadable rank skipped", []int{-1, 5}, 6},
		{"only unreadable ranks", []int{-1, -1}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ScoreHand(tc.cards))
		})
	}
}

func confirmedTrack(x float64, label int) TrackView {
	return TrackView{
		Box:   Box{X1: x, Y1: 0, X2: x + 10, Y2: 10},
		Label: label,
		State: TrackConfirmed,
	}
}

func TestGroupHandsSingletonsPoolIntoDealer(t *testing.T) {
	tracks := map[int]TrackView{
		1: confirmedTrack(0, 0),   // ace, isolated
		2: confirmedTrack(200, 9), // ten, isolated
	}

	hands := GroupHands(tracks, DefaultOverlapThreshold)
	require.Len(t, hands, 1)
	assert.Equal(t, DealerHandID, hands[0].ID)
	assert.ElementsMatch(t, []int{0, 9}, hands[0].Cards)
	assert.Equal(t, 21, hands[0].Score)
}

func TestGroupHandsPlayersNumberedLeftToRight(t *testing.T) {
	tracks := map[int]TrackView{
		// Right cluster first by track ID; numbering must follow x, not ID.
		1: confirmedTrack(500, 9),
		2: confirmedTrack(505, 6),
		3: confirmedTrack(0, 4),
		4: confirmedTrack(5, 5),
	}

	hands := GroupHands(tracks, DefaultOverlapThreshold)
	require.Len(t, hands, 2)

	assert.Equal(t, "Player 1", hands[0].ID)
	assert.ElementsMatch(t, []int{4, 5}, hands[0].Cards)
	assert.Equal(t, 11, hands[0].Score)

	assert.Equal(t, "Player 2", hands[1].ID)
	assert.ElementsMatch(t, []int{9, 6}, hands[1].Cards)
	assert.Equal(t, 17, hands[1].Score)
}

func TestGroupHandsDealerFirstThenPlayers(t *testing.T) {
	tracks := map[int]TrackView{
		1: confirmedTrack(300, 5), // isolated dealer card
		2: confirmedTrack(0, 9),
		3: confirmedTrack(5, 9),
	}

	hands := GroupHands(tracks, DefaultOverlapThreshold)
	require.Len(t, hands, 2)
	assert.Equal(t, DealerHandID, hands[0].ID)
	assert.Equal(t, "Player 1", hands[1].ID)
	assert.Equal(t, 20, hands[1].Score)
}

func TestGroupHandsIgnoresTentativeAndDeleted(t *testing.T) {
	tracks := map[int]TrackView{
		1: confirmedTrack(0, 4),
		2: {Box: Box{X1: 2, Y1: 0, X2: 12, Y2: 10}, Label: 5, State: TrackTentative},
		3: {Box: Box{X1: 4, Y1: 0, X2: 14, Y2: 10}, Label: 6, State: TrackDeleted},
	}

	hands := GroupHands(tracks, DefaultOverlapThreshold)
	require.Len(t, hands, 1)
	assert.Equal(t, DealerHandID, hands[0].ID)
	assert.Equal(t, []int{4}, hands[0].Cards)
}

func TestGroupHandsEmpty(t *testing.T) {
	assert.Empty(t, GroupHands(nil, DefaultOverlapThreshold))
	assert.Empty(t, GroupHands(map[int]TrackView{}, DefaultOverlapThreshold))
}

func TestGroupHandsDeterministic(t *testing.T) {
	tracks := map[int]TrackView{
		5: confirmedTrack(100, 2),
		9: confirmedTrack(104, 3),
		1: confirmedTrack(0, 7),
		3: confirmedTrack(4, 8),
	}

	first := GroupHands(tracks, DefaultOverlapThreshold)
	for i := 0; i < 20; i++ {
		again := GroupHands(tracks, DefaultOverlapThreshold)
		assert.Equal(t, first, again)
	}
}
