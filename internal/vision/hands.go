package vision

import (
	"sort"
	"strconv"
)

// DealerHandID is the well-known ID of the pooled dealer hand.
const DealerHandID = "Dealer"

// DefaultOverlapThreshold is the hand-grouping overlap ratio. Much looser
// than the tracker's IoU threshold: cards dealt to the same hand are
// adjacent, not coincident.
const DefaultOverlapThreshold = 0.1

// Hand is a spatially clustered group of confirmed cards. Hands are
// recomputed from scratch every cycle; any continuity across frames falls
// out of track continuity, not hand identity.
type Hand struct {
	ID    string
	Cards []int
	Score int
	Boxes []Box
}

// GroupHands partitions the confirmed tracks' boxes into hands.
//
// Every singleton group is pooled into one "Dealer" hand — the dealer's cards
// are spread apart on the table while a player's cards are dealt overlapping
// in front of them. That is a camera-angle convention of this deployment, not
// a rule of blackjack. Groups of two or more cards become "Player 1..N",
// numbered left to right by the minimum x-coordinate of their member boxes,
// independent of track ID or input order.
//
// Tentative and deleted tracks never contribute.
func GroupHands(tracks map[int]TrackView, overlapThreshold float64) []Hand {
	ids := make([]int, 0, len(tracks))
	for id, tv := range tracks {
		if tv.State == TrackConfirmed {
			ids = append(ids, id)
		}
	}
	// Deterministic input order for grouping regardless of map iteration.
	sort.Ints(ids)

	boxes := make([]Box, len(ids))
	labels := make([]int, len(ids))
	for i, id := range ids {
		boxes[i] = tracks[id].Box
		labels[i] = tracks[id].Label
	}

	groups := GroupByOverlap(boxes, overlapThreshold)

	var dealer Hand
	var players []Hand

	for _, group := range groups {
		cards := make([]int, 0, len(group))
		handBoxes := make([]Box, 0, len(group))
		for _, idx := range group {
			cards = append(cards, labels[idx])
			handBoxes = append(handBoxes, boxes[idx])
		}

		if len(group) == 1 {
			dealer.Cards = append(dealer.Cards, cards...)
			dealer.Boxes = append(dealer.Boxes, handBoxes...)
			continue
		}
		players = append(players, Hand{Cards: cards, Boxes: handBoxes})
	}

	sort.SliceStable(players, func(i, j int) bool {
		return leftmostX(players[i].Boxes) < leftmostX(players[j].Boxes)
	})

	var hands []Hand
	if len(dealer.Cards) > 0 {
		dealer.ID = DealerHandID
		dealer.Score = ScoreHand(dealer.Cards)
		hands = append(hands, dealer)
	}
	for i := range players {
		players[i].ID = playerHandID(i + 1)
		players[i].Score = ScoreHand(players[i].Cards)
		hands = append(hands, players[i])
	}
	return hands
}

func leftmostX(boxes []Box) float64 {
	m := boxes[0].X1
	for _, b := range boxes[1:] {
		if b.X1 < m {
			m = b.X1
		}
	}
	return m
}

func playerHandID(n int) string {
	return "Player " + strconv.Itoa(n)
}

// ScoreHand computes the best blackjack total for a list of card ranks:
// ace (0) counts 1, ranks 1..8 count rank+1, everything else counts 10.
// Aces are then promoted from 1 to 11 one at a time while the total stays at
// or under 21, reproducing soft/hard totals without enumerating combinations.
// A lone ace therefore scores 11. Unreadable ranks (negative) are
// skipped.
func ScoreHand(cards []int) int {
	total := 0
	aces := 0

	for _, c := range cards {
		switch {
		case c < 0:
			// Detector could not read the rank; nothing to add.
		case c == 0:
			total++
			aces++
		case c >= 1 && c <= 8:
			total += c + 1
		default:
			total += 10
		}
	}

	for aces > 0 && total+10 <= 21 {
		total += 10
		aces--
	}
	return total
}
