package vision

import (
	"context"
	"log/slog"
)

// Action is a player decision the EV engine can value.
type Action string

const (
	ActionStand     Action = "stand"
	ActionHit       Action = "hit"
	ActionDouble    Action = "double"
	ActionSplit     Action = "split"
	ActionSurrender Action = "surrender"
)

// Actions lists every action in evaluation order. The order is the
// deterministic tie-break for best-action selection: on equal EV the earlier
// action wins.
var Actions = []Action{ActionStand, ActionHit, ActionDouble, ActionSplit, ActionSurrender}

// ValidAction reports whether a is one of the five known actions.
func ValidAction(a Action) bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// ActionValuer computes the expected value of one action given the remaining
// shoe composition and the player and dealer card ranks. Each action is
// independently computable and independently failable.
type ActionValuer interface {
	EV(ctx context.Context, action Action, shoeCounts map[int]int, playerRanks, dealerRanks []int) (float64, error)
}

// Evaluation is the per-hand outcome of an evaluation cycle. BestAction is
// empty when no action could be valued.
type Evaluation struct {
	HandID     string
	EVs        map[Action]float64
	BestAction Action
}

// HandEvaluator values every legal action for each player hand against the
// current shoe and dealer up-cards.
type HandEvaluator struct {
	shoe   *Shoe
	valuer ActionValuer
}

func NewHandEvaluator(shoe *Shoe, valuer ActionValuer) *HandEvaluator {
	return &HandEvaluator{shoe: shoe, valuer: valuer}
}

// EvaluateHands values each non-dealer hand. Without a confirmed dealer card
// there is no context for EV, so evaluation is skipped entirely and nil is
// returned. A failed lookup for one action is logged and that action omitted;
// it aborts neither the hand nor the cycle.
func (e *HandEvaluator) EvaluateHands(ctx context.Context, hands []Hand) []Evaluation {
	var dealerCards []int
	for _, h := range hands {
		if h.ID == DealerHandID {
			dealerCards = h.Cards
			break
		}
	}
	if len(dealerCards) == 0 {
		return nil
	}

	counts := e.shoe.Counts()

	var results []Evaluation
	for _, h := range hands {
		if h.ID == DealerHandID {
			continue
		}

		evs := make(map[Action]float64, len(Actions))
		for _, action := range Actions {
			ev, err := e.valuer.EV(ctx, action, counts, h.Cards, dealerCards)
			if err != nil {
				slog.Warn("ev lookup failed", "hand", h.ID, "action", string(action), "error", err)
				continue
			}
			evs[action] = ev
		}

		results = append(results, Evaluation{
			HandID:     h.ID,
			EVs:        evs,
			BestAction: bestAction(evs),
		})
	}
	return results
}

func bestAction(evs map[Action]float64) Action {
	var best Action
	bestEV := 0.0
	for _, a := range Actions {
		ev, ok := evs[a]
		if !ok {
			continue
		}
		if best == "" || ev > bestEV {
			best = a
			bestEV = ev
		}
	}
	return best
}
