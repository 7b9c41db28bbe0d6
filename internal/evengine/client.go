package evengine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/your-org/deckwatch/internal/observability"
	"github.com/your-org/deckwatch/internal/vision"
)

const surrenderEV = -0.5

// Client queries an out-of-process expected value engine over NATS
// request/reply. Each action is served on its own subject,
// e.g. "ev.stand", "ev.hit".
type Client struct {
	nc      *nats.Conn
	prefix  string
	timeout time.Duration
}

type request struct {
	Deck   [vision.ShoeRanks]int `json:"deck"`
	Player []int                 `json:"player"`
	Dealer []int                 `json:"dealer"`
}

type response struct {
	EV    float64 `json:"ev"`
	Error string  `json:"error,omitempty"`
}

func New(nc *nats.Conn, subjectPrefix string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{nc: nc, prefix: subjectPrefix, timeout: timeout}
}

// EV returns the expected value of playing the given action. Surrender
// is a fixed payout and never reaches the engine.
func (c *Client) EV(ctx context.Context, action vision.Action, shoeCounts map[int]int, playerRanks, dealerRanks []int) (float64, error) {
	if !vision.ValidAction(action) {
		return 0, fmt.Errorf("unknown action %q", action)
	}
	if action == vision.ActionSurrender {
		return surrenderEV, nil
	}

	req := request{
		Player: cardValues(playerRanks),
		Dealer: cardValues(dealerRanks),
	}
	for rank, n := range shoeCounts {
		if rank >= 0 && rank < vision.ShoeRanks {
			req.Deck[rank] = n
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("marshal ev request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	subject := c.prefix + "." + string(action)
	msg, err := c.nc.RequestWithContext(reqCtx, subject, payload)
	if err != nil {
		observability.EVRequestFailures.WithLabelValues(string(action)).Inc()
		return 0, fmt.Errorf("ev request %s: %w", subject, err)
	}

	var resp response
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		observability.EVRequestFailures.WithLabelValues(string(action)).Inc()
		return 0, fmt.Errorf("decode ev response: %w", err)
	}
	if resp.Error != "" {
		observability.EVRequestFailures.WithLabelValues(string(action)).Inc()
		return 0, fmt.Errorf("ev engine: %s", resp.Error)
	}

	return resp.EV, nil
}

// cardValues converts normalized ranks to blackjack card values: rank 0
// is an ace reported as 1, ranks 1 through 8 map to their pip value,
// and rank 9 covers tens and faces. Unreadable ranks (negative) are
// skipped.
func cardValues(ranks []int) []int {
	values := make([]int, 0, len(ranks))
	for _, r := range ranks {
		switch {
		case r < 0:
			continue
		case r == 0:
			values = append(values, 1)
		case r >= 1 && r <= 8:
			values = append(values, r+1)
		default:
			values = append(values, 10)
		}
	}
	return values
}
