package vision

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/deckwatch/internal/config"
	"github.com/your-org/deckwatch/internal/queue"
)

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	return &Pipeline{
		cfg:      config.VisionConfig{ConfidenceThreshold: 0.5},
		trackCfg: config.TrackingConfig{IoUThreshold: 0.3, ConfirmationFrames: 5, RemovalFrames: 10, OverlapThreshold: 0.1},
		shoeCfg:  config.ShoeConfig{DeckCount: 1},
		tables:   make(map[uuid.UUID]*TableAnalyzer),
		pending:  make(map[uuid.UUID]int),
	}
}

func controlPayload(t *testing.T, cmd queue.TableCommand) []byte {
	t.Helper()
	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	return data
}

func TestTableControlResetsLiveShoe(t *testing.T) {
	p := testPipeline(t)
	streamID := uuid.New()
	p.newTable(streamID, 1)

	p.HandleTableControl(controlPayload(t, queue.TableCommand{
		Command:   queue.CommandResetShoe,
		StreamID:  streamID,
		DeckCount: 2,
	}))

	// Two decks carry eight of each low rank.
	assert.Equal(t, 8, p.tables[streamID].ShoeCounts()[0])
}

func TestTableControlDefersResetForUnknownStream(t *testing.T) {
	p := testPipeline(t)
	streamID := uuid.New()

	p.HandleTableControl(controlPayload(t, queue.TableCommand{
		Command:   queue.CommandResetShoe,
		StreamID:  streamID,
		DeckCount: 6,
	}))

	require.Equal(t, 6, p.pending[streamID])

	// The stashed deck count wins over the record-derived one.
	table := p.newTable(streamID, 1)
	assert.Equal(t, 24, table.ShoeCounts()[0])
	assert.Empty(t, p.pending)
}

func TestTableControlDefaultsDeckCount(t *testing.T) {
	p := testPipeline(t)
	streamID := uuid.New()

	p.HandleTableControl(controlPayload(t, queue.TableCommand{
		Command:  queue.CommandResetShoe,
		StreamID: streamID,
	}))

	assert.Equal(t, p.shoeCfg.DeckCount, p.pending[streamID])
}

func TestTableControlIgnoresMalformedPayload(t *testing.T) {
	p := testPipeline(t)

	p.HandleTableControl([]byte("not json"))
	p.HandleTableControl(controlPayload(t, queue.TableCommand{Command: "flip_table"}))

	assert.Empty(t, p.tables)
	assert.Empty(t, p.pending)
}
