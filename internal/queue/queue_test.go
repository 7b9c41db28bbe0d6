package queue

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjects(t *testing.T) {
	id := uuid.MustParse("7b9f3a44-91c2-4f5e-a9bb-0b6f2f1d8e10")
	assert.Equal(t, "frames.7b9f3a44-91c2-4f5e-a9bb-0b6f2f1d8e10", frameSubject(id))
	assert.Equal(t, "events.7b9f3a44-91c2-4f5e-a9bb-0b6f2f1d8e10", updateSubject(id))
}

func TestDecodeStreamCommand(t *testing.T) {
	cmd, err := DecodeStreamCommand([]byte(`{"action":"start","stream_id":"abc","url":"rtsp://cam/table","type":"rtsp","fps":5}`))
	require.NoError(t, err)
	assert.Equal(t, ActionStart, cmd.Action)
	assert.Equal(t, "abc", cmd.StreamID)
	assert.Equal(t, "rtsp://cam/table", cmd.URL)
	assert.Equal(t, 5, cmd.FPS)

	_, err = DecodeStreamCommand([]byte("not json"))
	assert.Error(t, err)
}

func TestDecodeTableCommand(t *testing.T) {
	id := uuid.New()
	payload, err := json.Marshal(TableCommand{Command: CommandResetShoe, StreamID: id, DeckCount: 6})
	require.NoError(t, err)

	cmd, err := DecodeTableCommand(payload)
	require.NoError(t, err)
	assert.Equal(t, CommandResetShoe, cmd.Command)
	assert.Equal(t, id, cmd.StreamID)
	assert.Equal(t, 6, cmd.DeckCount)

	_, err = DecodeTableCommand([]byte("{"))
	assert.Error(t, err)
}
