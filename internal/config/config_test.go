package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
database:
  host: localhost
  name: deckwatch
  user: dw
  password: secret
`))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 20, cfg.Database.MaxConns)
	assert.Equal(t, 0.5, cfg.Vision.ConfidenceThreshold)
	assert.Equal(t, 0.45, cfg.Vision.NMSThreshold)
	assert.Equal(t, 250*time.Millisecond, cfg.Vision.InferenceInterval)
	assert.Equal(t, 4, cfg.Vision.WorkerCount)
	assert.Equal(t, 1280, cfg.Vision.FrameWidth)
	assert.Equal(t, 5, cfg.Tracking.ConfirmationFrames)
	assert.Equal(t, 10, cfg.Tracking.RemovalFrames)
	assert.Equal(t, 0.3, cfg.Tracking.IoUThreshold)
	assert.Equal(t, 0.1, cfg.Tracking.OverlapThreshold)
	assert.Equal(t, 1, cfg.Shoe.DeckCount)
	assert.Equal(t, "ev", cfg.EV.SubjectPrefix)
	assert.Equal(t, 2*time.Second, cfg.EV.Timeout)
	assert.Equal(t, 500, cfg.Storage.FrameRetention)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadParsesYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 9090
  api_key: topsecret
vision:
  model_path: /models/cards.onnx
  confidence_threshold: 0.6
  inference_interval: 500ms
tracking:
  confirmation_frames: 3
  removal_frames: 7
shoe:
  deck_count: 6
ev:
  subject_prefix: evcalc
  timeout: 5s
`))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "topsecret", cfg.Server.APIKey)
	assert.Equal(t, "/models/cards.onnx", cfg.Vision.ModelPath)
	assert.Equal(t, 0.6, cfg.Vision.ConfidenceThreshold)
	assert.Equal(t, 500*time.Millisecond, cfg.Vision.InferenceInterval)
	assert.Equal(t, 3, cfg.Tracking.ConfirmationFrames)
	assert.Equal(t, 7, cfg.Tracking.RemovalFrames)
	assert.Equal(t, 6, cfg.Shoe.DeckCount)
	assert.Equal(t, "evcalc", cfg.EV.SubjectPrefix)
	assert.Equal(t, 5*time.Second, cfg.EV.Timeout)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DW_SERVER_PORT", "7070")
	t.Setenv("DW_API_KEY", "from-env")
	t.Setenv("DW_DB_HOST", "db.internal")
	t.Setenv("DW_NATS_URL", "nats://queue:4222")
	t.Setenv("DW_DECK_COUNT", "8")
	t.Setenv("DW_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, `
server:
  port: 9090
  api_key: from-file
database:
  host: localhost
`))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Server.APIKey)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "nats://queue:4222", cfg.NATS.URL)
	assert.Equal(t, 8, cfg.Shoe.DeckCount)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [not a map"))
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: 5433, Name: "deckwatch", User: "dw", Password: "pw",
	}
	assert.Equal(t, "postgres://dw:pw@db:5433/deckwatch?sslmode=disable", d.DSN())
}
