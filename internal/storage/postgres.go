package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/deckwatch/internal/config"
	"github.com/your-org/deckwatch/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Streams ---

func (s *PostgresStore) CreateStream(ctx context.Context, st *models.Stream) error {
	st.ID = uuid.New()
	st.Status = models.StreamStatusStopped
	if st.Config == nil {
		st.Config = json.RawMessage("{}")
	}
	return s.pool.QueryRow(ctx,
		`INSERT INTO streams (id, url, stream_type, fps, deck_count, status, config)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at, updated_at`,
		st.ID, st.URL, st.StreamType, st.FPS, st.DeckCount, st.Status, st.Config,
	).Scan(&st.CreatedAt, &st.UpdatedAt)
}

func (s *PostgresStore) GetStream(ctx context.Context, id uuid.UUID) (*models.Stream, error) {
	st := &models.Stream{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, url, stream_type, fps, deck_count, status, config, error_message, created_at, updated_at
		 FROM streams WHERE id = $1`, id,
	).Scan(&st.ID, &st.URL, &st.StreamType, &st.FPS, &st.DeckCount, &st.Status,
		&st.Config, &st.ErrorMessage, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get stream: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) ListStreams(ctx context.Context) ([]models.Stream, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, url, stream_type, fps, deck_count, status, config, error_message, created_at, updated_at
		 FROM streams ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}
	defer rows.Close()

	var streams []models.Stream
	for rows.Next() {
		var st models.Stream
		if err := rows.Scan(&st.ID, &st.URL, &st.StreamType, &st.FPS, &st.DeckCount, &st.Status,
			&st.Config, &st.ErrorMessage, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stream: %w", err)
		}
		streams = append(streams, st)
	}
	return streams, nil
}

func (s *PostgresStore) UpdateStreamStatus(ctx context.Context, id uuid.UUID, status models.StreamStatus, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE streams SET status = $1, error_message = $2 WHERE id = $3`,
		status, errMsg, id)
	return err
}

func (s *PostgresStore) DeleteStream(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM streams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete stream: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stream not found")
	}
	return nil
}

// --- Table updates ---

// tableUpdatePayload is the jsonb column holding the per-frame analysis.
type tableUpdatePayload struct {
	Tracks      []models.TrackInfo      `json:"tracks"`
	Hands       []models.HandInfo       `json:"hands"`
	Evaluations []models.HandEvaluation `json:"evaluations"`
	ShoeCounts  map[int]int             `json:"shoe_counts"`
}

func (s *PostgresStore) CreateTableUpdate(ctx context.Context, tu *models.TableUpdate) error {
	tu.ID = uuid.New()
	tu.CreatedAt = time.Now()

	payload, err := json.Marshal(tableUpdatePayload{
		Tracks:      tu.Tracks,
		Hands:       tu.Hands,
		Evaluations: tu.Evaluations,
		ShoeCounts:  tu.ShoeCounts,
	})
	if err != nil {
		return fmt.Errorf("marshal table update payload: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO table_updates (id, stream_id, timestamp, frame_key, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		tu.ID, tu.StreamID, tu.Timestamp, tu.FrameKey, payload, tu.CreatedAt)
	return err
}

func (s *PostgresStore) ListTableUpdates(ctx context.Context, streamID uuid.UUID, from, to *time.Time, limit, offset int) ([]models.TableUpdate, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	baseWhere := "WHERE stream_id = $1"
	args := []interface{}{streamID}
	argIdx := 2

	if from != nil {
		baseWhere += fmt.Sprintf(" AND timestamp >= $%d", argIdx)
		args = append(args, *from)
		argIdx++
	}
	if to != nil {
		baseWhere += fmt.Sprintf(" AND timestamp <= $%d", argIdx)
		args = append(args, *to)
		argIdx++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM table_updates " + baseWhere
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count table updates: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, stream_id, timestamp, frame_key, payload, created_at
		 FROM table_updates %s ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`,
		baseWhere, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query table updates: %w", err)
	}
	defer rows.Close()

	var updates []models.TableUpdate
	for rows.Next() {
		tu, err := scanTableUpdate(rows)
		if err != nil {
			return nil, 0, err
		}
		updates = append(updates, *tu)
	}
	return updates, total, nil
}

// GetTableUpdate returns a single table update by ID, or nil when not found.
func (s *PostgresStore) GetTableUpdate(ctx context.Context, id uuid.UUID) (*models.TableUpdate, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, stream_id, timestamp, frame_key, payload, created_at
		 FROM table_updates WHERE id = $1`, id)

	tu, err := scanTableUpdate(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return tu, nil
}

// GetLatestTableUpdate returns the most recent table update for a stream,
// or nil when none have been recorded.
func (s *PostgresStore) GetLatestTableUpdate(ctx context.Context, streamID uuid.UUID) (*models.TableUpdate, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, stream_id, timestamp, frame_key, payload, created_at
		 FROM table_updates WHERE stream_id = $1 ORDER BY timestamp DESC LIMIT 1`, streamID)

	tu, err := scanTableUpdate(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return tu, nil
}

func scanTableUpdate(row pgx.Row) (*models.TableUpdate, error) {
	var tu models.TableUpdate
	var payload []byte
	if err := row.Scan(&tu.ID, &tu.StreamID, &tu.Timestamp, &tu.FrameKey, &payload, &tu.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan table update: %w", err)
	}

	var p tableUpdatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("unmarshal table update payload: %w", err)
	}
	tu.Tracks = p.Tracks
	tu.Hands = p.Hands
	tu.Evaluations = p.Evaluations
	tu.ShoeCounts = p.ShoeCounts
	return &tu, nil
}
