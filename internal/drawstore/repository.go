package drawstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/park285/cheese-draw/internal/domain"
	"github.com/park285/cheese-draw/internal/notation"
)

const schema = `CREATE TABLE IF NOT EXISTS draw_results (
    session_id   TEXT PRIMARY KEY,
    white_name   TEXT NOT NULL,
    black_name   TEXT NOT NULL,
    start_fen    TEXT NOT NULL,
    final_fen    TEXT NOT NULL,
    result       TEXT NOT NULL,
    termination  TEXT NOT NULL,
    description  TEXT NOT NULL,
    ply          INTEGER NOT NULL,
    moves_uci    TEXT[] NOT NULL,
    moves_san    TEXT[] NOT NULL,
    draw_history JSONB,
    pgn          TEXT NOT NULL,
    started_at   TIMESTAMPTZ NOT NULL,
    ended_at     TIMESTAMPTZ NOT NULL,
    duration_ms  BIGINT NOT NULL
)`

const upsertResult = `INSERT INTO draw_results (
    session_id, white_name, black_name, start_fen, final_fen,
    result, termination, description, ply, moves_uci, moves_san,
    draw_history, pgn, started_at, ended_at, duration_ms
  ) VALUES (
    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
  ) ON CONFLICT (session_id) DO UPDATE SET
    white_name=EXCLUDED.white_name,
    black_name=EXCLUDED.black_name,
    start_fen=EXCLUDED.start_fen,
    final_fen=EXCLUDED.final_fen,
    result=EXCLUDED.result,
    termination=EXCLUDED.termination,
    description=EXCLUDED.description,
    ply=EXCLUDED.ply,
    moves_uci=EXCLUDED.moves_uci,
    moves_san=EXCLUDED.moves_san,
    draw_history=EXCLUDED.draw_history,
    pgn=EXCLUDED.pgn,
    started_at=EXCLUDED.started_at,
    ended_at=EXCLUDED.ended_at,
    duration_ms=EXCLUDED.duration_ms`

// Repository persists finished games to Postgres.
type Repository struct {
	db     *sql.DB
	pgn    notation.Options
	logger *zap.Logger
}

func NewRepository(ctx context.Context, databaseURL string, pgn notation.Options, logger *zap.Logger) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewRepositoryWithDB(db, pgn, logger), nil
}

func NewRepositoryWithDB(db *sql.DB, pgn notation.Options, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{db: db, pgn: pgn, logger: logger}
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// EnsureSchema creates the results table when it is missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// SaveResult upserts a finished game keyed by session id.
func (r *Repository) SaveResult(ctx context.Context, rec domain.GameRecord) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, upsertResult, resultArgs(rec, notation.BuildPGN(rec, r.pgn))...)
	if err != nil {
		r.logger.Error("draw_result_persist_error", zap.String("session_id", rec.SessionID), zap.Error(err))
		return err
	}
	r.logger.Info("draw_result_persist",
		zap.String("session_id", rec.SessionID),
		zap.String("result", rec.Result),
		zap.String("termination", rec.Termination),
	)
	return nil
}

func resultArgs(rec domain.GameRecord, pgn string) []any {
	var history any
	if len(rec.DrawHistory) > 0 {
		history = string(rec.DrawHistory)
	}
	return []any{
		rec.SessionID,
		rec.White, rec.Black,
		rec.StartFEN, rec.FinalFEN,
		rec.Result, rec.Termination, rec.Description, rec.Ply,
		pq.Array(nonNil(rec.MovesUCI)), pq.Array(nonNil(rec.MovesSAN)),
		history, pgn,
		rec.StartedAt, rec.EndedAt, rec.Duration().Milliseconds(),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
