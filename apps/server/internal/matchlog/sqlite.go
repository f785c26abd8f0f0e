package matchlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"colosseum-lite/arena"
)

const defaultLocalDBName = "colosseum_local.db"

type sqliteStore struct {
	db *sql.DB
}

func NewSQLiteStoreFromEnv() (Store, string, error) {
	dbPath, err := localDatabasePathFromEnv()
	if err != nil {
		return nil, "", err
	}
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		return nil, "", err
	}
	return store, "sqlite", nil
}

func NewSQLiteStore(dbPath string) (Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Append(ctx context.Context, matchID string, seq int, ev arena.Event) error {
	if matchID == "" {
		return fmt.Errorf("matchlog: empty match id")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	payload, err := ev.Encode()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO match_events (match_id, seq, payload, recorded_at_ms)
VALUES (?, ?, ?, ?)
`, matchID, seq, string(payload), time.Now().UTC().UnixMilli()); err != nil {
		return fmt.Errorf("matchlog: append %s/%d: %w", matchID, seq, err)
	}

	patch := patchFor(matchID, ev)
	if patch.create != nil {
		c := patch.create
		if _, err := tx.ExecContext(ctx, `
INSERT INTO matches (match_id, game_type, red_personality, blue_personality, total_rounds, winner, finished, started_at_ms)
VALUES (?, ?, ?, ?, ?, '', 0, ?)
ON CONFLICT(match_id) DO UPDATE SET
    game_type = excluded.game_type,
    red_personality = excluded.red_personality,
    blue_personality = excluded.blue_personality,
    total_rounds = excluded.total_rounds
`, matchID, string(c.GameType), c.RedPersonality, c.BluePersonality, c.TotalRounds, c.StartedAt.UnixMilli()); err != nil {
			return err
		}
	}
	if patch.finish {
		if _, err := tx.ExecContext(ctx, `
UPDATE matches SET winner = ?, finished = 1 WHERE match_id = ?
`, patch.winner, matchID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *sqliteStore) Events(ctx context.Context, matchID string) ([]arena.Event, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
SELECT payload FROM match_events WHERE match_id = ? ORDER BY seq ASC
`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []arena.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		ev, err := arena.ParseEvent(payload)
		if err != nil {
			return nil, fmt.Errorf("matchlog: corrupt payload for %s: %w", matchID, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrMatchNotFound
	}
	return out, nil
}

func (s *sqliteStore) List(ctx context.Context) ([]Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
SELECT m.match_id, m.game_type, m.red_personality, m.blue_personality, m.total_rounds, m.winner, m.finished, m.started_at_ms,
       (SELECT COUNT(*) FROM match_events e WHERE e.match_id = m.match_id)
FROM matches m
ORDER BY m.started_at_ms DESC, m.match_id ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var gameType string
		var finished int
		var startedAtMs int64
		if err := rows.Scan(&sum.MatchID, &gameType, &sum.RedPersonality, &sum.BluePersonality,
			&sum.TotalRounds, &sum.Winner, &finished, &startedAtMs, &sum.EventCount); err != nil {
			return nil, err
		}
		sum.GameType = arena.GameType(gameType)
		sum.Finished = finished != 0
		sum.StartedAt = time.UnixMilli(startedAtMs).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS matches (
    match_id TEXT PRIMARY KEY,
    game_type TEXT NOT NULL,
    red_personality TEXT NOT NULL DEFAULT '',
    blue_personality TEXT NOT NULL DEFAULT '',
    total_rounds INTEGER NOT NULL DEFAULT 0,
    winner TEXT NOT NULL DEFAULT '',
    finished INTEGER NOT NULL DEFAULT 0,
    started_at_ms INTEGER NOT NULL
)`); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS match_events (
    match_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    payload TEXT NOT NULL,
    recorded_at_ms INTEGER NOT NULL,
    PRIMARY KEY (match_id, seq)
)`)
	return err
}

func localDatabasePathFromEnv() (string, error) {
	candidates := []string{
		strings.TrimSpace(os.Getenv("MATCHLOG_LOCAL_DATABASE_PATH")),
		strings.TrimSpace(os.Getenv("LOCAL_DATABASE_PATH")),
	}
	for _, candidate := range candidates {
		if candidate != "" {
			return filepath.Clean(candidate), nil
		}
	}

	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userConfigDir, "Colosseum", defaultLocalDBName), nil
}
