package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"f95-crawler/models"
)

// SQLiteStore is the single-file backend. Array columns are stored as JSON
// text and timestamps as unix nanoseconds.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at path. Use
// ":memory:" for a throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One writer, and a single shared connection keeps :memory: alive.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: pragma journal_mode: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return s, nil
}

// SetClock replaces the timestamp source.
func (s *SQLiteStore) SetClock(now func() time.Time) { s.now = now }

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS games (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			thread_id  INTEGER UNIQUE NOT NULL,
			title      TEXT    NOT NULL,
			creator    TEXT,
			version    TEXT,
			views      INTEGER,
			likes      INTEGER,
			prefixes   TEXT,
			tags       TEXT,
			rating     REAL,
			cover      TEXT,
			screens    TEXT,
			timestamp  INTEGER,
			watched    INTEGER DEFAULT 0,
			ignored    INTEGER DEFAULT 0,
			is_new     INTEGER DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS timestamp_idx ON games(timestamp);

		CREATE TABLE IF NOT EXISTS thread_details (
			thread_id       INTEGER PRIMARY KEY,
			overview        TEXT,
			hidden_overview TEXT,
			original_html   TEXT,
			created_at      INTEGER NOT NULL,
			updated_at      INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tags (
			id   INTEGER PRIMARY KEY,
			name TEXT    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS prefixes (
			id       INTEGER NOT NULL,
			name     TEXT    NOT NULL,
			class    TEXT,
			category TEXT    NOT NULL,
			type     TEXT    NOT NULL,
			PRIMARY KEY (id, type, category)
		);
	`)
	return err
}

func (s *SQLiteStore) UpsertGame(ctx context.Context, g *models.Game) error {
	prefixes, err := json.Marshal(orEmpty(g.Prefixes))
	if err != nil {
		return fmt.Errorf("sqlite: marshal prefixes for %d: %w", g.ThreadID, err)
	}
	tags, err := json.Marshal(orEmpty(g.Tags))
	if err != nil {
		return fmt.Errorf("sqlite: marshal tags for %d: %w", g.ThreadID, err)
	}
	screens, err := json.Marshal(orEmpty(g.Screens))
	if err != nil {
		return fmt.Errorf("sqlite: marshal screens for %d: %w", g.ThreadID, err)
	}

	now := s.now().UnixNano()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO games (thread_id, title, creator, version, views, likes, prefixes, tags,
			rating, cover, screens, timestamp, watched, ignored, is_new, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			title      = excluded.title,
			creator    = excluded.creator,
			version    = excluded.version,
			views      = excluded.views,
			likes      = excluded.likes,
			prefixes   = excluded.prefixes,
			tags       = excluded.tags,
			rating     = excluded.rating,
			cover      = excluded.cover,
			screens    = excluded.screens,
			timestamp  = excluded.timestamp,
			watched    = excluded.watched,
			ignored    = excluded.ignored,
			is_new     = excluded.is_new,
			updated_at = MAX(excluded.updated_at, games.updated_at + 1)
	`,
		g.ThreadID, g.Title, g.Creator, g.Version, g.Views, g.Likes,
		string(prefixes), string(tags), g.Rating, g.Cover, string(screens),
		g.Timestamp, g.Watched, g.Ignored, g.IsNew, now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert game %d: %w", g.ThreadID, err)
	}
	return nil
}

func (s *SQLiteStore) GameThreadIDs(ctx context.Context) ([]int64, error) {
	return queryIDs(ctx, s.db, `SELECT thread_id FROM games ORDER BY id`)
}

const sqliteGameColumns = `
	thread_id, title, COALESCE(creator, ''), COALESCE(version, ''),
	COALESCE(views, 0), COALESCE(likes, 0), COALESCE(prefixes, '[]'), COALESCE(tags, '[]'),
	COALESCE(rating, 0), COALESCE(cover, ''), COALESCE(screens, '[]'), COALESCE(timestamp, 0),
	COALESCE(watched, 0), COALESCE(ignored, 0), COALESCE(is_new, 0), created_at, updated_at`

func (s *SQLiteStore) Game(ctx context.Context, threadID int64) (*models.Game, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteGameColumns+` FROM games WHERE thread_id = ?`, threadID)
	g, err := scanSQLiteGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: game %d: %w", threadID, err)
	}
	return g, nil
}

func (s *SQLiteStore) Games(ctx context.Context) ([]*models.Game, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteGameColumns+` FROM games ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetch games: %w", err)
	}
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		g, err := scanSQLiteGame(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func scanSQLiteGame(row interface{ Scan(...any) error }) (*models.Game, error) {
	g := &models.Game{}
	var prefixes, tags, screens string
	var created, updated int64
	if err := row.Scan(
		&g.ThreadID, &g.Title, &g.Creator, &g.Version, &g.Views, &g.Likes,
		&prefixes, &tags, &g.Rating, &g.Cover, &screens,
		&g.Timestamp, &g.Watched, &g.Ignored, &g.IsNew, &created, &updated,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(prefixes), &g.Prefixes); err != nil {
		return nil, fmt.Errorf("decode prefixes: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &g.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(screens), &g.Screens); err != nil {
		return nil, fmt.Errorf("decode screens: %w", err)
	}
	g.CreatedAt = time.Unix(0, created)
	g.UpdatedAt = time.Unix(0, updated)
	return g, nil
}

func (s *SQLiteStore) UpsertThreadDetail(ctx context.Context, d *models.ThreadDetail) error {
	now := s.now().UnixNano()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO thread_details (thread_id, overview, hidden_overview, original_html, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			overview        = excluded.overview,
			hidden_overview = excluded.hidden_overview,
			original_html   = excluded.original_html,
			updated_at      = MAX(excluded.updated_at, thread_details.updated_at + 1)
	`, d.ThreadID, d.Overview, nullString(d.HiddenOverview), d.OriginalHTML, now, now)
	if err != nil {
		return fmt.Errorf("sqlite: upsert thread %d: %w", d.ThreadID, err)
	}
	return nil
}

func (s *SQLiteStore) ThreadDetailIDs(ctx context.Context) ([]int64, error) {
	return queryIDs(ctx, s.db, `SELECT thread_id FROM thread_details`)
}

func (s *SQLiteStore) ThreadDetail(ctx context.Context, threadID int64) (*models.ThreadDetail, error) {
	d := &models.ThreadDetail{}
	var hidden sql.NullString
	var created, updated int64
	err := s.db.QueryRowContext(ctx, `
		SELECT thread_id, COALESCE(overview, ''), hidden_overview, COALESCE(original_html, ''), created_at, updated_at
		FROM thread_details WHERE thread_id = ?
	`, threadID).Scan(&d.ThreadID, &d.Overview, &hidden, &d.OriginalHTML, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: thread %d: %w", threadID, err)
	}
	if hidden.Valid {
		d.HiddenOverview = &hidden.String
	}
	d.CreatedAt = time.Unix(0, created)
	d.UpdatedAt = time.Unix(0, updated)
	return d, nil
}

func (s *SQLiteStore) Tags(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetch tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *SQLiteStore) Prefixes(ctx context.Context) ([]models.Prefix, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(class, ''), category, type FROM prefixes ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetch prefixes: %w", err)
	}
	defer rows.Close()

	var prefixes []models.Prefix
	for rows.Next() {
		var p models.Prefix
		if err := rows.Scan(&p.ID, &p.Name, &p.Class, &p.Category, &p.Type); err != nil {
			return nil, fmt.Errorf("sqlite: scan prefix: %w", err)
		}
		prefixes = append(prefixes, p)
	}
	return prefixes, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func orEmpty[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
