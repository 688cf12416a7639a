package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"f95-crawler/models"
	"f95-crawler/utils"
)

// PostgresStore persists games and thread details to PostgreSQL.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore opens a connection to PostgreSQL, creates any missing
// tables and returns a ready-to-use PostgresStore.
func NewPostgresStore(dsn string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 10, BaseDelay: time.Second, Logger: logger}
	if err := retry.Do("postgres ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	ps := &PostgresStore{db: db, now: time.Now}
	if err := ps.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

// SetClock replaces the timestamp source.
func (ps *PostgresStore) SetClock(now func() time.Time) { ps.now = now }

// EnsureDatabase connects to the maintenance database behind adminDSN and
// creates name when it does not exist. It reports whether it created it.
func EnsureDatabase(ctx context.Context, adminDSN, name string) (bool, error) {
	db, err := sql.Open("postgres", adminDSN)
	if err != nil {
		return false, fmt.Errorf("postgres: open admin: %w", err)
	}
	defer db.Close()

	var one int
	err = db.QueryRowContext(ctx, `SELECT 1 FROM pg_database WHERE datname = $1`, name).Scan(&one)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("postgres: lookup database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		return false, fmt.Errorf("postgres: create database: %w", err)
	}
	return true, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS games (
			id         SERIAL PRIMARY KEY,
			thread_id  INTEGER     UNIQUE NOT NULL,
			title      TEXT        NOT NULL,
			creator    TEXT,
			version    TEXT,
			views      INTEGER,
			likes      INTEGER,
			prefixes   INTEGER[],
			tags       INTEGER[],
			rating     REAL,
			cover      TEXT,
			screens    TEXT[],
			timestamp  BIGINT,
			watched    BOOLEAN     DEFAULT FALSE,
			ignored    BOOLEAN     DEFAULT FALSE,
			is_new     BOOLEAN     DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS timestamp_idx ON games(timestamp);

		CREATE TABLE IF NOT EXISTS thread_details (
			thread_id       INTEGER     PRIMARY KEY,
			overview        TEXT,
			hidden_overview TEXT,
			original_html   TEXT,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
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

// UpsertGame inserts or fully replaces one game row. updated_at moves at
// least one microsecond past its previous value.
func (ps *PostgresStore) UpsertGame(ctx context.Context, g *models.Game) error {
	now := ps.now()
	_, err := ps.db.ExecContext(ctx, `
		INSERT INTO games (thread_id, title, creator, version, views, likes, prefixes, tags,
			rating, cover, screens, timestamp, watched, ignored, is_new, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$16)
		ON CONFLICT (thread_id) DO UPDATE SET
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
			updated_at = GREATEST(excluded.updated_at, games.updated_at + INTERVAL '1 microsecond')
	`,
		g.ThreadID, g.Title, g.Creator, g.Version, g.Views, g.Likes,
		pq.Array(g.Prefixes), pq.Array(g.Tags), g.Rating, g.Cover, pq.Array(g.Screens),
		g.Timestamp, g.Watched, g.Ignored, g.IsNew, now,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert game %d: %w", g.ThreadID, err)
	}
	return nil
}

func (ps *PostgresStore) GameThreadIDs(ctx context.Context) ([]int64, error) {
	return ps.ids(ctx, `SELECT thread_id FROM games ORDER BY id`)
}

const gameColumns = `
	thread_id, title, COALESCE(creator, ''), COALESCE(version, ''),
	COALESCE(views, 0), COALESCE(likes, 0), prefixes, tags, COALESCE(rating, 0),
	COALESCE(cover, ''), screens, COALESCE(timestamp, 0),
	COALESCE(watched, FALSE), COALESCE(ignored, FALSE), COALESCE(is_new, FALSE),
	created_at, updated_at`

func (ps *PostgresStore) Game(ctx context.Context, threadID int64) (*models.Game, error) {
	row := ps.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE thread_id = $1`, threadID)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: game %d: %w", threadID, err)
	}
	return g, nil
}

// Games retrieves all stored games in insertion order.
func (ps *PostgresStore) Games(ctx context.Context) ([]*models.Game, error) {
	rows, err := ps.db.QueryContext(ctx, `SELECT `+gameColumns+` FROM games ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch games: %w", err)
	}
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func scanGame(row interface{ Scan(...any) error }) (*models.Game, error) {
	g := &models.Game{}
	err := row.Scan(
		&g.ThreadID, &g.Title, &g.Creator, &g.Version, &g.Views, &g.Likes,
		pq.Array(&g.Prefixes), pq.Array(&g.Tags), &g.Rating, &g.Cover, pq.Array(&g.Screens),
		&g.Timestamp, &g.Watched, &g.Ignored, &g.IsNew, &g.CreatedAt, &g.UpdatedAt,
	)
	return g, err
}

func (ps *PostgresStore) UpsertThreadDetail(ctx context.Context, d *models.ThreadDetail) error {
	now := ps.now()
	_, err := ps.db.ExecContext(ctx, `
		INSERT INTO thread_details (thread_id, overview, hidden_overview, original_html, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (thread_id) DO UPDATE SET
			overview        = excluded.overview,
			hidden_overview = excluded.hidden_overview,
			original_html   = excluded.original_html,
			updated_at      = GREATEST(excluded.updated_at, thread_details.updated_at + INTERVAL '1 microsecond')
	`, d.ThreadID, d.Overview, nullString(d.HiddenOverview), d.OriginalHTML, now)
	if err != nil {
		return fmt.Errorf("postgres: upsert thread %d: %w", d.ThreadID, err)
	}
	return nil
}

func (ps *PostgresStore) ThreadDetailIDs(ctx context.Context) ([]int64, error) {
	return ps.ids(ctx, `SELECT thread_id FROM thread_details`)
}

func (ps *PostgresStore) ThreadDetail(ctx context.Context, threadID int64) (*models.ThreadDetail, error) {
	d := &models.ThreadDetail{}
	var hidden sql.NullString
	err := ps.db.QueryRowContext(ctx, `
		SELECT thread_id, COALESCE(overview, ''), hidden_overview, COALESCE(original_html, ''), created_at, updated_at
		FROM thread_details WHERE thread_id = $1
	`, threadID).Scan(&d.ThreadID, &d.Overview, &hidden, &d.OriginalHTML, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: thread %d: %w", threadID, err)
	}
	if hidden.Valid {
		d.HiddenOverview = &hidden.String
	}
	return d, nil
}

func (ps *PostgresStore) Tags(ctx context.Context) ([]models.Tag, error) {
	rows, err := ps.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("postgres: scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (ps *PostgresStore) Prefixes(ctx context.Context) ([]models.Prefix, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(class, ''), category, type FROM prefixes ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch prefixes: %w", err)
	}
	defer rows.Close()

	var prefixes []models.Prefix
	for rows.Next() {
		var p models.Prefix
		if err := rows.Scan(&p.ID, &p.Name, &p.Class, &p.Category, &p.Type); err != nil {
			return nil, fmt.Errorf("postgres: scan prefix: %w", err)
		}
		prefixes = append(prefixes, p)
	}
	return prefixes, rows.Err()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

func (ps *PostgresStore) ids(ctx context.Context, query string) ([]int64, error) {
	return queryIDs(ctx, ps.db, query)
}

func queryIDs(ctx context.Context, db *sql.DB, query string) ([]int64, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
