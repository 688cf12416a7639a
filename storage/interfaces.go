package storage

import (
	"context"
	"errors"

	"f95-crawler/models"
)

// ErrNotFound is returned by single-row lookups when the thread id is unknown.
var ErrNotFound = errors.New("storage: not found")

// GameStore persists listing rows keyed by thread id.
//
// UpsertGame replaces every mutable column on conflict, leaves created_at
// alone and moves updated_at strictly forward.
type GameStore interface {
	UpsertGame(ctx context.Context, g *models.Game) error
	// GameThreadIDs lists ids in the order they were first stored.
	GameThreadIDs(ctx context.Context) ([]int64, error)
	Game(ctx context.Context, threadID int64) (*models.Game, error)
	Games(ctx context.Context) ([]*models.Game, error)
}

// DetailStore persists parsed thread details keyed by thread id.
type DetailStore interface {
	UpsertThreadDetail(ctx context.Context, d *models.ThreadDetail) error
	ThreadDetailIDs(ctx context.Context) ([]int64, error)
	ThreadDetail(ctx context.Context, threadID int64) (*models.ThreadDetail, error)
}

// ReferenceStore reads the tag and prefix lookup tables. Nothing in this
// repository writes them.
type ReferenceStore interface {
	Tags(ctx context.Context) ([]models.Tag, error)
	Prefixes(ctx context.Context) ([]models.Prefix, error)
}

// Store is a complete backend.
type Store interface {
	GameStore
	DetailStore
	ReferenceStore
	Close() error
}

// ExportWriter is the interface for writing the resolved catalog to a file.
type ExportWriter interface {
	WriteGames(games []*models.ExportedGame) error
	Close() error
}
