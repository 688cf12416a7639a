package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"f95-crawler/models"
	"f95-crawler/storage"
	"f95-crawler/utils"
)

// CatalogReader is what the export and verify reports read from.
type CatalogReader interface {
	storage.GameStore
	storage.DetailStore
	storage.ReferenceStore
}

// Exporter writes the stored catalog with reference ids resolved to names.
type Exporter struct {
	logger *utils.Logger
}

// NewExporter creates an Exporter with the given logger.
func NewExporter(logger *utils.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// Export resolves every stored game and hands the batch to w. It returns
// the number of games written. w is not closed.
func (e *Exporter) Export(ctx context.Context, store CatalogReader, w storage.ExportWriter) (int, error) {
	l, err := loadLookup(ctx, store)
	if err != nil {
		return 0, err
	}
	games, err := store.Games(ctx)
	if err != nil {
		return 0, fmt.Errorf("load games: %w", err)
	}
	e.logger.Info("[export] Found %d games", len(games))

	out := make([]*models.ExportedGame, 0, len(games))
	unknown := 0
	for _, g := range games {
		unknown += invalid(g.Tags, l.tags) + invalid(g.Prefixes, l.prefixes)
		out = append(out, e.resolve(g, l))
	}
	if unknown > 0 {
		e.logger.Warn("[export] %d tag or prefix ids had no reference row", unknown)
	}

	if err := w.WriteGames(out); err != nil {
		return 0, err
	}
	return len(out), nil
}

func (e *Exporter) resolve(g *models.Game, l *lookup) *models.ExportedGame {
	screens := g.Screens
	if screens == nil {
		screens = []string{}
	}
	return &models.ExportedGame{
		ThreadID:  g.ThreadID,
		Title:     g.Title,
		Creator:   g.Creator,
		Version:   g.Version,
		Views:     g.Views,
		Likes:     g.Likes,
		Prefixes:  l.prefixNames(g.Prefixes),
		Tags:      l.tagNames(g.Tags),
		Rating:    g.Rating,
		Cover:     g.Cover,
		Screens:   screens,
		Timestamp: strconv.FormatInt(g.Timestamp, 10),
		Watched:   g.Watched,
		Ignored:   g.Ignored,
		IsNew:     g.IsNew,
		CreatedAt: formatTime(g.CreatedAt),
		UpdatedAt: formatTime(g.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
