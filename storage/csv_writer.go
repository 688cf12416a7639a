package storage

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"f95-crawler/models"
)

// CSVWriter writes exported games to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	out    *pendingFile
	writer *csv.Writer
}

// NewCSVWriter stages the CSV next to path and writes the header row.
// Intermediate directories are created automatically. path itself is only
// replaced by Close after a successful WriteGames.
func NewCSVWriter(path string) (*CSVWriter, error) {
	out, err := newPendingFile(path)
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	w := csv.NewWriter(out.file)

	if err := w.Write([]string{
		"thread_id", "title", "creator", "version", "views", "likes", "prefixes", "tags",
		"rating", "cover", "screens", "timestamp", "watched", "ignored", "is_new",
		"created_at", "updated_at",
	}); err != nil {
		out.discard()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{out: out, writer: w}, nil
}

// WriteGames appends one row per game. List columns are joined with "|".
func (c *CSVWriter) WriteGames(games []*models.ExportedGame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, g := range games {
		row := []string{
			strconv.FormatInt(g.ThreadID, 10),
			g.Title,
			g.Creator,
			g.Version,
			strconv.FormatInt(g.Views, 10),
			strconv.FormatInt(g.Likes, 10),
			strings.Join(g.Prefixes, "|"),
			strings.Join(g.Tags, "|"),
			strconv.FormatFloat(g.Rating, 'f', -1, 64),
			g.Cover,
			strings.Join(g.Screens, "|"),
			g.Timestamp,
			strconv.FormatBool(g.Watched),
			strconv.FormatBool(g.Ignored),
			strconv.FormatBool(g.IsNew),
			g.CreatedAt,
			g.UpdatedAt,
		}
		if err := c.writer.Write(row); err != nil {
			c.out.failed = true
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		c.out.failed = true
		return err
	}
	c.out.written = true
	return nil
}

// Close flushes the rows and moves the file into place, or drops it when
// nothing was written successfully.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.out.finish()
}
