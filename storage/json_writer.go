package storage

import (
	"encoding/json"
	"fmt"

	"f95-crawler/models"
)

// JSONWriter writes the export as one indented JSON array.
type JSONWriter struct {
	out *pendingFile
}

// NewJSONWriter stages the export next to path; Close moves it into place.
func NewJSONWriter(path string) (*JSONWriter, error) {
	out, err := newPendingFile(path)
	if err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	return &JSONWriter{out: out}, nil
}

// WriteGames writes the full array; call it once per file.
func (j *JSONWriter) WriteGames(games []*models.ExportedGame) error {
	if games == nil {
		games = []*models.ExportedGame{}
	}
	enc := json.NewEncoder(j.out.file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(games); err != nil {
		j.out.failed = true
		return fmt.Errorf("json: encode: %w", err)
	}
	j.out.written = true
	return nil
}

func (j *JSONWriter) Close() error {
	return j.out.finish()
}
