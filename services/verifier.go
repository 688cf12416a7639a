package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"f95-crawler/models"
	"f95-crawler/utils"
)

const (
	sampleSize     = 5
	offenderLimit  = 10
	reportTitleLen = 50
)

// Verifier checks the stored catalog against the reference tables.
type Verifier struct {
	logger *utils.Logger
	out    io.Writer
}

func NewVerifier(logger *utils.Logger) *Verifier {
	return NewVerifierTo(logger, os.Stdout)
}

// NewVerifierTo prints reports to w.
func NewVerifierTo(logger *utils.Logger, w io.Writer) *Verifier {
	return &Verifier{logger: logger, out: w}
}

// Generate builds the report. Prefix ids are only valid when a prefix of
// type "games" carries them; tag ids are valid when any tag does.
func (v *Verifier) Generate(ctx context.Context, store CatalogReader) (*models.VerifyReport, error) {
	l, err := loadLookup(ctx, store)
	if err != nil {
		return nil, err
	}
	games, err := store.Games(ctx)
	if err != nil {
		return nil, fmt.Errorf("load games: %w", err)
	}
	detailIDs, err := store.ThreadDetailIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load detail ids: %w", err)
	}

	r := &models.VerifyReport{
		GameCount:   len(games),
		TagCount:    l.tagRows,
		PrefixCount: l.prefixRows,
		DetailCount: len(detailIDs),
	}

	have := utils.NewIDSet(detailIDs...)
	for i, g := range games {
		if i < sampleSize {
			r.Samples = append(r.Samples, models.SampleGame{
				Game:            g,
				PrefixNames:     known(g.Prefixes, l.gamePrefixes),
				TagNames:        known(g.Tags, l.tags),
				MissingPrefixes: invalid(g.Prefixes, l.gamePrefixes),
				MissingTags:     invalid(g.Tags, l.tags),
			})
		}
		if len(r.BadPrefixes) < offenderLimit && invalid(g.Prefixes, l.gamePrefixes) > 0 {
			r.BadPrefixes = append(r.BadPrefixes, g)
		}
		if len(r.BadTags) < offenderLimit && invalid(g.Tags, l.tags) > 0 {
			r.BadTags = append(r.BadTags, g)
		}
		if !have.Contains(g.ThreadID) {
			r.MissingCount++
		}
	}

	v.logger.Debug("[verify] %d games, %d with bad prefixes, %d with bad tags",
		r.GameCount, len(r.BadPrefixes), len(r.BadTags))
	return r, nil
}

func known(ids []int64, names map[int64]string) []string {
	var out []string
	for _, id := range ids {
		if name, ok := names[id]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (v *Verifier) Print(r *models.VerifyReport) {
	w := v.out
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 CATALOG VERIFICATION\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Database Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Games          : \033[1m%d\033[0m\n", r.GameCount)
	fmt.Fprintf(w, "  Tags           : \033[1m%d\033[0m\n", r.TagCount)
	fmt.Fprintf(w, "  Prefixes       : \033[1m%d\033[0m\n", r.PrefixCount)
	fmt.Fprintf(w, "  Thread details : \033[1m%d\033[0m\n", r.DetailCount)
	fmt.Fprintf(w, "  Missing details: \033[1m%d\033[0m\n", r.MissingCount)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Sample Games (first %d)\033[0m\n", sampleSize)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Samples) == 0 {
		fmt.Fprintf(w, "  No games stored\n")
	}
	for _, s := range r.Samples {
		g := s.Game
		fmt.Fprintf(w, "  \033[1m%s\033[0m\n", truncate(g.Title, reportTitleLen))
		fmt.Fprintf(w, "    Thread ID : %d\n", g.ThreadID)
		fmt.Fprintf(w, "    Created   : %s\n", formatTime(g.CreatedAt))
		fmt.Fprintf(w, "    Updated   : %s\n", formatTime(g.UpdatedAt))
		printRefs(w, "prefixes", g.Prefixes, s.PrefixNames, s.MissingPrefixes)
		printRefs(w, "tags", g.Tags, s.TagNames, s.MissingTags)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Integrity\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	printOffenders(w, "prefix", "prefixes", r.BadPrefixes)
	printOffenders(w, "tag", "tags", r.BadTags)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func printRefs(w io.Writer, kind string, ids []int64, names []string, missing int) {
	if len(ids) == 0 {
		return
	}
	if missing > 0 {
		fmt.Fprintf(w, "    \033[1;31m⚠ %d of %d %s unknown\033[0m\n", missing, len(ids), kind)
		return
	}
	fmt.Fprintf(w, "    \033[1;32m✓\033[0m All %s valid: %s\n", kind, strings.Join(names, ", "))
}

func printOffenders(w io.Writer, kind, plural string, games []*models.Game) {
	if len(games) == 0 {
		fmt.Fprintf(w, "  \033[1;32m✓\033[0m All game %s are valid\n", plural)
		return
	}
	fmt.Fprintf(w, "  \033[1;31m⚠ Found %d games with invalid %s IDs\033[0m\n", len(games), kind)
	for _, g := range games {
		fmt.Fprintf(w, "    - %s (Thread: %d)\n", truncate(g.Title, reportTitleLen), g.ThreadID)
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
