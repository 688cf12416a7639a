package services

import (
	"context"
	"fmt"

	"f95-crawler/storage"
)

// gamePrefixType is the prefix type that applies to catalog entries.
const gamePrefixType = "games"

// lookup maps reference ids to display names.
type lookup struct {
	tags         map[int64]string
	prefixes     map[int64]string // every type; games wins on id clashes
	gamePrefixes map[int64]string
	tagRows      int
	prefixRows   int
}

func loadLookup(ctx context.Context, ref storage.ReferenceStore) (*lookup, error) {
	tags, err := ref.Tags(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	prefixes, err := ref.Prefixes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load prefixes: %w", err)
	}

	l := &lookup{
		tags:         make(map[int64]string, len(tags)),
		prefixes:     make(map[int64]string, len(prefixes)),
		gamePrefixes: make(map[int64]string),
		tagRows:      len(tags),
		prefixRows:   len(prefixes),
	}
	for _, t := range tags {
		l.tags[t.ID] = t.Name
	}
	for _, p := range prefixes {
		if p.Type == gamePrefixType {
			l.gamePrefixes[p.ID] = p.Name
			l.prefixes[p.ID] = p.Name
			continue
		}
		if _, ok := l.prefixes[p.ID]; !ok {
			l.prefixes[p.ID] = p.Name
		}
	}
	return l, nil
}

func (l *lookup) tagNames(ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := l.tags[id]; ok {
			out = append(out, name)
			continue
		}
		out = append(out, fmt.Sprintf("Unknown Tag (%d)", id))
	}
	return out
}

func (l *lookup) prefixNames(ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := l.prefixes[id]; ok {
			out = append(out, name)
			continue
		}
		out = append(out, fmt.Sprintf("Unknown Prefix (%d)", id))
	}
	return out
}

// invalid counts the ids missing from known.
func invalid(ids []int64, known map[int64]string) int {
	n := 0
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			n++
		}
	}
	return n
}
