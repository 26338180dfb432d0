// Package sidecar loads the optional JSON files that tune graph visibility:
// the hidden-snippets list and the snippet quality metadata.
package sidecar

import (
	"encoding/json"
	"log/slog"

	"github.com/starford/linkgraph/internal/slug"
	"github.com/starford/linkgraph/internal/storage"
)

// HiddenSet is the set of snippet slugs excluded from the graph.
type HiddenSet map[string]struct{}

// Has reports whether slug is hidden. A nil set hides nothing.
func (h HiddenSet) Has(slug string) bool {
	_, ok := h[slug]
	return ok
}

// NewHiddenSet builds a set from slugs.
func NewHiddenSet(slugs ...string) HiddenSet {
	h := make(HiddenSet, len(slugs))
	for _, s := range slugs {
		if s != "" {
			h[s] = struct{}{}
		}
	}
	return h
}

type hiddenFile struct {
	Hidden []string `json:"hidden"`
}

// QualityRecord is one entry of the snippet quality metadata file. Only
// passes is read; the scoring fields are free-form and may hold any type.
type QualityRecord struct {
	Passes *bool `json:"passes"`
}

// QualityIndex maps a snippet slug, or its lower-cased title, to its
// quality record.
type QualityIndex map[string]QualityRecord

// Passes reports whether the snippet is accessible. The slug entry is
// consulted first, then the folded title. Only an explicit passes=false
// fails.
func (q QualityIndex) Passes(itemSlug, title string) bool {
	rec, ok := q[itemSlug]
	if !ok {
		rec, ok = q[slug.Fold(title)]
	}
	if !ok || rec.Passes == nil {
		return true
	}
	return *rec.Passes
}

// LoadHidden reads the hidden-snippets file at path. A missing, unreadable,
// or malformed file yields an empty set.
func LoadHidden(store storage.Provider, path string, logger *slog.Logger) HiddenSet {
	var f hiddenFile
	if !loadJSON(store, path, &f, logger) {
		return HiddenSet{}
	}
	return NewHiddenSet(f.Hidden...)
}

// LoadQuality reads the snippet quality metadata at path. A missing,
// unreadable, or malformed file yields an empty index. A record that cannot
// be decoded is logged and skipped; the rest of the file is kept.
func LoadQuality(store storage.Provider, path string, logger *slog.Logger) QualityIndex {
	var raw map[string]json.RawMessage
	if !loadJSON(store, path, &raw, logger) {
		return QualityIndex{}
	}
	q := make(QualityIndex, len(raw))
	for key, msg := range raw {
		var rec QualityRecord
		if err := json.Unmarshal(msg, &rec); err != nil {
			logger.Warn("sidecar: skipping quality record",
				slog.String("path", path),
				slog.String("key", key),
				slog.String("error", err.Error()))
			continue
		}
		q[key] = rec
	}
	return q
}

func loadJSON(store storage.Provider, path string, v any, logger *slog.Logger) bool {
	if path == "" || !store.Exists(path) {
		return false
	}
	data, err := store.Read(path)
	if err != nil {
		logger.Warn("sidecar: read failed", slog.String("path", path), slog.String("error", err.Error()))
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		logger.Warn("sidecar: malformed json, ignoring", slog.String("path", path), slog.String("error", err.Error()))
		return false
	}
	return true
}
