package service

import (
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// DocMap is the read-only table mapping external document-management IDs to
// template filenames. It is loaded once at startup and safe for concurrent
// readers.
type DocMap struct {
	entries map[string]string
}

type docMapFile struct {
	Documents map[string]string `yaml:"documents"`
}

// NewDocMap builds a table from the given entries, mainly for fixture tables
// in tests
func NewDocMap(entries map[string]string) *DocMap {
	if entries == nil {
		entries = make(map[string]string)
	}
	return &DocMap{entries: entries}
}

// LoadDocMap reads the YAML table at path. A missing or malformed file is a
// warning, not a startup failure: the server still runs, lookups just miss.
func LoadDocMap(path string) *DocMap {
	m := &DocMap{entries: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("document map not loaded", "path", path, "error", err)
		return m
	}

	var file docMapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		slog.Warn("document map is malformed", "path", path, "error", err)
		return m
	}

	if file.Documents != nil {
		m.entries = file.Documents
	}
	slog.Info("document map loaded", "path", path, "entries", len(m.entries))
	return m
}

// Lookup returns the template filename mapped to the given document ID
func (m *DocMap) Lookup(id string) (string, bool) {
	name, ok := m.entries[id]
	return name, ok
}

// Len returns the number of mapped document IDs
func (m *DocMap) Len() int {
	return len(m.entries)
}
