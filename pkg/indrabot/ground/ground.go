// Package ground resolves entity names from questions to database
// identifiers.
package ground

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// TextNamespace marks an ungrounded name.
const TextNamespace = "TEXT"

// Grounding is a database identifier for an entity name.
type Grounding struct {
	Namespace string  `json:"namespace"`
	ID        string  `json:"id"`
	Name      string  `json:"name,omitempty"`
	Score     float64 `json:"score,omitempty"`
}

// Key renders the grounding as an agent key for statement queries,
// e.g. MEK@FPLX.
func (g Grounding) Key() string {
	return g.ID + "@" + g.Namespace
}

// Grounded reports whether the name resolved to a database entry.
func (g Grounding) Grounded() bool {
	return g.Namespace != "" && g.Namespace != TextNamespace
}

// Text is the fallback grounding for a name nothing could resolve.
func Text(name string) Grounding {
	return Grounding{Namespace: TextNamespace, ID: name, Name: name}
}

// Grounder resolves a single entity name.
type Grounder interface {
	Ground(ctx context.Context, text string) (Grounding, error)
}

// namespacePriority orders namespaces when a map entry lists several.
var namespacePriority = []string{"HGNC", "FPLX", "UP", "CHEBI", "GO", "MESH"}

// Map is a local grounding map consulted before any remote service.
type Map struct {
	entries map[string]Grounding
	// folded maps a lowercased name to the first of its spellings in
	// sorted order.
	folded map[string]string
}

// NewMap builds a map from text to namespace/ID pairs. TEXT entries are
// ignored; entries with no other namespace are dropped.
func NewMap(raw map[string]map[string]string) *Map {
	m := &Map{
		entries: make(map[string]Grounding, len(raw)),
		folded:  make(map[string]string, len(raw)),
	}
	texts := make([]string, 0, len(raw))
	for text := range raw {
		texts = append(texts, text)
	}
	sort.Strings(texts)
	for _, text := range texts {
		g, ok := pickRef(text, raw[text])
		if !ok {
			continue
		}
		m.entries[text] = g
		if lower := strings.ToLower(text); m.folded[lower] == "" {
			m.folded[lower] = text
		}
	}
	return m
}

func pickRef(text string, refs map[string]string) (Grounding, bool) {
	for _, ns := range namespacePriority {
		if id, ok := refs[ns]; ok && id != "" {
			return Grounding{Namespace: ns, ID: id, Name: text, Score: 1}, true
		}
	}
	namespaces := make([]string, 0, len(refs))
	for ns, id := range refs {
		if ns == TextNamespace || id == "" {
			continue
		}
		namespaces = append(namespaces, ns)
	}
	if len(namespaces) == 0 {
		return Grounding{}, false
	}
	sort.Strings(namespaces)
	return Grounding{Namespace: namespaces[0], ID: refs[namespaces[0]], Name: text, Score: 1}, true
}

// Lookup finds a name, first exactly and then case-insensitively.
func (m *Map) Lookup(text string) (Grounding, bool) {
	if m == nil {
		return Grounding{}, false
	}
	if g, ok := m.entries[text]; ok {
		return g, true
	}
	if k, ok := m.folded[strings.ToLower(text)]; ok {
		return m.entries[k], true
	}
	return Grounding{}, false
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

type mapFile struct {
	Groundings map[string]map[string]string `yaml:"groundings"`
}

// LoadMap reads a grounding map from a YAML file.
// Format:
//
//	groundings:
//	  MEK: {FPLX: MEK}
//	  ERK: {FPLX: ERK, TEXT: ERK}
func LoadMap(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f mapFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return NewMap(f.Groundings), nil
}
