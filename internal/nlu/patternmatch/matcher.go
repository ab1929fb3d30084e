// Package patternmatch is the secondary resolution layer: ordered regular
// expression triggers over normalized text. It never overrides a confident
// embedding result; the orchestrator consults it only on fall-through.
package patternmatch

import (
	"strings"

	"aletabank-assistant/internal/catalog"
	"aletabank-assistant/internal/nlu/encoder"
)

type Matcher struct {
	catalog *catalog.Catalog
}

func New(cat *catalog.Catalog) *Matcher {
	return &Matcher{catalog: cat}
}

// Match scans intents in registry order and returns the first whose pattern
// fires against the normalized utterance. Empty id means no trigger fired.
func (m *Matcher) Match(text string) string {
	normalized := Normalize(text)
	if normalized == "" {
		return ""
	}
	for _, def := range m.catalog.All() {
		for _, re := range def.CompiledPatterns() {
			if re.MatchString(normalized) {
				return def.ID
			}
		}
	}
	return ""
}

// Normalize lowercases and strips punctuation so patterns only ever deal
// with plain word sequences. Shares tokenization with the embedding layer.
func Normalize(text string) string {
	return strings.Join(encoder.Tokenize(text), " ")
}
