// Package embedmatch is the primary resolution layer: cosine similarity of
// the utterance vector against each catalog intent's example embedding.
package embedmatch

import (
	"aletabank-assistant/internal/catalog"
	"aletabank-assistant/internal/nlu/encoder"
)

// tieEpsilon keeps tie-breaking stable: a later intent must beat the current
// best by more than float noise to displace it, so ties go to registry order.
const tieEpsilon = 1e-9

type Matcher struct {
	catalog   *catalog.Catalog
	enc       encoder.Encoder
	threshold float64
}

func New(cat *catalog.Catalog, enc encoder.Encoder, threshold float64) *Matcher {
	return &Matcher{catalog: cat, enc: enc, threshold: threshold}
}

// Match encodes text and returns the best-scoring intent id, or an empty id
// when no intent clears the confidence threshold. The best score is returned
// either way so callers can log near misses. Encoding failures propagate.
func (m *Matcher) Match(text string) (string, float64, error) {
	vec, err := m.enc.Encode(text)
	if err != nil {
		return "", 0, err
	}

	bestID := ""
	best := -1.0
	for _, def := range m.catalog.All() {
		sim := encoder.CosineSimilarity(vec, def.Embedding())
		if sim > best+tieEpsilon {
			best = sim
			bestID = def.ID
		}
	}

	if best < m.threshold {
		return "", best, nil
	}
	return bestID, best, nil
}

// Threshold returns the configured confidence cutoff.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}
