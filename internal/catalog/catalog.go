// Package catalog holds the static registry of intents the assistant can
// resolve. The catalog is loaded once at startup from a JSON file, validated
// against a schema, and never mutated afterwards, so concurrent reads need
// no locking.
package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"

	"github.com/xeipuuv/gojsonschema"

	apperrors "aletabank-assistant/internal/common/errors"
	"aletabank-assistant/internal/models"
	"aletabank-assistant/internal/nlu/encoder"
)

// AuthorizationClass declares what identity an intent's data requires.
type AuthorizationClass string

const (
	// AuthzSelfAccount restricts results to accounts owned by the requester.
	AuthzSelfAccount AuthorizationClass = "self_account"
	// AuthzSharedFamily requires the parent role within the family.
	AuthzSharedFamily AuthorizationClass = "shared_family"
	// AuthzPublic needs no account data at all.
	AuthzPublic AuthorizationClass = "public"
)

// IntentDefinition is one registered intent. Embedding and compiled patterns
// are derived at load time and kept unexported.
type IntentDefinition struct {
	ID                string                     `json:"id"`
	Description       string                     `json:"description,omitempty"`
	Examples          []string                   `json:"examples"`
	Patterns          []string                   `json:"patterns,omitempty"`
	RequiredSlots     map[string]models.SlotKind `json:"required_slots,omitempty"`
	Authorization     AuthorizationClass         `json:"authorization"`
	ExternalKnowledge bool                       `json:"external_knowledge,omitempty"`

	embedding []float32
	compiled  []*regexp.Regexp
}

// Embedding returns the intent's derived example embedding.
func (d *IntentDefinition) Embedding() []float32 {
	return d.embedding
}

// CompiledPatterns returns the intent's compiled trigger patterns.
func (d *IntentDefinition) CompiledPatterns() []*regexp.Regexp {
	return d.compiled
}

type catalogFile struct {
	Intents []*IntentDefinition `json:"intents"`
}

// Catalog is the loaded, read-only intent registry. Iteration order follows
// the source file so tie-breaking stays deterministic.
type Catalog struct {
	intents []*IntentDefinition
	byID    map[string]*IntentDefinition
}

// Load reads and validates the catalog from disk and derives per-intent
// embeddings with the given encoder. Any failure is fatal for the service.
func Load(path, schemaPath string, enc encoder.Encoder) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewCatalogLoadError(path, err)
	}
	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, apperrors.NewCatalogLoadError(schemaPath, err)
	}
	cat, err := LoadBytes(data, schema, enc)
	if err != nil {
		return nil, apperrors.NewCatalogLoadError(path, err)
	}
	return cat, nil
}

// LoadBytes builds a catalog from in-memory JSON. Used by Load and by tests.
func LoadBytes(data, schema []byte, enc encoder.Encoder) (*Catalog, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("catalog does not match schema: %s", formatSchemaErrors(result))
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	cat := &Catalog{
		intents: file.Intents,
		byID:    make(map[string]*IntentDefinition, len(file.Intents)),
	}
	for _, def := range file.Intents {
		if _, dup := cat.byID[def.ID]; dup {
			return nil, fmt.Errorf("duplicate intent id %q", def.ID)
		}
		cat.byID[def.ID] = def

		for _, p := range def.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("intent %q pattern %q: %w", def.ID, p, err)
			}
			def.compiled = append(def.compiled, re)
		}

		emb, err := deriveEmbedding(def.Examples, enc)
		if err != nil {
			return nil, fmt.Errorf("intent %q embedding: %w", def.ID, err)
		}
		def.embedding = emb
	}
	return cat, nil
}

// deriveEmbedding averages the example vectors and re-normalizes the mean.
func deriveEmbedding(examples []string, enc encoder.Encoder) ([]float32, error) {
	sum := make([]float32, enc.Dims())
	for _, ex := range examples {
		vec, err := enc.Encode(ex)
		if err != nil {
			return nil, fmt.Errorf("example %q: %w", ex, err)
		}
		for i, v := range vec {
			sum[i] += v
		}
	}
	n := float32(len(examples))
	var norm float64
	for i := range sum {
		sum[i] /= n
		norm += float64(sum[i]) * float64(sum[i])
	}
	if norm == 0 {
		return nil, fmt.Errorf("examples collapse to a zero vector")
	}
	scale := float32(1.0 / math.Sqrt(norm))
	for i := range sum {
		sum[i] *= scale
	}
	return sum, nil
}

// Lookup returns the intent definition for id.
func (c *Catalog) Lookup(id string) (*IntentDefinition, bool) {
	def, ok := c.byID[id]
	return def, ok
}

// All returns the intents in registry order. Callers must not mutate.
func (c *Catalog) All() []*IntentDefinition {
	return c.intents
}

// Len returns the number of registered intents.
func (c *Catalog) Len() int {
	return len(c.intents)
}

func formatSchemaErrors(result *gojsonschema.Result) string {
	msg := ""
	for i, e := range result.Errors() {
		if i > 0 {
			msg += "; "
		}
		msg += e.String()
	}
	return msg
}
