// Package classify decides which utility a bill is for and which provider
// issued it, from keyword dictionaries.
package classify

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v2"

	"splitroom/internal/normalize"
	"splitroom/pkg/models"
)

//go:embed dictionaries.yaml
var defaultDictionaries []byte

const (
	// KWhBonus is added to the electricity score when "kwh" appears.
	KWhBonus = 2
	// MaxConfidence caps the utility confidence.
	MaxConfidence = 0.95
	// MinConfidence is the threshold below which a winner becomes "other".
	MinConfidence = 0.55
)

// Provider is one known bill issuer.
type Provider struct {
	ID       string   `yaml:"id"`
	NIFs     []string `yaml:"nifs"`
	Keywords []string `yaml:"keywords"`
}

// Dictionaries holds the keyword configuration.
type Dictionaries struct {
	Utilities struct {
		Electricity []string `yaml:"electricity"`
		Water       []string `yaml:"water"`
		Gas         []string `yaml:"gas"`
	} `yaml:"utilities"`
	Providers []Provider `yaml:"providers"`
}

// DefaultDictionaries parses the embedded dictionaries.
func DefaultDictionaries() (Dictionaries, error) {
	return ParseDictionaries(defaultDictionaries)
}

// LoadDictionaries reads a YAML dictionaries file.
func LoadDictionaries(path string) (Dictionaries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dictionaries{}, fmt.Errorf("read dictionaries: %w", err)
	}
	return ParseDictionaries(data)
}

// ParseDictionaries decodes YAML dictionaries.
func ParseDictionaries(data []byte) (Dictionaries, error) {
	var d Dictionaries
	if err := yaml.UnmarshalStrict(data, &d); err != nil {
		return Dictionaries{}, fmt.Errorf("parse dictionaries: %w", err)
	}
	for _, p := range d.Providers {
		if p.ID == "" {
			return Dictionaries{}, fmt.Errorf("parse dictionaries: provider without id")
		}
	}
	return d, nil
}

// UtilityResult is the outcome of utility classification.
type UtilityResult struct {
	Type       models.UtilityType   `json:"utility"`
	Confidence float64              `json:"confidence"`
	Scores     models.UtilityScores `json:"scores"`
}

type provider struct {
	id       string
	nifs     []string
	keywords []string
}

// Classifier is immutable after New and safe for concurrent use.
type Classifier struct {
	electricity []string
	water       []string
	gas         []string
	providers   []provider
}

// New folds and de-duplicates the dictionaries.
func New(d Dictionaries) *Classifier {
	c := &Classifier{
		electricity: foldAll(d.Utilities.Electricity),
		water:       foldAll(d.Utilities.Water),
		gas:         foldAll(d.Utilities.Gas),
	}
	for _, p := range d.Providers {
		nifs := make([]string, 0, len(p.NIFs))
		for _, n := range p.NIFs {
			if n = normalize.AlphaNumeric(n); n != "" {
				nifs = append(nifs, n)
			}
		}
		c.providers = append(c.providers, provider{id: p.ID, nifs: nifs, keywords: foldAll(p.Keywords)})
	}
	return c
}

// Default returns a classifier over the embedded dictionaries.
func Default() *Classifier {
	d, err := DefaultDictionaries()
	if err != nil {
		panic(err)
	}
	return New(d)
}

// Utility scores the text against each category.
func (c *Classifier) Utility(text string) UtilityResult {
	t := normalize.Fold(text)

	e := countHits(t, c.electricity)
	w := countHits(t, c.water)
	g := countHits(t, c.gas)
	if strings.Contains(t, "kwh") {
		e += KWhBonus
	}

	res := UtilityResult{Type: models.UtilityUnknown, Scores: models.UtilityScores{Electricity: e, Water: w, Gas: g}}
	best := max(e, w, g)
	if best == 0 {
		return res
	}

	switch best {
	case e:
		res.Type = models.UtilityElectricity
	case w:
		res.Type = models.UtilityWater
	default:
		res.Type = models.UtilityGas
	}

	res.Confidence = min(MaxConfidence, float64(best)/float64(e+w+g))
	if res.Confidence < MinConfidence {
		res.Type = models.UtilityOther
	}
	return res
}

// Provider returns the first provider whose NIF or keyword appears, or
// models.ProviderUnknown.
func (c *Classifier) Provider(text string) string {
	clean := normalize.AlphaNumeric(text)
	folded := normalize.Fold(text)

	for _, p := range c.providers {
		for _, nif := range p.nifs {
			if strings.Contains(clean, nif) {
				return p.id
			}
		}
		for _, k := range p.keywords {
			if strings.Contains(folded, k) {
				return p.id
			}
		}
	}
	return models.ProviderUnknown
}

// AllowedNIFs lists every provider NIF, for redaction allowlists.
func (c *Classifier) AllowedNIFs() []string {
	var out []string
	for _, p := range c.providers {
		out = append(out, p.nifs...)
	}
	return out
}

// ProviderIDs lists the configured providers in check order.
func (c *Classifier) ProviderIDs() []string {
	ids := make([]string, len(c.providers))
	for i, p := range c.providers {
		ids[i] = p.id
	}
	return ids
}

func countHits(text string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(text, k) {
			n++
		}
	}
	return n
}

func foldAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if f := normalize.Fold(w); f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}
