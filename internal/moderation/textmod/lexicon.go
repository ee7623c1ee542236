package textmod

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

type lexiconFile struct {
	Locales map[string][]string `yaml:"locales"`
}

// Lexicon is the curated multilingual word list, bucketed by locale.
type Lexicon struct {
	buckets map[string][]string
}

func DefaultLexicon() (*Lexicon, error) {
	return ParseLexicon(defaultLexiconYAML)
}

func ParseLexicon(raw []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	if len(f.Locales) == 0 {
		return nil, fmt.Errorf("parse lexicon: no locales")
	}
	return &Lexicon{buckets: f.Locales}, nil
}

// Words returns the words for locale, its language prefix, then es and en, without repeats.
func (l *Lexicon) Words(locale string) []string {
	order := []string{locale}
	if lang, _, ok := strings.Cut(locale, "-"); ok {
		order = append(order, lang)
	}
	order = append(order, "es", "en")
	seen := map[string]bool{}
	var out []string
	for _, b := range order {
		if seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, l.buckets[b]...)
	}
	return out
}
