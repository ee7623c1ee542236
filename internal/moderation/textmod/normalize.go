package textmod

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var leet = strings.NewReplacer(
	"0", "o", "1", "i", "3", "e", "4", "a", "5", "s", "7", "t",
	"@", "a", "$", "s", "!", "i",
)

// NormalizeKey folds a word for merging: lower-case, accents stripped, leetspeak mapped and
// runs of one character capped at two.
func NormalizeKey(s string) string {
	s = strings.ToLower(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	s = leet.Replace(s)
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	run := 0
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			prev, run = r, 0
		}
		if run < 2 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokens splits text into normalized word keys. Surrounding punctuation is trimmed before
// leet mapping so a trailing "!" is not read as an "i".
func Tokens(text string) []string {
	var out []string
	for _, chunk := range strings.Fields(text) {
		chunk = strings.TrimLeftFunc(chunk, func(r rune) bool {
			return isMark(r) && r != '@' && r != '$'
		})
		chunk = strings.TrimRightFunc(chunk, isMark)
		out = append(out, strings.FieldsFunc(NormalizeKey(chunk), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})...)
	}
	return out
}

func isMark(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// phraseMatcher finds whole-word and multi-word entries in a token stream.
type phraseMatcher struct {
	keys    []string
	display map[string]string
}

func newPhraseMatcher(words []string) *phraseMatcher {
	m := &phraseMatcher{display: map[string]string{}}
	for _, w := range words {
		key := strings.Join(Tokens(w), " ")
		if key == "" {
			continue
		}
		if _, ok := m.display[key]; ok {
			continue
		}
		m.display[key] = strings.TrimSpace(w)
		m.keys = append(m.keys, key)
	}
	return m
}

// match reports entries present in tokens. Single-word entries also match their plural
// ("armas" finds "arma", "fusiles" finds "fusil").
func (m *phraseMatcher) match(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	joined := " " + strings.Join(tokens, " ") + " "
	singles := make(map[string]bool, len(tokens)*2)
	for _, t := range tokens {
		singles[t] = true
		for _, s := range singulars(t) {
			singles[s] = true
		}
	}
	var out []string
	for _, k := range m.keys {
		hit := false
		if strings.Contains(k, " ") {
			hit = strings.Contains(joined, " "+k+" ")
		} else {
			hit = singles[k]
		}
		if hit {
			out = append(out, m.display[k])
		}
	}
	return out
}

func singulars(token string) []string {
	if len([]rune(token)) < 4 || strings.HasSuffix(token, "ss") {
		return nil
	}
	var out []string
	if strings.HasSuffix(token, "es") {
		out = append(out, strings.TrimSuffix(token, "es"))
	}
	if strings.HasSuffix(token, "s") {
		out = append(out, strings.TrimSuffix(token, "s"))
	}
	return out
}
