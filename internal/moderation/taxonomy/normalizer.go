package taxonomy

import (
	"strings"
	"unicode"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
)

type Normalizer struct {
	cfg   moderation.ScoringConfig
	vocab vocabulary
}

func NewNormalizer(cfg moderation.ScoringConfig) *Normalizer {
	return &Normalizer{cfg: cfg, vocab: buildVocabulary()}
}

// Key lower-cases raw, trims surrounding space and punctuation, and collapses inner runs of
// whitespace, underscores and hyphens into a single space.
func Key(raw string) string {
	raw = strings.ToLower(raw)
	raw = strings.TrimFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	var b strings.Builder
	b.Grow(len(raw))
	sep := false
	for _, r := range raw {
		if unicode.IsSpace(r) || r == '_' || r == '-' {
			sep = true
			continue
		}
		if sep && b.Len() > 0 {
			b.WriteByte(' ')
		}
		sep = false
		b.WriteRune(r)
	}
	return b.String()
}

// Normalize maps detector vocabulary to an alert kind. Unknown vocabulary returns raw unchanged
// with ok=false.
func (n *Normalizer) Normalize(raw string, source moderation.Detector) (string, moderation.AlertKind, bool) {
	kind, ok := n.vocab[Key(raw)]
	if !ok {
		return raw, "", false
	}
	return string(kind), kind, true
}

// NormalizeFinding returns a copy of f with canonical label and weapon fields filled in. A
// detector-declared weapon kind is honored when the label itself is unknown.
func (n *Normalizer) NormalizeFinding(f moderation.Finding) moderation.Finding {
	out := f
	canonical, kind, ok := n.Normalize(f.Label, f.Source)
	if !ok {
		switch f.WeaponKind {
		case moderation.WeaponBlade:
			kind, ok = moderation.AlertWeaponBlade, true
		case moderation.WeaponFirearm:
			kind, ok = moderation.AlertWeaponFirearm, true
		}
		canonical = string(kind)
	}
	if !ok {
		out.CanonicalLabel = moderation.Unclassified
		out.IsWeapon = false
		out.WeaponKind = moderation.WeaponNone
		out.Generic = false
		return out
	}
	out.CanonicalLabel = canonical
	switch kind {
	case moderation.AlertWeaponBlade:
		out.IsWeapon = true
		out.WeaponKind = moderation.WeaponBlade
	case moderation.AlertWeaponFirearm:
		out.IsWeapon = true
		out.WeaponKind = moderation.WeaponFirearm
		out.Generic = Key(f.Label) == genericWeapon
	default:
		out.IsWeapon = false
		out.WeaponKind = moderation.WeaponNone
	}
	return out
}

// NormalizeEvidence canonicalizes the evidence kind; ok is false when it maps to nothing.
func (n *Normalizer) NormalizeEvidence(e moderation.Evidence) (moderation.Evidence, bool) {
	if e.Kind.Valid() {
		return e, true
	}
	_, kind, ok := n.Normalize(string(e.Kind), e.Source)
	if !ok {
		return e, false
	}
	e.Kind = kind
	return e, true
}

func (n *Normalizer) Admit(label string, confidence float64, frames int) bool {
	return n.cfg.Admit(label, confidence, frames)
}

func (n *Normalizer) Config() moderation.ScoringConfig { return n.cfg }

// WeaponWord reports whether a word names a weapon. Plural forms ("armas", "fusiles") count.
func (n *Normalizer) WeaponWord(word string) bool {
	for _, k := range singularForms(Key(word)) {
		if kind, ok := n.vocab[k]; ok && kind.IsWeapon() {
			return true
		}
	}
	return false
}

// singularForms returns key followed by the candidates left after dropping a Spanish or
// English plural ending from its last word.
func singularForms(key string) []string {
	out := []string{key}
	if len(key) < 4 || strings.HasSuffix(key, "ss") {
		return out
	}
	if strings.HasSuffix(key, "es") {
		out = append(out, key[:len(key)-2])
	}
	if strings.HasSuffix(key, "s") {
		out = append(out, key[:len(key)-1])
	}
	return out
}

// MentionsNeckCut reports whether free text describes a throat or neck cut.
func MentionsNeckCut(text string) bool {
	return containsAny(strings.ToLower(text), neckCutTerms)
}

// MentionsKnife reports whether free text mentions a knife or cutlery.
func MentionsKnife(text string) bool {
	return containsAny(strings.ToLower(text), knifeMentionTerms)
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
