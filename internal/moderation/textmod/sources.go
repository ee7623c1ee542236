package textmod

import (
	"context"
	"sort"
	"strings"
	"unicode"

	goaway "github.com/TwiN/go-away"
)

const (
	SourceLexicon   = "lexicon"
	SourceCommunity = "community"
	SourceCategory  = "category"
)

// WordSource finds problem words in OCR text. tokens are the normalized word keys of text.
type WordSource interface {
	Name() string
	Find(ctx context.Context, text string, tokens []string) ([]string, error)
}

// CategoryWords returns the active category word list for a locale, word -> category.
type CategoryWords interface {
	CategoryWords(ctx context.Context, locale string) (map[string]string, error)
}

type lexiconSource struct {
	matcher *phraseMatcher
}

func NewLexiconSource(lex *Lexicon, locale string) WordSource {
	return &lexiconSource{matcher: newPhraseMatcher(lex.Words(locale))}
}

func (s *lexiconSource) Name() string { return SourceLexicon }

func (s *lexiconSource) Find(ctx context.Context, text string, tokens []string) ([]string, error) {
	return s.matcher.match(tokens), nil
}

// spanishProfanities extend the community dictionary, which is English only.
var spanishProfanities = []string{
	"boludo", "pelotudo", "pendejo", "cabron", "mierda", "gilipollas", "hijueputa",
	"culiao", "concha", "verga", "chinga", "joder", "carajo", "maricon",
}

// spanishFalsePositives are ordinary words that contain a dictionary entry.
var spanishFalsePositives = []string{
	"computadora", "disputa", "disputar", "reputacion", "imputado", "diputado", "diputada",
	"vergara", "conchas", "carajillo",
}

type communitySource struct {
	detector *goaway.ProfanityDetector
}

func NewCommunitySource() WordSource {
	profanities := append(append([]string{}, goaway.DefaultProfanities...), spanishProfanities...)
	falsePositives := append(append([]string{}, goaway.DefaultFalsePositives...), spanishFalsePositives...)
	d := goaway.NewProfanityDetector().
		WithSanitizeLeetSpeak(true).
		WithSanitizeSpecialCharacters(true).
		WithSanitizeAccents(true).
		WithCustomDictionary(profanities, falsePositives, goaway.DefaultFalseNegatives)
	return &communitySource{detector: d}
}

func (s *communitySource) Name() string { return SourceCommunity }

// Find checks each raw token on its own so hits map back to words in the text.
func (s *communitySource) Find(ctx context.Context, text string, tokens []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, raw := range strings.FieldsFunc(text, unicode.IsSpace) {
		word := strings.TrimFunc(raw, func(r rune) bool { return unicode.IsPunct(r) && r != '@' && r != '$' && r != '!' })
		if word == "" || seen[word] {
			continue
		}
		seen[word] = true
		if s.detector.IsProfane(word) {
			out = append(out, word)
		}
	}
	return out, nil
}

type categorySource struct {
	words  CategoryWords
	locale string
}

func NewCategorySource(words CategoryWords, locale string) WordSource {
	return &categorySource{words: words, locale: locale}
}

func (s *categorySource) Name() string { return SourceCategory }

func (s *categorySource) Find(ctx context.Context, text string, tokens []string) ([]string, error) {
	list, err := s.words.CategoryWords(ctx, s.locale)
	if err != nil {
		return nil, err
	}
	words := make([]string, 0, len(list))
	for w := range list {
		words = append(words, w)
	}
	sort.Strings(words)
	return newPhraseMatcher(words).match(tokens), nil
}
