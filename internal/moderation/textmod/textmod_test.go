package textmod

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

type fakeExtractor struct {
	ext Extraction
	err error
}

func (f fakeExtractor) ExtractText(ctx context.Context, uri string, maxFrames int) (Extraction, error) {
	return f.ext, f.err
}

type fakeClassifier struct {
	scores map[string]float64
	err    error
}

func (f fakeClassifier) ModerateText(ctx context.Context, text string) (map[string]float64, error) {
	return f.scores, f.err
}

type fakeCategoryWords map[string]string

func (f fakeCategoryWords) CategoryWords(ctx context.Context, locale string) (map[string]string, error) {
	return f, nil
}

type staticSource struct {
	name  string
	words []string
	err   error
}

func (s staticSource) Name() string { return s.name }
func (s staticSource) Find(ctx context.Context, text string, tokens []string) ([]string, error) {
	return s.words, s.err
}

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"Cabrón":   "cabron",
		"M1ERDA":   "mierda",
		"$h1t":     "shit",
		"puuuuta":  "puuta",
		"Güevón!!": "guevonii",
		"p@ja":     "paja",
	}
	for in, want := range cases {
		if got := NormalizeKey(in); got != want {
			t.Errorf("NormalizeKey(%q)=%q want %q", in, got, want)
		}
	}
}

func TestLexiconBuckets(t *testing.T) {
	lex, err := DefaultLexicon()
	if err != nil {
		t.Fatalf("DefaultLexicon: %v", err)
	}
	src := NewLexiconSource(lex, "es-AR")
	got, _ := src.Find(context.Background(), "", Tokens("Che boludo, la concha de tu madre! what the FUCK"))
	want := map[string]bool{"boludo": true, "la concha de tu madre": true, "fuck": true}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for _, w := range got {
		if !want[w] {
			t.Fatalf("unexpected word %q in %v", w, got)
		}
	}
	if words, _ := src.Find(context.Background(), "", Tokens("una computadora nueva")); len(words) != 0 {
		t.Fatalf("substring inside a word must not match: %v", words)
	}
}

func newTestModerator(sources []WordSource, cls Classifier, ocr TextExtractor) *Moderator {
	return NewModerator(logger.Nop(), moderation.DefaultScoringConfig(), Options{OCR: ocr, Sources: sources, Classifier: cls})
}

func TestSameWordAcrossSourcesCountsOnce(t *testing.T) {
	lex, _ := DefaultLexicon()
	sources := []WordSource{
		NewLexiconSource(lex, "es-AR"),
		staticSource{name: SourceCommunity, words: []string{"M1ERDA", "mierda"}},
		NewCategorySource(fakeCategoryWords{"mierda": moderation.BadWordViolent}, "es-AR"),
	}
	m := newTestModerator(sources, nil, nil)
	res := m.AnalyzeText(context.Background(), "MIERDA m1erda mierda")
	if res.LexicalLevel != moderation.TextSuspect || res.Level != moderation.TextSuspect {
		t.Fatalf("expected suspect, got lexical=%s level=%s words=%v", res.LexicalLevel, res.Level, res.ProblemWords)
	}
	if !reflect.DeepEqual(res.ProblemWords, []string{"mierda"}) {
		t.Fatalf("problem words=%v", res.ProblemWords)
	}
	if len(res.SourceWords) != 3 {
		t.Fatalf("each source should report its hit: %v", res.SourceWords)
	}
}

func TestLexicalLevels(t *testing.T) {
	cases := []struct {
		words []string
		want  moderation.TextLevel
	}{
		{nil, moderation.TextClean},
		{[]string{"a"}, moderation.TextSuspect},
		{[]string{"a", "b"}, moderation.TextSuspect},
		{[]string{"a", "b", "c"}, moderation.TextProblematic},
	}
	for _, tc := range cases {
		m := newTestModerator([]WordSource{staticSource{name: "s", words: tc.words}}, nil, nil)
		if got := m.AnalyzeText(context.Background(), "x").Level; got != tc.want {
			t.Errorf("%v: got %s want %s", tc.words, got, tc.want)
		}
	}
}

func TestClassifierLevels(t *testing.T) {
	m := newTestModerator(nil, fakeClassifier{scores: map[string]float64{"Violent": 0.65, "Profanity": 0.31, "Finance": 0.99}}, nil)
	res := m.AnalyzeText(context.Background(), "some text")
	if res.ClassifierLevel != moderation.TextProblematic || res.Level != moderation.TextProblematic {
		t.Fatalf("got %+v", res)
	}
	if res.TopCategory != "violent" || res.TopScore != 0.65 {
		t.Fatalf("top category=%s score=%v", res.TopCategory, res.TopScore)
	}
	if _, ok := res.Categories["finance"]; ok {
		t.Fatalf("untracked categories should not be reported")
	}
}

func TestErrorIsSticky(t *testing.T) {
	m := newTestModerator(nil, fakeClassifier{err: errors.New("unavailable")}, nil)
	res := m.AnalyzeText(context.Background(), "hola")
	if res.Level != moderation.TextError {
		t.Fatalf("classifier failure should yield error, got %s", res.Level)
	}

	m = newTestModerator([]WordSource{staticSource{name: "db", err: errors.New("down")}}, nil, nil)
	if got := m.AnalyzeText(context.Background(), "hola").Level; got != moderation.TextError {
		t.Fatalf("source failure should yield error, got %s", got)
	}
}

func TestAnalyzeOCR(t *testing.T) {
	lex, _ := DefaultLexicon()
	m := newTestModerator([]WordSource{NewLexiconSource(lex, "en")}, nil, fakeExtractor{ext: Extraction{Text: "all clear", Frames: 10}})
	res, err := m.Analyze(context.Background(), "gs://b/v.mp4")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Level != moderation.TextClean || res.FramesAnalyzed != 10 {
		t.Fatalf("got %+v", res)
	}

	m = newTestModerator(nil, nil, fakeExtractor{err: errors.New("vision down")})
	res, err = m.Analyze(context.Background(), "gs://b/v.mp4")
	if err == nil || res.Level != moderation.TextError {
		t.Fatalf("OCR failure should return level error and an error, got %s %v", res.Level, err)
	}
}

func TestTokensTrimPunctuationBeforeLeet(t *testing.T) {
	got := Tokens("¡madre! $hit, boludo... sh!t")
	want := []string{"madre", "shit", "boludo", "shit"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokens=%v want %v", got, want)
	}
}

func TestPhraseMatcherFindsPlurals(t *testing.T) {
	m := newPhraseMatcher([]string{"arma", "fusil", "arma de fuego", "pistola"})
	got := m.match(Tokens("Vendo ARMAS y fusiles, no pistolitas"))
	want := []string{"arma", "fusil"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if got := m.match(Tokens("un arma de fuego")); len(got) != 2 {
		t.Fatalf("phrase and word should both match: %v", got)
	}
}
