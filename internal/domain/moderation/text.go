package moderation

// TextLevel is ordered clean < suspect < problematic < error.
type TextLevel string

const (
	TextClean       TextLevel = "clean"
	TextSuspect     TextLevel = "suspect"
	TextProblematic TextLevel = "problematic"
	TextError       TextLevel = "error"
)

func (l TextLevel) Rank() int {
	switch l {
	case TextSuspect:
		return 1
	case TextProblematic:
		return 2
	case TextError:
		return 3
	default:
		return 0
	}
}

// MaxTextLevel returns the highest ranked level; error is therefore sticky.
func MaxTextLevel(levels ...TextLevel) TextLevel {
	out := TextClean
	for _, l := range levels {
		if l.Rank() > out.Rank() {
			out = l
		}
	}
	return out
}

type TextState string

const (
	TextStateClean    TextState = "Clean"
	TextStateWarning  TextState = "Warning"
	TextStateCritical TextState = "Critical"
)

type TextAnalysis struct {
	Level           TextLevel           `json:"level"`
	LexicalLevel    TextLevel           `json:"lexical_level"`
	ClassifierLevel TextLevel           `json:"classifier_level"`
	Text            string              `json:"text"`
	ProblemWords    []string            `json:"problem_words"`
	SourceWords     map[string][]string `json:"source_words,omitempty"`
	Categories      map[string]float64  `json:"categories,omitempty"`
	TopCategory     string              `json:"top_category,omitempty"`
	TopScore        float64             `json:"top_score,omitempty"`
	FramesAnalyzed  int                 `json:"frames_analyzed"`
	Error           string              `json:"error,omitempty"`
}

// FailedText is the result recorded when the text pipeline could not run.
func FailedText(err error) TextAnalysis {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return TextAnalysis{
		Level:           TextError,
		LexicalLevel:    TextError,
		ClassifierLevel: TextError,
		ProblemWords:    []string{},
		Error:           msg,
	}
}
