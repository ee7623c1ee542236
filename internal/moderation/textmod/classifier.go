package textmod

import (
	"context"
	"sort"
	"strings"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
)

// Classifier is a managed text moderation model returning category confidences.
type Classifier interface {
	ModerateText(ctx context.Context, text string) (map[string]float64, error)
}

// TrackedCategories are the classifier categories that raise the text level.
var TrackedCategories = []string{"profanity", "violent", "sexual", "death, harm & tragedy"}

type categoryResult struct {
	level    moderation.TextLevel
	top      string
	topScore float64
	scores   map[string]float64
}

func levelForScore(score, suspect, problematic float64) moderation.TextLevel {
	switch {
	case score >= problematic:
		return moderation.TextProblematic
	case score >= suspect:
		return moderation.TextSuspect
	default:
		return moderation.TextClean
	}
}

func classifyCategories(raw map[string]float64, suspect, problematic float64) categoryResult {
	scores := make(map[string]float64, len(TrackedCategories))
	for k, v := range raw {
		scores[strings.ToLower(strings.TrimSpace(k))] = v
	}
	res := categoryResult{level: moderation.TextClean, scores: map[string]float64{}}
	cats := append([]string{}, TrackedCategories...)
	sort.Strings(cats)
	for _, c := range cats {
		v := scores[c]
		res.scores[c] = v
		res.level = moderation.MaxTextLevel(res.level, levelForScore(v, suspect, problematic))
		if res.top == "" || v > res.topScore {
			res.top, res.topScore = c, v
		}
	}
	return res
}

// lexicalLevel maps distinct hits to a level: 0 clean, 1-2 suspect, 3+ problematic.
func lexicalLevel(distinct int) moderation.TextLevel {
	switch {
	case distinct == 0:
		return moderation.TextClean
	case distinct <= 2:
		return moderation.TextSuspect
	default:
		return moderation.TextProblematic
	}
}
