package detectors

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/yungbote/videoguard-backend/internal/clients/gcp"
	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/moderation/taxonomy"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

const narrativePrompt = `You are reviewing a short user-uploaded video for a content moderation team.
Watch the whole video, including the audio, and report only what is actually shown or said.

Answer with a single JSON object and nothing else, using exactly these keys:
{
  "objects": [
    {"label": "short noun", "confidence": 0.0, "is_weapon": false,
     "weapon_kind": "none|blade|firearm", "obscene_gesture": false, "notes": "what the object is doing"}
  ],
  "alerts": ["weapon_firearm|weapon_blade|obscene_gesture|violence|threat"],
  "evidence": [
    {"kind": "weapon_firearm|weapon_blade|obscene_gesture|violence|threat",
     "source": "visual|audio|text", "confidence": 0.0, "t0": 0.0, "t1": 0.0,
     "description": "one sentence describing the moment"}
  ],
  "detected_text": "any text visible on screen, verbatim",
  "summary": "two sentences at most"
}

Rules:
- Confidence values are numbers between 0 and 1.
- A kitchen or table knife counts as weapon_blade only when it is pointed at a person or used to threaten.
- A gesture simulating a cut across the throat or neck is a threat even without a visible weapon.
- Raise an alert only when at least one evidence item supports it. Use empty lists when nothing applies.`

type narrativeAnalyzer struct {
	log    *logger.Logger
	gemini gcp.Gemini
}

func NewNarrativeAnalyzer(log *logger.Logger, gemini gcp.Gemini) NarrativeAnalyzer {
	return &narrativeAnalyzer{log: log.With("service", "NarrativeAnalyzer"), gemini: gemini}
}

func (a *narrativeAnalyzer) Analyze(ctx context.Context, uri string) (moderation.NarrativeAnalysis, error) {
	text, err := a.gemini.GenerateFromVideo(ctx, uri, narrativePrompt)
	if err != nil {
		return moderation.NarrativeAnalysis{}, err
	}
	raw, ok := DecodeNarrative(text)
	if !ok {
		a.log.Warn("Narrative response was not JSON", "uri", uri, "length", len(text))
		return moderation.NarrativeAnalysis{Raw: raw}, &moderation.PermanentProviderError{
			Provider: moderation.DetectorNarrative,
			Err:      fmt.Errorf("response is not a JSON object"),
		}
	}
	out := NarrativeFromRaw(raw)
	a.log.Info("Narrative analyzed",
		"uri", uri,
		"objects", len(out.Findings),
		"evidence", len(out.Evidence),
	)
	return out, nil
}

var (
	fenceRe  = regexp.MustCompile("(?i)```(?:json)?")
	objectRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// DecodeNarrative extracts a JSON object from a model response that may carry code fences or
// surrounding prose. On failure it returns {"raw_text": text} and false.
func DecodeNarrative(text string) (map[string]interface{}, bool) {
	t := strings.TrimSpace(fenceRe.ReplaceAllString(strings.TrimSpace(text), ""))
	var out map[string]interface{}
	if t != "" && json.Unmarshal([]byte(t), &out) == nil && out != nil {
		return out, true
	}
	if m := objectRe.FindString(t); m != "" {
		out = nil
		if json.Unmarshal([]byte(m), &out) == nil && out != nil {
			return out, true
		}
	}
	return map[string]interface{}{"raw_text": text}, false
}

// NarrativeFromRaw maps a decoded response to findings and evidence. Alerts named without
// supporting evidence become zero-confidence evidence so they still reach fusion.
func NarrativeFromRaw(raw map[string]interface{}) moderation.NarrativeAnalysis {
	out := moderation.NarrativeAnalysis{
		Findings: []moderation.Finding{},
		Evidence: []moderation.Evidence{},
		Raw:      raw,
	}
	for _, item := range asList(raw["objects"]) {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		label := strings.TrimSpace(asString(obj["label"]))
		conf := clamp01(asFloat(obj["confidence"]))
		notes := strings.TrimSpace(asString(obj["notes"]))
		if label != "" {
			kind := weaponKind(asString(obj["weapon_kind"]))
			if kind == moderation.WeaponNone && asBool(obj["is_weapon"]) {
				kind = moderation.WeaponFirearm
				if taxonomy.MentionsKnife(label + " " + notes) {
					kind = moderation.WeaponBlade
				}
			}
			out.Findings = append(out.Findings, moderation.Finding{
				Label:      label,
				Confidence: conf,
				IsWeapon:   kind != moderation.WeaponNone,
				WeaponKind: kind,
				Source:     moderation.DetectorNarrative,
				Note:       notes,
			})
		}
		if notes != "" {
			out.Notes = append(out.Notes, notes)
		}
		if asBool(obj["obscene_gesture"]) {
			desc := strings.TrimSpace(label + ": " + notes)
			out.Evidence = append(out.Evidence, moderation.Evidence{
				Kind:        moderation.AlertObsceneGesture,
				Confidence:  conf,
				Description: strings.Trim(desc, ": "),
				Source:      moderation.DetectorNarrative,
			})
		}
	}

	backed := map[string]struct{}{}
	for _, item := range asList(raw["evidence"]) {
		ev, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		kind := strings.TrimSpace(asString(ev["kind"]))
		if kind == "" {
			continue
		}
		e := moderation.Evidence{
			Kind:        moderation.AlertKind(kind),
			Confidence:  clamp01(asFloat(ev["confidence"])),
			Description: strings.TrimSpace(asString(ev["description"])),
			Source:      moderation.DetectorNarrative,
		}
		if t0, t1 := asFloat(ev["t0"]), asFloat(ev["t1"]); t1 > 0 && t1 >= t0 {
			e.Interval = &moderation.Interval{Start: math.Max(0, t0), End: t1}
		}
		out.Evidence = append(out.Evidence, e)
		backed[strings.ToLower(kind)] = struct{}{}
	}
	for _, gesture := range out.Evidence {
		backed[string(gesture.Kind)] = struct{}{}
	}

	for _, item := range asList(raw["alerts"]) {
		kind := strings.TrimSpace(asString(item))
		if kind == "" {
			continue
		}
		if _, ok := backed[strings.ToLower(kind)]; ok {
			continue
		}
		backed[strings.ToLower(kind)] = struct{}{}
		out.Evidence = append(out.Evidence, moderation.Evidence{
			Kind:        moderation.AlertKind(kind),
			Description: "alert raised without supporting evidence",
			Source:      moderation.DetectorNarrative,
		})
	}

	out.DetectedText = joinText(raw["detected_text"])
	out.Summary = strings.TrimSpace(asString(raw["summary"]))
	return out
}

func weaponKind(s string) moderation.WeaponKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blade", "blanca", "arma_blanca", "weapon_blade":
		return moderation.WeaponBlade
	case "firearm", "fuego", "arma_fuego", "weapon_firearm", "gun":
		return moderation.WeaponFirearm
	default:
		return moderation.WeaponNone
	}
}

func joinText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s := strings.TrimSpace(asString(p)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

func asList(v interface{}) []interface{} {
	if l, ok := v.([]interface{}); ok {
		return l
	}
	return nil
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64, bool:
		return fmt.Sprint(t)
	default:
		return ""
	}
}

func asFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func asBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	default:
		return false
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
