package gcp

import (
	"testing"

	languagepb "cloud.google.com/go/language/apiv2/languagepb"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	statuspb "google.golang.org/genproto/googleapis/rpc/status"
)

func TestParseTextResponses(t *testing.T) {
	resp := &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{
		{FullTextAnnotation: &visionpb.TextAnnotation{Text: "hola\n  mundo"}},
		{TextAnnotations: []*visionpb.EntityAnnotation{{Description: "SALE 50%"}, {Description: "SALE"}}},
		{},
	}}
	got, err := parseTextResponses(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"hola mundo", "SALE 50%", ""}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestParseTextResponsesError(t *testing.T) {
	resp := &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{
		{Error: &statuspb.Status{Message: "bad image"}},
	}}
	if _, err := parseTextResponses(resp); err == nil {
		t.Fatalf("expected error")
	}
}

func TestModerationScores(t *testing.T) {
	resp := &languagepb.ModerateTextResponse{ModerationCategories: []*languagepb.ClassificationCategory{
		{Name: "Toxic", Confidence: 0.5},
		{Name: "", Confidence: 0.9},
		{Name: "Violent", Confidence: 0.25},
	}}
	got := moderationScores(resp)
	if len(got) != 2 || got["Toxic"] != 0.5 || got["Violent"] != 0.25 {
		t.Fatalf("unexpected scores %v", got)
	}
	if len(moderationScores(nil)) != 0 {
		t.Fatalf("nil response should give empty map")
	}
}

func TestTranscriptJoinsFirstAlternatives(t *testing.T) {
	resp := &speechpb.LongRunningRecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " te voy a "}, {Transcript: "ignored"}}},
		{},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "encontrar"}}},
	}}
	if got := transcript(resp); got != "te voy a encontrar" {
		t.Fatalf("got %q", got)
	}
}

func TestVideoMimeType(t *testing.T) {
	if VideoMimeType("gs://b/a.MOV") != "video/quicktime" || VideoMimeType("gs://b/a") != "video/mp4" {
		t.Fatalf("unexpected mime mapping")
	}
}
