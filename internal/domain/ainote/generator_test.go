package ainote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/scribe/scribe/internal/platform/llm"
)

type fakeProvider struct {
	resp    *llm.Response
	err     error
	calls   int
	lastReq llm.Request
}

func (f *fakeProvider) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func validPayloadJSON() string {
	return `{
		"soapNote": {
			"schemaVersion": "1.0",
			"subjective": {"chiefComplaint": "persistent worry", "historyOfPresentIllness": "worsening over two weeks"},
			"objective": {"appearance": "well groomed", "mood": "anxious"},
			"assessment": {"clinicalImpressions": "generalized anxiety presentation", "progress": "improving"},
			"plan": {"interventionsUsed": ["CBT"], "homework": "thought log", "nextSessionFocus": "cognitive restructuring"}
		},
		"riskAssessment": {"suicidalIdeation": false, "suicidalPlan": false, "homicidalIdeation": false, "selfHarm": false, "riskLevel": "LOW"},
		"transcriptQuality": "GOOD",
		"missingInformation": ["medication history"]
	}`
}

func longTranscript() string {
	return strings.Repeat("Client described their week and ongoing symptoms. ", 10)
}

func newTestGenerator(p llm.Provider) *Generator {
	return NewGenerator(p, 200, zerolog.Nop())
}

func TestGenerateNote(t *testing.T) {
	provider := &fakeProvider{resp: &llm.Response{
		Text:         validPayloadJSON(),
		Model:        "claude-sonnet-4-20250514",
		InputTokens:  1200,
		OutputTokens: 400,
	}}
	g := newTestGenerator(provider)

	result, err := g.GenerateNote(context.Background(), longTranscript(), SessionMetadata{DurationMinutes: 50, Modality: "in_person"}, "SOAP", false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SOAPNote.Subjective.ChiefComplaint != "persistent worry" {
		t.Errorf("soap note not parsed: %+v", result.SOAPNote.Subjective)
	}
	if result.RiskAssessment.RiskLevel != RiskLow {
		t.Errorf("expected LOW risk, got %s", result.RiskAssessment.RiskLevel)
	}
	if result.ModelUsed != "claude-sonnet-4-20250514" {
		t.Errorf("model not carried: %q", result.ModelUsed)
	}
	if result.TokenCount != 1600 {
		t.Errorf("expected 1600 tokens, got %d", result.TokenCount)
	}
	if !strings.Contains(provider.lastReq.Prompt, "Duration: 50 minutes") {
		t.Error("session metadata missing from prompt")
	}
	if provider.lastReq.System == "" {
		t.Error("system prompt not set")
	}
}

func TestGenerateNote_TooShort(t *testing.T) {
	provider := &fakeProvider{}
	g := newTestGenerator(provider)

	_, err := g.GenerateNote(context.Background(), "too short", SessionMetadata{}, "SOAP", false, nil)
	if !errors.Is(err, ErrTranscriptTooShort) {
		t.Fatalf("expected TranscriptTooShort, got %v", err)
	}
	if provider.calls != 0 {
		t.Errorf("provider must not be called for short transcripts, got %d calls", provider.calls)
	}
}

func TestGenerateNote_StripsCodeFences(t *testing.T) {
	provider := &fakeProvider{resp: &llm.Response{
		Text:  "```json\n" + validPayloadJSON() + "\n```",
		Model: "m",
	}}
	g := newTestGenerator(provider)

	result, err := g.GenerateNote(context.Background(), longTranscript(), SessionMetadata{}, "SOAP", false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SOAPNote.Assessment.ClinicalImpressions == "" {
		t.Error("fenced payload not parsed")
	}
}

func TestGenerateNote_MalformedJSON(t *testing.T) {
	provider := &fakeProvider{resp: &llm.Response{Text: "I cannot produce JSON today.", Model: "m"}}
	g := newTestGenerator(provider)

	_, err := g.GenerateNote(context.Background(), longTranscript(), SessionMetadata{}, "SOAP", false, nil)
	if !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("expected ProviderFailure, got %v", err)
	}
}

func TestGenerateNote_InvalidRiskLevel(t *testing.T) {
	payload := strings.Replace(validPayloadJSON(), `"riskLevel": "LOW"`, `"riskLevel": "BANANAS"`, 1)
	provider := &fakeProvider{resp: &llm.Response{Text: payload, Model: "m"}}
	g := newTestGenerator(provider)

	_, err := g.GenerateNote(context.Background(), longTranscript(), SessionMetadata{}, "SOAP", false, nil)
	if !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("expected ProviderFailure, got %v", err)
	}
}

func TestGenerateNote_ProviderError(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("boom: %w", llm.ErrUnavailable)}
	g := newTestGenerator(provider)

	_, err := g.GenerateNote(context.Background(), longTranscript(), SessionMetadata{}, "SOAP", false, nil)
	if !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("expected ProviderFailure, got %v", err)
	}
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Errorf("expected wrapped transport error, got %v", err)
	}
}

func TestGenerateNote_RegenerationPrompt(t *testing.T) {
	provider := &fakeProvider{resp: &llm.Response{Text: validPayloadJSON(), Model: "m"}}
	g := newTestGenerator(provider)

	_, err := g.GenerateNote(context.Background(), longTranscript(), SessionMetadata{}, "SOAP", false, &regenerationContext{
		Feedback:         "expand the assessment",
		PreserveSections: []string{"subjective"},
		FocusAreas:       []string{"assessment"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(provider.lastReq.Prompt, "expand the assessment") {
		t.Error("feedback missing from regeneration prompt")
	}
	if !strings.Contains(provider.lastReq.Prompt, "Preserve these sections") {
		t.Error("preserve instruction missing from regeneration prompt")
	}
}

func TestAssessRisk(t *testing.T) {
	provider := &fakeProvider{resp: &llm.Response{
		Text:         `{"suicidalIdeation": true, "suicidalPlan": false, "homicidalIdeation": false, "selfHarm": false, "riskLevel": "HIGH", "riskNotes": "passive ideation reported"}`,
		Model:        "m",
		InputTokens:  300,
		OutputTokens: 50,
	}}
	g := newTestGenerator(provider)

	ra, tokens, err := g.AssessRisk(context.Background(), longTranscript())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ra.SuicidalIdeation || ra.RiskLevel != RiskHigh {
		t.Errorf("risk assessment not parsed: %+v", ra)
	}
	if !ra.Flagged() {
		t.Error("HIGH risk must be flagged")
	}
	if tokens != 350 {
		t.Errorf("expected 350 tokens, got %d", tokens)
	}
}

func TestAssessRisk_TooShort(t *testing.T) {
	provider := &fakeProvider{}
	g := newTestGenerator(provider)

	_, _, err := g.AssessRisk(context.Background(), "hi")
	if !errors.Is(err, ErrTranscriptTooShort) {
		t.Fatalf("expected TranscriptTooShort, got %v", err)
	}
	if provider.calls != 0 {
		t.Error("provider must not be called for short transcripts")
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name      string
		quality   TranscriptQuality
		missing   int
		populated int
		want      float64
	}{
		{"excellent complete", QualityExcellent, 0, 4, 0.95},
		{"good one gap", QualityGood, 1, 4, 0.80},
		{"fair two gaps", QualityFair, 2, 4, 0.60},
		{"poor floors at 0.30", QualityPoor, 10, 4, 0.30},
		{"scaled by populated sections", QualityExcellent, 0, 2, 0.475},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := confidence(tt.quality, tt.missing, tt.populated)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("confidence(%s, %d, %d) = %v, want %v", tt.quality, tt.missing, tt.populated, got, tt.want)
			}
		})
	}
}
