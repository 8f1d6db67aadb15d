package ainote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/scribe/scribe/internal/platform/llm"
)

// GenerationResult is the parsed and scored output of one provider call.
type GenerationResult struct {
	SOAPNote             *SOAPNote
	RiskAssessment       *RiskAssessment
	TreatmentPlanUpdates *TreatmentPlanUpdates
	TranscriptQuality    TranscriptQuality
	MissingInformation   []string
	Warnings             []string
	Confidence           float64
	ModelUsed            string
	TokenCount           int
}

// generationPayload mirrors the JSON contract the model is instructed to
// return for full note generation.
type generationPayload struct {
	SOAPNote             SOAPNote              `json:"soapNote"`
	RiskAssessment       RiskAssessment        `json:"riskAssessment"`
	TreatmentPlanUpdates *TreatmentPlanUpdates `json:"treatmentPlanUpdates,omitempty"`
	TranscriptQuality    TranscriptQuality     `json:"transcriptQuality"`
	MissingInformation   []string              `json:"missingInformation,omitempty"`
	Warnings             []string              `json:"warnings,omitempty"`
}

// Generator turns session transcripts into structured notes and risk
// screens via an LLM provider.
type Generator struct {
	provider           llm.Provider
	minTranscriptChars int
	logger             zerolog.Logger
}

func NewGenerator(provider llm.Provider, minTranscriptChars int, logger zerolog.Logger) *Generator {
	if minTranscriptChars <= 0 {
		minTranscriptChars = 200
	}
	return &Generator{
		provider:           provider,
		minTranscriptChars: minTranscriptChars,
		logger:             logger.With().Str("component", "ainote_generator").Logger(),
	}
}

// GenerateNote produces a full SOAP note with embedded risk assessment.
// The transcript length gate runs before any provider call so short
// transcripts never cost tokens.
func (g *Generator) GenerateNote(ctx context.Context, transcript string, meta SessionMetadata, noteType string, includeTreatmentPlan bool, regen *regenerationContext) (*GenerationResult, error) {
	if len(transcript) < g.minTranscriptChars {
		return nil, transcriptTooShort(len(transcript), g.minTranscriptChars)
	}

	resp, err := g.provider.Complete(ctx, llm.Request{
		System: systemPrompt,
		Prompt: buildNotePrompt(transcript, meta, noteType, includeTreatmentPlan, regen),
	})
	if err != nil {
		return nil, providerFailure("note generation call failed", err)
	}

	var payload generationPayload
	if err := json.Unmarshal([]byte(stripCodeFences(resp.Text)), &payload); err != nil {
		g.logger.Warn().Err(err).Str("model", resp.Model).Msg("provider returned malformed note JSON")
		return nil, providerFailure("provider returned malformed note JSON", err)
	}
	if err := validatePayload(&payload); err != nil {
		return nil, providerFailure("provider returned incomplete note payload", err)
	}

	if payload.SOAPNote.SchemaVersion == "" {
		payload.SOAPNote.SchemaVersion = SOAPSchemaVersion
	}

	result := &GenerationResult{
		SOAPNote:             &payload.SOAPNote,
		RiskAssessment:       &payload.RiskAssessment,
		TreatmentPlanUpdates: payload.TreatmentPlanUpdates,
		TranscriptQuality:    payload.TranscriptQuality,
		MissingInformation:   payload.MissingInformation,
		Warnings:             payload.Warnings,
		ModelUsed:            resp.Model,
		TokenCount:           resp.TotalTokens(),
	}
	result.Confidence = confidence(payload.TranscriptQuality, len(payload.MissingInformation), payload.SOAPNote.PopulatedSections())

	return result, nil
}

// AssessRisk runs the standalone safety screen. It shares the length gate
// with note generation.
func (g *Generator) AssessRisk(ctx context.Context, transcript string) (*RiskAssessment, int, error) {
	if len(transcript) < g.minTranscriptChars {
		return nil, 0, transcriptTooShort(len(transcript), g.minTranscriptChars)
	}

	resp, err := g.provider.Complete(ctx, llm.Request{
		System: riskSystemPrompt,
		Prompt: buildRiskPrompt(transcript),
	})
	if err != nil {
		return nil, 0, providerFailure("risk assessment call failed", err)
	}

	var ra RiskAssessment
	if err := json.Unmarshal([]byte(stripCodeFences(resp.Text)), &ra); err != nil {
		g.logger.Warn().Err(err).Str("model", resp.Model).Msg("provider returned malformed risk JSON")
		return nil, 0, providerFailure("provider returned malformed risk JSON", err)
	}
	if !validRiskLevels[ra.RiskLevel] {
		return nil, 0, providerFailure("provider returned invalid risk level", fmt.Errorf("risk level %q", ra.RiskLevel))
	}

	return &ra, resp.TotalTokens(), nil
}

func validatePayload(p *generationPayload) error {
	if !validRiskLevels[p.RiskAssessment.RiskLevel] {
		return fmt.Errorf("risk level %q", p.RiskAssessment.RiskLevel)
	}
	switch p.TranscriptQuality {
	case QualityPoor, QualityFair, QualityGood, QualityExcellent:
	case "":
		p.TranscriptQuality = QualityFair
	default:
		return fmt.Errorf("transcript quality %q", p.TranscriptQuality)
	}
	if strings.TrimSpace(p.SOAPNote.Subjective.ChiefComplaint) == "" &&
		strings.TrimSpace(p.SOAPNote.Assessment.ClinicalImpressions) == "" {
		return fmt.Errorf("soap note has no subjective or assessment content")
	}
	return nil
}

// confidence scores a generation from transcript quality, information gaps,
// and structural completeness. Bounded to [0.3*populated/4, 0.95].
func confidence(quality TranscriptQuality, missing int, populated int) float64 {
	var base float64
	switch quality {
	case QualityExcellent:
		base = 0.95
	case QualityGood:
		base = 0.85
	case QualityFair:
		base = 0.70
	default:
		base = 0.50
	}

	base -= 0.05 * float64(missing)
	if base < 0.30 {
		base = 0.30
	}

	return base * (float64(populated) / float64(SectionCount))
}
