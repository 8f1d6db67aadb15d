package ainote

import (
	"fmt"
	"strings"
)

// PromptVersion tags generated notes with the prompt revision that produced
// them, so output drift can be traced back to prompt changes.
const PromptVersion = "1.0"

const systemPrompt = `You are a clinical documentation assistant for licensed mental health professionals. You convert raw therapy session transcripts into structured clinical documentation. You never invent clinical findings: if the transcript does not support a field, leave it empty and list the gap under missingInformation. Respond ONLY with a single valid JSON object and no surrounding prose or markdown.`

const riskSystemPrompt = `You are a clinical safety screening assistant for licensed mental health professionals. You analyze therapy session transcripts strictly for safety risk indicators: suicidal ideation, suicidal planning, homicidal ideation, and self-harm. You never invent findings. Respond ONLY with a single valid JSON object and no surrounding prose or markdown.`

const noteSchema = `{
  "soapNote": {
    "schemaVersion": "1.0",
    "subjective": {"chiefComplaint": string, "historyOfPresentIllness": string, "reviewOfSystems": string, "clientQuotes": [string]},
    "objective": {"appearance": string, "behavior": string, "mood": string, "affect": string, "speech": string, "thoughtProcess": string, "mentalStatusObservations": [string]},
    "assessment": {"clinicalImpressions": string, "diagnosesDiscussed": [string], "riskFactors": [string], "protectiveFactors": [string], "progress": string},
    "plan": {"interventionsUsed": [string], "treatmentGoalsAddressed": [string], "homework": string, "nextSessionFocus": string, "referrals": [string], "medicationDiscussion": string}
  },
  "riskAssessment": {"suicidalIdeation": bool, "suicidalPlan": bool, "homicidalIdeation": bool, "selfHarm": bool, "riskLevel": "LOW"|"MODERATE"|"HIGH"|"CRITICAL", "riskNotes": string},
  "treatmentPlanUpdates": {"goalsProgress": [string], "suggestedModifications": [string], "newGoalsIdentified": [string]},
  "transcriptQuality": "POOR"|"FAIR"|"GOOD"|"EXCELLENT",
  "missingInformation": [string],
  "warnings": [string]
}`

const riskSchema = `{
  "suicidalIdeation": bool,
  "suicidalPlan": bool,
  "homicidalIdeation": bool,
  "selfHarm": bool,
  "riskLevel": "LOW"|"MODERATE"|"HIGH"|"CRITICAL",
  "riskNotes": string
}`

// regenerationContext carries clinician guidance for a regeneration pass.
type regenerationContext struct {
	Feedback         string
	PreserveSections []string
	FocusAreas       []string
	PreviousNote     *SOAPNote
}

// buildNotePrompt composes the deterministic user prompt for full note
// generation. The same inputs always produce the same prompt text.
func buildNotePrompt(transcript string, meta SessionMetadata, noteType string, includeTreatmentPlan bool, regen *regenerationContext) string {
	var b strings.Builder

	b.WriteString("Generate a structured ")
	b.WriteString(noteType)
	b.WriteString(" clinical note from the therapy session transcript below.\n\n")

	b.WriteString("Session context:\n")
	if meta.DurationMinutes > 0 {
		fmt.Fprintf(&b, "- Duration: %d minutes\n", meta.DurationMinutes)
	}
	if meta.Modality != "" {
		fmt.Fprintf(&b, "- Modality: %s\n", meta.Modality)
	}
	if len(meta.Participants) > 0 {
		fmt.Fprintf(&b, "- Participants: %s\n", strings.Join(meta.Participants, ", "))
	}
	b.WriteString("\n")

	if includeTreatmentPlan {
		b.WriteString("Include treatmentPlanUpdates: analyze progress against treatment goals and suggest modifications or new goals grounded in the transcript.\n\n")
	} else {
		b.WriteString("Omit treatmentPlanUpdates from the response.\n\n")
	}

	if regen != nil {
		b.WriteString("This is a regeneration of a previous draft. Clinician feedback:\n")
		b.WriteString(regen.Feedback)
		b.WriteString("\n")
		if len(regen.PreserveSections) > 0 {
			fmt.Fprintf(&b, "Preserve these sections verbatim from the previous draft: %s\n",
				strings.Join(regen.PreserveSections, ", "))
		}
		if len(regen.FocusAreas) > 0 {
			fmt.Fprintf(&b, "Focus particularly on: %s\n", strings.Join(regen.FocusAreas, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("Respond with JSON matching this schema exactly:\n")
	b.WriteString(noteSchema)
	b.WriteString("\n\nTranscript:\n\"\"\"\n")
	b.WriteString(transcript)
	b.WriteString("\n\"\"\"\n")

	return b.String()
}

// buildRiskPrompt composes the narrower prompt for a standalone safety
// screen, independent of full note generation.
func buildRiskPrompt(transcript string) string {
	var b strings.Builder

	b.WriteString("Screen the therapy session transcript below for safety risk indicators only.\n")
	b.WriteString("Assess suicidal ideation, suicidal planning, homicidal ideation, and self-harm, and assign an overall risk level.\n\n")
	b.WriteString("Respond with JSON matching this schema exactly:\n")
	b.WriteString(riskSchema)
	b.WriteString("\n\nTranscript:\n\"\"\"\n")
	b.WriteString(transcript)
	b.WriteString("\n\"\"\"\n")

	return b.String()
}

// stripCodeFences removes a markdown code fence wrapper if the model ignored
// the JSON-only instruction.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
