package ainote

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scribe/scribe/internal/domain/clinicalnote"
)

// sectionOverrides collects section-level edits (a bare "subjective",
// "objective", "assessment" or "plan" field path) that replace the rendered
// section text wholesale. Last write wins, matching edit order.
func sectionOverrides(edits *ClinicianEdits) map[string]string {
	if edits == nil {
		return nil
	}
	var out map[string]string
	for _, e := range edits.Changes {
		switch e.FieldPath {
		case "subjective", "objective", "assessment", "plan":
			if out == nil {
				out = make(map[string]string)
			}
			out[e.FieldPath] = e.NewValue
		}
	}
	return out
}

// toClinicalNote flattens a structured SOAP note into the text columns of
// the permanent record. The structured source of truth stays on the AI note
// row; the export is the human-readable rendition clinicians sign.
func toClinicalNote(n *Note, soap *SOAPNote, overrides map[string]string, now time.Time) *clinicalnote.ClinicalNote {
	cn := &clinicalnote.ClinicalNote{
		ID:          uuid.New(),
		ClientID:    n.ClientID,
		ClinicianID: n.ClinicianID,
		AINoteID:    &n.ID,
		NoteType:    n.NoteType,
		Status:      clinicalnote.StatusDraft,
		AIGenerated: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if n.AppointmentID != nil {
		cn.AppointmentID = n.AppointmentID
	}

	cn.Subjective = textPtr(sectionText("subjective", renderSubjective(&soap.Subjective), overrides))
	cn.Objective = textPtr(sectionText("objective", renderObjective(&soap.Objective), overrides))
	cn.Assessment = textPtr(sectionText("assessment", renderAssessment(&soap.Assessment), overrides))
	cn.Plan = textPtr(sectionText("plan", renderPlan(&soap.Plan), overrides))
	cn.InterventionsUsed = soap.Plan.InterventionsUsed

	if n.RiskAssessment != nil {
		ra := n.RiskAssessment
		cn.SuicidalIdeation = ra.SuicidalIdeation
		cn.HomicidalIdeation = ra.HomicidalIdeation
		cn.SelfHarm = ra.SelfHarm
		level := string(ra.RiskLevel)
		cn.RiskLevel = &level
		if details, err := json.Marshal(ra); err == nil {
			s := string(details)
			cn.RiskAssessmentDetails = &s
		}
	}

	return cn
}

func renderSubjective(s *SubjectiveSection) string {
	var b strings.Builder
	writeField(&b, "Chief Complaint", s.ChiefComplaint)
	writeField(&b, "History of Present Illness", s.HistoryOfPresentIllness)
	writeField(&b, "Review of Systems", s.ReviewOfSystems)
	writeList(&b, "Client Quotes", s.ClientQuotes)
	return b.String()
}

func renderObjective(o *ObjectiveSection) string {
	var b strings.Builder
	writeField(&b, "Appearance", o.Appearance)
	writeField(&b, "Behavior", o.Behavior)
	writeField(&b, "Mood", o.Mood)
	writeField(&b, "Affect", o.Affect)
	writeField(&b, "Speech", o.Speech)
	writeField(&b, "Thought Process", o.ThoughtProcess)
	writeList(&b, "Mental Status Observations", o.MentalStatusObservations)
	return b.String()
}

func renderAssessment(a *AssessmentSection) string {
	var b strings.Builder
	writeField(&b, "Clinical Impressions", a.ClinicalImpressions)
	writeList(&b, "Diagnoses Discussed", a.DiagnosesDiscussed)
	writeList(&b, "Risk Factors", a.RiskFactors)
	writeList(&b, "Protective Factors", a.ProtectiveFactors)
	writeField(&b, "Progress", a.Progress)
	return b.String()
}

func renderPlan(p *PlanSection) string {
	var b strings.Builder
	writeList(&b, "Interventions Used", p.InterventionsUsed)
	writeList(&b, "Treatment Goals Addressed", p.TreatmentGoalsAddressed)
	writeField(&b, "Homework", p.Homework)
	writeField(&b, "Next Session Focus", p.NextSessionFocus)
	writeList(&b, "Referrals", p.Referrals)
	writeField(&b, "Medication Discussion", p.MedicationDiscussion)
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	fmt.Fprintf(b, "%s: %s", label, value)
}

func writeList(b *strings.Builder, label string, values []string) {
	if len(values) == 0 {
		return
	}
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString(label)
	b.WriteString(":")
	for _, v := range values {
		b.WriteString("\n- ")
		b.WriteString(v)
	}
}

func sectionText(section, rendered string, overrides map[string]string) string {
	if v, ok := overrides[section]; ok {
		return v
	}
	return rendered
}

func textPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
