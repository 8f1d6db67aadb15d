package ainote

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an AI-generated note.
type Status string

const (
	StatusGenerating   Status = "GENERATING"
	StatusGenerated    Status = "GENERATED"
	StatusReviewed     Status = "REVIEWED"
	StatusApproved     Status = "APPROVED"
	StatusRejected     Status = "REJECTED"
	StatusRegenerating Status = "REGENERATING"
	StatusFailed       Status = "FAILED"
)

// activeStatuses are the states counted toward the one-active-note-per-session
// invariant. REJECTED and FAILED notes are retained for audit but do not
// block a fresh generation.
var activeStatuses = map[Status]bool{
	StatusGenerating:   true,
	StatusGenerated:    true,
	StatusReviewed:     true,
	StatusApproved:     true,
	StatusRegenerating: true,
}

// IsActive reports whether a status counts toward the uniqueness invariant.
func (s Status) IsActive() bool { return activeStatuses[s] }

// RiskLevel is the overall severity of a safety screen.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

var validRiskLevels = map[RiskLevel]bool{
	RiskLow: true, RiskModerate: true, RiskHigh: true, RiskCritical: true,
}

// TranscriptQuality is the generation step's confidence signal about how
// usable the transcript was. Not user-editable.
type TranscriptQuality string

const (
	QualityPoor      TranscriptQuality = "POOR"
	QualityFair      TranscriptQuality = "FAIR"
	QualityGood      TranscriptQuality = "GOOD"
	QualityExcellent TranscriptQuality = "EXCELLENT"
)

// SOAPSchemaVersion tags persisted SOAP payloads so shape can be validated
// on read.
const SOAPSchemaVersion = "1.0"

// SubjectiveSection captures the client's own report of the session.
type SubjectiveSection struct {
	ChiefComplaint          string   `json:"chiefComplaint"`
	HistoryOfPresentIllness string   `json:"historyOfPresentIllness,omitempty"`
	ReviewOfSystems         string   `json:"reviewOfSystems,omitempty"`
	ClientQuotes            []string `json:"clientQuotes,omitempty"`
}

// ObjectiveSection captures clinician-observable findings.
type ObjectiveSection struct {
	Appearance               string   `json:"appearance"`
	Behavior                 string   `json:"behavior,omitempty"`
	Mood                     string   `json:"mood,omitempty"`
	Affect                   string   `json:"affect,omitempty"`
	Speech                   string   `json:"speech,omitempty"`
	ThoughtProcess           string   `json:"thoughtProcess,omitempty"`
	MentalStatusObservations []string `json:"mentalStatusObservations,omitempty"`
}

// AssessmentSection is the clinical interpretation of the session.
type AssessmentSection struct {
	ClinicalImpressions string   `json:"clinicalImpressions"`
	DiagnosesDiscussed  []string `json:"diagnosesDiscussed,omitempty"`
	RiskFactors         []string `json:"riskFactors,omitempty"`
	ProtectiveFactors   []string `json:"protectiveFactors,omitempty"`
	Progress            string   `json:"progress,omitempty"`
}

// PlanSection records interventions and forward-looking treatment steps.
type PlanSection struct {
	InterventionsUsed       []string `json:"interventionsUsed,omitempty"`
	TreatmentGoalsAddressed []string `json:"treatmentGoalsAddressed,omitempty"`
	Homework                string   `json:"homework,omitempty"`
	NextSessionFocus        string   `json:"nextSessionFocus"`
	Referrals               []string `json:"referrals,omitempty"`
	MedicationDiscussion    string   `json:"medicationDiscussion,omitempty"`
}

// SOAPNote is the structured note payload produced by generation.
type SOAPNote struct {
	SchemaVersion string            `json:"schemaVersion"`
	Subjective    SubjectiveSection `json:"subjective"`
	Objective     ObjectiveSection  `json:"objective"`
	Assessment    AssessmentSection `json:"assessment"`
	Plan          PlanSection       `json:"plan"`
}

// SectionCount is the number of top-level SOAP sections.
const SectionCount = 4

// PopulatedSections counts how many of the four sections carry their
// anchor field. Used by the confidence heuristic.
func (n *SOAPNote) PopulatedSections() int {
	count := 0
	if n.Subjective.ChiefComplaint != "" {
		count++
	}
	if n.Objective.Appearance != "" {
		count++
	}
	if n.Assessment.ClinicalImpressions != "" {
		count++
	}
	if n.Plan.NextSessionFocus != "" {
		count++
	}
	return count
}

// RiskAssessment is the structured safety screen embedded in every note and
// produced standalone by the risk endpoint.
type RiskAssessment struct {
	SuicidalIdeation  bool      `json:"suicidalIdeation"`
	SuicidalPlan      bool      `json:"suicidalPlan"`
	HomicidalIdeation bool      `json:"homicidalIdeation"`
	SelfHarm          bool      `json:"selfHarm"`
	RiskLevel         RiskLevel `json:"riskLevel"`
	RiskNotes         string    `json:"riskNotes,omitempty"`
}

// Flagged reports whether the screen warrants a RISK_FLAG_RAISED audit entry.
func (r *RiskAssessment) Flagged() bool {
	return r.RiskLevel == RiskHigh || r.RiskLevel == RiskCritical
}

// TreatmentPlanUpdates holds optional treatment-plan suggestions, present
// only when the caller requested them at generation time.
type TreatmentPlanUpdates struct {
	GoalsProgress          []string `json:"goalsProgress,omitempty"`
	SuggestedModifications []string `json:"suggestedModifications,omitempty"`
	NewGoalsIdentified     []string `json:"newGoalsIdentified,omitempty"`
}

// FieldEdit is a single clinician amendment to a generated field. FieldPath
// is dot-separated ("plan.nextSessionFocus").
type FieldEdit struct {
	FieldPath string    `json:"fieldPath"`
	OldValue  string    `json:"oldValue"`
	NewValue  string    `json:"newValue"`
	EditedBy  string    `json:"editedBy"`
	EditedAt  time.Time `json:"editedAt"`
}

// ClinicianEdits is the cumulative, append-only amendment trail of a note.
// TotalEdits always equals len(Changes).
type ClinicianEdits struct {
	Changes      []FieldEdit `json:"changes"`
	TotalEdits   int         `json:"totalEdits"`
	LastEditedAt *time.Time  `json:"lastEditedAt,omitempty"`
}

// Note is the mutable work-in-progress artifact of the AI documentation
// pipeline. Rows are never deleted; terminal states are retained for audit.
type Note struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	SessionID     uuid.UUID  `db:"session_id" json:"session_id"`
	ClientID      uuid.UUID  `db:"client_id" json:"client_id"`
	ClinicianID   uuid.UUID  `db:"clinician_id" json:"clinician_id"`
	AppointmentID *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`

	Status   Status `db:"status" json:"status"`
	NoteType string `db:"note_type" json:"note_type"`

	SOAPNote             *SOAPNote             `db:"soap_note" json:"soap_note,omitempty"`
	RiskAssessment       *RiskAssessment       `db:"risk_assessment" json:"risk_assessment,omitempty"`
	TreatmentPlanUpdates *TreatmentPlanUpdates `db:"treatment_plan_updates" json:"treatment_plan_updates,omitempty"`
	ClinicianEdits       ClinicianEdits        `db:"clinician_edits" json:"clinician_edits"`

	TranscriptQuality    TranscriptQuality `db:"transcript_quality" json:"transcript_quality,omitempty"`
	GenerationConfidence float64           `db:"generation_confidence" json:"generation_confidence"`
	MissingInformation   []string          `db:"missing_information" json:"missing_information,omitempty"`
	GenerationWarnings   []string          `db:"generation_warnings" json:"generation_warnings,omitempty"`

	ModelUsed     string `db:"model_used" json:"model_used,omitempty"`
	PromptVersion string `db:"prompt_version" json:"prompt_version,omitempty"`
	TokenCount    int    `db:"token_count" json:"token_count"`

	RegenerationCount int         `db:"regeneration_count" json:"regeneration_count"`
	PreviousVersions  []*SOAPNote `db:"previous_versions" json:"previous_versions,omitempty"`

	ReviewComments  *string `db:"review_comments" json:"review_comments,omitempty"`
	RejectionReason *string `db:"rejection_reason" json:"rejection_reason,omitempty"`
	FailureReason   *string `db:"failure_reason" json:"failure_reason,omitempty"`

	ExportedNoteID *uuid.UUID `db:"exported_note_id" json:"exported_note_id,omitempty"`

	// TranscriptCiphertext holds the encrypted source transcript so
	// regeneration can re-prompt without re-upload. Never serialized to
	// API responses.
	TranscriptCiphertext string `db:"transcript_ciphertext" json:"-"`

	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ReviewedAt *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ApprovedAt *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// SessionMetadata is the structured context handed to the prompt builder.
type SessionMetadata struct {
	DurationMinutes int      `json:"durationMinutes,omitempty"`
	Modality        string   `json:"modality,omitempty"`
	Participants    []string `json:"participants,omitempty"`
}

// EventType classifies an audit log entry.
type EventType string

const (
	EventGenerated       EventType = "GENERATED"
	EventReviewCompleted EventType = "REVIEW_COMPLETED"
	EventApproved        EventType = "APPROVED"
	EventRejected        EventType = "REJECTED"
	EventRegenerated     EventType = "REGENERATED"
	EventExportedToNote  EventType = "EXPORTED_TO_NOTE"
	EventRiskAssessed    EventType = "RISK_ASSESSED"
	EventRiskFlagRaised  EventType = "RISK_FLAG_RAISED"
	EventFailed          EventType = "FAILED"
)

// AuditEntry is an immutable lifecycle record. AINoteID is nil for
// standalone risk screens that run without a note.
type AuditEntry struct {
	ID        uuid.UUID              `db:"id" json:"id"`
	AINoteID  *uuid.UUID             `db:"ai_note_id" json:"ai_note_id,omitempty"`
	SessionID uuid.UUID              `db:"session_id" json:"session_id"`
	EventType EventType              `db:"event_type" json:"event_type"`
	EventData map[string]interface{} `db:"event_data" json:"event_data,omitempty"`
	UserID    string                 `db:"user_id" json:"user_id"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}
