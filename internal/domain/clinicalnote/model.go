package clinicalnote

import (
	"time"

	"github.com/google/uuid"
)

// ClinicalNote maps to the clinical_notes table: the permanent, legally
// binding documentation record. Rows are created here by the AI-note export
// path; sign/cosign/amend workflows belong to the wider records system and
// are not modeled past the columns they occupy.
type ClinicalNote struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	ClientID      uuid.UUID  `db:"client_id" json:"client_id"`
	ClinicianID   uuid.UUID  `db:"clinician_id" json:"clinician_id"`
	AppointmentID *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	AINoteID      *uuid.UUID `db:"ai_note_id" json:"ai_note_id,omitempty"`
	NoteType      string     `db:"note_type" json:"note_type"`
	Status        string     `db:"status" json:"status"`

	Subjective *string `db:"subjective" json:"subjective,omitempty"`
	Objective  *string `db:"objective" json:"objective,omitempty"`
	Assessment *string `db:"assessment" json:"assessment,omitempty"`
	Plan       *string `db:"plan" json:"plan,omitempty"`

	SuicidalIdeation      bool    `db:"suicidal_ideation" json:"suicidal_ideation"`
	HomicidalIdeation     bool    `db:"homicidal_ideation" json:"homicidal_ideation"`
	SelfHarm              bool    `db:"self_harm" json:"self_harm"`
	RiskLevel             *string `db:"risk_level" json:"risk_level,omitempty"`
	RiskAssessmentDetails *string `db:"risk_assessment_details" json:"risk_assessment_details,omitempty"`

	InterventionsUsed []string `db:"interventions_used" json:"interventions_used,omitempty"`

	AIGenerated bool      `db:"ai_generated" json:"ai_generated"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

const (
	StatusDraft = "DRAFT"
)
