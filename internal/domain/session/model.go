package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is a read-only view of a therapy session owned by the scheduling
// system. The note pipeline uses it for foreign keys and for the
// treating-clinician authorization check.
type Session struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	ClientID        uuid.UUID  `db:"client_id" json:"client_id"`
	ClinicianID     uuid.UUID  `db:"clinician_id" json:"clinician_id"`
	AppointmentID   *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	ScheduledAt     time.Time  `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes int        `db:"duration_minutes" json:"duration_minutes"`
	Modality        string     `db:"modality" json:"modality"`
	Status          string     `db:"status" json:"status"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}
