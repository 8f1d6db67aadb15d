package ainote

import (
	"context"

	"github.com/google/uuid"
)

// NoteRepository persists AI-generated notes. Implementations must enforce
// the one-active-note-per-session invariant at the storage layer (Create
// returns ErrConflict when an active note exists) and make every status move
// conditional on the expected current status, reporting whether the row was
// won.
type NoteRepository interface {
	Create(ctx context.Context, n *Note) error
	GetByID(ctx context.Context, id uuid.UUID) (*Note, error)
	// GetActiveBySession returns the session's current active note, or
	// ErrNotFound when none exists.
	GetActiveBySession(ctx context.Context, sessionID uuid.UUID) (*Note, error)
	// GetLatestBySession returns the most recent note for the session in
	// any status, including terminal ones.
	GetLatestBySession(ctx context.Context, sessionID uuid.UUID) (*Note, error)
	// SaveGeneration writes the generation payload onto a note and flips
	// it from GENERATING or REGENERATING to GENERATED in one statement.
	SaveGeneration(ctx context.Context, n *Note, from Status) (bool, error)
	// MarkFailed flips the note to FAILED from any non-terminal status and
	// records the reason.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	// SaveReview persists review outcome: new status, edits, comments and
	// the matching timestamp, conditional on the expected current status.
	SaveReview(ctx context.Context, n *Note, from Status) (bool, error)
	// SaveRegenerationStart snapshots the current payload into previous
	// versions and flips the note to REGENERATING.
	SaveRegenerationStart(ctx context.Context, n *Note, from Status) (bool, error)
	// SaveRejection flips the note to REJECTED with a reason, from any
	// active status.
	SaveRejection(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	// SaveExport records the exported clinical note id, conditional on the
	// note being APPROVED and not yet exported.
	SaveExport(ctx context.Context, id uuid.UUID, exportedNoteID uuid.UUID) (bool, error)
}

// AuditRepository is append-only: entries are never updated or deleted.
type AuditRepository interface {
	Create(ctx context.Context, e *AuditEntry) error
	ListByNote(ctx context.Context, aiNoteID uuid.UUID, limit, offset int) ([]*AuditEntry, int, error)
}
