package clinicalnote

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scribe/scribe/internal/platform/db"
)

var (
	// ErrNotFound is returned when no clinical note matches the lookup.
	ErrNotFound = errors.New("clinical note not found")
	// ErrDuplicateAINote is returned when a note for the same AI note
	// already exists (unique index on ai_note_id).
	ErrDuplicateAINote = errors.New("clinical note already exists for ai note")
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const noteCols = `id, client_id, clinician_id, appointment_id, ai_note_id, note_type, status,
	subjective, objective, assessment, plan,
	suicidal_ideation, homicidal_ideation, self_harm, risk_level, risk_assessment_details,
	interventions_used, ai_generated, created_at, updated_at`

func scanNote(row pgx.Row) (*ClinicalNote, error) {
	var n ClinicalNote
	err := row.Scan(&n.ID, &n.ClientID, &n.ClinicianID, &n.AppointmentID, &n.AINoteID, &n.NoteType, &n.Status,
		&n.Subjective, &n.Objective, &n.Assessment, &n.Plan,
		&n.SuicidalIdeation, &n.HomicidalIdeation, &n.SelfHarm, &n.RiskLevel, &n.RiskAssessmentDetails,
		&n.InterventionsUsed, &n.AIGenerated, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &n, err
}

func (r *repoPG) Create(ctx context.Context, n *ClinicalNote) error {
	n.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinical_notes (id, client_id, clinician_id, appointment_id, ai_note_id, note_type, status,
			subjective, objective, assessment, plan,
			suicidal_ideation, homicidal_ideation, self_harm, risk_level, risk_assessment_details,
			interventions_used, ai_generated)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		n.ID, n.ClientID, n.ClinicianID, n.AppointmentID, n.AINoteID, n.NoteType, n.Status,
		n.Subjective, n.Objective, n.Assessment, n.Plan,
		n.SuicidalIdeation, n.HomicidalIdeation, n.SelfHarm, n.RiskLevel, n.RiskAssessmentDetails,
		n.InterventionsUsed, n.AIGenerated)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicateAINote, pgErr.ConstraintName)
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*ClinicalNote, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx, `SELECT `+noteCols+` FROM clinical_notes WHERE id = $1`, id))
}

func (r *repoPG) GetByAINoteID(ctx context.Context, aiNoteID uuid.UUID) (*ClinicalNote, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx, `SELECT `+noteCols+` FROM clinical_notes WHERE ai_note_id = $1`, aiNoteID))
}
