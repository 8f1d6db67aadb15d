package ainote

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scribe/scribe/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Note Repository ===========

type noteRepoPG struct{ pool *pgxpool.Pool }

func NewNoteRepoPG(pool *pgxpool.Pool) NoteRepository {
	return &noteRepoPG{pool: pool}
}

func (r *noteRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const noteCols = `id, session_id, client_id, clinician_id, appointment_id, status, note_type,
	soap_note, risk_assessment, treatment_plan_updates, clinician_edits,
	transcript_quality, generation_confidence, missing_information, generation_warnings,
	model_used, prompt_version, token_count, regeneration_count, previous_versions,
	review_comments, rejection_reason, failure_reason, exported_note_id,
	transcript_ciphertext, created_at, reviewed_at, approved_at, updated_at`

func scanNote(row pgx.Row) (*Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.SessionID, &n.ClientID, &n.ClinicianID, &n.AppointmentID, &n.Status, &n.NoteType,
		&n.SOAPNote, &n.RiskAssessment, &n.TreatmentPlanUpdates, &n.ClinicianEdits,
		&n.TranscriptQuality, &n.GenerationConfidence, &n.MissingInformation, &n.GenerationWarnings,
		&n.ModelUsed, &n.PromptVersion, &n.TokenCount, &n.RegenerationCount, &n.PreviousVersions,
		&n.ReviewComments, &n.RejectionReason, &n.FailureReason, &n.ExportedNoteID,
		&n.TranscriptCiphertext, &n.CreatedAt, &n.ReviewedAt, &n.ApprovedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("ai note not found")
	}
	return &n, err
}

func (r *noteRepoPG) Create(ctx context.Context, n *Note) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ai_generated_notes (id, session_id, client_id, clinician_id, appointment_id,
			status, note_type, clinician_edits, transcript_ciphertext)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		n.ID, n.SessionID, n.ClientID, n.ClinicianID, n.AppointmentID,
		n.Status, n.NoteType, n.ClinicianEdits, n.TranscriptCiphertext)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return conflict("an active ai note already exists for session %s", n.SessionID)
	}
	return err
}

func (r *noteRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Note, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx,
		`SELECT `+noteCols+` FROM ai_generated_notes WHERE id = $1`, id))
}

func (r *noteRepoPG) GetActiveBySession(ctx context.Context, sessionID uuid.UUID) (*Note, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx,
		`SELECT `+noteCols+` FROM ai_generated_notes
		 WHERE session_id = $1 AND status NOT IN ('REJECTED','FAILED')`, sessionID))
}

func (r *noteRepoPG) GetLatestBySession(ctx context.Context, sessionID uuid.UUID) (*Note, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx,
		`SELECT `+noteCols+` FROM ai_generated_notes
		 WHERE session_id = $1 ORDER BY created_at DESC LIMIT 1`, sessionID))
}

func (r *noteRepoPG) SaveGeneration(ctx context.Context, n *Note, from Status) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE ai_generated_notes SET status='GENERATED',
			soap_note=$3, risk_assessment=$4, treatment_plan_updates=$5,
			transcript_quality=$6, generation_confidence=$7,
			missing_information=$8, generation_warnings=$9,
			model_used=$10, prompt_version=$11, token_count=$12,
			updated_at=NOW()
		WHERE id=$1 AND status=$2`,
		n.ID, from,
		n.SOAPNote, n.RiskAssessment, n.TreatmentPlanUpdates,
		n.TranscriptQuality, n.GenerationConfidence,
		n.MissingInformation, n.GenerationWarnings,
		n.ModelUsed, n.PromptVersion, n.TokenCount)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *noteRepoPG) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE ai_generated_notes SET status='FAILED', failure_reason=$2, updated_at=NOW()
		WHERE id=$1 AND status NOT IN ('REJECTED','FAILED')`, id, reason)
	return err
}

func (r *noteRepoPG) SaveReview(ctx context.Context, n *Note, from Status) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE ai_generated_notes SET status=$3,
			clinician_edits=$4,
			review_comments=COALESCE($5, review_comments),
			reviewed_at = CASE WHEN $3::text = 'REVIEWED' THEN COALESCE(reviewed_at, NOW()) ELSE reviewed_at END,
			approved_at = CASE WHEN $3::text = 'APPROVED' THEN COALESCE(approved_at, NOW()) ELSE approved_at END,
			updated_at=NOW()
		WHERE id=$1 AND status=$2`,
		n.ID, from, n.Status, n.ClinicianEdits, n.ReviewComments)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *noteRepoPG) SaveRegenerationStart(ctx context.Context, n *Note, from Status) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE ai_generated_notes SET status='REGENERATING',
			previous_versions=$3, regeneration_count=$4, updated_at=NOW()
		WHERE id=$1 AND status=$2`,
		n.ID, from, n.PreviousVersions, n.RegenerationCount)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *noteRepoPG) SaveRejection(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE ai_generated_notes SET status='REJECTED', rejection_reason=$2, updated_at=NOW()
		WHERE id=$1 AND status NOT IN ('REJECTED','FAILED')`, id, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *noteRepoPG) SaveExport(ctx context.Context, id uuid.UUID, exportedNoteID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE ai_generated_notes SET exported_note_id=$2, updated_at=NOW()
		WHERE id=$1 AND status='APPROVED' AND exported_note_id IS NULL`, id, exportedNoteID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// =========== Audit Repository ===========

type auditRepoPG struct{ pool *pgxpool.Pool }

func NewAuditRepoPG(pool *pgxpool.Pool) AuditRepository {
	return &auditRepoPG{pool: pool}
}

func (r *auditRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const auditCols = `id, ai_note_id, session_id, event_type, event_data, user_id, created_at`

func scanAudit(row pgx.Row) (*AuditEntry, error) {
	var e AuditEntry
	err := row.Scan(&e.ID, &e.AINoteID, &e.SessionID, &e.EventType, &e.EventData, &e.UserID, &e.CreatedAt)
	return &e, err
}

func (r *auditRepoPG) Create(ctx context.Context, e *AuditEntry) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ai_note_audit_log (id, ai_note_id, session_id, event_type, event_data, user_id)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.AINoteID, e.SessionID, e.EventType, e.EventData, e.UserID)
	return err
}

func (r *auditRepoPG) ListByNote(ctx context.Context, aiNoteID uuid.UUID, limit, offset int) ([]*AuditEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM ai_note_audit_log WHERE ai_note_id = $1`, aiNoteID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+auditCols+` FROM ai_note_audit_log
		 WHERE ai_note_id = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`, aiNoteID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*AuditEntry
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
