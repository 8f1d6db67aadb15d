package ainote

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scribe/scribe/internal/domain/clinicalnote"
	"github.com/scribe/scribe/internal/domain/session"
	"github.com/scribe/scribe/internal/platform/auth"
	"github.com/scribe/scribe/internal/platform/db"
	"github.com/scribe/scribe/internal/platform/hipaa"
)

// DefaultNoteType is used when a generation request does not name one.
const DefaultNoteType = "SOAP"

// Service is the note lifecycle manager. All status moves of an AI note go
// through it; every committed transition also writes an audit entry inside
// the same transaction. Audit writes are best effort: a failed audit insert
// is logged and never rolls back the transition it describes.
type Service struct {
	notes     NoteRepository
	audit     AuditRepository
	sessions  session.Repository
	clinical  clinicalnote.Repository
	generator *Generator
	tx        db.TxRunner
	encryptor hipaa.FieldEncryptor

	genTimeout time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(
	notes NoteRepository,
	audit AuditRepository,
	sessions session.Repository,
	clinical clinicalnote.Repository,
	generator *Generator,
	tx db.TxRunner,
	encryptor hipaa.FieldEncryptor,
	genTimeout time.Duration,
	logger zerolog.Logger,
) *Service {
	if genTimeout <= 0 {
		genTimeout = 90 * time.Second
	}
	return &Service{
		notes:      notes,
		audit:      audit,
		sessions:   sessions,
		clinical:   clinical,
		generator:  generator,
		tx:         tx,
		encryptor:  encryptor,
		genTimeout: genTimeout,
		logger:     logger.With().Str("component", "ainote_service").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// GenerateInput is the request contract for note generation.
type GenerateInput struct {
	Transcript           string           `json:"transcript"`
	TranscriptID         *uuid.UUID       `json:"transcript_id,omitempty"`
	NoteType             string           `json:"note_type,omitempty"`
	IncludeTreatmentPlan bool             `json:"include_treatment_plan,omitempty"`
	SessionMetadata      *SessionMetadata `json:"session_metadata,omitempty"`
}

// ReviewInput is the request contract for the review transition.
type ReviewInput struct {
	Approved bool        `json:"approved"`
	Edits    []FieldEdit `json:"edits,omitempty"`
	Comments *string     `json:"review_comments,omitempty"`
}

// RegenerateInput is the request contract for regeneration.
type RegenerateInput struct {
	Feedback         string   `json:"feedback"`
	PreserveSections []string `json:"preserve_sections,omitempty"`
	FocusAreas       []string `json:"focus_areas,omitempty"`
}

// authorize loads the session and enforces the treating-clinician gate.
// Admins and supervisors pass regardless of the session's clinician.
func (s *Service) authorize(ctx context.Context, sessionID uuid.UUID) (*session.Session, error) {
	userID := auth.UserIDFromContext(ctx)
	if userID == "" {
		return nil, unauthenticated("authentication required")
	}

	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, notFound("session %s not found", sessionID)
		}
		return nil, err
	}

	if sess.ClinicianID.String() != userID &&
		!auth.HasAnyRole(auth.RolesFromContext(ctx), "supervisor") {
		return nil, forbidden("only the treating clinician or a supervisor may act on this session's notes")
	}

	return sess, nil
}

// Generate runs the full pipeline for a session: create the GENERATING row
// (the storage layer rejects a second active note), call the provider, and
// persist the result or the failure. Short transcripts fail before any row
// or provider call exists.
func (s *Service) Generate(ctx context.Context, sessionID uuid.UUID, in GenerateInput) (*Note, error) {
	sess, err := s.authorize(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.Transcript) == "" {
		return nil, invalidInput("transcript is required")
	}
	if len(in.Transcript) < s.generator.minTranscriptChars {
		return nil, transcriptTooShort(len(in.Transcript), s.generator.minTranscriptChars)
	}

	noteType := in.NoteType
	if noteType == "" {
		noteType = DefaultNoteType
	}

	meta := SessionMetadata{
		DurationMinutes: sess.DurationMinutes,
		Modality:        sess.Modality,
	}
	if in.SessionMetadata != nil {
		meta = *in.SessionMetadata
	}

	ciphertext, err := s.encryptor.Encrypt(in.Transcript)
	if err != nil {
		return nil, providerFailure("failed to encrypt transcript", err)
	}

	now := s.now()
	note := &Note{
		ID:                   uuid.New(),
		SessionID:            sess.ID,
		ClientID:             sess.ClientID,
		ClinicianID:          sess.ClinicianID,
		AppointmentID:        sess.AppointmentID,
		Status:               StatusGenerating,
		NoteType:             noteType,
		PromptVersion:        PromptVersion,
		TranscriptCiphertext: ciphertext,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}

	result, err := s.runGeneration(ctx, in.Transcript, meta, noteType, in.IncludeTreatmentPlan, nil)
	if err != nil {
		s.failNote(ctx, note, err)
		return nil, err
	}

	applyGeneration(note, result, s.now())

	txErr := s.tx.WithTx(ctx, func(ctx context.Context) error {
		won, err := s.notes.SaveGeneration(ctx, note, StatusGenerating)
		if err != nil {
			return err
		}
		if !won {
			return conflict("note %s left GENERATING before the result could be saved", note.ID)
		}
		s.recordAudit(ctx, note, EventGenerated, map[string]interface{}{
			"model":          note.ModelUsed,
			"prompt_version": note.PromptVersion,
			"token_count":    note.TokenCount,
			"confidence":     note.GenerationConfidence,
		})
		s.recordRiskFlag(ctx, note)
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	return note, nil
}

// runGeneration bounds the provider call so a hung provider fails the note
// instead of holding the request open.
func (s *Service) runGeneration(ctx context.Context, transcript string, meta SessionMetadata, noteType string, includeTreatmentPlan bool, regen *regenerationContext) (*GenerationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.genTimeout)
	defer cancel()
	return s.generator.GenerateNote(ctx, transcript, meta, noteType, includeTreatmentPlan, regen)
}

// failNote marks the note FAILED and records the failure. Errors here are
// logged only: the caller's provider error is the one worth returning.
func (s *Service) failNote(ctx context.Context, note *Note, cause error) {
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.notes.MarkFailed(ctx, note.ID, cause.Error()); err != nil {
			return err
		}
		s.recordAudit(ctx, note, EventFailed, map[string]interface{}{
			"reason": cause.Error(),
		})
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("ai_note_id", note.ID.String()).Msg("failed to mark note FAILED")
	}
}

func applyGeneration(note *Note, result *GenerationResult, now time.Time) {
	note.Status = StatusGenerated
	note.SOAPNote = result.SOAPNote
	note.RiskAssessment = result.RiskAssessment
	note.TreatmentPlanUpdates = result.TreatmentPlanUpdates
	note.TranscriptQuality = result.TranscriptQuality
	note.GenerationConfidence = result.Confidence
	note.MissingInformation = result.MissingInformation
	note.GenerationWarnings = result.Warnings
	note.ModelUsed = result.ModelUsed
	note.TokenCount += result.TokenCount
	note.UpdatedAt = now
}

// GetBySession returns the session's active note, falling back to the most
// recent terminal note when every note for the session was rejected or
// failed.
func (s *Service) GetBySession(ctx context.Context, sessionID uuid.UUID) (*Note, error) {
	if _, err := s.authorize(ctx, sessionID); err != nil {
		return nil, err
	}
	note, err := s.notes.GetActiveBySession(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return s.notes.GetLatestBySession(ctx, sessionID)
	}
	return note, err
}

// GetByID returns a note after checking the caller against its session.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Note, error) {
	note, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, note.SessionID); err != nil {
		return nil, err
	}
	return note, nil
}

// Review applies edits and moves the note to REVIEWED or APPROVED. Only
// review mutates clinicianEdits; the merge is append-only.
func (s *Service) Review(ctx context.Context, id uuid.UUID, in ReviewInput) (*Note, error) {
	note, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := note.Status
	if from != StatusGenerated && from != StatusReviewed {
		return nil, conflict("note %s is %s; only GENERATED or REVIEWED notes can be reviewed", id, from)
	}
	for _, e := range in.Edits {
		if strings.TrimSpace(e.FieldPath) == "" {
			return nil, invalidInput("edit field path is required")
		}
	}

	now := s.now()
	merged := MergeEdits(&note.ClinicianEdits, in.Edits, auth.UserIDFromContext(ctx), now)
	note.ClinicianEdits = *merged
	note.ReviewComments = in.Comments
	note.UpdatedAt = now
	if in.Approved {
		note.Status = StatusApproved
		if note.ApprovedAt == nil {
			note.ApprovedAt = &now
		}
	} else {
		note.Status = StatusReviewed
		if note.ReviewedAt == nil {
			note.ReviewedAt = &now
		}
	}

	event := EventReviewCompleted
	if in.Approved {
		event = EventApproved
	}

	txErr := s.tx.WithTx(ctx, func(ctx context.Context) error {
		won, err := s.notes.SaveReview(ctx, note, from)
		if err != nil {
			return err
		}
		if !won {
			return conflict("note %s was modified concurrently; re-fetch and retry", id)
		}
		data := map[string]interface{}{
			"approved":    in.Approved,
			"edit_count":  len(in.Edits),
			"total_edits": note.ClinicianEdits.TotalEdits,
		}
		if in.Comments != nil {
			data["has_comments"] = true
		}
		s.recordAudit(ctx, note, event, data)
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	return note, nil
}

// Regenerate reuses the same note row: the current payload is snapshotted
// into previousVersions, the status flips to REGENERATING, and the provider
// runs again with the clinician's feedback.
func (s *Service) Regenerate(ctx context.Context, id uuid.UUID, in RegenerateInput) (*Note, error) {
	note, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.Feedback) == "" {
		return nil, invalidInput("feedback is required for regeneration")
	}
	from := note.Status
	if from != StatusGenerated && from != StatusReviewed {
		return nil, conflict("note %s is %s; only GENERATED or REVIEWED notes can be regenerated", id, from)
	}

	transcript, err := s.encryptor.Decrypt(note.TranscriptCiphertext)
	if err != nil {
		return nil, providerFailure("failed to decrypt stored transcript", err)
	}

	previous := note.SOAPNote
	note.PreviousVersions = append(note.PreviousVersions, previous)
	note.RegenerationCount = len(note.PreviousVersions)
	note.Status = StatusRegenerating
	note.UpdatedAt = s.now()

	won, err := s.notes.SaveRegenerationStart(ctx, note, from)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, conflict("note %s was modified concurrently; re-fetch and retry", id)
	}

	sess, err := s.sessions.GetByID(ctx, note.SessionID)
	if err != nil {
		return nil, err
	}
	meta := SessionMetadata{DurationMinutes: sess.DurationMinutes, Modality: sess.Modality}

	result, err := s.runGeneration(ctx, transcript, meta, note.NoteType, note.TreatmentPlanUpdates != nil, &regenerationContext{
		Feedback:         in.Feedback,
		PreserveSections: in.PreserveSections,
		FocusAreas:       in.FocusAreas,
		PreviousNote:     previous,
	})
	if err != nil {
		s.failNote(ctx, note, err)
		return nil, err
	}

	applyGeneration(note, result, s.now())

	txErr := s.tx.WithTx(ctx, func(ctx context.Context) error {
		won, err := s.notes.SaveGeneration(ctx, note, StatusRegenerating)
		if err != nil {
			return err
		}
		if !won {
			return conflict("note %s left REGENERATING before the result could be saved", id)
		}
		s.recordAudit(ctx, note, EventRegenerated, map[string]interface{}{
			"regeneration_count": note.RegenerationCount,
			"model":              note.ModelUsed,
			"token_count":        note.TokenCount,
		})
		s.recordRiskFlag(ctx, note)
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	return note, nil
}

// Reject moves an active note to the terminal REJECTED status. The row is
// kept for audit; the session may generate a fresh note afterwards.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string) (*Note, error) {
	note, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, invalidInput("rejection reason is required")
	}

	txErr := s.tx.WithTx(ctx, func(ctx context.Context) error {
		won, err := s.notes.SaveRejection(ctx, note.ID, reason)
		if err != nil {
			return err
		}
		if !won {
			return conflict("note %s is already in a terminal status", id)
		}
		s.recordAudit(ctx, note, EventRejected, map[string]interface{}{
			"reason": reason,
		})
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	note.Status = StatusRejected
	note.RejectionReason = &reason
	note.UpdatedAt = s.now()
	return note, nil
}

// Export converts an APPROVED note into a permanent clinical note exactly
// once. The clinical note insert and the exported_note_id stamp share one
// transaction, and both carry uniqueness guards, so a concurrent duplicate
// loses at the storage layer.
func (s *Service) Export(ctx context.Context, id uuid.UUID, includeEdits bool) (*clinicalnote.ClinicalNote, error) {
	note, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if note.Status != StatusApproved {
		return nil, conflict("note %s is %s; only APPROVED notes can be exported", id, note.Status)
	}
	if note.ExportedNoteID != nil {
		return nil, conflict("note %s has already been exported to clinical note %s", id, note.ExportedNoteID)
	}
	if note.SOAPNote == nil {
		return nil, conflict("note %s has no generated content to export", id)
	}

	soap := note.SOAPNote
	var overrides map[string]string
	if includeEdits {
		soap = ApplySOAPEdits(note.SOAPNote, &note.ClinicianEdits, s.logger)
		overrides = sectionOverrides(&note.ClinicianEdits)
	}

	cn := toClinicalNote(note, soap, overrides, s.now())

	txErr := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.clinical.Create(ctx, cn); err != nil {
			if errors.Is(err, clinicalnote.ErrDuplicateAINote) {
				return conflict("note %s has already been exported", id)
			}
			return err
		}
		won, err := s.notes.SaveExport(ctx, note.ID, cn.ID)
		if err != nil {
			return err
		}
		if !won {
			return conflict("note %s has already been exported", id)
		}
		s.recordAudit(ctx, note, EventExportedToNote, map[string]interface{}{
			"clinical_note_id": cn.ID.String(),
			"include_edits":    includeEdits,
		})
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	note.ExportedNoteID = &cn.ID
	return cn, nil
}

// AuditTrail lists a note's audit entries, oldest first.
func (s *Service) AuditTrail(ctx context.Context, id uuid.UUID, limit, offset int) ([]*AuditEntry, int, error) {
	note, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if _, err := s.authorize(ctx, note.SessionID); err != nil {
		return nil, 0, err
	}
	return s.audit.ListByNote(ctx, id, limit, offset)
}

// AssessRisk runs a standalone safety screen for a session without creating
// a note. The screen is still audited; a HIGH or CRITICAL result raises an
// additional flag entry.
func (s *Service) AssessRisk(ctx context.Context, sessionID uuid.UUID, transcript string) (*RiskAssessment, error) {
	sess, err := s.authorize(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, invalidInput("transcript is required")
	}

	ctxGen, cancel := context.WithTimeout(ctx, s.genTimeout)
	ra, tokens, err := s.generator.AssessRisk(ctxGen, transcript)
	cancel()
	if err != nil {
		return nil, err
	}

	entry := &AuditEntry{
		ID:        uuid.New(),
		SessionID: sess.ID,
		EventType: EventRiskAssessed,
		EventData: map[string]interface{}{
			"risk_level":  string(ra.RiskLevel),
			"token_count": tokens,
		},
		UserID:    auth.UserIDFromContext(ctx),
		CreatedAt: s.now(),
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("session_id", sess.ID.String()).Msg("failed to write risk audit entry")
	}
	if ra.Flagged() {
		flag := &AuditEntry{
			ID:        uuid.New(),
			SessionID: sess.ID,
			EventType: EventRiskFlagRaised,
			EventData: map[string]interface{}{"risk_level": string(ra.RiskLevel)},
			UserID:    auth.UserIDFromContext(ctx),
			CreatedAt: s.now(),
		}
		if err := s.audit.Create(ctx, flag); err != nil {
			s.logger.Error().Err(err).Str("session_id", sess.ID.String()).Msg("failed to write risk flag entry")
		}
	}

	return ra, nil
}

// recordAudit writes a lifecycle entry for a note. Failures are logged and
// swallowed: losing an audit row must not roll back a committed transition.
func (s *Service) recordAudit(ctx context.Context, note *Note, event EventType, data map[string]interface{}) {
	entry := &AuditEntry{
		ID:        uuid.New(),
		AINoteID:  &note.ID,
		SessionID: note.SessionID,
		EventType: event,
		EventData: data,
		UserID:    auth.UserIDFromContext(ctx),
		CreatedAt: s.now(),
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Error().Err(err).
			Str("ai_note_id", note.ID.String()).
			Str("event_type", string(event)).
			Msg("failed to write audit entry")
	}
}

func (s *Service) recordRiskFlag(ctx context.Context, note *Note) {
	if note.RiskAssessment == nil || !note.RiskAssessment.Flagged() {
		return
	}
	s.recordAudit(ctx, note, EventRiskFlagRaised, map[string]interface{}{
		"risk_level": string(note.RiskAssessment.RiskLevel),
	})
}
