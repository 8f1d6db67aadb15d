package ainote

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// MergeEdits appends new field edits to the existing history. History is
// append-only: earlier entries are never rewritten, and the total always
// equals the number of recorded changes.
func MergeEdits(existing *ClinicianEdits, incoming []FieldEdit, editedBy string, now time.Time) *ClinicianEdits {
	merged := &ClinicianEdits{}
	if existing != nil {
		merged.Changes = append(merged.Changes, existing.Changes...)
	}

	for _, e := range incoming {
		e.EditedBy = editedBy
		e.EditedAt = now
		merged.Changes = append(merged.Changes, e)
	}

	merged.TotalEdits = len(merged.Changes)
	if len(incoming) > 0 {
		merged.LastEditedAt = &now
	} else if existing != nil {
		merged.LastEditedAt = existing.LastEditedAt
	}

	return merged
}

// ApplySOAPEdits writes a set of recorded edits onto a copy of the note.
// Field paths are dot-separated, e.g. "subjective.chiefComplaint". Paths
// that do not resolve are skipped with a warning so a stale edit history
// never blocks export.
func ApplySOAPEdits(note *SOAPNote, edits *ClinicianEdits, logger zerolog.Logger) *SOAPNote {
	if note == nil {
		return nil
	}
	out := *note
	if edits == nil {
		return &out
	}

	for _, e := range edits.Changes {
		switch e.FieldPath {
		case "subjective", "objective", "assessment", "plan":
			// Section-level overrides apply at export render time.
			continue
		}
		if !setSOAPField(&out, e.FieldPath, e.NewValue) {
			logger.Warn().Str("field_path", e.FieldPath).Msg("skipping edit with unknown field path")
		}
	}

	return &out
}

func setSOAPField(n *SOAPNote, path, value string) bool {
	parts := strings.Split(path, ".")
	if len(parts) != 2 {
		return false
	}

	switch parts[0] {
	case "subjective":
		switch parts[1] {
		case "chiefComplaint":
			n.Subjective.ChiefComplaint = value
		case "historyOfPresentIllness":
			n.Subjective.HistoryOfPresentIllness = value
		case "reviewOfSystems":
			n.Subjective.ReviewOfSystems = value
		default:
			return false
		}
	case "objective":
		switch parts[1] {
		case "appearance":
			n.Objective.Appearance = value
		case "behavior":
			n.Objective.Behavior = value
		case "mood":
			n.Objective.Mood = value
		case "affect":
			n.Objective.Affect = value
		case "speech":
			n.Objective.Speech = value
		case "thoughtProcess":
			n.Objective.ThoughtProcess = value
		default:
			return false
		}
	case "assessment":
		switch parts[1] {
		case "clinicalImpressions":
			n.Assessment.ClinicalImpressions = value
		case "progress":
			n.Assessment.Progress = value
		default:
			return false
		}
	case "plan":
		switch parts[1] {
		case "homework":
			n.Plan.Homework = value
		case "nextSessionFocus":
			n.Plan.NextSessionFocus = value
		case "medicationDiscussion":
			n.Plan.MedicationDiscussion = value
		default:
			return false
		}
	default:
		return false
	}

	return true
}
