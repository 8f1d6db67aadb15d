package clinicalnote

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, n *ClinicalNote) error
	GetByID(ctx context.Context, id uuid.UUID) (*ClinicalNote, error)
	GetByAINoteID(ctx context.Context, aiNoteID uuid.UUID) (*ClinicalNote, error)
}
