package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/cjeanneret/svlabel/internal/logic/label"
)

// LabelRepository persists labels with their capture snapshot and position estimate.
type LabelRepository interface {
	CreateLabel(ctx context.Context, l *label.Label) error
	GetLabel(ctx context.Context, id uuid.UUID) (*label.Label, error)
	ListLabels(ctx context.Context) ([]*label.Label, error)
	ListLabelsByPano(ctx context.Context, panoID string) ([]*label.Label, error)
	DeleteLabel(ctx context.Context, id uuid.UUID) error
	IsReadOnly() bool
	Close() error
}
