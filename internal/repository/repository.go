package repository

import (
	"context"
	"time"

	"github.com/mr1hm/go-aid-dispatch/internal/models"
)

// Snapshot is the full persisted state of the inventory ledger.
type Snapshot struct {
	Supplies   map[string]int
	Reports    []models.Report
	Requesters []string
}

// SnapshotStore loads and saves the ledger document.
type SnapshotStore interface {
	Load() (*Snapshot, error)
	Save(s *Snapshot) error
}

type Filter struct {
	Limit    int
	Offset   int
	Since    *time.Time
	Category string
	Vehicle  string
	OpenOnly bool // only dispatches whose vehicle has not been returned
}

type DispatchRepository interface {
	Record(ctx context.Context, d *models.DispatchRecord) error
	GetByID(ctx context.Context, id string) (*models.DispatchRecord, error)
	ListDispatches(ctx context.Context, opts Filter) ([]models.DispatchRecord, error)
	MarkReturned(ctx context.Context, vehicle string, at time.Time) (int64, error)
}
