package ports

import (
	"context"

	"github.com/Weatherlly/sr-transferencias/internal/domain"
)

// RecordStore persists transfer records, one entry per record.
type RecordStore interface {
	// Save writes rec and returns it as stored. The store may adjust the id
	// to keep it unique.
	Save(ctx context.Context, rec domain.TransferRecord) (domain.TransferRecord, error)

	// List returns every readable record, newest first. Entries that cannot
	// be read are skipped rather than failing the call.
	List(ctx context.Context) ([]domain.TransferRecord, error)

	// Delete removes the record with the given id.
	// Returns domain.ErrNotFound if no record matches.
	Delete(ctx context.Context, id string) error
}
