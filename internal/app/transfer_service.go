package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Weatherlly/sr-transferencias/internal/domain"
	"github.com/Weatherlly/sr-transferencias/internal/metrics"
	"github.com/Weatherlly/sr-transferencias/internal/ports"
	"github.com/Weatherlly/sr-transferencias/pkg/log"
)

// TransferService registers, lists and deletes transfer records.
type TransferService struct {
	store  ports.RecordStore
	clock  ports.Clock
	logger log.Logger
}

// NewTransferService creates a service over the given store and clock.
func NewTransferService(store ports.RecordStore, clock ports.Clock, logger log.Logger) *TransferService {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &TransferService{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// Register validates rec, stamps its id and timestamp, and stores it.
// Validation failures wrap domain.ErrValidation and never reach the store.
func (s *TransferService) Register(ctx context.Context, rec domain.TransferRecord) (domain.TransferRecord, error) {
	if err := rec.Validate(); err != nil {
		metrics.TransferRejections.Inc()
		s.logger.Info("transfer rejected",
			log.String("origin", rec.Origin),
			log.String("destination", rec.Destination),
			log.Err(err),
		)
		return domain.TransferRecord{}, err
	}

	rec = rec.Normalize().Stamp(s.clock.Now())

	stored, err := s.store.Save(ctx, rec)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("save").Inc()
		s.logger.Error("transfer save failed", log.String("id", rec.ID), log.Err(err))
		return domain.TransferRecord{}, fmt.Errorf("register transfer: %w", err)
	}

	metrics.TransfersRegistered.Inc()
	s.logger.Info("transfer registered",
		log.String("id", stored.ID),
		log.String("origin", stored.Origin),
		log.String("destination", stored.Destination),
		log.Int("pizza_items", len(stored.Quantities)),
		log.Int("soup_items", len(stored.Weights)),
	)
	return stored, nil
}

// List returns every stored record, newest first.
func (s *TransferService) List(ctx context.Context) ([]domain.TransferRecord, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("list").Inc()
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	if records == nil {
		records = []domain.TransferRecord{}
	}
	metrics.StoredTransfers.Set(float64(len(records)))
	s.logger.Debug("transfers listed", log.Int("count", len(records)))
	return records, nil
}

// Delete removes the record with id. Unknown or malformed ids yield domain.ErrNotFound.
func (s *TransferService) Delete(ctx context.Context, id string) error {
	if _, ok := domain.ParseID(id); !ok {
		return domain.ErrNotFound
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		metrics.StoreErrors.WithLabelValues("delete").Inc()
		s.logger.Error("transfer delete failed", log.String("id", id), log.Err(err))
		return fmt.Errorf("delete transfer: %w", err)
	}
	metrics.TransfersDeleted.Inc()
	s.logger.Info("transfer deleted", log.String("id", id))
	return nil
}
