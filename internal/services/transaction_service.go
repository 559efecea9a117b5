package services

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/invalidation"
	"fintrack/internal/log"
)

// Publisher announces committed writes to downstream consumers.
type Publisher interface {
	PublishTransactionMutated(ctx context.Context, msg *amqp.TransactionMutatedMessage) error
}

// TransactionService orchestrates transaction writes across the store, the
// metric cache and AMQP. The store write comes first; the cache sweep runs
// before the call returns so the next read recomputes; the publish is best
// effort.
type TransactionService struct {
	store       core.Store
	coordinator *invalidation.Coordinator
	publisher   Publisher
	logger      *log.Logger
	audit       *log.StructuredLogger
}

func NewTransactionService(store core.Store, coordinator *invalidation.Coordinator, publisher Publisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.NewNop()
	}
	logger = logger.WithComponent(log.ComponentTransaction)
	return &TransactionService{
		store:       store,
		coordinator: coordinator,
		publisher:   publisher,
		logger:      logger,
		audit:       log.NewStructuredLogger(logger),
	}
}

func (s *TransactionService) Create(ctx context.Context, userID int64, in core.TransactionInput) (core.Transaction, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	t, err := s.store.Create(ctx, core.Transaction{
		UserID:          userID,
		Type:            in.Type,
		Category:        in.Category,
		Amount:          in.Amount,
		Description:     in.Description,
		TransactionDate: in.TransactionDate,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.afterWrite(ctx, log.OpCreate, amqp.ActionCreated, t, t.TransactionDate.Year())
	return t, nil
}

// Get returns a live transaction owned by userID.
func (s *TransactionService) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return s.owned(ctx, userID, id, false)
}

func (s *TransactionService) Update(ctx context.Context, userID, id int64, in core.TransactionInput) (core.Transaction, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	old, err := s.owned(ctx, userID, id, false)
	if err != nil {
		return core.Transaction{}, err
	}

	next := old
	next.Type = in.Type
	next.Category = in.Category
	next.Amount = in.Amount
	next.Description = in.Description
	next.TransactionDate = in.TransactionDate

	t, err := s.store.Update(ctx, next)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.afterWrite(ctx, log.OpUpdate, amqp.ActionUpdated, t, old.TransactionDate.Year(), t.TransactionDate.Year())
	return t, nil
}

// Delete soft-deletes a live transaction. Deleting it twice is ErrNotFound.
func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	t, err := s.owned(ctx, userID, id, false)
	if err != nil {
		return err
	}
	if err := s.store.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("soft delete transaction: %w", err)
	}

	s.afterWrite(ctx, log.OpDelete, amqp.ActionDeleted, t, t.TransactionDate.Year())
	return nil
}

// Restore brings back a soft-deleted transaction. Restoring a live one is
// ErrNotDeleted.
func (s *TransactionService) Restore(ctx context.Context, userID, id int64) (core.Transaction, error) {
	t, err := s.owned(ctx, userID, id, true)
	if err != nil {
		return core.Transaction{}, err
	}
	if !t.IsDeleted() {
		return core.Transaction{}, core.ErrNotDeleted
	}
	if err := s.store.Restore(ctx, id); err != nil {
		return core.Transaction{}, fmt.Errorf("restore transaction: %w", err)
	}
	t, err = s.store.Get(ctx, id, false)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("reload restored transaction: %w", err)
	}

	s.afterWrite(ctx, log.OpRestore, amqp.ActionRestored, t, t.TransactionDate.Year())
	return t, nil
}

func (s *TransactionService) owned(ctx context.Context, userID, id int64, withDeleted bool) (core.Transaction, error) {
	t, err := s.store.Get(ctx, id, withDeleted)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.UserID != userID {
		return core.Transaction{}, core.ErrForbidden
	}
	return t, nil
}

// afterWrite runs once the store write has committed. Neither step can fail
// the request: the write is already durable.
func (s *TransactionService) afterWrite(ctx context.Context, op string, action amqp.Action, t core.Transaction, touchedYears ...int) {
	evicted := 0
	if s.coordinator != nil {
		sweep := s.coordinator.OnTransactionMutated(ctx, t.UserID, touchedYears...)
		evicted = sweep.Keys - sweep.Failed
	}

	s.audit.LogTransactionMutated(ctx, op, t.UserID, t.ID, string(t.Type), core.ToCents(t.Amount), t.TransactionDate.String(), evicted)

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping event",
			log.FieldTransactionID, t.ID)
		return
	}
	msg := amqp.NewTransactionMutatedMessage(t.UserID, t.ID, action)
	if err := s.publisher.PublishTransactionMutated(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldTransactionID, t.ID,
			log.FieldOperation, op,
			log.FieldError, err)
	}
}
