package worker

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

// ExportWorker mirrors committed transaction writes into the external
// ledger. Events carry ids only; the worker reads the current row, deleted
// or not, so replays and out-of-order deliveries converge on the latest state.
type ExportWorker struct {
	reader   core.TransactionReader
	exporter sheets.TransactionExporter
	logger   *log.Logger
}

func NewExportWorker(reader core.TransactionReader, exporter sheets.TransactionExporter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.NewNop()
	}
	return &ExportWorker{
		reader:   reader,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleTransactionMutated exports the transaction named by msg. Events for
// rows that no longer exist or that belong to another user are dropped;
// export failures are returned so the delivery is retried.
func (w *ExportWorker) HandleTransactionMutated(ctx context.Context, msg *amqp.TransactionMutatedMessage) error {
	w.logger.InfoContext(ctx, "Processing transaction event",
		log.FieldTransactionID, msg.TransactionID,
		log.FieldUserID, msg.UserID,
		"action", msg.Action)

	t, err := w.reader.Get(ctx, msg.TransactionID, true)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.WarnContext(ctx, "Transaction not found, skipping export",
			log.FieldTransactionID, msg.TransactionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}
	if t.UserID != msg.UserID {
		w.logger.WarnContext(ctx, "Event user does not own transaction, skipping export",
			log.FieldTransactionID, msg.TransactionID,
			log.FieldUserID, msg.UserID)
		return nil
	}

	ref, err := w.exporter.Export(ctx, t)
	if err != nil {
		return fmt.Errorf("export transaction: %w", err)
	}

	w.logger.InfoContext(ctx, "Successfully exported transaction",
		log.FieldTransactionID, t.ID,
		log.FieldAmountCents, core.ToCents(t.Amount),
		"deleted", t.IsDeleted(),
		"sheets_ref", ref)
	return nil
}
