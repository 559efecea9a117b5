package http

import (
	"net/http"

	"fintrack/internal/log"
)

const (
	// maxRecentLimit bounds ad hoc recent lists.
	maxRecentLimit = 100
	maxPerPage     = 100
)

// handleListTransactions serves GET /api/transactions with optional type,
// category, start_date, end_date, sort_direction, page and per_page.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter, err := ParseTransactionFilter(query)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	ctx := r.Context()
	page, err := s.svc.Queries.List(ctx, userID(ctx), filter, ParsePage(query), ParsePerPage(query, maxPerPage))
	if err != nil {
		s.writeServiceError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(newPageView(page)).Write(w)
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txs, err := s.svc.Queries.Recent(ctx, userID(ctx), ParseLimit(r.URL.Query(), maxRecentLimit))
	if err != nil {
		s.writeServiceError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(newTransactionItems(txs)).Write(w)
}

func (s *Server) handleTransactionSummary(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseDateRange(r.URL.Query())
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	ctx := r.Context()
	summary, err := s.svc.Queries.Summary(ctx, userID(ctx), rng)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(newSummaryView(summary)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	in, err := parser.TransactionInput()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	ctx := r.Context()
	t, err := s.svc.Transactions.Create(ctx, userID(ctx), in)
	if err != nil {
		s.writeServiceError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(newTransactionView(t)).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(r)
	if !ok {
		NotFoundError("transaction not found").Write(w)
		return
	}
	ctx := r.Context()
	t, err := s.svc.Transactions.Get(ctx, userID(ctx), id)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(newTransactionView(t)).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(r)
	if !ok {
		NotFoundError("transaction not found").Write(w)
		return
	}
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	in, err := parser.TransactionInput()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	ctx := r.Context()
	t, err := s.svc.Transactions.Update(ctx, userID(ctx), id, in)
	if err != nil {
		s.writeServiceError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(newTransactionView(t)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(r)
	if !ok {
		NotFoundError("transaction not found").Write(w)
		return
	}
	ctx := r.Context()
	if err := s.svc.Transactions.Delete(ctx, userID(ctx), id); err != nil {
		s.writeServiceError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleRestoreTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(r)
	if !ok {
		NotFoundError("transaction not found").Write(w)
		return
	}
	ctx := r.Context()
	t, err := s.svc.Transactions.Restore(ctx, userID(ctx), id)
	if err != nil {
		s.writeServiceError(w, r, log.OpRestore, err)
		return
	}
	NewJSONResponse().Data(newTransactionView(t)).Write(w)
}
