package http

import (
	"net/http"

	"fintrack/internal/log"
	"fintrack/internal/period"
)

// handleDashboard serves GET /api/dashboard?period=month.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePeriod(r.URL.Query(), period.Month)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	d, err := s.svc.Dashboard.Dashboard(r.Context(), userID(r.Context()), p)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(newDashboardView(d)).Write(w)
}

// handleAnalytics serves GET /api/analytics?period=monthly&year=YYYY.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	p, err := ParsePeriod(query, period.Monthly)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	year, err := ParseYear(query)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	a, err := s.svc.Analytics.Analytics(r.Context(), userID(r.Context()), p, year)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(newAnalyticsView(a)).Write(w)
}

// handleReport serves GET /api/report?page=N and GET /api/report?mode=recent.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	ctx := r.Context()

	if query.Get("mode") == "recent" {
		txs, err := s.svc.Reports.Recent(ctx, userID(ctx))
		if err != nil {
			s.writeServiceError(w, r, log.OpList, err)
			return
		}
		NewJSONResponse().Data(newTransactionItems(txs)).Write(w)
		return
	}

	page, err := s.svc.Reports.Page(ctx, userID(ctx), ParsePage(query))
	if err != nil {
		s.writeServiceError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(newPageView(page)).Write(w)
}
