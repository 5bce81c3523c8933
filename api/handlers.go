/*
handlers.go - HTTP API handlers for the cash-flow planner

PURPOSE:
  Exposes the planner engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the ledger, loans and budget packages.

ENDPOINTS:
  Records:
    GET    /api/items                     List budget items
    POST   /api/items                     Create or replace an item (record JSON)
    GET    /api/items/{id}                Get one item
    POST   /api/items/{id}/deactivate     Stop scheduling an item
    (same four routes for /api/loans and /api/clients)

  Months:
    GET    /api/months/{year}/{month}/events      Events (generated on first read)
    POST   /api/months/{year}/{month}/regenerate  Recompute from current records
    GET    /api/months/{year}/{month}/summary     Totals, daily balance, shortfall

  Events:
    POST   /api/events/{id}/pay           Mark paid, computes late penalty
    POST   /api/events/{id}/unpay         Revert to pending
    PUT    /api/events/{id}/link          Attach external calendar event

  Loans:
    GET    /api/loans/summary?as_of=      Portfolio payoff projection
    GET    /api/loans/{id}/projection     Amortization schedule
    POST   /api/loans/what-if             Compare hypothetical changes

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access (sqlite or postgres)
  - Ledger: Month event ledger on top of Store
  - Records: JSON record parsing and migration
  - Logger: zap logger for server-side failures

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Record or event not found
  - 409: Event already paid
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo households
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/cashflow-planner/budget"
	"github.com/warp/cashflow-planner/engine"
	"github.com/warp/cashflow-planner/factory"
	"github.com/warp/cashflow-planner/loans"
)

// maxRecordBytes bounds record request bodies.
const maxRecordBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   Store
	Ledger  engine.Ledger
	Records *factory.RecordFactory
	Logger  *zap.Logger

	// Now is the clock for default dates; tests pin it.
	Now func() time.Time

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:   store,
		Ledger:  engine.NewLedger(store, store),
		Records: factory.NewRecordFactory(),
		Logger:  logger,
		Now:     time.Now,
	}
}

func (h *Handler) today() engine.Date {
	return engine.DateOf(h.Now())
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports whether the store is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// ITEMS
// =============================================================================

// ListItems returns all budget items.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.Items(r.Context())
	if err != nil {
		h.fail(w, "Failed to list items", err)
		return
	}

	dtos := make([]factory.ItemRecord, len(items))
	for i, item := range items {
		dtos[i] = factory.ItemToRecord(item)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateItem creates or replaces a budget item from record JSON.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	item, err := h.Records.ParseItem(body)
	if err != nil {
		h.fail(w, "Invalid item", err)
		return
	}
	if err := h.Store.SaveItem(r.Context(), item); err != nil {
		h.fail(w, "Failed to save item", err)
		return
	}

	writeJSON(w, http.StatusCreated, factory.ItemToRecord(item))
}

// GetItem returns a single budget item.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Store.GetItem(r.Context(), engine.RecordID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Item not found", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.ItemToRecord(*item))
}

// DeactivateItem stops an item from generating future events.
func (h *Handler) DeactivateItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Store.GetItem(r.Context(), engine.RecordID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Item not found", err)
		return
	}

	item.Active = false
	if err := h.Store.SaveItem(r.Context(), *item); err != nil {
		h.fail(w, "Failed to deactivate item", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.ItemToRecord(*item))
}

// =============================================================================
// LOANS
// =============================================================================

// ListLoans returns all loans.
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	all, err := h.Store.Loans(r.Context())
	if err != nil {
		h.fail(w, "Failed to list loans", err)
		return
	}

	dtos := make([]factory.LoanRecord, len(all))
	for i, loan := range all {
		dtos[i] = factory.LoanToRecord(loan)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateLoan creates or replaces a loan from record JSON.
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	loan, err := h.Records.ParseLoan(body)
	if err != nil {
		h.fail(w, "Invalid loan", err)
		return
	}
	if err := h.Store.SaveLoan(r.Context(), loan); err != nil {
		h.fail(w, "Failed to save loan", err)
		return
	}

	writeJSON(w, http.StatusCreated, factory.LoanToRecord(loan))
}

// GetLoan returns a single loan.
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.Store.GetLoan(r.Context(), engine.RecordID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Loan not found", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.LoanToRecord(*loan))
}

// DeactivateLoan excludes a loan from generation and payoff projections.
func (h *Handler) DeactivateLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.Store.GetLoan(r.Context(), engine.RecordID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Loan not found", err)
		return
	}

	loan.Active = false
	if err := h.Store.SaveLoan(r.Context(), *loan); err != nil {
		h.fail(w, "Failed to deactivate loan", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.LoanToRecord(*loan))
}

// =============================================================================
// CLIENTS
// =============================================================================

// ListClients returns all client receivables.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Store.Clients(r.Context())
	if err != nil {
		h.fail(w, "Failed to list clients", err)
		return
	}

	dtos := make([]factory.ClientRecord, len(clients))
	for i, c := range clients {
		dtos[i] = factory.ClientToRecord(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateClient creates or replaces a client from record JSON.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	client, err := h.Records.ParseClient(body)
	if err != nil {
		h.fail(w, "Invalid client", err)
		return
	}
	if err := h.Store.SaveClient(r.Context(), client); err != nil {
		h.fail(w, "Failed to save client", err)
		return
	}

	writeJSON(w, http.StatusCreated, factory.ClientToRecord(client))
}

// GetClient returns a single client.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	client, err := h.Store.GetClient(r.Context(), engine.RecordID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Client not found", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.ClientToRecord(*client))
}

// DeactivateClient stops a client from generating future events.
func (h *Handler) DeactivateClient(w http.ResponseWriter, r *http.Request) {
	client, err := h.Store.GetClient(r.Context(), engine.RecordID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Client not found", err)
		return
	}

	client.Active = false
	if err := h.Store.SaveClient(r.Context(), *client); err != nil {
		h.fail(w, "Failed to deactivate client", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.ClientToRecord(*client))
}

// =============================================================================
// MONTHS
// =============================================================================

// GetMonthEvents returns a month's events, generating the month on first access.
func (h *Handler) GetMonthEvents(w http.ResponseWriter, r *http.Request) {
	m, err := monthParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}

	events, err := h.Ledger.EnsureMonth(r.Context(), m)
	if err != nil {
		h.fail(w, "Failed to load month", err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTOs(events))
}

// RegenerateMonth recomputes a month from the current records. External
// links survive for every event whose ID is regenerated.
func (h *Handler) RegenerateMonth(w http.ResponseWriter, r *http.Request) {
	m, err := monthParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}

	events, err := h.Ledger.Regenerate(r.Context(), m)
	if err != nil {
		h.fail(w, "Failed to regenerate month", err)
		return
	}
	monthsRegenerated.Inc()

	h.Logger.Info("month regenerated",
		zap.String("month", m.Key()),
		zap.Int("events", len(events)),
	)
	writeJSON(w, http.StatusOK, toEventDTOs(events))
}

// GetMonthSummary returns the month's totals and its running balance,
// starting from the current bank account balances.
func (h *Handler) GetMonthSummary(w http.ResponseWriter, r *http.Request) {
	m, err := monthParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}

	events, err := h.Ledger.EnsureMonth(r.Context(), m)
	if err != nil {
		h.fail(w, "Failed to load month", err)
		return
	}
	items, err := h.Store.Items(r.Context())
	if err != nil {
		h.fail(w, "Failed to load items", err)
		return
	}

	summary := budget.MonthSummary(m, events)
	timeline := budget.NewTimeline(budget.BankBalance(items), events)
	writeJSON(w, http.StatusOK, toMonthSummaryDTO(summary, timeline))
}

func monthParam(r *http.Request) (engine.Month, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return engine.Month{}, engine.ErrInvalidMonth
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		return engine.Month{}, engine.ErrInvalidMonth
	}
	return engine.NewMonth(year, month)
}

// =============================================================================
// EVENTS
// =============================================================================

// PayEvent marks an event paid on actual_date (default: today).
func (h *Handler) PayEvent(w http.ResponseWriter, r *http.Request) {
	var req PayRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	actual := h.today()
	if req.ActualDate != "" {
		d, err := engine.ParseDate(req.ActualDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid actual_date", err)
			return
		}
		actual = d
	}

	event, err := h.Ledger.MarkPaid(r.Context(), engine.EventID(chi.URLParam(r, "id")), actual)
	if err != nil {
		h.fail(w, "Failed to mark event paid", err)
		return
	}

	eventsPaid.WithLabelValues(string(event.Category), strconv.FormatBool(event.IsLate())).Inc()
	if event.Penalty.IsPositive() {
		h.Logger.Info("late payment",
			zap.String("event_id", string(event.ID)),
			zap.String("original_date", event.OriginalDate.String()),
			zap.String("actual_date", event.ActualDate.String()),
			zap.String("penalty", event.Penalty.String()),
		)
	}
	writeJSON(w, http.StatusOK, toEventDTO(*event))
}

// UnpayEvent reverts an event to pending.
func (h *Handler) UnpayEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.Ledger.MarkPending(r.Context(), engine.EventID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Failed to revert event", err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(*event))
}

// LinkEvent attaches an external calendar event ID. An empty ID unlinks.
func (h *Handler) LinkEvent(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	event, err := h.Ledger.LinkExternal(r.Context(), engine.EventID(chi.URLParam(r, "id")), req.ExternalID)
	if err != nil {
		h.fail(w, "Failed to link event", err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(*event))
}

// =============================================================================
// LOAN PROJECTIONS
// =============================================================================

// GetPayoffSummary projects when the whole active loan portfolio is repaid.
func (h *Handler) GetPayoffSummary(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOfParam(r.URL.Query().Get("as_of"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of", err)
		return
	}

	all, err := h.Store.Loans(r.Context())
	if err != nil {
		h.fail(w, "Failed to load loans", err)
		return
	}

	summary := loans.CalculatePayoffSummary(all, asOf)
	writeJSON(w, http.StatusOK, toPayoffSummaryDTO(summary, asOf))
}

// GetLoanProjection returns one loan's amortization schedule.
func (h *Handler) GetLoanProjection(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOfParam(r.URL.Query().Get("as_of"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of", err)
		return
	}

	loan, err := h.Store.GetLoan(r.Context(), engine.RecordID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, "Loan not found", err)
		return
	}

	writeJSON(w, http.StatusOK, toProjectionDTO(*loan, loans.ProjectLoan(*loan, asOf)))
}

// WhatIf compares the portfolio with hypothetical changes applied.
// Nothing is persisted.
func (h *Handler) WhatIf(w http.ResponseWriter, r *http.Request) {
	var req WhatIfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	asOf, err := h.asOfParam(req.AsOf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of", err)
		return
	}

	all, err := h.Store.Loans(r.Context())
	if err != nil {
		h.fail(w, "Failed to load loans", err)
		return
	}

	cmp := loans.WhatIf(all, toChanges(req.Changes), asOf)
	writeJSON(w, http.StatusOK, WhatIfResponse{
		Baseline:      toPayoffSummaryDTO(cmp.Baseline, asOf),
		Scenario:      toPayoffSummaryDTO(cmp.Scenario, asOf),
		MonthsSaved:   cmp.MonthsSaved,
		InterestSaved: cmp.InterestSaved,
	})
}

func (h *Handler) asOfParam(s string) (engine.Date, error) {
	if s == "" {
		return h.today(), nil
	}
	return engine.ParseDate(s)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// fail maps a domain or store error to its HTTP status.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, engine.ErrAlreadyPaid):
		writeError(w, http.StatusConflict, message, err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func readBody(r *http.Request) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRecordBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
