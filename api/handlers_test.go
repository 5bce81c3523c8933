/*
handlers_test.go - HTTP tests for API handlers

Tests for:
- Record CRUD and validation
- Month generation, regeneration and link preservation
- Paying events (penalties, double payment, defaults)
- Month summary with running balance
- Loan payoff summary, projection and what-if
- Scenarios, scheduler, health and metrics
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/cashflow-planner/engine"
	"github.com/warp/cashflow-planner/factory"
	"github.com/warp/cashflow-planner/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type testServer struct {
	h      *Handler
	router http.Handler
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, zap.NewNop())
	h.Now = func() time.Time { return time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC) }
	return &testServer{h: h, router: NewRouter(h)}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) post(t *testing.T, path, body string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, path, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// RECORDS
// =============================================================================

func TestItems_CreateGetList(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, http.MethodPost, "/api/items", factory.ItemJSON("rent", "Rent", "expense", 1200, 1))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[factory.ItemRecord](t, rec)
	assert.Equal(t, "rent", created.ID)
	assert.Equal(t, engine.SchemaCurrent, created.SchemaVersion)

	rec = s.do(t, http.MethodGet, "/api/items/rent", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[factory.ItemRecord](t, rec)
	assert.Equal(t, "Rent", got.Name)
	assert.True(t, got.Amount.Equal(dec("1200")))

	rec = s.do(t, http.MethodGet, "/api/items", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]factory.ItemRecord](t, rec), 1)
}

func TestItems_GeneratedIDAndLegacyMigration(t *testing.T) {
	s := setupServer(t)

	// GIVEN: A schema 1 record without an ID
	rec := s.do(t, http.MethodPost, "/api/items", `{"schema_version":1,"name":"Phone","category":"expense","amount":40,"day":20}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// THEN: It gets an ID and comes back as a schema 2 record with a monthly rule
	created := decode[factory.ItemRecord](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, engine.SchemaCurrent, created.SchemaVersion)
	require.NotNil(t, created.Rule)
	assert.Equal(t, "monthly", created.Rule.Kind)
	assert.Equal(t, 20, created.Rule.Day)
}

func TestItems_Validation(t *testing.T) {
	s := setupServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"name":`},
		{"missing name", `{"category":"expense","amount":10,"rule":{"kind":"monthly","day":1}}`},
		{"unknown category", `{"name":"X","category":"gift","amount":10,"rule":{"kind":"monthly","day":1}}`},
		{"unsupported schema", `{"schema_version":7,"name":"X","category":"expense","amount":10}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/items", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestRecords_NotFound(t *testing.T) {
	s := setupServer(t)

	for _, path := range []string{"/api/items/nope", "/api/loans/nope", "/api/clients/nope", "/api/loans/nope/projection"} {
		rec := s.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestDeactivate_StopsGeneration(t *testing.T) {
	s := setupServer(t)
	s.post(t, "/api/items", factory.ItemJSON("rent", "Rent", "expense", 1200, 1))
	s.post(t, "/api/clients", factory.ClientJSON("acme", "ACME", 4000, 1))

	rec := s.do(t, http.MethodPost, "/api/clients/acme/deactivate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	client := decode[factory.ClientRecord](t, rec)
	require.NotNil(t, client.Active)
	assert.False(t, *client.Active)

	rec = s.do(t, http.MethodGet, "/api/months/2024/5/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[[]EventDTO](t, rec)
	require.Len(t, events, 1)
	assert.Equal(t, "rent", events[0].SourceID)
}

// =============================================================================
// MONTHS AND EVENTS
// =============================================================================

func TestMonthEvents_GeneratedOnFirstRead(t *testing.T) {
	s := setupServer(t)
	s.post(t, "/api/items", factory.ItemJSON("rent", "Rent", "expense", 1200, 1))

	rec := s.do(t, http.MethodGet, "/api/months/2024/5/events", "")
	require.Equal(t, http.StatusOK, rec.Code)

	events := decode[[]EventDTO](t, rec)
	require.Len(t, events, 1)
	assert.Equal(t, "rent-2024-5-0", events[0].ID)
	assert.Equal(t, "2024-05", events[0].Month)
	assert.Equal(t, "2024-05-01", events[0].OriginalDate)
	assert.Equal(t, "pending", events[0].Status)
}

func TestMonthEvents_InvalidMonth(t *testing.T) {
	s := setupServer(t)

	for _, path := range []string{"/api/months/2024/13/events", "/api/months/2024/0/summary", "/api/months/abc/5/events"} {
		rec := s.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestPayEvent_LatePenaltyAndConflict(t *testing.T) {
	s := setupServer(t)
	s.post(t, "/api/items", factory.ItemJSON("rent", "Rent", "expense", 1200, 1))
	s.do(t, http.MethodGet, "/api/months/2024/5/events", "")

	// GIVEN: Rent of 1200 due 2024-05-01
	// WHEN: Paid five days late
	rec := s.do(t, http.MethodPost, "/api/events/rent-2024-5-0/pay", `{"actual_date":"2024-05-06"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: floor(1200 * 0.001 * 5) = 6
	paid := decode[EventDTO](t, rec)
	assert.Equal(t, "paid", paid.Status)
	assert.Equal(t, "2024-05-06", paid.ActualDate)
	assert.True(t, paid.Penalty.Equal(dec("6")), paid.Penalty.String())

	// Paying twice is a conflict
	rec = s.do(t, http.MethodPost, "/api/events/rent-2024-5-0/pay", `{"actual_date":"2024-05-07"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPayEvent_DefaultsToToday(t *testing.T) {
	s := setupServer(t)
	s.post(t, "/api/items", factory.ItemJSON("rent", "Rent", "expense", 1200, 1))
	s.do(t, http.MethodGet, "/api/months/2024/5/events", "")

	// Today is 2024-05-15: 14 days late, floor(16.8) = 16
	rec := s.do(t, http.MethodPost, "/api/events/rent-2024-5-0/pay", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decode[EventDTO](t, rec)
	assert.Equal(t, "2024-05-15", paid.ActualDate)
	assert.True(t, paid.Penalty.Equal(dec("16")), paid.Penalty.String())
}

func TestUnpayEvent_RestoresPending(t *testing.T) {
	s := setupServer(t)
	s.post(t, "/api/items", factory.ItemJSON("rent", "Rent", "expense", 1200, 1))
	s.do(t, http.MethodGet, "/api/months/2024/5/events", "")
	s.do(t, http.MethodPost, "/api/events/rent-2024-5-0/pay", `{"actual_date":"2024-05-06"}`)

	rec := s.do(t, http.MethodPost, "/api/events/rent-2024-5-0/unpay", "")
	require.Equal(t, http.StatusOK, rec.Code)
	event := decode[EventDTO](t, rec)
	assert.Equal(t, "pending", event.Status)
	assert.Equal(t, event.OriginalDate, event.ActualDate)
	assert.True(t, event.Penalty.IsZero())
}

func TestEvents_UnknownID(t *testing.T) {
	s := setupServer(t)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/events/ghost-2024-5-0/pay", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/events/ghost-2024-5-0/unpay", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, "/api/events/ghost-2024-5-0/link", `{"external_id":"x"}`).Code)
}

func TestPayEvent_InvalidDate(t *testing.T) {
	s := setupServer(t)
	rec := s.do(t, http.MethodPost, "/api/events/rent-2024-5-0/pay", `{"actual_date":"06/05/2024"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegenerate_KeepsExternalLink(t *testing.T) {
	s := setupServer(t)
	s.post(t, "/api/items", factory.ItemJSON("rent", "Rent", "expense", 1200, 1))
	s.do(t, http.MethodGet, "/api/months/2024/5/events", "")

	// GIVEN: The rent event is linked to a calendar entry
	rec := s.do(t, http.MethodPut, "/api/events/rent-2024-5-0/link", `{"external_id":"gcal-123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gcal-123", decode[EventDTO](t, rec).ExternalLinkID)

	// WHEN: Rent changes and the month is regenerated
	s.post(t, "/api/items", factory.ItemJSON("rent", "Rent", "expense", 1300, 1))
	rec = s.do(t, http.MethodPost, "/api/months/2024/5/regenerate", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN: New amount, same link
	events := decode[[]EventDTO](t, rec)
	require.Len(t, events, 1)
	assert.True(t, events[0].Amount.Equal(dec("1300")))
	assert.Equal(t, "gcal-123", events[0].ExternalLinkID)
}

func TestMonthSummary_ShortfallBeforePayday(t *testing.T) {
	s := setupServer(t)
	s.post(t, "/api/items", factory.BankAccountJSON("checking", "Checking", 1000))
	s.post(t, "/api/items", factory.ItemJSON("rent", "Rent", "expense", 1200, 1))
	s.post(t, "/api/items", factory.ItemJSON("salary", "Salary", "income", 2000, 25))

	rec := s.do(t, http.MethodGet, "/api/months/2024/5/summary", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sum := decode[MonthSummaryDTO](t, rec)

	assert.Equal(t, "2024-05", sum.Month)
	assert.Equal(t, 2, sum.Events)
	assert.True(t, sum.Income.Equal(dec("2000")))
	assert.True(t, sum.Expense.Equal(dec("1200")))
	assert.True(t, sum.Net.Equal(dec("800")))
	assert.True(t, sum.Opening.Equal(dec("1000")))
	assert.True(t, sum.Closing.Equal(dec("1800")))

	// Rent on the 1st leaves the account 200 short until salary arrives
	require.NotNil(t, sum.Shortfall)
	assert.Equal(t, "2024-05-01", sum.Shortfall.Date)
	assert.Equal(t, "rent-2024-5-0", sum.Shortfall.EventID)
	assert.True(t, sum.Shortfall.Balance.Equal(dec("-200")))

	require.Len(t, sum.DailyBalance, 31)
	assert.True(t, sum.DailyBalance[0].Balance.Equal(dec("-200")))
	assert.True(t, sum.DailyBalance[30].Balance.Equal(dec("1800")))
}

// =============================================================================
// LOANS
// =============================================================================

func TestPayoffSummary_MaxNotSum(t *testing.T) {
	s := setupServer(t)
	s.post(t, "/api/loans", factory.LoanJSON("small", "Small", 300, 0, 100, 10))
	s.post(t, "/api/loans", factory.LoanJSON("big", "Big", 1000, 0, 100, 10))

	rec := s.do(t, http.MethodGet, "/api/loans/summary?as_of=2024-05-15", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sum := decode[PayoffSummaryDTO](t, rec)

	assert.Equal(t, "2024-05-15", sum.AsOf)
	assert.True(t, sum.TotalBalance.Equal(dec("1300")))
	assert.True(t, sum.MonthlyTotal.Equal(dec("200")))
	require.NotNil(t, sum.TotalMonths)
	assert.Equal(t, 10, *sum.TotalMonths)
	assert.Equal(t, "2025-03", sum.PayoffDate)
	assert.False(t, sum.NeverPaysOff)
}

func TestPayoffSummary_Never(t *testing.T) {
	s := setupServer(t)
	s.post(t, "/api/loans", factory.LoanJSON("card", "Card", 8000, 24, 150, 5))

	rec := s.do(t, http.MethodGet, "/api/loans/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[PayoffSummaryDTO](t, rec)

	assert.True(t, sum.NeverPaysOff)
	assert.Equal(t, "never", sum.PayoffDate)
	assert.Nil(t, sum.TotalMonths)
	assert.Equal(t, "2024-05-15", sum.AsOf)
}

func TestPayoffSummary_InvalidAsOf(t *testing.T) {
	s := setupServer(t)
	rec := s.do(t, http.MethodGet, "/api/loans/summary?as_of=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoanProjection(t *testing.T) {
	s := setupServer(t)
	s.post(t, "/api/loans", factory.LoanJSON("big", "Big", 1000, 0, 100, 10))
	s.post(t, "/api/loans", factory.CreditLineJSON("line", "Line", 2500, 5000, 19.9, 150))

	rec := s.do(t, http.MethodGet, "/api/loans/big/projection?as_of=2024-05-15", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decode[ProjectionDTO](t, rec)
	require.NotNil(t, p.Months)
	assert.Equal(t, 10, *p.Months)
	assert.Len(t, p.Schedule, 10)
	assert.Equal(t, "2025-03", p.PayoffDate)
	assert.True(t, p.TotalInterest.IsZero())
	assert.True(t, p.Schedule[9].Remaining.IsZero())
	assert.Nil(t, p.Utilization)

	rec = s.do(t, http.MethodGet, "/api/loans/line/projection", "")
	require.Equal(t, http.StatusOK, rec.Code)
	line := decode[ProjectionDTO](t, rec)
	require.NotNil(t, line.Utilization)
	assert.True(t, line.Utilization.Equal(dec("0.5")))
}

func TestWhatIf_LumpSum(t *testing.T) {
	s := setupServer(t)
	s.post(t, "/api/loans", factory.LoanJSON("small", "Small", 300, 0, 100, 10))
	s.post(t, "/api/loans", factory.LoanJSON("big", "Big", 1000, 0, 100, 10))

	body := `{"as_of":"2024-05-15","changes":[{"loan_id":"big","lump_sum":"500"}]}`
	rec := s.do(t, http.MethodPost, "/api/loans/what-if", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[WhatIfResponse](t, rec)

	assert.Equal(t, "2025-03", resp.Baseline.PayoffDate)
	assert.Equal(t, "2024-10", resp.Scenario.PayoffDate)
	assert.Equal(t, 5, resp.MonthsSaved)

	// Nothing was persisted
	rec = s.do(t, http.MethodGet, "/api/loans/big", "")
	assert.True(t, decode[factory.LoanRecord](t, rec).CurrentBalance.Equal(dec("1000")))
}

// =============================================================================
// SCENARIOS, SCHEDULER, HEALTH
// =============================================================================

func TestScenarios_LoadDebtTrap(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, http.MethodGet, "/api/scenarios", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ScenarioDTO](t, rec), len(scenarios))

	rec = s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"debt-trap"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/scenarios/current", "")
	assert.Equal(t, "debt-trap", decode[ScenarioDTO](t, rec).ID)

	rec = s.do(t, http.MethodGet, "/api/loans/summary", "")
	assert.True(t, decode[PayoffSummaryDTO](t, rec).NeverPaysOff)

	rec = s.do(t, http.MethodGet, "/api/months/2024/5/summary", "")
	sum := decode[MonthSummaryDTO](t, rec)
	require.NotNil(t, sum.Shortfall)
	assert.Equal(t, "rent-2024-5-0", sum.Shortfall.EventID)
	assert.True(t, sum.Shortfall.Balance.Equal(dec("-900")))
}

func TestScenarios_LoadReplacesPreviousData(t *testing.T) {
	s := setupServer(t)
	s.post(t, "/api/items", factory.ItemJSON("gym", "Gym", "expense", 30, 3))

	rec := s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"freelancer"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/items/gym", "").Code)
	rec = s.do(t, http.MethodGet, "/api/clients", "")
	assert.Len(t, decode[[]factory.ClientRecord](t, rec), 2)
}

func TestScenarios_Unknown(t *testing.T) {
	s := setupServer(t)
	rec := s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"lottery-win"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMonthScheduler_EnsuresCurrentAndNextMonth(t *testing.T) {
	s := setupServer(t)
	s.post(t, "/api/items", factory.ItemJSON("rent", "Rent", "expense", 1200, 1))

	sched := NewMonthScheduler(s.h.Ledger, nil)
	sched.Now = func() time.Time { return time.Date(2024, time.December, 20, 8, 0, 0, 0, time.UTC) }

	checked := sched.RunNow(context.Background())
	assert.Equal(t, []engine.Month{{Year: 2024, Month: time.December}, {Year: 2025, Month: time.January}}, checked)

	ctx := context.Background()
	for _, m := range checked {
		ok, err := s.h.Store.HasMonth(ctx, m)
		require.NoError(t, err)
		assert.True(t, ok, m.Key())
	}
	assert.Equal(t, sched.Now().Add(sched.CheckInterval), sched.GetNextRunTime())
}

func TestMonthScheduler_DoesNotTouchGeneratedMonth(t *testing.T) {
	s := setupServer(t)
	s.post(t, "/api/items", factory.ItemJSON("rent", "Rent", "expense", 1200, 1))
	s.do(t, http.MethodGet, "/api/months/2024/5/events", "")
	s.do(t, http.MethodPost, "/api/events/rent-2024-5-0/pay", `{"actual_date":"2024-05-01"}`)

	sched := NewMonthScheduler(s.h.Ledger, nil)
	sched.Now = s.h.Now
	sched.RunNow(context.Background())

	rec := s.do(t, http.MethodGet, "/api/months/2024/5/events", "")
	assert.Equal(t, "paid", decode[[]EventDTO](t, rec)[0].Status)
}

func TestMonthScheduler_DisabledStartStop(t *testing.T) {
	s := setupServer(t)
	sched := NewMonthScheduler(s.h.Ledger, nil)
	sched.Enabled = false

	sched.Start()
	sched.Stop()
	assert.True(t, sched.LastRun().IsZero())
}

func TestHealthAndMetrics(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "planner_http_requests_total")
}
