/*
scenarios.go - Demo households for testing and demonstrations

PURPOSE:
  Provides pre-built households that populate the database with realistic
  records. Each scenario creates bank accounts, budget items, loans and
  clients that exercise specific planner features.

AVAILABLE SCENARIOS:
  starter-household: Salary, rent, weekly groceries, one car loan
  freelancer:        Client receivables on business days, a credit line,
                     and a legacy (schema 1) phone bill
  debt-trap:         Rent due before payday and a card whose payment never
                     covers its interest

HOW SCENARIOS WORK:
  1. Reset database (clear all data)
  2. Build record JSON via factory presets
  3. Parse and save each record through the RecordFactory

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "freelancer"}

ADDING NEW SCENARIOS:
  Append to 'scenarios' with its record JSON. Nothing else to wire.

NOTE:
  Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Record endpoints
  - factory/presets.go: Record JSON builders
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/warp/cashflow-planner/factory"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	items   []string
	loans   []string
	clients []string
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "starter-household",
			Name:        "Starter Household",
			Description: "Salary, rent, weekly groceries and a car loan",
		},
		items: []string{
			factory.BankAccountJSON("checking", "Checking", 3000),
			factory.ItemJSON("salary", "Salary", "income", 4500, 25),
			factory.ItemJSON("rent", "Rent", "expense", 1500, 1),
			factory.WeeklyItemJSON("groceries", "Groceries", "expense", 120, "friday"),
		},
		loans: []string{
			factory.LoanJSON("car", "Car Loan", 12000, 6.5, 350, 15),
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "freelancer",
			Name:        "Freelancer",
			Description: "Invoices paid on business days, a credit line, a legacy phone bill",
		},
		items: []string{
			factory.BankAccountJSON("checking", "Checking", 1500),
			factory.ItemJSON("rent", "Rent", "expense", 1800, 1),
			factory.LegacyItemJSON("phone", "Phone", "expense", 60, 20),
		},
		loans: []string{
			factory.CreditLineJSON("credit-line", "Credit Line", 2500, 5000, 19.9, 150),
		},
		clients: []string{
			factory.ClientJSON("acme", "ACME Corp", 4000, 5),
			factory.ClientJSON("globex", "Globex", 2500, 15),
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "debt-trap",
			Name:        "Debt Trap",
			Description: "Rent before payday and a card that never pays off",
		},
		items: []string{
			factory.BankAccountJSON("checking", "Checking", 500),
			factory.ItemJSON("salary", "Salary", "income", 2800, 28),
			factory.ItemJSON("rent", "Rent", "expense", 1400, 1),
		},
		loans: []string{
			// 8000 at 24% accrues 160/month, more than the payment
			factory.LoanJSON("card", "Store Card", 8000, 24, 150, 5),
			factory.LoanJSON("student", "Student Loan", 20000, 5, 300, 10),
		},
	},
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if s, ok := findScenario(h.currentScenario); ok {
		writeJSON(w, http.StatusOK, s.ScenarioDTO)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a demo household.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		h.fail(w, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if err := h.loadScenario(ctx, s); err != nil {
		h.fail(w, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = s.ID
	h.Logger.Info("scenario loaded", zap.String("scenario", s.ID))

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": s.ID})
}

// ResetDatabase clears all records and generated months.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.fail(w, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADER
// =============================================================================

func (h *Handler) loadScenario(ctx context.Context, s scenario) error {
	for _, js := range s.items {
		item, err := h.Records.ParseItem(js)
		if err != nil {
			return err
		}
		if err := h.Store.SaveItem(ctx, item); err != nil {
			return err
		}
	}
	for _, js := range s.loans {
		loan, err := h.Records.ParseLoan(js)
		if err != nil {
			return err
		}
		if err := h.Store.SaveLoan(ctx, loan); err != nil {
			return err
		}
	}
	for _, js := range s.clients {
		client, err := h.Records.ParseClient(js)
		if err != nil {
			return err
		}
		if err := h.Store.SaveClient(ctx, client); err != nil {
			return err
		}
	}
	return nil
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}
