// Package store provides in-memory engine.Store and engine.RecordStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/cashflow-planner/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu     sync.RWMutex
	months map[string][]engine.CalendarEvent
	index  map[engine.EventID]string // event -> month key

	items   map[engine.RecordID]engine.BudgetItem
	loans   map[engine.RecordID]engine.Loan
	clients map[engine.RecordID]engine.Client

	// insertion order keeps record listings deterministic
	itemOrder, loanOrder, clientOrder []engine.RecordID
}

func NewMemory() *Memory {
	return &Memory{
		months:  make(map[string][]engine.CalendarEvent),
		index:   make(map[engine.EventID]string),
		items:   make(map[engine.RecordID]engine.BudgetItem),
		loans:   make(map[engine.RecordID]engine.Loan),
		clients: make(map[engine.RecordID]engine.Client),
	}
}

// =============================================================================
// EVENTS (engine.Store)
// =============================================================================

func (m *Memory) LoadMonth(_ context.Context, month engine.Month) ([]engine.CalendarEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := m.months[month.Key()]
	result := make([]engine.CalendarEvent, len(events))
	copy(result, events)
	return result, nil
}

func (m *Memory) HasMonth(_ context.Context, month engine.Month) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.months[month.Key()]
	return ok, nil
}

// ReplaceMonth swaps the month's events under a single write lock.
func (m *Memory) ReplaceMonth(_ context.Context, month engine.Month, events []engine.CalendarEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := month.Key()
	for _, e := range m.months[key] {
		delete(m.index, e.ID)
	}

	stored := make([]engine.CalendarEvent, len(events))
	copy(stored, events)
	m.months[key] = stored
	for _, e := range stored {
		m.index[e.ID] = key
	}
	return nil
}

func (m *Memory) LoadEvent(_ context.Context, id engine.EventID) (*engine.CalendarEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, key, ok := m.findLocked(id)
	if !ok {
		return nil, engine.ErrEventNotFound
	}
	e := m.months[key][i]
	return &e, nil
}

func (m *Memory) SaveEvent(_ context.Context, e engine.CalendarEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, key, ok := m.findLocked(e.ID)
	if !ok {
		return engine.ErrEventNotFound
	}
	m.months[key][i] = e
	return nil
}

func (m *Memory) findLocked(id engine.EventID) (int, string, bool) {
	key, ok := m.index[id]
	if !ok {
		return 0, "", false
	}
	for i, e := range m.months[key] {
		if e.ID == id {
			return i, key, true
		}
	}
	return 0, "", false
}

// =============================================================================
// RECORDS (engine.RecordStore)
// =============================================================================

func (m *Memory) SaveItem(_ context.Context, item engine.BudgetItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		m.itemOrder = append(m.itemOrder, item.ID)
	}
	m.items[item.ID] = item
	return nil
}

func (m *Memory) GetItem(_ context.Context, id engine.RecordID) (*engine.BudgetItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, engine.ErrRecordNotFound
	}
	return &item, nil
}

func (m *Memory) Items(_ context.Context) ([]engine.BudgetItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]engine.BudgetItem, 0, len(m.itemOrder))
	for _, id := range m.itemOrder {
		result = append(result, m.items[id])
	}
	return result, nil
}

func (m *Memory) SaveLoan(_ context.Context, loan engine.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.loans[loan.ID]; !ok {
		m.loanOrder = append(m.loanOrder, loan.ID)
	}
	m.loans[loan.ID] = loan
	return nil
}

func (m *Memory) GetLoan(_ context.Context, id engine.RecordID) (*engine.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	loan, ok := m.loans[id]
	if !ok {
		return nil, engine.ErrRecordNotFound
	}
	return &loan, nil
}

func (m *Memory) Loans(_ context.Context) ([]engine.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]engine.Loan, 0, len(m.loanOrder))
	for _, id := range m.loanOrder {
		result = append(result, m.loans[id])
	}
	return result, nil
}

func (m *Memory) SaveClient(_ context.Context, client engine.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[client.ID]; !ok {
		m.clientOrder = append(m.clientOrder, client.ID)
	}
	m.clients[client.ID] = client
	return nil
}

func (m *Memory) GetClient(_ context.Context, id engine.RecordID) (*engine.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	client, ok := m.clients[id]
	if !ok {
		return nil, engine.ErrRecordNotFound
	}
	return &client, nil
}

func (m *Memory) Clients(_ context.Context) ([]engine.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]engine.Client, 0, len(m.clientOrder))
	for _, id := range m.clientOrder {
		result = append(result, m.clients[id])
	}
	return result, nil
}

var (
	_ engine.Store       = (*Memory)(nil)
	_ engine.RecordStore = (*Memory)(nil)
)
