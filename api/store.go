package api

import (
	"context"

	"github.com/warp/cashflow-planner/engine"
)

// Store is everything the HTTP layer needs from persistence. Both
// store/sqlite and store/postgres satisfy it.
type Store interface {
	engine.Store
	engine.RecordStore

	Ping(ctx context.Context) error
	Reset(ctx context.Context) error
}
