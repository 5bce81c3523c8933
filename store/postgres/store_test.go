package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cashflow-planner/engine"
	"github.com/warp/cashflow-planner/factory"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

func setupStore(t *testing.T) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Open(ctx, getTestDSN(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(ctx))
	_, err = s.pool.Exec(ctx, `truncate events, months, records restart identity cascade`)
	require.NoError(t, err)
	return s
}

func TestPostgres_LedgerRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	f := factory.NewRecordFactory()

	rent, err := f.ParseItem(factory.ItemJSON("rent", "Rent", "expense", 1200.50, 1))
	require.NoError(t, err)
	require.NoError(t, s.SaveItem(ctx, rent))

	legacy, err := f.ParseClient(`{"schema_version": 1, "id": "acme", "name": "ACME", "amount": 4000, "day": 31}`)
	require.NoError(t, err)
	require.NoError(t, s.SaveClient(ctx, legacy))

	ledger := engine.NewLedger(s, s)
	may := engine.Month{Year: 2024, Month: time.May}

	events, err := ledger.EnsureMonth(ctx, may)
	require.NoError(t, err)
	require.Len(t, events, 2)

	_, err = ledger.LinkExternal(ctx, "rent-2024-5-0", "gcal-1")
	require.NoError(t, err)

	events, err = ledger.Regenerate(ctx, may)
	require.NoError(t, err)
	assert.Equal(t, "gcal-1", events[0].ExternalLinkID)

	paid, err := ledger.MarkPaid(ctx, "rent-2024-5-0", engine.MustParseDate("2024-05-11"))
	require.NoError(t, err)

	loaded, err := s.LoadEvent(ctx, "rent-2024-5-0")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusPaid, loaded.Status)
	assert.True(t, loaded.Amount.Equal(rent.Amount), "numeric keeps cents")
	assert.True(t, loaded.Penalty.Equal(paid.Penalty))
	assert.Equal(t, "gcal-1", loaded.ExternalLinkID)

	client, err := s.GetClient(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, engine.Monthly(31), *client.Rule)

	_, err = s.GetLoan(ctx, "missing")
	assert.ErrorIs(t, err, engine.ErrRecordNotFound)
	_, err = s.LoadEvent(ctx, "missing-2024-5-0")
	assert.ErrorIs(t, err, engine.ErrEventNotFound)
}
