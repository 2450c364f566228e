package clientdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/unocoin/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// every pooled connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := database.Schema(database.NameClientData)
	require.NoError(t, err)
	_, err = db.Exec(schema)
	require.NoError(t, err)

	return db
}

type rate struct {
	Pair  string  `json:"pair"`
	Value float64 `json:"value"`
}

func TestStore(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := NewRepository(db).WithClock(func() time.Time { return now })
	ctx := context.Background()

	err := repo.Store(ctx, TableExchangeRates, "BTC:INR", rate{Pair: "BTC:INR", Value: 4500000}, time.Minute)
	require.NoError(t, err)

	var storedData string
	var expiresAt int64
	err = db.QueryRow("SELECT data, expires_at FROM exchange_rates WHERE cache_key = ?", "BTC:INR").Scan(&storedData, &expiresAt)
	require.NoError(t, err)

	var parsed rate
	require.NoError(t, json.Unmarshal([]byte(storedData), &parsed))
	assert.InDelta(t, 4500000, parsed.Value, 1e-9)
	assert.Equal(t, now.Add(time.Minute).Unix(), expiresAt)
}

func TestStoreUpsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, TableExchangeRates, "BTC:INR", rate{Value: 1}, time.Hour))
	require.NoError(t, repo.Store(ctx, TableExchangeRates, "BTC:INR", rate{Value: 2}, time.Hour))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM exchange_rates").Scan(&count))
	assert.Equal(t, 1, count)

	result, err := repo.GetIfFresh(ctx, TableExchangeRates, "BTC:INR")
	require.NoError(t, err)
	require.NotNil(t, result)

	var parsed rate
	require.NoError(t, json.Unmarshal(result, &parsed))
	assert.InDelta(t, 2, parsed.Value, 1e-9)
}

func TestGetIfFresh_IgnoresExpired(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := NewRepository(db).WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, TableExchangeRates, "BTC:INR", rate{Value: 1}, time.Minute))
	now = now.Add(2 * time.Minute)

	fresh, err := repo.GetIfFresh(ctx, TableExchangeRates, "BTC:INR")
	require.NoError(t, err)
	assert.Nil(t, fresh)

	stale, err := repo.Get(ctx, TableExchangeRates, "BTC:INR")
	require.NoError(t, err)
	assert.NotNil(t, stale, "stale data stays available as a fallback")
}

func TestGet_MissingKey(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	data, err := repo.Get(context.Background(), TableExchangeRates, "nope")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestInvalidTable(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	assert.Error(t, repo.Store(ctx, "users; DROP TABLE exchange_rates", "k", 1, time.Hour))
	_, err := repo.Get(ctx, "nope", "k")
	assert.Error(t, err)
	_, err = repo.GetIfFresh(ctx, "nope", "k")
	assert.Error(t, err)
	assert.Error(t, repo.Delete(ctx, "nope", "k"))
	_, err = repo.DeleteExpired(ctx, "nope", 0)
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, TableExchangeRates, "BTC:INR", rate{Value: 1}, time.Hour))
	require.NoError(t, repo.Delete(ctx, TableExchangeRates, "BTC:INR"))

	data, err := repo.Get(ctx, TableExchangeRates, "BTC:INR")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestDeleteExpired_KeepsRetentionWindow(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := NewRepository(db).WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, TableExchangeRates, "old", rate{Value: 1}, time.Minute))
	require.NoError(t, repo.Store(ctx, TableExchangeRates, "recent", rate{Value: 2}, 2*time.Hour))
	now = now.Add(3 * time.Hour)

	deleted, err := repo.DeleteExpired(ctx, TableExchangeRates, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	data, err := repo.Get(ctx, TableExchangeRates, "recent")
	require.NoError(t, err)
	assert.NotNil(t, data, "expired within the window stays available as a fallback")

	data, err = repo.Get(ctx, TableExchangeRates, "old")
	require.NoError(t, err)
	assert.Nil(t, data)
}
