package clientdata

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobName(t *testing.T) {
	job := NewCleanupJob(NewRepository(setupTestDB(t)), zerolog.Nop())

	assert.Equal(t, "client_data_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()
	repo := NewRepository(db)
	ctx := context.Background()

	_, err := db.Exec("INSERT INTO exchange_rates (cache_key, data, expires_at) VALUES (?, ?, ?), (?, ?, ?), (?, ?, ?)",
		"ancient", `{}`, now.Add(-StaleRateRetention-time.Hour).Unix(),
		"stale", `{}`, now.Add(-time.Hour).Unix(),
		"fresh", `{}`, now.Add(time.Hour).Unix())
	require.NoError(t, err)

	job := NewCleanupJob(repo, zerolog.Nop())
	require.NoError(t, job.Run())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM exchange_rates").Scan(&count))
	assert.Equal(t, 2, count)

	for _, key := range []string{"stale", "fresh"} {
		data, err := repo.Get(ctx, TableExchangeRates, key)
		require.NoError(t, err)
		assert.NotNil(t, data, key)
	}
}

func TestCleanupJobRun_EmptyCache(t *testing.T) {
	job := NewCleanupJob(NewRepository(setupTestDB(t)), zerolog.Nop())

	assert.NoError(t, job.Run())
}
