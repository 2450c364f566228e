package snapshots

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/unocoin/internal/database"
	"github.com/aristath/unocoin/internal/domain"
	"github.com/aristath/unocoin/internal/modules/trades"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "session.db"),
		Profile: database.ProfileDurable,
		Name:    database.NameSession,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return NewRepository(db.Conn())
}

func sample() Snapshot {
	return Snapshot{
		User:         "asha@example.com",
		OfflineToken: "offline-123",
		AutoLogin:    true,
		Trades: []trades.Record{{
			ID:          "t1",
			QuoteID:     "q1",
			State:       trades.StateProcessing,
			InCurrency:  domain.CurrencyBTC,
			OutCurrency: domain.CurrencyINR,
			InAmount:    0.25,
			TransferIn:  trades.TransferLeg{Medium: domain.MediumBlockchain},
			TransferOut: trades.TransferLeg{Medium: domain.MediumBank, MediumReceiveAccountID: "b1"},
			CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}},
	}
}

func TestSnapshot_JSONFieldNames(t *testing.T) {
	payload, err := json.Marshal(Snapshot{User: "u", OfflineToken: "tok", AutoLogin: true, Trades: []trades.Record{}})
	require.NoError(t, err)

	assert.JSONEq(t, `{"user":"u","offline_token":"tok","auto_login":true,"trades":[]}`, string(payload))
}

func TestEncodeDecode(t *testing.T) {
	in := sample()

	data, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in.User, out.User)
	assert.Equal(t, in.OfflineToken, out.OfflineToken)
	require.Len(t, out.Trades, 1)
	assert.Equal(t, "b1", out.Trades[0].TransferOut.MediumReceiveAccountID)
	assert.True(t, out.Trades[0].CreatedAt.Equal(in.Trades[0].CreatedAt))
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode([]byte{0xc1})
	assert.Error(t, err)
}

func TestRepository_SaveLoad(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, found, err := repo.Load(ctx, "default")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Save(ctx, "default", sample()))

	s, found, err := repo.Load(ctx, "default")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "offline-123", s.OfflineToken)
	assert.True(t, s.AutoLogin)

	updated := sample()
	updated.Trades = nil
	require.NoError(t, repo.Save(ctx, "default", updated))

	s, _, err = repo.Load(ctx, "default")
	require.NoError(t, err)
	assert.Empty(t, s.Trades)
}
