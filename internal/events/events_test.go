package events

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_SubscribeEmitUnsubscribe(t *testing.T) {
	bus := NewBus()
	var got []*Event

	unsubscribe := bus.Subscribe(TradePlaced, func(e *Event) { got = append(got, e) })

	bus.Emit(TradePlaced, "trades", map[string]interface{}{"id": "t1"})
	bus.Emit(KYCTriggered, "kyc", nil)

	require.Len(t, got, 1)
	assert.Equal(t, TradePlaced, got[0].Type)
	assert.Equal(t, "trades", got[0].Module)
	assert.Equal(t, "t1", got[0].Data["id"])
	assert.False(t, got[0].Timestamp.IsZero())

	unsubscribe()
	unsubscribe()

	bus.Emit(TradePlaced, "trades", nil)
	assert.Len(t, got, 1)
}

func TestManager_EmitTyped(t *testing.T) {
	bus := NewBus()
	m := NewManager(bus, zerolog.New(nil).Level(zerolog.Disabled))
	var got *Event
	bus.Subscribe(TradePlaced, func(e *Event) { got = e })

	m.EmitTyped("session", &TradePlacedData{ID: "t1", QuoteID: "q1", Side: "sell", State: "awaiting_transfer_in"})

	require.NotNil(t, got)
	assert.Equal(t, "q1", got.Data["quote_id"])
	assert.Equal(t, "sell", got.Data["side"])
}

func TestManager_SyncedDataCarriesType(t *testing.T) {
	bus := NewBus()
	m := NewManager(bus, zerolog.New(nil).Level(zerolog.Disabled))
	var got *Event
	bus.Subscribe(KYCsSynced, func(e *Event) { got = e })

	m.EmitTyped("session", &SyncedData{Type: KYCsSynced, Kept: 1, Added: 2})

	require.NotNil(t, got)
	assert.EqualValues(t, 2, got.Data["added"])
	_, hasType := got.Data["Type"]
	assert.False(t, hasType)
}

func TestManager_EmitError(t *testing.T) {
	bus := NewBus()
	m := NewManager(bus, zerolog.New(nil).Level(zerolog.Disabled))
	var got *Event
	bus.Subscribe(ErrorOccurred, func(e *Event) { got = e })

	m.EmitError("scheduler", errors.New("sync failed"), map[string]interface{}{"job": "trade_sync"})

	require.NotNil(t, got)
	assert.Equal(t, "sync failed", got.Data["error"])
}

func TestManager_NilIsSafe(t *testing.T) {
	var m *Manager

	assert.NotPanics(t, func() {
		m.EmitTyped("session", &TradePlacedData{ID: "t1"})
		m.EmitError("session", errors.New("x"), nil)
	})
}
