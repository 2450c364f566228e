// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	AccountRegistered EventType = "ACCOUNT_REGISTERED"
	ProfileFetched    EventType = "PROFILE_FETCHED"
	KYCTriggered      EventType = "KYC_TRIGGERED"
	KYCsSynced        EventType = "KYCS_SYNCED"
	QuoteIssued       EventType = "QUOTE_ISSUED"
	TradePlaced       EventType = "TRADE_PLACED"
	TradesSynced      EventType = "TRADES_SYNCED"
	BankAccountLinked EventType = "BANK_ACCOUNT_LINKED"
	ErrorOccurred     EventType = "ERROR_OCCURRED"
)

// AllTypes lists every event type, in declaration order
var AllTypes = []EventType{
	AccountRegistered,
	ProfileFetched,
	KYCTriggered,
	KYCsSynced,
	QuoteIssued,
	TradePlaced,
	TradesSynced,
	BankAccountLinked,
	ErrorOccurred,
}

// Event is a published event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}
