// Package trades provides exchange trades and their lifecycle.
package trades

import (
	"time"

	"github.com/aristath/unocoin/internal/domain"
)

// State is the remote lifecycle state of a trade
type State string

const (
	StateAwaitingTransferIn State = "awaiting_transfer_in"
	StateProcessing         State = "processing"
	StateReviewing          State = "reviewing"
	StateCompleted          State = "completed"
	StateCompletedTest      State = "completed_test"
	StateCancelled          State = "cancelled"
	StateRejected           State = "rejected"
	StateExpired            State = "expired"
)

// IsTerminal reports whether the trade will not change state again
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateCompletedTest, StateCancelled, StateRejected, StateExpired:
		return true
	}
	return false
}

// Side is the direction of a trade from the user's point of view
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TransferLeg describes how funds move into or out of the exchange for one side of a trade
type TransferLeg struct {
	Medium                 domain.Medium          `json:"medium"`
	MediumReceiveAccountID string                 `json:"mediumReceiveAccountId,omitempty"`
	Currency               domain.Currency        `json:"currency,omitempty"`
	Amount                 float64                `json:"sendAmount,omitempty"`
	Details                map[string]interface{} `json:"details,omitempty"`
}

// Record is the external form of a trade, used on the wire and in snapshots
type Record struct {
	ID             string          `json:"id"`
	QuoteID        string          `json:"priceQuoteId,omitempty"`
	State          State           `json:"state"`
	InCurrency     domain.Currency `json:"inCurrency,omitempty"`
	OutCurrency    domain.Currency `json:"outCurrency,omitempty"`
	InAmount       float64         `json:"inAmount,omitempty"`
	OutAmount      float64         `json:"outAmountExpected,omitempty"`
	TransferIn     TransferLeg     `json:"transferIn"`
	TransferOut    TransferLeg     `json:"transferOut"`
	ReceiveAddress string          `json:"receiveAddress,omitempty"`
	TxHash         string          `json:"txHash,omitempty"`
	CreatedAt      time.Time       `json:"createTime"`
	UpdatedAt      time.Time       `json:"updateTime"`
}

// PlaceRequest is the body submitted to create a trade
type PlaceRequest struct {
	PriceQuoteID string      `json:"priceQuoteId"`
	TransferIn   TransferLeg `json:"transferIn"`
	TransferOut  TransferLeg `json:"transferOut"`
}

// SellRequest pays crypto in from the blockchain and pays fiat out to a linked bank account
func SellRequest(quoteID, bankAccountID string) PlaceRequest {
	return PlaceRequest{
		PriceQuoteID: quoteID,
		TransferIn:   TransferLeg{Medium: domain.MediumBlockchain},
		TransferOut:  TransferLeg{Medium: domain.MediumBank, MediumReceiveAccountID: bankAccountID},
	}
}

// BuyRequest pays fiat in by bank transfer and sends crypto out to receiveAddress
func BuyRequest(quoteID, receiveAddress string) PlaceRequest {
	return PlaceRequest{
		PriceQuoteID: quoteID,
		TransferIn:   TransferLeg{Medium: domain.MediumBank},
		TransferOut: TransferLeg{
			Medium:  domain.MediumBlockchain,
			Details: map[string]interface{}{"account": receiveAddress},
		},
	}
}
