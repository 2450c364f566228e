package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/unocoin/internal/domain"
	"github.com/aristath/unocoin/internal/modules/bank"
	"github.com/aristath/unocoin/internal/modules/quotes"
	"github.com/aristath/unocoin/internal/modules/trades"
)

// QuoteRequest asks for a price. Side sell prices crypto in fiat, buy prices fiat in crypto.
type QuoteRequest struct {
	Side   trades.Side `json:"side"`
	Amount float64     `json:"amount"`
}

// SellRequest places a sell against an issued quote
type SellRequest struct {
	QuoteID       string `json:"quote_id"`
	BankAccountID string `json:"bank_account_id"`
}

// BuyRequest places a buy against an issued quote
type BuyRequest struct {
	QuoteID        string `json:"quote_id"`
	ReceiveAddress string `json:"receive_address"`
}

// QuoteView is an issued quote with the time left to use it
type QuoteView struct {
	*quotes.Quote
	ExpiresInSeconds int64 `json:"expires_in_seconds"`
}

func (s *Server) quoteView(q *quotes.Quote) QuoteView {
	return QuoteView{Quote: q, ExpiresInSeconds: int64(q.TimeLeft(s.now()).Seconds())}
}

// TradeView is a trade record with its derived side
type TradeView struct {
	trades.Record
	Side trades.Side `json:"side"`
}

func tradeView(t *trades.Trade) TradeView {
	return TradeView{Record: t.Record, Side: t.Side()}
}

func tradeViews(list []*trades.Trade) []TradeView {
	out := make([]TradeView, 0, len(list))
	for _, t := range list {
		out = append(out, tradeView(t))
	}
	return out
}

// handleCreateQuote handles POST /api/quotes
func (s *Server) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var (
		q   *quotes.Quote
		err error
	)
	switch trades.Side(strings.ToLower(string(req.Side))) {
	case trades.SideSell:
		q, err = s.session.GetSellQuote(r.Context(), req.Amount)
	case trades.SideBuy:
		q, err = s.session.GetBuyQuote(r.Context(), req.Amount)
	default:
		err = fmt.Errorf("side must be buy or sell, got %q: %w", req.Side, domain.ErrInvalidArgument)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.quotes.Put(q)
	s.writeData(w, http.StatusCreated, s.quoteView(q))
}

// takeQuote removes an issued quote from the book so that only one trade can be placed on it
func (s *Server) takeQuote(id string) (*quotes.Quote, error) {
	if id == "" {
		return nil, fmt.Errorf("quote_id is required: %w", domain.ErrInvalidArgument)
	}
	q, ok := s.quotes.Take(id)
	if !ok {
		return nil, fmt.Errorf("unknown quote %q: %w", id, domain.ErrInvalidArgument)
	}
	return q, nil
}

// releaseQuote puts q back when placing failed before anything was sent to the exchange
func (s *Server) releaseQuote(q *quotes.Quote, err error) {
	if errors.Is(err, domain.ErrInvalidArgument) ||
		errors.Is(err, domain.ErrQuoteExpired) ||
		errors.Is(err, domain.ErrNotAuthenticated) {
		s.quotes.Put(q)
	}
}

// lookupBankAccount finds a linked account, refreshing the list once when it is not known yet
func (s *Server) lookupBankAccount(ctx context.Context, id string) (*bank.Account, error) {
	if id == "" {
		return nil, fmt.Errorf("bank_account_id is required: %w", domain.ErrInvalidArgument)
	}
	svc := s.session.Bank()
	if account, ok := svc.Get(id); ok {
		return account, nil
	}
	if _, err := svc.List(ctx); err != nil {
		return nil, err
	}
	if account, ok := svc.Get(id); ok {
		return account, nil
	}
	return nil, fmt.Errorf("unknown bank account %q: %w", id, domain.ErrInvalidArgument)
}

// handleSell handles POST /api/trades/sell
func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.QuoteID == "" {
		s.writeError(w, r, fmt.Errorf("quote_id is required: %w", domain.ErrInvalidArgument))
		return
	}

	account, err := s.lookupBankAccount(r.Context(), req.BankAccountID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q, err := s.takeQuote(req.QuoteID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.session.Sell(r.Context(), q, account)
	if err != nil {
		s.releaseQuote(q, err)
		s.writeError(w, r, err)
		return
	}
	s.track(r.Context(), t)
	s.writeData(w, http.StatusCreated, tradeView(t))
}

// handleBuy handles POST /api/trades/buy
func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req BuyRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	q, err := s.takeQuote(req.QuoteID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.session.Buy(r.Context(), q, strings.TrimSpace(req.ReceiveAddress))
	if err != nil {
		s.releaseQuote(q, err)
		s.writeError(w, r, err)
		return
	}
	s.track(r.Context(), t)
	s.writeData(w, http.StatusCreated, tradeView(t))
}

// track folds a placed trade into the session. The trade exists remotely at this point, so a
// failed save is logged instead of failing the request.
func (s *Server) track(ctx context.Context, t *trades.Trade) {
	if err := s.session.TrackTrade(ctx, t); err != nil {
		s.log.Error().Err(err).Str("trade_id", t.ID).Msg("Trade placed but session save failed")
	}
}

// handleListTrades handles GET /api/trades
func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, http.StatusOK, tradeViews(s.session.Trades()))
}

// handleSyncTrades handles POST /api/trades/sync
func (s *Server) handleSyncTrades(w http.ResponseWriter, r *http.Request) {
	list, err := s.session.GetTrades(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, http.StatusOK, tradeViews(list))
}

// handleRefreshTrade handles POST /api/trades/{id}/refresh
func (s *Server) handleRefreshTrade(w http.ResponseWriter, r *http.Request) {
	t, err := s.session.RefreshTrade(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, http.StatusOK, tradeView(t))
}

// handleRequoteTrade handles POST /api/trades/{id}/requote
func (s *Server) handleRequoteTrade(w http.ResponseWriter, r *http.Request) {
	q, err := s.session.RequoteTrade(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.quotes.Put(q)
	s.writeData(w, http.StatusCreated, s.quoteView(q))
}
