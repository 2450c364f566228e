package session

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/unocoin/internal/domain"
	"github.com/aristath/unocoin/internal/events"
	"github.com/aristath/unocoin/internal/modules/bank"
	"github.com/aristath/unocoin/internal/modules/exchangerate"
	"github.com/aristath/unocoin/internal/modules/kyc"
	"github.com/aristath/unocoin/internal/modules/profile"
	"github.com/aristath/unocoin/internal/modules/quotes"
	"github.com/aristath/unocoin/internal/modules/trades"
	"github.com/aristath/unocoin/internal/reconcile"
)

// ErrTradeNotFound is returned when a trade id is not in the local collection
var ErrTradeNotFound = fmt.Errorf("trade not found: %w", domain.ErrInvalidArgument)

// ErrKYCNotFound is returned when a submission id is not in the local collection
var ErrKYCNotFound = fmt.Errorf("kyc submission not found: %w", domain.ErrInvalidArgument)

// FetchProfile loads the profile from the exchange
func (s *Session) FetchProfile(ctx context.Context) (*profile.Profile, error) {
	p, err := s.profile.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.events.EmitTyped(moduleName, &events.ProfileFetchedData{VerificationLevel: p.VerificationLevel})
	return p, nil
}

// GetBuyCurrencies returns BuyCurrencies
func (s *Session) GetBuyCurrencies(ctx context.Context) ([]domain.Currency, error) {
	return s.BuyCurrencies(), nil
}

// GetSellCurrencies returns SellCurrencies
func (s *Session) GetSellCurrencies(ctx context.Context) ([]domain.Currency, error) {
	return s.SellCurrencies(), nil
}

// GetRate returns an indicative exchange rate
func (s *Session) GetRate(ctx context.Context, base, quote domain.Currency) (*exchangerate.Rate, error) {
	return s.rates.GetRate(ctx, base, quote)
}

// TriggerKYC starts a verification and appends it to the local collection
func (s *Session) TriggerKYC(ctx context.Context) (*kyc.Submission, error) {
	sub, err := s.kyc.Trigger(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	list := make([]*kyc.Submission, 0, len(s.kycList)+1)
	s.kycList = append(append(list, s.kycList...), sub)
	s.mu.Unlock()

	s.events.EmitTyped(moduleName, &events.KYCTriggeredData{ID: sub.ID, State: string(sub.State)})
	return sub, nil
}

// GetKYCs fetches every submission, reconciles the local collection against it and saves.
// A failed fetch leaves the local collection untouched.
func (s *Session) GetKYCs(ctx context.Context) ([]*kyc.Submission, error) {
	remote, err := s.kyc.FetchAll(ctx)
	if err != nil {
		s.events.EmitError(moduleName, err, map[string]interface{}{"entity": "kyc"})
		return nil, err
	}

	s.mu.Lock()
	merged, res := reconcile.Merge(s.kycList, remote)
	s.kycList = merged
	s.mu.Unlock()

	s.recordSync("kyc", events.KYCsSynced, res)

	if err := s.save(ctx); err != nil {
		return nil, err
	}
	return s.KYCs(), nil
}

// RefreshKYC polls one submission and replaces the local copy
func (s *Session) RefreshKYC(ctx context.Context, id string) (*kyc.Submission, error) {
	var current *kyc.Submission
	for _, sub := range s.KYCs() {
		if sub.ID == id {
			current = sub
			break
		}
	}
	if current == nil {
		return nil, ErrKYCNotFound
	}

	fresh, err := current.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	list := make([]*kyc.Submission, 0, len(s.kycList))
	for _, sub := range s.kycList {
		if sub.ID == id {
			sub = fresh
		}
		list = append(list, sub)
	}
	s.kycList = list
	s.mu.Unlock()

	return fresh, nil
}

// KYCVerified reports whether any locally held submission has completed
func (s *Session) KYCVerified() bool {
	for _, sub := range s.KYCs() {
		if sub.IsVerified() {
			return true
		}
	}
	return false
}

// GetTrades fetches every trade, reconciles the local collection against it and saves
func (s *Session) GetTrades(ctx context.Context) ([]*trades.Trade, error) {
	remote, err := s.trades.List(ctx)
	if err != nil {
		s.events.EmitError(moduleName, err, map[string]interface{}{"entity": "trades"})
		return nil, err
	}

	s.mu.Lock()
	merged, res := reconcile.Merge(s.tradeList, remote)
	s.tradeList = merged
	s.mu.Unlock()

	s.recordSync("trades", events.TradesSynced, res)

	if err := s.save(ctx); err != nil {
		return nil, err
	}
	return s.Trades(), nil
}

// SyncTrades runs GetTrades and reports how many trades are held afterwards
func (s *Session) SyncTrades(ctx context.Context) (int, error) {
	list, err := s.GetTrades(ctx)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// SyncKYCs runs GetKYCs and reports how many submissions are held afterwards
func (s *Session) SyncKYCs(ctx context.Context) (int, error) {
	list, err := s.GetKYCs(ctx)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// TrackTrade folds a placed trade into the local collection and saves. A trade already held
// is merged with the new value.
func (s *Session) TrackTrade(ctx context.Context, t *trades.Trade) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("trade is required: %w", domain.ErrInvalidArgument)
	}

	s.mu.Lock()
	list := make([]*trades.Trade, 0, len(s.tradeList)+1)
	found := false
	for _, existing := range s.tradeList {
		if existing.ID == t.ID {
			existing = existing.MergeRemote(t)
			found = true
		}
		list = append(list, existing)
	}
	if !found {
		list = append(list, t)
	}
	s.tradeList = list
	s.mu.Unlock()

	return s.save(ctx)
}

// Trade returns a locally held trade
func (s *Session) Trade(id string) (*trades.Trade, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tradeList {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// RefreshTrade polls one trade and replaces the local copy
func (s *Session) RefreshTrade(ctx context.Context, id string) (*trades.Trade, error) {
	t, ok := s.Trade(id)
	if !ok {
		return nil, ErrTradeNotFound
	}

	fresh, err := t.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.TrackTrade(ctx, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// RequoteTrade gets a fresh quote for the legs of a locally held trade
func (s *Session) RequoteTrade(ctx context.Context, id string) (*quotes.Quote, error) {
	t, ok := s.Trade(id)
	if !ok {
		return nil, ErrTradeNotFound
	}
	q, err := t.Requote(ctx)
	if err != nil {
		return nil, err
	}
	s.emitQuote(q)
	return q, nil
}

// GetSellQuote prices selling amount of crypto for fiat
func (s *Session) GetSellQuote(ctx context.Context, amount float64) (*quotes.Quote, error) {
	return s.getQuote(ctx, quotes.Request{
		BaseCurrency:  domain.CryptoCurrency,
		QuoteCurrency: domain.FiatCurrency,
		BaseAmount:    amount,
	})
}

// GetBuyQuote prices spending amount of fiat on crypto
func (s *Session) GetBuyQuote(ctx context.Context, amount float64) (*quotes.Quote, error) {
	return s.getQuote(ctx, quotes.Request{
		BaseCurrency:  domain.FiatCurrency,
		QuoteCurrency: domain.CryptoCurrency,
		BaseAmount:    amount,
	})
}

func (s *Session) getQuote(ctx context.Context, req quotes.Request) (*quotes.Quote, error) {
	q, err := s.quotes.GetQuote(ctx, req)
	if err != nil {
		return nil, err
	}
	s.emitQuote(q)
	return q, nil
}

// Sell places a trade selling crypto at quote, paid out to account. The quote must still be
// usable; nothing is sent otherwise. The trade is returned without being tracked.
func (s *Session) Sell(ctx context.Context, quote *quotes.Quote, account *bank.Account) (*trades.Trade, error) {
	if quote == nil {
		return nil, fmt.Errorf("quote is required: %w", domain.ErrInvalidArgument)
	}
	if account == nil || account.ID == "" {
		return nil, fmt.Errorf("bank account is required: %w", domain.ErrInvalidArgument)
	}
	if err := quotes.CheckUsable(quote, s.now()); err != nil {
		return nil, err
	}

	t, err := s.trades.Place(ctx, trades.SellRequest(quote.ID, account.ID))
	if err != nil {
		return nil, err
	}
	s.tradePlaced(t)
	return t, nil
}

// Buy places a trade buying crypto at quote, sent to receiveAddress once the bank transfer
// arrives. The trade is returned without being tracked.
func (s *Session) Buy(ctx context.Context, quote *quotes.Quote, receiveAddress string) (*trades.Trade, error) {
	if quote == nil {
		return nil, fmt.Errorf("quote is required: %w", domain.ErrInvalidArgument)
	}
	if receiveAddress == "" {
		return nil, fmt.Errorf("receive address is required: %w", domain.ErrInvalidArgument)
	}
	if err := quotes.CheckUsable(quote, s.now()); err != nil {
		return nil, err
	}

	t, err := s.trades.Place(ctx, trades.BuyRequest(quote.ID, receiveAddress))
	if err != nil {
		return nil, err
	}
	if t.ReceiveAddress == "" {
		t = t.WithReceiveAddress(receiveAddress)
	}
	s.tradePlaced(t)
	return t, nil
}

// LinkBankAccount links a payout account
func (s *Session) LinkBankAccount(ctx context.Context, req bank.LinkRequest) (*bank.Account, error) {
	account, err := s.bank.Link(ctx, req)
	if err != nil {
		return nil, err
	}
	s.events.EmitTyped(moduleName, &events.BankAccountLinkedData{ID: account.ID, IFSC: account.IFSC})
	return account, nil
}

func (s *Session) tradePlaced(t *trades.Trade) {
	s.metrics.RecordTradePlaced(string(t.Side()))
	s.events.EmitTyped(moduleName, &events.TradePlacedData{
		ID:      t.ID,
		QuoteID: t.QuoteID,
		Side:    string(t.Side()),
		State:   string(t.State),
	})
}

func (s *Session) emitQuote(q *quotes.Quote) {
	s.events.EmitTyped(moduleName, &events.QuoteIssuedData{
		ID:        q.ID,
		Base:      string(q.BaseCurrency),
		Quote:     string(q.QuoteCurrency),
		Rate:      q.Rate,
		ExpiresAt: q.ExpiresAt.Format(time.RFC3339),
	})
}

func (s *Session) recordSync(entity string, eventType events.EventType, res reconcile.Result) {
	s.metrics.RecordReconcile(entity, res.Kept, res.Added, res.Dropped)
	s.log.Debug().
		Str("entity", entity).
		Int("kept", res.Kept).
		Int("added", res.Added).
		Int("dropped", res.Dropped).
		Msg("Collection reconciled")
	s.events.EmitTyped(moduleName, &events.SyncedData{Type: eventType, Kept: res.Kept, Added: res.Added, Dropped: res.Dropped})
}

func (s *Session) save(ctx context.Context) error {
	if s.delegate == nil {
		return fmt.Errorf("identity delegate required to save: %w", domain.ErrInvalidState)
	}
	if err := s.delegate.Save(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
