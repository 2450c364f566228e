package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/unocoin/internal/domain"
	"github.com/aristath/unocoin/internal/modules/bank"
	"github.com/aristath/unocoin/internal/modules/kyc"
)

// AccountResponse describes the session without exposing its credential
type AccountResponse struct {
	User        string `json:"user"`
	HasAccount  bool   `json:"has_account"`
	AutoLogin   bool   `json:"auto_login"`
	Trades      int    `json:"trades"`
	KYCs        int    `json:"kycs"`
	KYCVerified bool   `json:"kyc_verified"`
}

func (s *Server) accountResponse() AccountResponse {
	return AccountResponse{
		User:        s.session.User(),
		HasAccount:  s.session.HasAccount(),
		AutoLogin:   s.session.AutoLogin(),
		Trades:      len(s.session.Trades()),
		KYCs:        len(s.session.KYCs()),
		KYCVerified: s.session.KYCVerified(),
	}
}

// handleGetAccount handles GET /api/account
func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, http.StatusOK, s.accountResponse())
}

// handleSignup handles POST /api/account/signup
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	res, err := s.session.Signup(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeData(w, http.StatusCreated, map[string]interface{}{
		"result":  res.Result,
		"message": res.Message,
		"account": s.accountResponse(),
	})
}

// handleGetProfile handles GET /api/profile
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := s.session.Profile()
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error":    "profile has not been fetched",
			"metadata": s.metadata(),
		})
		return
	}
	s.writeData(w, http.StatusOK, p)
}

// handleFetchProfile handles POST /api/profile/fetch
func (s *Server) handleFetchProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.session.FetchProfile(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, http.StatusOK, p)
}

func kycRecords(list []*kyc.Submission) []kyc.Record {
	out := make([]kyc.Record, 0, len(list))
	for _, sub := range list {
		out = append(out, sub.Record)
	}
	return out
}

// handleListKYCs handles GET /api/kyc
func (s *Server) handleListKYCs(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, http.StatusOK, kycRecords(s.session.KYCs()))
}

// handleTriggerKYC handles POST /api/kyc
func (s *Server) handleTriggerKYC(w http.ResponseWriter, r *http.Request) {
	sub, err := s.session.TriggerKYC(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, http.StatusCreated, sub.Record)
}

// handleSyncKYCs handles POST /api/kyc/sync
func (s *Server) handleSyncKYCs(w http.ResponseWriter, r *http.Request) {
	list, err := s.session.GetKYCs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, http.StatusOK, kycRecords(list))
}

// handleRefreshKYC handles POST /api/kyc/{id}/refresh
func (s *Server) handleRefreshKYC(w http.ResponseWriter, r *http.Request) {
	sub, err := s.session.RefreshKYC(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, http.StatusOK, sub.Record)
}

// handleGetCurrencies handles GET /api/currencies
func (s *Server) handleGetCurrencies(w http.ResponseWriter, r *http.Request) {
	buy, err := s.session.GetBuyCurrencies(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sell, err := s.session.GetSellCurrencies(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeData(w, http.StatusOK, map[string]interface{}{
		"buy":  buy,
		"sell": sell,
	})
}

// handleGetRate handles GET /api/rates/{base}/{quote}
func (s *Server) handleGetRate(w http.ResponseWriter, r *http.Request) {
	base := domain.Currency(chi.URLParam(r, "base"))
	quote := domain.Currency(chi.URLParam(r, "quote"))

	rate, err := s.session.GetRate(r.Context(), base, quote)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, http.StatusOK, rate)
}

// handleListBankAccounts handles GET /api/bank/accounts
func (s *Server) handleListBankAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.session.Bank().List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, http.StatusOK, accounts)
}

// handleLinkBankAccount handles POST /api/bank/accounts
func (s *Server) handleLinkBankAccount(w http.ResponseWriter, r *http.Request) {
	var req bank.LinkRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	account, err := s.session.LinkBankAccount(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, http.StatusCreated, account)
}
