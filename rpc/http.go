package rpc

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alphaledger/core"
	"alphaledger/crypto"
	"alphaledger/native/common"
	"alphaledger/native/loan"
	"alphaledger/native/oracle"
	"alphaledger/native/partner"
	"alphaledger/native/points"
	"alphaledger/native/stake"
)

const maxRequestBytes = 1 << 20 // 1 MiB

// Server exposes the protocol operations over HTTP. User-scoped operations
// trust the upstream gateway to have authenticated the caller and act with
// an account token for the named address; privileged operations additionally
// require the configured bearer token.
type Server struct {
	protocol  *core.Protocol
	authToken string
	nowFn     func() uint64
}

// NewServer builds an HTTP surface over the protocol. An empty authToken
// disables all privileged endpoints.
func NewServer(protocol *core.Protocol, authToken string) *Server {
	return &Server{
		protocol:  protocol,
		authToken: authToken,
		nowFn:     func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetClock overrides the wall clock, primarily for tests.
func (s *Server) SetClock(nowFn func() uint64) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/points", func(r chi.Router) {
			r.With(s.requireAuth).Post("/earn", s.handleEarn)
			r.Post("/spend", s.handleSpend)
			r.Post("/lock", s.handleLock)
			r.Post("/unlock", s.handleUnlock)
			r.Post("/redeem", s.handleRedeem)
			r.With(s.requireAuth).Post("/repay-debt", s.handleRepayBadDebt)
			r.Get("/balance/{address}", s.handleBalance)
			r.Get("/supply", s.handleSupply)
		})
		r.Route("/oracle", func(r chi.Router) {
			r.With(s.requireAuth).Post("/rate", s.handleUpdateRate)
			r.Get("/rate", s.handleGetRate)
		})
		r.Route("/stake", func(r chi.Router) {
			r.Post("/deposit", s.handleDeposit)
			r.Post("/claim", s.handleClaim)
			r.Post("/redeem", s.handleRedeemStake)
			r.With(s.requireAuth).Post("/forfeit", s.handleForfeit)
			r.Get("/position/{id}", s.handlePosition)
		})
		r.Route("/loan", func(r chi.Router) {
			r.Post("/open", s.handleOpenLoan)
			r.Post("/repay", s.handleRepayLoan)
			r.With(s.requireAuth).Post("/settle", s.handleForceSettle)
			r.Get("/{id}", s.handleGetLoan)
		})
		r.Route("/partner", func(r chi.Router) {
			r.With(s.requireAuth).Post("/register", s.handleRegisterCollateral)
			r.Post("/mint", s.handleMintWithQuota)
			r.With(s.requireAuth).Post("/revenue", s.handleSplitRevenue)
			r.Get("/{address}", s.handleGetQuota)
		})
	})
	return r
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			writeError(w, http.StatusForbidden, errors.New("privileged endpoints disabled"))
			return
		}
		header := r.Header.Get("Authorization")
		want := "Bearer " + s.authToken
		if subtle.ConstantTimeCompare([]byte(header), []byte(want)) != 1 {
			writeError(w, http.StatusUnauthorized, errors.New("invalid bearer token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func decode(r *http.Request, into interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(into)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeOpError maps engine sentinels onto HTTP statuses.
func writeOpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, common.ErrModulePaused):
		writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, stake.ErrPositionNotFound),
		errors.Is(err, loan.ErrLoanNotFound),
		errors.Is(err, loan.ErrCollateralNotFound),
		errors.Is(err, partner.ErrPartnerNotFound),
		errors.Is(err, oracle.ErrNotConfigured):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, points.ErrInvalidAmount),
		errors.Is(err, stake.ErrInvalidAmount),
		errors.Is(err, stake.ErrInvalidDuration),
		errors.Is(err, loan.ErrInvalidAmount),
		errors.Is(err, partner.ErrInvalidAmount),
		errors.Is(err, oracle.ErrInvalidRate):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, points.ErrInsufficientBalance),
		errors.Is(err, points.ErrInsufficientLocked),
		errors.Is(err, points.ErrRepaymentExceedsDebt),
		errors.Is(err, oracle.ErrStale),
		errors.Is(err, stake.ErrNotMature),
		errors.Is(err, stake.ErrExpired),
		errors.Is(err, stake.ErrNotExpired),
		errors.Is(err, stake.ErrEncumbered),
		errors.Is(err, stake.ErrCollateralOutstanding),
		errors.Is(err, stake.ErrHasBadDebt),
		errors.Is(err, loan.ErrHasBadDebt),
		errors.Is(err, loan.ErrExceedsLTV),
		errors.Is(err, loan.ErrInsufficientPoints),
		errors.Is(err, loan.ErrCollateralInUse),
		errors.Is(err, partner.ErrQuotaExceeded),
		errors.Is(err, common.ErrOverflow):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func parseID(raw string) ([32]byte, error) {
	var id [32]byte
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return id, err
	}
	if len(decoded) != len(id) {
		return id, errors.New("identifier must be 32 bytes of hex")
	}
	copy(id[:], decoded)
	return id, nil
}

type amountRequest struct {
	User   crypto.Address `json:"user"`
	Amount uint64         `json:"amount"`
}

func (s *Server) handleAmountOp(w http.ResponseWriter, r *http.Request, op func(common.Token, crypto.Address, uint64) error) {
	var req amountRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := op(common.NewAccountToken(req.User), req.User, req.Amount); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEarn(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.protocol.EarnPoints(common.NewProtocolToken(), req.User, req.Amount); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	s.handleAmountOp(w, r, s.protocol.SpendPoints)
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	s.handleAmountOp(w, r, s.protocol.LockPoints)
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	s.handleAmountOp(w, r, s.protocol.UnlockPoints)
}

func (s *Server) handleRepayBadDebt(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.protocol.RepayBadDebt(common.NewProtocolToken(), req.User, req.Amount); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	assetOut, err := s.protocol.RedeemPoints(common.NewAccountToken(req.User), req.User, req.Amount, s.nowFn())
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"asset": assetOut})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := crypto.DecodeAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	balance, err := s.protocol.BalanceOf(addr)
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (s *Server) handleSupply(w http.ResponseWriter, _ *http.Request) {
	total, err := s.protocol.TotalSupply()
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"totalSupply": total})
}

type rateRequest struct {
	Rate string `json:"rate"`
}

func (s *Server) handleUpdateRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	value, ok := new(big.Int).SetString(req.Rate, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("rate must be a base-10 integer"))
		return
	}
	if err := s.protocol.UpdateOracleRate(common.NewOracleToken(), value, s.nowFn()); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetRate(w http.ResponseWriter, _ *http.Request) {
	rate, err := s.protocol.OracleRate()
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

type depositRequest struct {
	Owner     crypto.Address `json:"owner"`
	Principal uint64         `json:"principal"`
	Duration  uint64         `json:"duration"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	position, err := s.protocol.DepositStake(common.NewAccountToken(req.Owner), req.Owner, req.Principal, req.Duration, s.nowFn())
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, position)
}

type positionRequest struct {
	Owner crypto.Address `json:"owner"`
	ID    string         `json:"id"`
}

func (s *Server) handlePositionOp(w http.ResponseWriter, r *http.Request, op func(common.Token, [32]byte, uint64) (uint64, error), field string) {
	var req positionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := parseID(req.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := op(common.NewAccountToken(req.Owner), id, s.nowFn())
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{field: amount})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	s.handlePositionOp(w, r, s.protocol.ClaimAccrued, "credited")
}

func (s *Server) handleRedeemStake(w http.ResponseWriter, r *http.Request) {
	s.handlePositionOp(w, r, s.protocol.RedeemStake, "principal")
}

func (s *Server) handleForfeit(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := parseID(req.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	principal, err := s.protocol.ForfeitStake(common.NewAdminToken(), id, s.nowFn())
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"principal": principal})
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	position, err := s.protocol.GetPosition(id)
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, position)
}

type openLoanRequest struct {
	Borrower     crypto.Address `json:"borrower"`
	CollateralID string         `json:"collateralId"`
	Requested    uint64         `json:"requested"`
}

func (s *Server) handleOpenLoan(w http.ResponseWriter, r *http.Request) {
	var req openLoanRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	collateralID, err := parseID(req.CollateralID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	record, err := s.protocol.OpenLoan(common.NewAccountToken(req.Borrower), req.Borrower, collateralID, req.Requested, s.nowFn())
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

type loanRequest struct {
	Borrower crypto.Address `json:"borrower"`
	ID       string         `json:"id"`
}

func (s *Server) handleRepayLoan(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := parseID(req.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	paid, err := s.protocol.RepayLoan(common.NewAccountToken(req.Borrower), id, s.nowFn())
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"paid": paid})
}

func (s *Server) handleForceSettle(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := parseID(req.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	owed, err := s.protocol.ForceSettleLoan(common.NewAdminToken(), id, s.nowFn())
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"badDebt": owed})
}

func (s *Server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	record, err := s.protocol.GetLoan(id)
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

type registerRequest struct {
	Partner       crypto.Address `json:"partner"`
	PayoutAccount crypto.Address `json:"payoutAccount"`
	ValueUSD      uint64         `json:"valueUsd"`
}

func (s *Server) handleRegisterCollateral(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	record, err := s.protocol.RegisterCollateral(common.NewAdminToken(), req.Partner, req.PayoutAccount, req.ValueUSD)
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

type mintRequest struct {
	Partner crypto.Address `json:"partner"`
	User    crypto.Address `json:"user"`
	Amount  uint64         `json:"amount"`
}

func (s *Server) handleMintWithQuota(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err := s.protocol.MintWithQuota(common.NewAccountToken(req.Partner), req.Partner, req.User, req.Amount, s.nowFn())
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type revenueRequest struct {
	Partner crypto.Address `json:"partner"`
	Cost    uint64         `json:"cost"`
}

func (s *Server) handleSplitRevenue(w http.ResponseWriter, r *http.Request) {
	var req revenueRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.protocol.SplitRevenue(common.NewProtocolToken(), req.Partner, req.Cost, s.nowFn()); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetQuota(w http.ResponseWriter, r *http.Request) {
	addr, err := crypto.DecodeAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	record, err := s.protocol.GetQuota(addr)
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
