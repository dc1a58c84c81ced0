// Package server exposes the settlement engine over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-engine/internal/curve"
	"github.com/rovshanmuradov/curve-engine/internal/settle"
	"github.com/rovshanmuradov/curve-engine/internal/storage"
)

// Server routes HTTP requests to the engine.
type Server struct {
	engine         *settle.Engine
	store          storage.Storage
	logger         *zap.Logger
	metricsHandler http.Handler
}

// New builds the HTTP surface. store and metricsHandler may be nil.
func New(engine *settle.Engine, store storage.Storage, metricsHandler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		engine:         engine,
		store:          store,
		logger:         logger.Named("server"),
		metricsHandler: metricsHandler,
	}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.metricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/price", s.handlePrice)
		r.Post("/quote/cost", s.handleQuoteCost)
		r.Post("/quote/refund", s.handleQuoteRefund)
		r.Post("/quote/tokens", s.handleQuoteTokens)
		r.Post("/mint", s.handleMint)
		r.Post("/burn", s.handleBurn)
		r.Get("/receipts", s.handleReceipts)
	})
	return r
}

type quoteRequest struct {
	Amount  string `json:"amount,omitempty"`
	Payment string `json:"payment,omitempty"`
}

type mintRequest struct {
	Account    string `json:"account"`
	Amount     string `json:"amount"`
	Payment    string `json:"payment"`
	MaxPayment string `json:"max_payment"`
}

type burnRequest struct {
	Account   string `json:"account"`
	Amount    string `json:"amount"`
	MinRefund string `json:"min_refund"`
}

type receiptResponse struct {
	ReceiptID      string `json:"receipt_id"`
	Op             string `json:"op"`
	Account        string `json:"account"`
	Amount         string `json:"amount"`
	Cost           string `json:"cost,omitempty"`
	ExcessRefunded string `json:"excess_refunded,omitempty"`
	Refund         string `json:"refund,omitempty"`
	SupplyAfter    string `json:"supply_after"`
	SettledAt      string `json:"settled_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	price, err := s.engine.CurrentPrice()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"price": price.Dec()})
}

func (s *Server) handleQuoteCost(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	amount, err := parseScaled(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cost, err := s.engine.QuoteCost(amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"cost": cost.Dec()})
}

func (s *Server) handleQuoteRefund(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	amount, err := parseScaled(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	refund, err := s.engine.QuoteRefund(amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"refund": refund.Dec()})
}

func (s *Server) handleQuoteTokens(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	payment, err := parseScaled(req.Payment)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := s.engine.QuoteTokens(payment)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"amount": amount.Dec()})
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Account == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody("invalid_request", "account is required"))
		return
	}
	amount, err := parseScaled(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	payment, err := parseScaled(req.Payment)
	if err != nil {
		s.writeError(w, err)
		return
	}
	maxPayment := payment
	if req.MaxPayment != "" {
		if maxPayment, err = parseScaled(req.MaxPayment); err != nil {
			s.writeError(w, err)
			return
		}
	}
	receipt, err := s.engine.Mint(r.Context(), req.Account, amount, payment, maxPayment)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toReceiptResponse(receipt))
}

func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request) {
	var req burnRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Account == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody("invalid_request", "account is required"))
		return
	}
	amount, err := parseScaled(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	minRefund := new(uint256.Int)
	if req.MinRefund != "" {
		if minRefund, err = parseScaled(req.MinRefund); err != nil {
			s.writeError(w, err)
			return
		}
	}
	receipt, err := s.engine.Burn(r.Context(), req.Account, amount, minRefund)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toReceiptResponse(receipt))
}

func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeJSON(w, http.StatusNotImplemented, errorBody("history_disabled", "settlement history is not configured"))
		return
	}
	account := r.URL.Query().Get("account")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	settlements, err := s.store.ListSettlements(r.Context(), account, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list settlements", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorBody("internal", "failed to list settlements"))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"settlements": settlements})
}

func toReceiptResponse(receipt *settle.Receipt) receiptResponse {
	resp := receiptResponse{
		ReceiptID:   receipt.ID,
		Op:          receipt.Op,
		Account:     receipt.Account,
		Amount:      receipt.Amount.Dec(),
		SupplyAfter: receipt.SupplyAfter.Dec(),
		SettledAt:   receipt.SettledAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if receipt.Cost != nil {
		resp.Cost = receipt.Cost.Dec()
	}
	if receipt.ExcessRefunded != nil {
		resp.ExcessRefunded = receipt.ExcessRefunded.Dec()
	}
	if receipt.Refund != nil {
		resp.Refund = receipt.Refund.Dec()
	}
	return resp
}

func parseScaled(raw string) (*uint256.Int, error) {
	if raw == "" {
		return nil, curve.ErrInvalidAmount
	}
	value, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, curve.ErrInvalidAmount
	}
	return value, nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody("invalid_request", "malformed JSON body"))
		return false
	}
	return true
}

// writeError maps the engine's error taxonomy onto HTTP statuses with stable
// machine-readable codes, so clients can branch on semantics.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, curve.ErrInvalidAmount):
		status, code = http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, curve.ErrInsufficientPayment):
		status, code = http.StatusPaymentRequired, "insufficient_payment"
	case errors.Is(err, curve.ErrSlippageExceeded):
		status, code = http.StatusConflict, "slippage_exceeded"
	case errors.Is(err, curve.ErrInsufficientBalance):
		status, code = http.StatusBadRequest, "insufficient_balance"
	case errors.Is(err, curve.ErrInsufficientReserve):
		status, code = http.StatusServiceUnavailable, "insufficient_reserve"
	case errors.Is(err, curve.ErrReentrantCall):
		status, code = http.StatusConflict, "reentrant_call"
	case errors.Is(err, curve.ErrOverflow):
		status, code = http.StatusUnprocessableEntity, "overflow"
	case errors.Is(err, curve.ErrTransferFailed):
		status, code = http.StatusBadGateway, "transfer_failed"
	default:
		status, code = http.StatusInternalServerError, "internal"
		s.logger.Error("Unclassified engine error", zap.Error(err))
	}
	s.writeJSON(w, status, errorBody(code, err.Error()))
}

func errorBody(code, message string) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]string{"code": code, "message": message},
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
