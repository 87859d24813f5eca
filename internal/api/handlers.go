package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/repaircoin/rcnledger/internal/ledger"
	"github.com/repaircoin/rcnledger/internal/services/ledgerstore"
	"github.com/repaircoin/rcnledger/internal/services/redemption"
	"github.com/repaircoin/rcnledger/internal/services/reward"
	"github.com/repaircoin/rcnledger/internal/services/settlement"
)

const maxBodyBytes = 1 << 20 // 1MB

// Handler wires the workflow services into HTTP handlers.
type Handler struct {
	store      *ledgerstore.Store
	reward     *reward.Service
	redemption *redemption.Service
	reconciler *settlement.Reconciler
}

func NewHandler(store *ledgerstore.Store, rw *reward.Service, rd *redemption.Service, rc *settlement.Reconciler) *Handler {
	return &Handler{store: store, reward: rw, redemption: rd, reconciler: rc}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "empty body")
			return false
		}

		writeError(w, http.StatusBadRequest, "invalid JSON")

		return false
	}

	return true
}

// writeDomainError maps the ledger error taxonomy onto HTTP statuses.
// Anything unmapped is a 500 with the detail kept server-side.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrCustomerNotFound),
		errors.Is(err, ledger.ErrShopNotFound),
		errors.Is(err, ledger.ErrSessionNotFound),
		errors.Is(err, ledger.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInsufficientAvailableBalance),
		errors.Is(err, ledger.ErrInsufficientShopBalance),
		errors.Is(err, ledger.ErrRedemptionCapExceeded),
		errors.Is(err, ledger.ErrRedemptionInProgress),
		errors.Is(err, ledger.ErrRoleConflict),
		errors.Is(err, ledger.ErrSettlementConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrSessionExpired):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, ledger.ErrSelfRewardForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrPromoCodeInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// --- Rewards ---

type issueRewardRequest struct {
	CustomerAddress string `json:"customerAddress"`
	RepairAmount    int64  `json:"repairAmount,omitempty"`
	CustomAmount    int64  `json:"customAmount,omitempty"`
	PromoCode       string `json:"promoCode,omitempty"`
}

// IssueReward handles POST /shops/{shopId}/rewards.
func (h *Handler) IssueReward(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shopId")

	var req issueRewardRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.CustomerAddress == "" {
		writeError(w, http.StatusBadRequest, "customerAddress required")
		return
	}

	res, err := h.reward.Issue(r.Context(), reward.IssueRequest{
		ShopID:          shopID,
		CustomerAddress: req.CustomerAddress,
		RepairAmount:    req.RepairAmount,
		CustomAmount:    req.CustomAmount,
		PromoCode:       req.PromoCode,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

type shopPurchaseRequest struct {
	Amount int64 `json:"amount"`
}

// RecordShopPurchase handles POST /admin/shops/{shopId}/purchases.
func (h *Handler) RecordShopPurchase(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shopId")

	var req shopPurchaseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	err := h.store.CreditShopPurchase(r.Context(), shopID, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Balances ---

// GetBalance handles GET /customers/{address}/balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	snap, err := h.store.Balance(r.Context(), address)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// GetHistory handles GET /customers/{address}/ledger.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	txs, err := h.store.History(r.Context(), address)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// ReplayLedger handles GET /customers/{address}/ledger/replay: the audit
// endpoint comparing materialized counters against a log replay.
func (h *Handler) ReplayLedger(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	report, err := h.store.RebuildCustomer(r.Context(), address)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// --- Redemptions ---

type beginRedemptionRequest struct {
	ShopID string `json:"shopId"`
	Amount int64  `json:"amount"`
}

// BeginRedemption handles POST /customers/{address}/redemptions.
func (h *Handler) BeginRedemption(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	var req beginRedemptionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.ShopID == "" || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "shopId and positive amount required")
		return
	}

	sess, err := h.redemption.Begin(r.Context(), address, req.ShopID, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"sessionId": sess.SessionID,
		"expiresAt": sess.ExpiresAt,
	})
}

// CompleteRedemption handles POST /redemptions/{sessionId}/complete.
func (h *Handler) CompleteRedemption(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	newAvailable, err := h.redemption.Complete(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"newAvailableBalance": newAvailable})
}

// CancelRedemption handles DELETE /redemptions/{sessionId}.
func (h *Handler) CancelRedemption(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	err := h.redemption.Cancel(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// GetRedemption handles GET /redemptions/{sessionId}.
func (h *Handler) GetRedemption(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	sess, err := h.redemption.Get(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// --- Settlement ---

type settlementCallback struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	OnChainTxHash string `json:"onChainTxHash,omitempty"`
}

// OnMintSettled handles POST /settlements/callback from the chain
// service. Duplicate deliveries return 200 like the first one.
func (h *Handler) OnMintSettled(w http.ResponseWriter, r *http.Request) {
	var req settlementCallback
	if !decodeBody(w, r, &req) {
		return
	}

	if req.TransactionID == "" {
		writeError(w, http.StatusBadRequest, "transactionId required")
		return
	}

	status := settlement.Status(req.Status)
	if status != settlement.StatusConfirmed && status != settlement.StatusFailed {
		writeError(w, http.StatusBadRequest, "status must be confirmed or failed")
		return
	}

	err := h.reconciler.OnMintSettled(r.Context(), req.TransactionID, status, req.OnChainTxHash)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StuckSettlements handles GET /admin/settlements/stuck.
func (h *Handler) StuckSettlements(w http.ResponseWriter, r *http.Request) {
	txs, err := h.reconciler.Stuck(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"stuck": txs})
}

type operatorResolveRequest struct {
	OnChainTxHash string `json:"onChainTxHash,omitempty"`
	Operator      string `json:"operator"`
}

// OperatorConfirm handles POST /admin/settlements/{txId}/confirm.
func (h *Handler) OperatorConfirm(w http.ResponseWriter, r *http.Request) {
	h.operatorResolve(w, r, settlement.StatusConfirmed)
}

// OperatorFail handles POST /admin/settlements/{txId}/fail.
func (h *Handler) OperatorFail(w http.ResponseWriter, r *http.Request) {
	h.operatorResolve(w, r, settlement.StatusFailed)
}

func (h *Handler) operatorResolve(w http.ResponseWriter, r *http.Request, status settlement.Status) {
	txID := chi.URLParam(r, "txId")

	var req operatorResolveRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Operator == "" {
		writeError(w, http.StatusBadRequest, "operator required")
		return
	}

	if status == settlement.StatusConfirmed && req.OnChainTxHash == "" {
		writeError(w, http.StatusBadRequest, "onChainTxHash required to confirm")
		return
	}

	err := h.reconciler.ResolveManually(r.Context(), txID, status, req.OnChainTxHash, req.Operator)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
