package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/repaircoin/rcnledger/internal/infra/metrics"
	"github.com/repaircoin/rcnledger/internal/services/ledgerstore"
	"github.com/repaircoin/rcnledger/internal/services/redemption"
	"github.com/repaircoin/rcnledger/internal/services/reward"
	"github.com/repaircoin/rcnledger/internal/services/settlement"
)

// NewRouter registers all ledger endpoints.
func NewRouter(store *ledgerstore.Store, rw *reward.Service, rd *redemption.Service, rc *settlement.Reconciler) http.Handler {
	h := NewHandler(store, rw, rd, rc)
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/shops/{shopId}/rewards", h.IssueReward)
	r.Post("/admin/shops/{shopId}/purchases", h.RecordShopPurchase)

	r.Get("/customers/{address}/balance", h.GetBalance)
	r.Get("/customers/{address}/ledger", h.GetHistory)
	r.Get("/customers/{address}/ledger/replay", h.ReplayLedger)
	r.Post("/customers/{address}/redemptions", h.BeginRedemption)

	r.Post("/redemptions/{sessionId}/complete", h.CompleteRedemption)
	r.Delete("/redemptions/{sessionId}", h.CancelRedemption)
	r.Get("/redemptions/{sessionId}", h.GetRedemption)

	r.Post("/settlements/callback", h.OnMintSettled)
	r.Get("/admin/settlements/stuck", h.StuckSettlements)
	r.Post("/admin/settlements/{txId}/confirm", h.OperatorConfirm)
	r.Post("/admin/settlements/{txId}/fail", h.OperatorFail)

	return r
}
