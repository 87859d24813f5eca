// Package metrics registers the Prometheus instruments for the ledger.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RewardsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rcnledger_rewards_issued_total",
		Help: "Reward issuances recorded in the ledger.",
	})

	RCNIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rcnledger_rcn_issued_total",
		Help: "Total RCN credited to customers, bonuses included.",
	})

	RCNRedeemed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rcnledger_rcn_redeemed_total",
		Help: "Total RCN redeemed by customers.",
	})

	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rcnledger_settlements_total",
		Help: "Mint settlement callbacks processed, by outcome.",
	}, []string{"status"})

	MintEnqueueFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rcnledger_mint_enqueue_failures_total",
		Help: "Mint requests that could not be handed to the chain service.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
