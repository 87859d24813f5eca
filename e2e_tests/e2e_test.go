// Package e2etests exercises a running rcnledger stack over HTTP. It
// expects the compose environment: the API on :8080, Postgres migrated
// with the DEV seed, and the collaborator stubs (registry, promo, mint)
// that know the seeded customer.
package e2etests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"
)

const (
	baseURL   = "http://localhost:8080"
	timeout   = 5 * time.Second
	waitReady = 20 * time.Second

	seedShop     = "shop-downtown"
	seedShop2    = "shop-eastside"
	seedCustomer = "0xc0ffee254729296a45a3885639ac7e10f9d54979"
)

var httpClient = &http.Client{Timeout: timeout}

type balanceResponse struct {
	Available   int64  `json:"availableBalance"`
	Total       int64  `json:"totalBalance"`
	PendingMint int64  `json:"pendingMintAmount"`
	Tier        string `json:"tier"`
}

type issueResponse struct {
	BaseReward    int64  `json:"baseReward"`
	TierBonus     int64  `json:"tierBonus"`
	TotalReward   int64  `json:"totalReward"`
	TransactionID string `json:"transactionId"`
}

func TestE2E_LedgerFlow(t *testing.T) {
	waitUntilReady(t)

	start := getBalance(t)

	var txID string

	var rewarded int64

	t.Run("issue_reward_lands_pending", func(t *testing.T) {
		code, body := postJSON(t, "/shops/"+seedShop+"/rewards", map[string]any{
			"customerAddress": seedCustomer,
			"repairAmount":    100,
		})
		if code != http.StatusOK {
			t.Fatalf("issue reward: want 200, got %d (%s)", code, body)
		}

		var res issueResponse
		mustUnmarshal(t, body, &res)

		if res.BaseReward != 25 {
			t.Fatalf("base reward for repair 100: want 25, got %d", res.BaseReward)
		}
		if res.TransactionID == "" {
			t.Fatalf("no transaction id returned")
		}

		txID = res.TransactionID
		rewarded = res.TotalReward

		got := getBalance(t)
		if got.PendingMint != start.PendingMint+rewarded {
			t.Fatalf("pending: want +%d over %d, got %d", rewarded, start.PendingMint, got.PendingMint)
		}
		if got.Available != start.Available {
			t.Fatalf("available moved before settlement: %d -> %d", start.Available, got.Available)
		}
	})

	t.Run("settlement_confirm_releases_balance", func(t *testing.T) {
		hash := fmt.Sprintf("0xe2e%d", time.Now().UnixNano())

		code, body := postJSON(t, "/settlements/callback", map[string]any{
			"transactionId": txID,
			"status":        "confirmed",
			"onChainTxHash": hash,
		})
		if code != http.StatusOK {
			t.Fatalf("settlement callback: want 200, got %d (%s)", code, body)
		}

		// duplicate delivery is a no-op, not an error
		code, body = postJSON(t, "/settlements/callback", map[string]any{
			"transactionId": txID,
			"status":        "confirmed",
			"onChainTxHash": hash,
		})
		if code != http.StatusOK {
			t.Fatalf("duplicate callback: want 200, got %d (%s)", code, body)
		}

		got := getBalance(t)
		if got.Available != start.Available+rewarded {
			t.Fatalf("available after confirm: want %d, got %d", start.Available+rewarded, got.Available)
		}
		if got.PendingMint != start.PendingMint {
			t.Fatalf("pending after confirm: want %d, got %d", start.PendingMint, got.PendingMint)
		}
	})

	var sessionID string

	t.Run("begin_redemption", func(t *testing.T) {
		code, body := postJSON(t, "/customers/"+seedCustomer+"/redemptions", map[string]any{
			"shopId": seedShop,
			"amount": 10,
		})
		if code != http.StatusCreated {
			t.Fatalf("begin redemption: want 201, got %d (%s)", code, body)
		}

		var res struct {
			SessionID string `json:"sessionId"`
		}
		mustUnmarshal(t, body, &res)

		if res.SessionID == "" {
			t.Fatalf("no session id returned")
		}

		sessionID = res.SessionID
	})

	t.Run("second_begin_conflicts", func(t *testing.T) {
		code, body := postJSON(t, "/customers/"+seedCustomer+"/redemptions", map[string]any{
			"shopId": seedShop,
			"amount": 5,
		})
		if code != http.StatusConflict {
			t.Fatalf("second begin: want 409, got %d (%s)", code, body)
		}
	})

	t.Run("complete_redemption", func(t *testing.T) {
		code, body := postJSON(t, "/redemptions/"+sessionID+"/complete", nil)
		if code != http.StatusOK {
			t.Fatalf("complete: want 200, got %d (%s)", code, body)
		}

		var res struct {
			NewAvailable int64 `json:"newAvailableBalance"`
		}
		mustUnmarshal(t, body, &res)

		want := start.Available + rewarded - 10
		if res.NewAvailable != want {
			t.Fatalf("new available: want %d, got %d", want, res.NewAvailable)
		}
	})

	t.Run("replay_in_sync", func(t *testing.T) {
		code, body := getJSON(t, "/customers/"+seedCustomer+"/ledger/replay")
		if code != http.StatusOK {
			t.Fatalf("replay: want 200, got %d (%s)", code, body)
		}

		var res struct {
			InSync bool `json:"inSync"`
		}
		mustUnmarshal(t, body, &res)

		if !res.InSync {
			t.Fatalf("materialized counters drifted from log replay: %s", body)
		}
	})

	t.Run("unknown_customer_404", func(t *testing.T) {
		code, _ := getJSON(t, "/customers/0x0000000000000000000000000000000000000bad/balance")
		if code != http.StatusNotFound {
			t.Fatalf("unknown customer: want 404, got %d", code)
		}
	})
}

func waitUntilReady(t *testing.T) {
	t.Helper()

	deadline := time.Now().Add(waitReady)

	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)

		resp, err := httpClient.Do(req)

		cancel()

		if err == nil {
			resp.Body.Close()

			if resp.StatusCode == http.StatusOK {
				return
			}
		}

		time.Sleep(500 * time.Millisecond)
	}

	t.Fatalf("service not ready after %s", waitReady)
}

func getBalance(t *testing.T) balanceResponse {
	t.Helper()

	code, body := getJSON(t, "/customers/"+seedCustomer+"/balance")
	if code != http.StatusOK {
		t.Fatalf("get balance: want 200, got %d (%s)", code, body)
	}

	var res balanceResponse
	mustUnmarshal(t, body, &res)

	return res
}

func getJSON(t *testing.T, path string) (int, []byte) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	return do(t, req)
}

func postJSON(t *testing.T, path string, payload any) (int, []byte) {
	t.Helper()

	var body io.Reader = bytes.NewReader(nil)

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}

		body = bytes.NewReader(raw)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return do(t, req)
}

func mustUnmarshal(t *testing.T, body []byte, dst any) {
	t.Helper()

	err := json.Unmarshal(body, dst)
	if err != nil {
		t.Fatalf("unmarshal body %q: %v", body, err)
	}
}

func do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	return resp.StatusCode, raw
}
