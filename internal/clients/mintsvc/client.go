// Package mintsvc talks to the external blockchain minting service.
// Minting is asynchronous: Mint only enqueues; the terminal outcome
// arrives later as a settlement callback carrying the ledger transaction
// id passed as reference here.
package mintsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type mintRequest struct {
	Address   string `json:"address"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

type mintResponse struct {
	TransactionID string `json:"transactionId"`
}

// Mint enqueues an on-chain mint of amount RCN to address. reference is
// the ledger transaction id the settlement callback will echo back.
func (c *Client) Mint(ctx context.Context, address string, amount int64, reference string) (string, error) {
	body, err := json.Marshal(mintRequest{Address: address, Amount: amount, Reference: reference})
	if err != nil {
		return "", fmt.Errorf("marshal mint request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mint", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build mint request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call mint service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("mint service returned %d", resp.StatusCode)
	}

	var out mintResponse

	err = json.NewDecoder(resp.Body).Decode(&out)
	if err != nil {
		return "", fmt.Errorf("decode mint response: %w", err)
	}

	return out.TransactionID, nil
}
