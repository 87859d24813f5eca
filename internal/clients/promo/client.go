// Package promo validates promo codes against the promo code service.
package promo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

type Validation struct {
	Valid       bool   `json:"valid"`
	BonusAmount int64  `json:"bonusAmount"`
	Reason      string `json:"reason,omitempty"`
}

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

// Validate checks a code for activity, expiry, and usage caps. Invalid
// codes come back with Valid=false and a reason, not an error; errors
// mean the service itself could not be reached.
func (c *Client) Validate(ctx context.Context, code string) (Validation, error) {
	u := c.baseURL + "/promos/" + url.PathEscape(code) + "/validate"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Validation{}, fmt.Errorf("build promo request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Validation{}, fmt.Errorf("call promo service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Validation{Valid: false, Reason: "unknown code"}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return Validation{}, fmt.Errorf("promo service returned %d", resp.StatusCode)
	}

	var v Validation

	err = json.NewDecoder(resp.Body).Decode(&v)
	if err != nil {
		return Validation{}, fmt.Errorf("decode promo response: %w", err)
	}

	return v, nil
}
