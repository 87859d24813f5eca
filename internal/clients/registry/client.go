// Package registry queries the shop/customer registration service.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

type Account struct {
	Role   string `json:"role"`
	Active bool   `json:"active"`
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

// AccountExists looks an address up in the registration service. A 404
// maps to found=false rather than an error.
func (c *Client) AccountExists(ctx context.Context, address string) (Account, bool, error) {
	u := c.baseURL + "/accounts/" + url.PathEscape(address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Account{}, false, fmt.Errorf("build registry request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Account{}, false, fmt.Errorf("call registry: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return Account{}, false, nil
	case http.StatusOK:
	default:
		return Account{}, false, fmt.Errorf("registry returned %d", resp.StatusCode)
	}

	var acc Account

	err = json.NewDecoder(resp.Body).Decode(&acc)
	if err != nil {
		return Account{}, false, fmt.Errorf("decode registry response: %w", err)
	}

	return acc, true, nil
}
