// Package settlement talks to the settlement service that actually moves
// value between accounts. The treasury only decides when and how much is
// authorized to move; this client is the "transfer value to address"
// primitive it delegates to.
package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Client struct {
	BaseURL string
	APIKey  string

	HTTP *http.Client
}

type transferRequest struct {
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Memo      string          `json:"memo,omitempty"`
}

type transferResponse struct {
	TransferID string `json:"transfer_id"`
	Status     string `json:"status"`
}

// Transfer moves amount to recipient synchronously. A non-2xx response or a
// non-completed status means nothing moved.
func (c *Client) Transfer(ctx context.Context, recipient string, amount decimal.Decimal, memo string) error {
	var out transferResponse
	err := c.post(ctx, "/api/v1/transfers", transferRequest{
		Recipient: recipient,
		Amount:    amount,
		Memo:      memo,
	}, &out)
	if err != nil {
		return err
	}
	if out.Status != "" && out.Status != "completed" {
		return fmt.Errorf("settlement transfer %s status %q", out.TransferID, out.Status)
	}
	return nil
}

type balanceResponse struct {
	Address string          `json:"address"`
	Balance decimal.Decimal `json:"balance"`
}

// Balance reads the current balance of an external account.
func (c *Client) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	base, err := c.base()
	if err != nil {
		return decimal.Zero, err
	}
	endpoint := base + "/api/v1/accounts/" + url.PathEscape(address) + "/balance"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return decimal.Zero, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decimal.Zero, fmt.Errorf("settlement balance http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var br balanceResponse
	if err := json.Unmarshal(b, &br); err != nil {
		return decimal.Zero, err
	}
	return br.Balance, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	base, err := c.base()
	if err != nil {
		return err
	}
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	bb, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("settlement %s http %d: %s", path, resp.StatusCode, strings.TrimSpace(string(bb)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(bb, out)
}

func (c *Client) base() (string, error) {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return "", fmt.Errorf("settlement base url is empty")
	}
	return base, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 15 * time.Second}
}
