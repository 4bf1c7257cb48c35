// Package vesting is the client for the external vesting-schedule service.
// Award programs that vest delegate schedule creation here and only keep the
// returned schedule id; the release-curve math lives on the other side.
package vesting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"treasury/internal/treasury"
)

type Client struct {
	BaseURL string
	APIKey  string

	HTTP *http.Client
}

type createScheduleRequest struct {
	Beneficiary     string          `json:"beneficiary"`
	Amount          decimal.Decimal `json:"amount"`
	StartTime       time.Time       `json:"start_time"`
	CliffSeconds    int64           `json:"cliff_seconds"`
	DurationSeconds int64           `json:"duration_seconds"`
	Tag             string          `json:"tag,omitempty"`
}

type createScheduleResponse struct {
	ScheduleID string `json:"schedule_id"`
}

// CreateSchedule registers one release schedule and returns its id.
func (c *Client) CreateSchedule(ctx context.Context, req treasury.VestingScheduleRequest) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return "", fmt.Errorf("vesting base url is empty")
	}
	b, err := json.Marshal(createScheduleRequest{
		Beneficiary:     req.Beneficiary,
		Amount:          req.Amount,
		StartTime:       req.StartTime,
		CliffSeconds:    int64(req.CliffDuration / time.Second),
		DurationSeconds: int64(req.VestingDuration / time.Second),
		Tag:             req.Tag,
	})
	if err != nil {
		return "", err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/v1/schedules", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	hreq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		hreq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient().Do(hreq)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	bb, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("vesting create schedule http %d: %s", resp.StatusCode, strings.TrimSpace(string(bb)))
	}
	var out createScheduleResponse
	if err := json.Unmarshal(bb, &out); err != nil {
		return "", err
	}
	if out.ScheduleID == "" {
		return "", fmt.Errorf("vesting create schedule: empty schedule id")
	}
	return out.ScheduleID, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 15 * time.Second}
}
