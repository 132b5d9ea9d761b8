package screening

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	dErrors "zkcomply/pkg/domain-errors"
)

// Client screens against a remote provider over HTTP. It implements
// Screener.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type screenResponse struct {
	Success   bool      `json:"success"`
	Reason    string    `json:"reason,omitempty"`
	Result    *Result   `json:"result,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *Client) Screen(ctx context.Context, req Request) (*Result, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode screening request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/screen", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build screening request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("screening request failed: %w", err)
	}
	defer resp.Body.Close()

	var body screenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode screening response: %w", err)
	}

	if resp.StatusCode == http.StatusForbidden || (!body.Success && body.Reason != "") {
		return nil, dErrors.New(dErrors.CodeScreeningFailed, body.Reason)
	}
	if resp.StatusCode != http.StatusOK || !body.Success || body.Result == nil {
		return nil, dErrors.New(dErrors.CodeInternal,
			fmt.Sprintf("screening provider returned %d", resp.StatusCode))
	}
	return body.Result, nil
}
