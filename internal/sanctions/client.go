package sanctions

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"zkcomply/internal/circuit"
	"zkcomply/internal/sentinel"
)

// Client fetches the sanctioned set from a remote provider over HTTP. It
// implements Set.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type hashesResponse struct {
	Success          bool     `json:"success"`
	SanctionedHashes []string `json:"sanctionedHashes"`
	Total            int      `json:"total"`
}

func (c *Client) fetch(ctx context.Context) (*hashesResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/sanctioned-hashes", nil)
	if err != nil {
		return nil, fmt.Errorf("build sanctioned-hashes request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sanctioned hashes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sanctioned-hashes provider returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	var body hashesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode sanctioned hashes: %w", err)
	}
	if !body.Success {
		return nil, fmt.Errorf("sanctioned-hashes provider reported failure: %w", sentinel.ErrUnavailable)
	}
	return &body, nil
}

// SanctionedHashes fetches and decodes the remote snapshot, padding to the
// requested capacity. Remote values outside the field are rejected, never
// reduced.
func (c *Client) SanctionedHashes(ctx context.Context, capacity int) ([]*big.Int, error) {
	body, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(body.SanctionedHashes) > capacity {
		return nil, fmt.Errorf("%d sanctioned entries exceed circuit capacity %d: %w",
			len(body.SanctionedHashes), capacity, sentinel.ErrInvalidState)
	}

	hashes := make([]*big.Int, len(body.SanctionedHashes))
	for i, raw := range body.SanctionedHashes {
		v, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, fmt.Errorf("sanctioned hash %d is not a decimal field element: %w", i, sentinel.ErrInvalidInput)
		}
		if v.Sign() < 0 || v.Cmp(fr.Modulus()) >= 0 {
			return nil, fmt.Errorf("sanctioned hash %d out of field range: %w", i, sentinel.ErrInvalidInput)
		}
		hashes[i] = v
	}
	return circuit.PadSet(hashes, capacity), nil
}

// Total reports the remote unpadded entry count.
func (c *Client) Total(ctx context.Context) (int, error) {
	body, err := c.fetch(ctx)
	if err != nil {
		return 0, err
	}
	return body.Total, nil
}
