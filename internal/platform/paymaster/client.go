// Package paymaster is the HTTP client for the fee-sponsoring relay service.
// The relay accepts an operator-signed root submission, pays the gas, and
// returns the transaction hash it broadcast.
package paymaster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/raffleworks/raffled/internal/crypto"
	"github.com/raffleworks/raffled/internal/domain"
)

// sponsorPath is the relay endpoint for sponsored root submissions.
const sponsorPath = "/relay/v1/sponsor"

// Client is the REST client for the paymaster relay API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       *crypto.HMACAuth
}

// New creates a relay client. baseURL is the relay root, e.g.
// "https://relay.example.com"; auth carries the API key and HMAC secret.
func New(baseURL string, auth *crypto.HMACAuth) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		auth: auth,
	}
}

// sponsorRequest is the relay wire format for a sponsored call.
type sponsorRequest struct {
	SeasonID  string `json:"seasonId"`
	To        string `json:"to"`
	Data      string `json:"data"`
	Signature string `json:"signature"`
}

// sponsorResponse is the relay's reply on acceptance.
type sponsorResponse struct {
	TxHash   string `json:"txHash"`
	ErrorMsg string `json:"errorMsg,omitempty"`
}

// SponsorCall submits a signed root submission to the relay and returns the
// hash of the transaction the relay broadcast. The receipt must still be
// awaited separately; acceptance here only means the relay took the call.
func (c *Client) SponsorCall(ctx context.Context, sub domain.RootSubmission) (common.Hash, error) {
	if sub.SeasonID == "" {
		return common.Hash{}, fmt.Errorf("paymaster: season id required: %w", domain.ErrInvalidInput)
	}
	if sub.To == (common.Address{}) {
		return common.Hash{}, fmt.Errorf("paymaster: target address required: %w", domain.ErrInvalidInput)
	}
	if len(sub.Data) == 0 {
		return common.Hash{}, fmt.Errorf("paymaster: call data required: %w", domain.ErrInvalidInput)
	}
	if len(sub.Signature) == 0 {
		return common.Hash{}, fmt.Errorf("paymaster: signature required: %w", domain.ErrInvalidInput)
	}

	body, err := json.Marshal(sponsorRequest{
		SeasonID:  sub.SeasonID,
		To:        sub.To.Hex(),
		Data:      hexutil.Encode(sub.Data),
		Signature: hexutil.Encode(sub.Signature),
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("paymaster: marshal sponsor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sponsorPath, bytes.NewReader(body))
	if err != nil {
		return common.Hash{}, fmt.Errorf("paymaster: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.auth.RelayHeaders(http.MethodPost, sponsorPath, string(body)) {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return common.Hash{}, fmt.Errorf("paymaster: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return common.Hash{}, fmt.Errorf("paymaster: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return common.Hash{}, fmt.Errorf("paymaster: relay returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var out sponsorResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return common.Hash{}, fmt.Errorf("paymaster: decode response: %w", err)
	}
	if out.TxHash == "" {
		return common.Hash{}, fmt.Errorf("paymaster: relay accepted without tx hash: %s", out.ErrorMsg)
	}

	return common.HexToHash(out.TxHash), nil
}
