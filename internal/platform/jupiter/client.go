// Package jupiter is a REST client for the Jupiter swap aggregator. It
// covers the two calls the execution driver needs: quoting a route and
// building the swap transaction for it.
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sentitrade/internal/domain"
)

// Client is the Jupiter v6 REST client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the given API root, e.g.
// "https://quote-api.jup.ag".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetQuote requests a swap route for amount atomic units of inputMint into
// outputMint. It returns domain.ErrNoQuote when the aggregator has no viable
// route and domain.ErrRateLimited on 429 responses.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(slippageBps))

	reqURL := c.baseURL + "/v6/quote?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("jupiter: create quote request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jupiter: quote request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("jupiter: read quote response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.ErrRateLimited
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		var qe quoteError
		_ = json.Unmarshal(body, &qe)
		return nil, fmt.Errorf("%w: %s", domain.ErrNoQuote, qe.Error)
	default:
		return nil, fmt.Errorf("jupiter: quote status %d: %s", resp.StatusCode, truncate(body))
	}

	var quote Quote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("jupiter: decode quote: %w", err)
	}
	if quote.OutAmount == "" || quote.OutAmount == "0" {
		return nil, domain.ErrNoQuote
	}
	quote.raw = body
	return &quote, nil
}

// BuildSwapTransaction asks the aggregator to assemble the swap transaction
// for a previously fetched quote and returns the serialized, unsigned
// transaction bytes.
func (c *Client) BuildSwapTransaction(ctx context.Context, quote *Quote, userPublicKey string) ([]byte, error) {
	payload := swapRequest{
		QuoteResponse:    json.RawMessage(quote.Raw()),
		UserPublicKey:    userPublicKey,
		WrapAndUnwrapSol: true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("jupiter: marshal swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v6/swap", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("jupiter: create swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jupiter: swap request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("jupiter: read swap response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jupiter: swap status %d: %s", resp.StatusCode, truncate(respBody))
	}

	var sr swapResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return nil, fmt.Errorf("jupiter: decode swap response: %w", err)
	}
	if sr.SwapTransaction == "" {
		return nil, fmt.Errorf("jupiter: swap response missing transaction")
	}

	rawTx, err := base64.StdEncoding.DecodeString(sr.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("jupiter: decode swap transaction: %w", err)
	}
	return rawTx, nil
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
