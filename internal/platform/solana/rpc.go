package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// confirmPollInterval is how often the confirmation wait polls signature
// statuses. The overall deadline comes from the caller's context.
const confirmPollInterval = 2 * time.Second

// RPCClient is a minimal Solana JSON-RPC client covering transaction
// submission and confirmation.
type RPCClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewRPCClient creates an RPCClient for the given JSON-RPC endpoint.
func NewRPCClient(endpoint string) *RPCClient {
	return &RPCClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, method string, params []any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("solana: marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("solana: create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("solana: %s request: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("solana: read %s response: %w", method, err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("solana: decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("solana: %s: rpc error %d: %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("solana: decode %s result: %w", method, err)
		}
	}
	return nil
}

// SubmitTransaction sends a signed transaction. Preflight simulation is
// skipped and the RPC node retransmits up to maxRetries times; the state
// machine itself never resubmits. It returns the transaction signature.
func (c *RPCClient) SubmitTransaction(ctx context.Context, signedTx []byte, maxRetries int) (string, error) {
	var signature string
	err := c.call(ctx, "sendTransaction", []any{
		base64.StdEncoding.EncodeToString(signedTx),
		map[string]any{
			"encoding":      "base64",
			"skipPreflight": true,
			"maxRetries":    maxRetries,
		},
	}, &signature)
	if err != nil {
		return "", err
	}
	return signature, nil
}

type latestBlockhashResult struct {
	Value struct {
		Blockhash            string `json:"blockhash"`
		LastValidBlockHeight int64  `json:"lastValidBlockHeight"`
	} `json:"value"`
}

// LatestBlockhash fetches the most recent blockhash, anchoring the
// confirmation wait.
func (c *RPCClient) LatestBlockhash(ctx context.Context) (string, int64, error) {
	var result latestBlockhashResult
	err := c.call(ctx, "getLatestBlockhash", []any{
		map[string]any{"commitment": "confirmed"},
	}, &result)
	if err != nil {
		return "", 0, err
	}
	return result.Value.Blockhash, result.Value.LastValidBlockHeight, nil
}

type signatureStatusesResult struct {
	Value []*struct {
		ConfirmationStatus string          `json:"confirmationStatus"`
		Err                json.RawMessage `json:"err"`
	} `json:"value"`
}

// ConfirmTransaction polls signature statuses until the transaction reaches
// confirmed or finalized commitment. The caller bounds the wait through ctx;
// expiry surfaces as ctx.Err so a pending trade can still be resolved to
// failed.
func (c *RPCClient) ConfirmTransaction(ctx context.Context, signature string) error {
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		var result signatureStatusesResult
		err := c.call(ctx, "getSignatureStatuses", []any{
			[]string{signature},
		}, &result)
		if err == nil && len(result.Value) > 0 && result.Value[0] != nil {
			status := result.Value[0]
			if len(status.Err) > 0 && string(status.Err) != "null" {
				return fmt.Errorf("solana: transaction %s failed on chain: %s", signature, status.Err)
			}
			if status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized" {
				return nil
			}
		}
		// Transient RPC errors and not-yet-known signatures both fall
		// through to the next poll.

		select {
		case <-ctx.Done():
			return fmt.Errorf("solana: confirm %s: %w", signature, ctx.Err())
		case <-ticker.C:
		}
	}
}
