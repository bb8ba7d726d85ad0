package jupiter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentitrade/internal/domain"
)

const (
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	solMint  = "So11111111111111111111111111111111111111112"
)

func TestGetQuoteDecodesRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v6/quote", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, usdcMint, q.Get("inputMint"))
		assert.Equal(t, solMint, q.Get("outputMint"))
		assert.Equal(t, "5000000", q.Get("amount"))
		assert.Equal(t, "50", q.Get("slippageBps"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"inputMint":   usdcMint,
			"inAmount":    "5000000",
			"outputMint":  solMint,
			"outAmount":   "33333333",
			"swapMode":    "ExactIn",
			"slippageBps": 50,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	quote, err := c.GetQuote(context.Background(), usdcMint, solMint, 5_000_000, 50)
	require.NoError(t, err)
	assert.Equal(t, "33333333", quote.OutAmount)
	assert.NotEmpty(t, quote.Raw())
}

func TestGetQuoteNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":     "Could not find any route",
			"errorCode": "COULD_NOT_FIND_ANY_ROUTE",
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetQuote(context.Background(), usdcMint, solMint, 5_000_000, 50)
	assert.ErrorIs(t, err, domain.ErrNoQuote)
}

func TestGetQuoteRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetQuote(context.Background(), usdcMint, solMint, 5_000_000, 50)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestBuildSwapTransactionRoundTripsQuote(t *testing.T) {
	rawTx := []byte{1, 2, 3, 4}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v6/swap", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "TestPubkey111", req["userPublicKey"])

		// The quote must be forwarded verbatim, including fields this
		// client never decodes.
		quote, ok := req["quoteResponse"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "opaque", quote["routePlan"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"swapTransaction": base64.StdEncoding.EncodeToString(rawTx),
		})
	}))
	defer srv.Close()

	quote := &Quote{OutAmount: "1", raw: []byte(`{"outAmount":"1","routePlan":"opaque"}`)}

	c := New(srv.URL)
	got, err := c.BuildSwapTransaction(context.Background(), quote, "TestPubkey111")
	require.NoError(t, err)
	assert.Equal(t, rawTx, got)
}
