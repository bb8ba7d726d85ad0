package jupiter

// Quote is the aggregator's proposed route for a swap. It is passed back
// verbatim in the swap request, so unknown fields must round-trip; the raw
// response is kept alongside the decoded fields.
type Quote struct {
	InputMint            string `json:"inputMint"`
	InAmount             string `json:"inAmount"`
	OutputMint           string `json:"outputMint"`
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	SwapMode             string `json:"swapMode"`
	SlippageBps          int    `json:"slippageBps"`
	PriceImpactPct       string `json:"priceImpactPct"`

	raw []byte
}

// Raw returns the undecoded quote response body for the swap request.
func (q *Quote) Raw() []byte {
	return q.raw
}

// quoteError is the aggregator's error envelope.
type quoteError struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
}

// swapRequest is the payload for POST /v6/swap.
type swapRequest struct {
	QuoteResponse    any    `json:"quoteResponse"`
	UserPublicKey    string `json:"userPublicKey"`
	WrapAndUnwrapSol bool   `json:"wrapAndUnwrapSol"`
}

// swapResponse carries the serialized, ready-to-sign transaction.
type swapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight int64  `json:"lastValidBlockHeight"`
}
