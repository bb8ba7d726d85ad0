package domain

// TokenInfo describes one tradable instrument: its on-chain mint address,
// decimal precision, and a rough USD price used only for paper trades.
type TokenInfo struct {
	Symbol            string
	Mint              string
	Decimals          int
	EstimatedPriceUSD float64
}

// TokenMap maps an upper-case symbol to its instrument. Append-only
// configuration; not mutated at runtime.
type TokenMap map[string]TokenInfo

// Lookup returns the instrument for symbol (case-insensitive via upper-case
// keys; callers normalize) and whether it is tradable.
func (m TokenMap) Lookup(symbol string) (TokenInfo, bool) {
	info, ok := m[symbol]
	return info, ok
}

// Symbols returns all tradable symbols in unspecified order.
func (m TokenMap) Symbols() []string {
	out := make([]string, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	return out
}
