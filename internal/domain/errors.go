package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyProcessed = errors.New("analysis already has a trade")
	ErrUnsupportedToken = errors.New("unsupported token")
	ErrNoQuote          = errors.New("no quote found")
	ErrRiskRejected     = errors.New("risk limit exceeded")
	ErrRateLimited      = errors.New("rate limited")
)
