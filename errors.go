package labcheck

import "errors"

var (
	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("labcheck: invalid configuration")

	// ErrLLMRequest is returned when an LLM agent call fails.
	ErrLLMRequest = errors.New("labcheck: LLM request failed")

	// ErrNoEmbedding is returned when a similarity operation runs without
	// an embedding provider configured.
	ErrNoEmbedding = errors.New("labcheck: embedding provider not configured")
)
