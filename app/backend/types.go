package backend

import (
	"context"
	"encoding/json"
)

// Generator is the external text-generation service that turns raw content
// into candidate structured records. Implementations perform one network
// call per invocation; deadline and retry policy live in Caller.
type Generator interface {
	// Generate produces text for the prompt, constrained by an optional
	// JSON response schema.
	Generate(ctx context.Context, prompt string, schema json.RawMessage) (string, error)

	// Count asks the service to estimate how many records the prompt's
	// content describes.
	Count(ctx context.Context, prompt string) (int, error)
}

// Status tags the final outcome of a backend interaction. Only genuine
// defects surface as Go errors elsewhere; an exhausted retry budget or an
// accepted empty response is an ordinary value.
type Status int

const (
	StatusOK Status = iota
	StatusEmpty
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	default:
		return "error"
	}
}

// Result is the tagged outcome of a retried, deadline-bounded backend call.
type Result struct {
	Status Status
	Text   string // response text for StatusOK; last malformed text for StatusError, if any
	Err    error  // terminal error for StatusError
}

// Outcome classifies a single raw response during retries.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeEmpty
	OutcomeMalformed
)
