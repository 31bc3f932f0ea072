package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrDeadline is returned when a backend call does not complete within the
// configured wall-clock deadline.
var ErrDeadline = errors.New("backend call deadline elapsed")

const DefaultMaxAttempts = 3

// Caller applies a uniform deadline and retry policy to every backend call
// site. Each call runs on a separate goroutine; if the deadline elapses the
// call is treated as failed and the worker is abandoned rather than
// forcibly terminated, so a stuck worker may keep consuming resources until
// its own transport gives up.
type Caller struct {
	gen         Generator
	deadline    time.Duration
	maxAttempts int
}

func NewCaller(gen Generator, deadline time.Duration) *Caller {
	return &Caller{
		gen:         gen,
		deadline:    deadline,
		maxAttempts: DefaultMaxAttempts,
	}
}

// Generate retries the backend up to the attempt bound. classify inspects
// each raw response: a malformed response consumes an attempt, an empty
// response is retried exactly once before being accepted as the final
// answer, and a usable response short-circuits. When every attempt fails
// the last malformed text is carried in the result so the caller can
// salvage fragments from it.
func (c *Caller) Generate(ctx context.Context, prompt string, schema json.RawMessage, classify func(string) Outcome) Result {
	var (
		emptyRetried bool
		lastText     string
		lastErr      error
	)

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		text, err := c.callOnce(ctx, func(workerCtx context.Context) (string, error) {
			return c.gen.Generate(workerCtx, prompt, schema)
		})
		if err != nil {
			lastErr = err
			slog.Warn("Backend call failed", "attempt", attempt, "error", err)
			continue
		}

		switch classify(text) {
		case OutcomeOK:
			return Result{Status: StatusOK, Text: text}
		case OutcomeEmpty:
			// Empty responses are sometimes a transient backend artifact
			// rather than a true "no records" signal.
			if emptyRetried {
				return Result{Status: StatusEmpty}
			}
			emptyRetried = true
			slog.Debug("Empty backend response, retrying once", "attempt", attempt)
		case OutcomeMalformed:
			lastText = text
			slog.Warn("Malformed backend response", "attempt", attempt, "length", len(text))
		}
	}

	if emptyRetried && lastText == "" && lastErr == nil {
		return Result{Status: StatusEmpty}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no usable response after %d attempts", c.maxAttempts)
	}
	return Result{Status: StatusError, Text: lastText, Err: lastErr}
}

// Count issues a single deadline-bounded count call. Estimation failures
// are recoverable by the caller's default, so no retries are spent here.
func (c *Caller) Count(ctx context.Context, prompt string) (int, error) {
	type counted struct {
		n   int
		err error
	}
	ch := make(chan counted, 1)

	workerCtx := context.WithoutCancel(ctx)
	go func() {
		n, err := c.gen.Count(workerCtx, prompt)
		ch <- counted{n, err}
	}()

	timer := time.NewTimer(c.deadline)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.n, res.err
	case <-timer.C:
		return 0, ErrDeadline
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// callOnce blocks up to the deadline for one generation call. The worker
// goroutine receives a context detached from cancellation: on expiry the
// orchestrator proceeds as if the call failed while the worker finishes (or
// hangs) on its own, and whatever it eventually produces is discarded.
func (c *Caller) callOnce(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	type generated struct {
		text string
		err  error
	}
	ch := make(chan generated, 1)

	workerCtx := context.WithoutCancel(ctx)
	go func() {
		text, err := fn(workerCtx)
		ch <- generated{text, err}
	}()

	timer := time.NewTimer(c.deadline)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.text, res.err
	case <-timer.C:
		return "", ErrDeadline
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
