// Package operation sequences every state-changing gateway interaction as
// three explicit phases: a local prepare, a remote call, and a local
// finalize. Each phase returns a result; the executor stops at the first
// local failure, but a remote failure still reaches finalize so the record
// always lands on a terminal-for-this-attempt status instead of being left
// silently in flight.
package operation

import (
	"context"

	"github.com/cardforge/connector/internal/gateway"
)

// Phases describes one transactional gateway operation over a prepared value
// of type P (typically the freshly reloaded entity, or a child record
// created during prepare).
type Phases[P any] struct {
	// Prepare reloads the target entity fresh from storage, checks
	// preconditions and persists any child record. A concurrent
	// modification surfaces as the repository's conflict error, which is
	// returned to the caller distinctly from gateway failures.
	Prepare func(ctx context.Context) (P, error)

	// Call performs the remote gateway operation. It must not write
	// locally; its outcome is carried to Finalize, classified error
	// included.
	Call func(ctx context.Context, prepared P) gateway.Response

	// Finalize reloads the record (defending against concurrent updates
	// during the remote call), interprets the gateway result and commits
	// the resulting validated status transition.
	Finalize func(ctx context.Context, prepared P, resp gateway.Response) error
}

// Execute runs the three phases. A Prepare error short-circuits everything.
// A Call failure still runs Finalize; the gateway error is returned to the
// caller after Finalize recorded the failure status. A Finalize error
// (typically a conflict) takes precedence so callers can decide to retry.
func Execute[P any](ctx context.Context, op Phases[P]) (gateway.Response, error) {
	prepared, err := op.Prepare(ctx)
	if err != nil {
		return gateway.Response{}, err
	}

	resp := op.Call(ctx, prepared)

	if err := op.Finalize(ctx, prepared, resp); err != nil {
		return resp, err
	}
	if resp.Error != nil {
		return resp, resp.Error
	}
	return resp, nil
}
