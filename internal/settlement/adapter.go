// Package settlement defines the capability contract between the deal
// lifecycle and the backend that actually moves value. The coordinator
// never holds funds; it hands a frozen deal snapshot to an Adapter and
// records the outcome.
package settlement

import (
	"context"

	"github.com/taklabs/coordinator/pkg/model"
)

// Adapter executes the payment for a sealed deal and returns an opaque
// receipt. Implementations are injected at construction and must be
// swappable without changing the lifecycle manager.
//
// The caller invokes ExecutePayment at most once per execute call and
// never retries internally: any returned error is treated as a
// settlement failure, not a transient hiccup.
type Adapter interface {
	// Name identifies the backend in logs and receipts.
	Name() string
	// ExecutePayment settles the snapshot and returns a receipt string.
	ExecutePayment(ctx context.Context, snap model.DealSnapshot) (string, error)
}
