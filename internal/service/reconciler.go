package service

import (
	"context"
	"time"

	"workhive/internal/middleware"
	"workhive/internal/observability"
	"workhive/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	// reconcileGrace keeps the scan away from rows an in-flight transaction
	// might still be writing.
	reconcileGrace = 5 * time.Minute

	reconcileBatchSize = 500
)

// Reconciler repairs interrupted dual writes: message copies that exist in
// only one partition get their missing twin re-inserted with an identical
// payload. Rows like this predate the transactional delivery path or were
// imported from elsewhere.
type Reconciler struct {
	chatRepo repository.ChatRepository
	interval time.Duration
}

// NewReconciler returns a reconciler that runs a pass every interval.
func NewReconciler(chatRepo repository.ChatRepository, interval time.Duration) *Reconciler {
	return &Reconciler{chatRepo: chatRepo, interval: interval}
}

// Run blocks until ctx is cancelled, executing one pass per interval tick.
func (r *Reconciler) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if repaired, err := r.Pass(ctx); err != nil {
				middleware.Logger.ErrorContext(ctx, "chat partition reconcile pass failed", "error", err)
			} else if repaired > 0 {
				middleware.Logger.InfoContext(ctx, "repaired singleton chat copies", "count", repaired)
			}
		}
	}
}

// Pass executes a single reconciliation sweep and returns how many copies it
// repaired.
func (r *Reconciler) Pass(ctx context.Context) (int, error) {
	span, ctx := observability.NewSpan(ctx, "chat.reconcile_pass")
	defer span.End()

	cutoff := time.Now().Add(-reconcileGrace)
	singletons, err := r.chatRepo.FindSingletonCopies(ctx, cutoff, reconcileBatchSize)
	if err != nil {
		span.SetError(err)
		return 0, err
	}

	repaired := 0
	for _, row := range singletons {
		twin := row
		twin.ID = 0
		twin.PartitionOwnerID = row.Counterparty()
		if err := r.chatRepo.InsertCopy(ctx, &twin); err != nil {
			span.SetError(err)
			return repaired, err
		}
		middleware.PartitionRepairs.Inc()
		repaired++
	}
	span.AddAttributes(attribute.Int("chat.repaired", repaired))
	return repaired, nil
}
