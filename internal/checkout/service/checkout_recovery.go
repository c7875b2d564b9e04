package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	r "github.com/looprex/checkout/internal/checkout/repository"
	"github.com/looprex/checkout/internal/checkout/submission"
	"go.uber.org/zap"
)

const abandonedReason = "checkout abandoned before submission finished"

// RecoverStuckSessions fails sessions that stayed INITIATED or SUBMITTING
// since before updatedBefore, typically because the process stopped
// mid-submission. It returns the number of sessions recovered.
func (s *CheckoutServiceImpl) RecoverStuckSessions(ctx context.Context, updatedBefore time.Time) (int, error) {
	sessions, err := s.repo.GetStuckSessions(ctx, updatedBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to load stuck sessions: %w", err)
	}

	recovered := 0
	for _, session := range sessions {
		log := s.log.With(
			zap.String("checkout_id", session.ID),
			zap.Stringer("status", session.Status),
			zap.Time("updated_at", session.UpdatedAt),
		)

		err := s.fail(ctx, session, session.OrderID, submission.Wire{Message: abandonedReason}, abandonedReason)
		if errors.Is(err, r.ErrStatusConflict) {
			// finished by its own request in the meantime
			continue
		}
		if err != nil {
			log.Error("failed to recover stuck session", zap.Error(err))
			continue
		}
		log.Warn("stuck checkout session marked as failed")
		recovered++
	}
	return recovered, nil
}
