package funnel

import (
	"context"
	"log/slog"

	"github.com/Proton-105/funnel-bot/internal/state"
	"github.com/Proton-105/funnel-bot/pkg/metrics"
)

// fireRetention is the timer body. It sends the nudge only if seq still
// identifies the user's pending timer and the user has not completed.
func (s *Service) fireRetention(userID, chatID int64, seq uint64) {
	outcome := "skipped_stale"
	content := s.Content()

	s.store.Update(userID, func(st *state.UserFunnelState) {
		if st.TimerSeq != seq || st.PendingTimer == nil {
			return
		}
		if st.IsCompleted() {
			outcome = "skipped_completed"
			st.CancelTimer()
			return
		}

		// The nudge is spent even when the queue rejects it: there is no
		// second attempt and a later /start does not schedule another one.
		st.PendingTimer = nil
		st.TimerSeq = 0
		st.RetentionSentAt = s.clock.Now()
		outcome = "sent"
		if !s.notify(context.Background(), userID, chatID, content.retentionMessage()) {
			outcome = "enqueue_failed"
		}
	})

	metrics.RecordFunnelEvent("retention", outcome)
	s.log.Debug("retention timer fired",
		slog.Int64("user_id", userID),
		slog.Uint64("seq", seq),
		slog.String("outcome", outcome),
	)
}
