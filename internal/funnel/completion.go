package funnel

import (
	"context"
	"log/slog"

	"github.com/Proton-105/funnel-bot/internal/state"
	"github.com/Proton-105/funnel-bot/pkg/metrics"
)

// Complete handles the checkout result reported for the user. Only an
// approved status changes state; it does so once per user.
func (s *Service) Complete(ctx context.Context, userID, chatID int64, raw string) CompleteOutcome {
	outcome := s.complete(ctx, userID, chatID, raw)
	metrics.RecordFunnelEvent("complete", string(outcome))
	return outcome
}

func (s *Service) complete(ctx context.Context, userID, chatID int64, raw string) CompleteOutcome {
	if userID == 0 || chatID == 0 {
		return CompleteIgnored
	}

	payload := ParsePayload(raw)
	content := s.Content()

	if !payload.Approved() {
		s.log.Info("checkout status not approved",
			slog.Int64("user_id", userID),
			slog.String("status", payload.Status),
		)
		if ack, ok := content.ackMessage(); ok {
			s.notify(ctx, userID, chatID, ack)
		}
		return CompleteUnrecognized
	}

	outcome := CompleteCompleted
	var order *Order

	s.store.Update(userID, func(st *state.UserFunnelState) {
		if st.IsCompleted() {
			outcome = CompleteDuplicate
			return
		}

		if err := st.TransitionTo(state.StatusCompleted); err != nil {
			s.log.Error("completion transition rejected", slog.Int64("user_id", userID), slog.Any("error", err))
			outcome = CompleteIgnored
			return
		}

		st.CancelTimer()

		st.UserID = userID
		st.ChatID = chatID
		st.CompletedAt = s.clock.Now()
		st.OrderID = payload.OrderID
		if payload.Package != "" {
			st.SelectedPackage = payload.Package
		}

		s.notify(ctx, userID, chatID, content.terminalMessage())

		order = &Order{
			UserID:      userID,
			ChatID:      chatID,
			Package:     st.SelectedPackage,
			OrderID:     payload.OrderID,
			Amount:      payload.Amount,
			Currency:    payload.Currency,
			Source:      payload.Source,
			CompletedAt: st.CompletedAt,
		}
	})

	switch outcome {
	case CompleteDuplicate:
		s.log.Info("duplicate completion acknowledged", slog.Int64("user_id", userID), slog.String("order_id", payload.OrderID))
	case CompleteCompleted:
		s.log.Info("checkout completed",
			slog.Int64("user_id", userID),
			slog.String("pkg", order.Package),
			slog.String("order_id", order.OrderID),
		)
		s.publish(ctx, *order)
	}

	return outcome
}

func (s *Service) publish(ctx context.Context, order Order) {
	if s.listener == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.listener.OrderCompleted(context.WithoutCancel(ctx), order)
	}()
}
