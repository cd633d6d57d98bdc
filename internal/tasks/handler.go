package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-cart/internal/events"
)

type orderCompleted struct {
	OrderNumber string `json:"orderNumber"`
	SessionID   string `json:"sessionId"`
	ItemCount   int    `json:"itemCount"`
	Totals      struct {
		TotalBeforeDiscount int64 `json:"totalBeforeDiscount"`
		TotalAfterDiscount  int64 `json:"totalAfterDiscount"`
	} `json:"totals"`
}

// Handler processes event tasks in the worker.
type Handler struct {
	Stats  SalesStats
	Logger zerolog.Logger
}

// Register mounts a handler for every default topic on mux.
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeFor(events.TopicOrderCompleted), h.HandleOrderCompleted)
	for _, topic := range events.DefaultTopics() {
		if topic == events.TopicOrderCompleted {
			continue
		}
		mux.HandleFunc(TypeFor(topic), h.HandleAudit)
	}
}

// HandleOrderCompleted folds a completed order into the daily sales aggregate.
func (h *Handler) HandleOrderCompleted(ctx context.Context, task *asynq.Task) error {
	ev, err := DecodeEvent(task)
	if err != nil {
		return err
	}
	var order orderCompleted
	if err := json.Unmarshal(ev.Payload, &order); err != nil {
		return fmt.Errorf("decode order %s: %v: %w", ev.AggregateID, err, asynq.SkipRetry)
	}
	if order.OrderNumber == "" {
		order.OrderNumber = ev.AggregateID
	}
	if err := h.Stats.Record(ctx, order.OrderNumber, ev.OccurredAt, order.ItemCount, order.Totals.TotalBeforeDiscount, order.Totals.TotalAfterDiscount); err != nil {
		return err
	}
	h.Logger.Info().
		Str("order_number", order.OrderNumber).
		Str("session_id", order.SessionID).
		Int64("total", order.Totals.TotalAfterDiscount).
		Msg("order recorded")
	return nil
}

// HandleAudit writes catalog and coupon changes to the audit log.
func (h *Handler) HandleAudit(_ context.Context, task *asynq.Task) error {
	ev, err := DecodeEvent(task)
	if err != nil {
		return err
	}
	h.Logger.Info().
		Str("event_id", ev.ID.String()).
		Str("topic", ev.Topic).
		Str("aggregate_id", ev.AggregateID).
		Time("occurred_at", ev.OccurredAt).
		RawJSON("payload", ev.Payload).
		Msg("audit")
	return nil
}
