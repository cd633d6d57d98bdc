package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-cart/internal/events"
)

type captureNotifier struct {
	events []events.Event
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return c.err
}

func TestEmitPersistsEvent(t *testing.T) {
	store := events.NewMemoryStore()
	notifier := &captureNotifier{}
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	bus := events.Bus{
		Store:     store,
		Notifiers: []events.Notifier{notifier},
		Now:       func() time.Time { return fixed },
	}

	payload := map[string]any{"orderNumber": "ORD-1"}
	event, err := bus.Emit(context.Background(), events.TopicOrderCompleted, "session-1", payload)
	require.NoError(t, err)
	require.Equal(t, events.TopicOrderCompleted, event.Topic)
	require.Equal(t, fixed, event.OccurredAt)
	require.JSONEq(t, `{"orderNumber":"ORD-1"}`, string(event.Payload))
	require.Len(t, store.Events(), 1)
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, notifier.events[0].ID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(notifier.events[0].Payload, &decoded))
	require.Equal(t, "ORD-1", decoded["orderNumber"])
}

func TestEmitValidatesInput(t *testing.T) {
	bus := events.Bus{Store: events.NewMemoryStore()}
	ctx := context.Background()

	_, err := bus.Emit(ctx, " ", "agg", nil)
	require.Error(t, err)

	_, err = bus.Emit(ctx, events.TopicCouponCreated, "", nil)
	require.Error(t, err)

	_, err = bus.Emit(ctx, events.TopicCouponCreated, "agg", "not-json")
	require.Error(t, err)

	var nilBus *events.Bus
	_, err = nilBus.Emit(ctx, events.TopicCouponCreated, "agg", nil)
	require.Error(t, err)
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	boom := errors.New("boom")
	bus := events.Bus{
		Store:     events.NewMemoryStore(),
		Notifiers: []events.Notifier{&captureNotifier{err: boom}, nil, &captureNotifier{}},
	}
	ev, err := bus.Emit(context.Background(), events.TopicProductDeleted, "p1", nil)
	require.ErrorIs(t, err, boom)
	require.JSONEq(t, `{}`, string(ev.Payload))
}
