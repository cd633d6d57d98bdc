package tasks_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-cart/internal/events"
	"github.com/noah-isme/toko-cart/internal/tasks"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t-1", Queue: tasks.QueueEvents}, nil
}

func orderEvent(t *testing.T, number string, at time.Time) events.Event {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"orderNumber": number,
		"sessionId":   "s-1",
		"itemCount":   10,
		"totals":      map[string]any{"totalBeforeDiscount": 100000, "totalAfterDiscount": 80000},
	})
	require.NoError(t, err)
	return events.Event{ID: uuid.New(), Topic: events.TopicOrderCompleted, AggregateID: number, Payload: payload, OccurredAt: at}
}

func TestNotifierFiltersTopics(t *testing.T) {
	fake := &fakeEnqueuer{}
	n := tasks.NewNotifier(fake, zerolog.Nop(), events.TopicOrderCompleted)
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, orderEvent(t, "ORD-1", time.Now())))
	require.NoError(t, n.Notify(ctx, events.Event{ID: uuid.New(), Topic: events.TopicCouponCreated, AggregateID: "X"}))

	require.Len(t, fake.tasks, 1)
	require.Equal(t, "event:order.completed", fake.tasks[0].Type())

	decoded, err := tasks.DecodeEvent(fake.tasks[0])
	require.NoError(t, err)
	require.Equal(t, "ORD-1", decoded.AggregateID)
}

func TestNotifierIgnoresDuplicates(t *testing.T) {
	n := tasks.NewNotifier(&fakeEnqueuer{err: asynq.ErrTaskIDConflict}, zerolog.Nop())
	require.NoError(t, n.Notify(context.Background(), orderEvent(t, "ORD-1", time.Now())))

	n = tasks.NewNotifier(&fakeEnqueuer{err: errors.New("redis down")}, zerolog.Nop())
	require.Error(t, n.Notify(context.Background(), orderEvent(t, "ORD-1", time.Now())))
}

func TestHandleOrderCompletedRecordsStats(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := &tasks.Handler{Stats: tasks.SalesStats{R: client}, Logger: zerolog.Nop()}
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	for _, number := range []string{"ORD-1", "ORD-2", "ORD-1"} {
		payload, err := json.Marshal(orderEvent(t, number, at))
		require.NoError(t, err)
		require.NoError(t, h.HandleOrderCompleted(ctx, asynq.NewTask(tasks.TypeFor(events.TopicOrderCompleted), payload)))
	}

	day, err := h.Stats.Daily(ctx, "2026-05-01")
	require.NoError(t, err)
	require.Equal(t, int64(2), day.Orders)
	require.Equal(t, int64(20), day.Items)
	require.Equal(t, int64(200000), day.GrossTotal)
	require.Equal(t, int64(160000), day.NetTotal)
	require.Equal(t, int64(40000), day.Discount)

	empty, err := h.Stats.Daily(ctx, "2026-05-02")
	require.NoError(t, err)
	require.Zero(t, empty.Orders)

	_, err = h.Stats.Daily(ctx, "May 1")
	require.Error(t, err)
}

func TestRecordRetriesAfterFailedWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	stats := tasks.SalesStats{R: client}
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, mr.Set("stats:sales:2026-05-01", "corrupt"))
	require.Error(t, stats.Record(ctx, "ORD-9", at, 2, 20000, 20000))
	require.False(t, mr.Exists("stats:sales:seen:ORD-9"))

	mr.Del("stats:sales:2026-05-01")
	require.NoError(t, stats.Record(ctx, "ORD-9", at, 2, 20000, 20000))
	require.NoError(t, stats.Record(ctx, "ORD-9", at, 2, 20000, 20000))

	day, err := stats.Daily(ctx, "2026-05-01")
	require.NoError(t, err)
	require.Equal(t, int64(1), day.Orders)
	require.Equal(t, int64(2), day.Items)
	require.True(t, mr.Exists("stats:sales:seen:ORD-9"))
	require.Greater(t, mr.TTL("stats:sales:2026-05-01"), time.Duration(0))
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	h := &tasks.Handler{Logger: zerolog.Nop()}
	err := h.HandleOrderCompleted(context.Background(), asynq.NewTask("event:order.completed", []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	err = h.HandleAudit(context.Background(), asynq.NewTask("event:coupon.created", []byte("nope")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
