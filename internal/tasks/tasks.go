// Package tasks moves domain events onto asynq queues and processes them in
// the worker.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-cart/internal/events"
)

// QueueEvents is the asynq queue carrying domain events.
const QueueEvents = "events"

// TypePrefix prefixes every event task type, e.g. "event:order.completed".
const TypePrefix = "event:"

// TypeFor returns the task type for a domain event topic.
func TypeFor(topic string) string {
	return TypePrefix + topic
}

// Enqueuer is the subset of *asynq.Client used by Notifier.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier forwards selected domain events to the worker. It implements events.Notifier.
type Notifier struct {
	Client   Enqueuer
	Topics   map[string]struct{}
	MaxRetry int
	Timeout  time.Duration
	Logger   zerolog.Logger
}

// NewNotifier builds a Notifier forwarding topics; no topics forwards every event.
func NewNotifier(client Enqueuer, logger zerolog.Logger, topics ...string) *Notifier {
	set := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		set[t] = struct{}{}
	}
	return &Notifier{Client: client, Topics: set, MaxRetry: 5, Timeout: 30 * time.Second, Logger: logger}
}

// Notify enqueues ev. Duplicate deliveries of the same event id are ignored.
func (n *Notifier) Notify(ctx context.Context, ev events.Event) error {
	if n == nil || n.Client == nil {
		return nil
	}
	if len(n.Topics) > 0 {
		if _, ok := n.Topics[ev.Topic]; !ok {
			return nil
		}
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("tasks: encode event: %w", err)
	}
	opts := []asynq.Option{asynq.Queue(QueueEvents), asynq.TaskID(ev.ID.String())}
	if n.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(n.MaxRetry))
	}
	if n.Timeout > 0 {
		opts = append(opts, asynq.Timeout(n.Timeout))
	}
	info, err := n.Client.EnqueueContext(ctx, asynq.NewTask(TypeFor(ev.Topic), payload), opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("tasks: enqueue %s: %w", ev.Topic, err)
	}
	n.Logger.Debug().Str("task_id", info.ID).Str("queue", info.Queue).Str("topic", ev.Topic).Msg("event enqueued")
	return nil
}

// DecodeEvent reads the domain event carried by task.
func DecodeEvent(task *asynq.Task) (events.Event, error) {
	var ev events.Event
	if err := json.Unmarshal(task.Payload(), &ev); err != nil {
		return events.Event{}, fmt.Errorf("decode %s: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	return ev, nil
}
