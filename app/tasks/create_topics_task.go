package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newspulse/app/topics"
)

type CreateTopicsTask struct {
	Task
	builder  *topics.Builder
	lookback time.Duration
	refresh  bool
}

func NewCreateTopicsTask(builder *topics.Builder, lookback time.Duration, refresh bool) *CreateTopicsTask {
	return &CreateTopicsTask{
		Task:     NewTask(TaskTypeCreateTopics, "topics"),
		builder:  builder,
		lookback: lookback,
		refresh:  refresh,
	}
}

func (t *CreateTopicsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	since := time.Now().UTC().Add(-t.lookback)

	var created int
	var err error
	if t.refresh {
		topicList, refreshErr := t.builder.Refresh(ctx, since)
		created, err = len(topicList), refreshErr
	} else {
		topicList, createErr := t.builder.CreateTopics(ctx, since)
		created, err = len(topicList), createErr
	}
	if err != nil {
		return fmt.Errorf("topic creation failed: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"refresh", t.refresh,
		"created", created)

	return nil
}
