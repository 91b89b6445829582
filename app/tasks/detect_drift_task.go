package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"newspulse/app/analysis"
)

type DetectDriftTask struct {
	Task
	analyzer *analysis.Analyzer
}

func NewDetectDriftTask(analyzer *analysis.Analyzer) *DetectDriftTask {
	return &DetectDriftTask{
		Task:     NewTask(TaskTypeDetectDrift, "drift"),
		analyzer: analyzer,
	}
}

func (t *DetectDriftTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	count, err := t.analyzer.DetectDrift(ctx)
	if err != nil {
		return fmt.Errorf("drift detection failed: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"reflagged", count)

	return nil
}
