package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"newspulse/app/analysis"
)

type AnalyzeArticlesTask struct {
	Task
	analyzer *analysis.Analyzer
	limit    int
}

func NewAnalyzeArticlesTask(analyzer *analysis.Analyzer, limit int) *AnalyzeArticlesTask {
	return &AnalyzeArticlesTask{
		Task:     NewTask(TaskTypeAnalyzeArticles, "analysis"),
		analyzer: analyzer,
		limit:    limit,
	}
}

func (t *AnalyzeArticlesTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	stats, err := t.analyzer.Run(ctx, t.limit)
	if err != nil {
		return fmt.Errorf("analysis run failed: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"processed", stats.Processed,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"skipped", stats.Skipped)

	return nil
}
