package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"newspulse/app/database"
	"newspulse/app/feed"
)

const fetchTimeout = 30 * time.Second

type FetchFeedTask struct {
	Task
	Source      feed.Source
	httpClient  *http.Client
	parser      *feed.Parser
	feedRepo    database.FeedRepository
	articleRepo database.ArticleRepository
	userAgent   string
}

func NewFetchFeedTask(source feed.Source, httpClient *http.Client, parser *feed.Parser,
	feedRepo database.FeedRepository, articleRepo database.ArticleRepository, userAgent string) *FetchFeedTask {
	return &FetchFeedTask{
		Task:        NewTask(TaskTypeFetchFeed, source.Name),
		Source:      source,
		httpClient:  httpClient,
		parser:      parser,
		feedRepo:    feedRepo,
		articleRepo: articleRepo,
		userAgent:   userAgent,
	}
}

func (t *FetchFeedTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.Source.Enabled {
		slog.Debug("Source disabled, skipping", "feed", t.Source.Name)
		return nil
	}

	feedID, err := t.feedRepo.UpsertFeed(t.Source.Name, t.Source.URL, t.Source.Category)
	if err != nil {
		return fmt.Errorf("failed to register feed: %w", err)
	}

	data, err := t.fetchFeed(ctx, t.Source.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	articles, err := t.parser.Run(data)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	newCount := 0
	for _, article := range articles {
		_, inserted, err := t.articleRepo.UpsertArticle(feedID, article)
		if err != nil {
			return fmt.Errorf("failed to upsert article: %w", err)
		}
		if inserted {
			newCount++
		}
	}

	if err := t.feedRepo.UpdateLastFetched(feedID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update fetch time: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"feed", t.Source.Name,
		"duration", t.GetDuration(),
		"total", len(articles),
		"new", newCount)

	return nil
}

func (t *FetchFeedTask) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
