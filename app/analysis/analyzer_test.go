package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"newspulse/app/database"
	"newspulse/app/llm"
)

type fakeClient struct {
	jsonResponse string
	jsonErr      error
	calls        int
}

func (c *fakeClient) Name() string {
	return "fake"
}

func (c *fakeClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	return "", fmt.Errorf("not used")
}

func (c *fakeClient) CompleteJSON(ctx context.Context, req llm.Request, out interface{}) error {
	c.calls++
	if c.jsonErr != nil {
		return c.jsonErr
	}
	return json.Unmarshal([]byte(c.jsonResponse), out)
}

type fakeArticleRepo struct {
	pending   []database.Article
	completed []database.Article
	claimed   [][]string
	applied   [][]database.AnalysisUpdate
	reflagged []string
}

func (r *fakeArticleRepo) UpsertArticle(feedID string, article database.NewArticle) (string, bool, error) {
	return "", false, nil
}

func (r *fakeArticleRepo) GetPendingArticles(limit int) ([]database.Article, error) {
	if len(r.pending) > limit {
		return r.pending[:limit], nil
	}
	return r.pending, nil
}

func (r *fakeArticleRepo) ClaimPending(ids []string) ([]string, error) {
	r.claimed = append(r.claimed, ids)
	return ids, nil
}

func (r *fakeArticleRepo) ApplyAnalysis(updates []database.AnalysisUpdate) error {
	r.applied = append(r.applied, updates)
	return nil
}

func (r *fakeArticleRepo) GetCompletedArticles() ([]database.Article, error) {
	return r.completed, nil
}

func (r *fakeArticleRepo) MarkPending(ids []string) (int, error) {
	r.reflagged = append(r.reflagged, ids...)
	return len(ids), nil
}

func (r *fakeArticleRepo) GetArticlesFetchedSince(since time.Time) ([]database.Article, error) {
	return nil, nil
}

func (r *fakeArticleRepo) GetCompletedSince(since time.Time, limit int) ([]database.Article, error) {
	return nil, nil
}

func (r *fakeArticleRepo) GetArticlesForExtraction(since time.Time, limit int) ([]database.ArticleForExtraction, error) {
	return nil, nil
}

func (r *fakeArticleRepo) UpdateContent(articleID, content string) error {
	return nil
}

func (r *fakeArticleRepo) GetArticleCount() (int, error) {
	return 0, nil
}

func (r *fakeArticleRepo) GetStatusCounts() (map[string]int, error) {
	return nil, nil
}

func findUpdate(t *testing.T, batches [][]database.AnalysisUpdate, id string) database.AnalysisUpdate {
	t.Helper()
	for _, batch := range batches {
		for _, update := range batch {
			if update.ID == id {
				return update
			}
		}
	}
	t.Fatalf("No update applied for article %s", id)
	return database.AnalysisUpdate{}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("Expected short string unchanged, got %q", got)
	}
	if got := truncate("abcdef", 3); got != "abc" {
		t.Errorf("Expected abc, got %q", got)
	}

	multibyte := strings.Repeat("日本語テキスト", 10)
	got := truncate(multibyte, 8)
	if !utf8.ValidString(got) {
		t.Errorf("Expected valid UTF-8 after truncation, got %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 8 {
		t.Errorf("Expected 8 runes, got %d (%q)", n, got)
	}
}

func TestContentHash_StableAndSensitive(t *testing.T) {
	a := ContentHash("Title", "Description", "Content")
	b := ContentHash("Title", "Description", "Content")
	c := ContentHash("Title", "Description", "Changed")

	if a != b {
		t.Error("Expected identical inputs to produce identical hashes")
	}
	if a == c {
		t.Error("Expected changed content to produce a different hash")
	}
	if len(a) != 64 {
		t.Errorf("Expected hex-encoded SHA-256 digest, got length %d", len(a))
	}
}

func TestAnalyzerRun_AppliesResultsByPosition(t *testing.T) {
	repo := &fakeArticleRepo{
		pending: []database.Article{
			{ID: "a1", Title: "First", AnalysisStatus: database.AnalysisPending},
			{ID: "a2", Title: "Second", AnalysisStatus: database.AnalysisPending},
		},
	}
	client := &fakeClient{
		jsonResponse: `{"analyses": [
			{"id": 0, "category": "Politics", "sentiment": "neutral", "entities": ["Senate"], "topics": ["vote"], "key_facts": ["passed"]},
			{"id": 1, "category": "Sports", "sentiment": "positive", "entities": [], "topics": ["final"], "key_facts": []}
		]}`,
	}

	analyzer := NewAnalyzer(client, repo, 10)
	stats, err := analyzer.Run(context.Background(), 50)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if stats.Processed != 2 || stats.Succeeded != 2 || stats.Failed != 0 || stats.Skipped != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if len(stats.Batches) != 1 || stats.Batches[0].Succeeded != 2 || stats.Batches[0].Error != "" {
		t.Errorf("Unexpected batch results: %+v", stats.Batches)
	}

	first := findUpdate(t, repo.applied, "a1")
	if first.Status != database.AnalysisCompleted || first.Category != "Politics" {
		t.Errorf("Unexpected update for a1: %+v", first)
	}
	if first.Metadata == nil || len(first.Metadata.Entities) != 1 {
		t.Errorf("Expected metadata applied for a1, got %+v", first.Metadata)
	}
	if first.ContentHash == "" || first.AnalyzedAt == nil {
		t.Errorf("Expected hash and timestamp recorded for a1")
	}

	second := findUpdate(t, repo.applied, "a2")
	if second.Category != "Sports" || second.Sentiment != "positive" {
		t.Errorf("Unexpected update for a2: %+v", second)
	}
}

func TestAnalyzerRun_MissingResultMarksFailed(t *testing.T) {
	repo := &fakeArticleRepo{
		pending: []database.Article{
			{ID: "a1", Title: "First"},
			{ID: "a2", Title: "Second"},
		},
	}
	client := &fakeClient{
		jsonResponse: `{"analyses": [{"id": 0, "category": "Politics", "sentiment": "neutral"}]}`,
	}

	analyzer := NewAnalyzer(client, repo, 10)
	stats, err := analyzer.Run(context.Background(), 50)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if stats.Succeeded != 1 || stats.Failed != 1 {
		t.Errorf("Expected 1 succeeded and 1 failed, got %+v", stats)
	}

	failed := findUpdate(t, repo.applied, "a2")
	if failed.Status != database.AnalysisFailed {
		t.Errorf("Expected a2 marked failed, got %s", failed.Status)
	}
	if failed.Metadata != nil {
		t.Errorf("Expected no metadata on failed article")
	}
}

func TestAnalyzerRun_SkipsUnchangedAnalyzedArticles(t *testing.T) {
	analyzedAt := time.Now().UTC().Add(-time.Hour)
	article := database.Article{
		ID:          "a1",
		Title:       "Stable",
		Description: "Unchanged description",
		AnalyzedAt:  &analyzedAt,
	}
	article.ContentHash = ContentHash(article.Title, article.Description, article.Content)

	repo := &fakeArticleRepo{pending: []database.Article{article}}
	client := &fakeClient{
		jsonResponse: `{"analyses": [{"id": 0, "category": "Politics", "sentiment": "neutral"}]}`,
	}

	analyzer := NewAnalyzer(client, repo, 10)
	stats, err := analyzer.Run(context.Background(), 50)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if stats.Skipped != 1 || stats.Succeeded != 0 {
		t.Errorf("Expected skip for stable hash, got %+v", stats)
	}

	update := findUpdate(t, repo.applied, "a1")
	if update.Status != database.AnalysisCompleted {
		t.Errorf("Expected skipped article re-marked completed, got %s", update.Status)
	}
	if update.Metadata != nil || update.Category != "" {
		t.Errorf("Expected no fresh result consumed on skip, got %+v", update)
	}
}

func TestAnalyzerRun_ProviderErrorFailsBatchOnly(t *testing.T) {
	repo := &fakeArticleRepo{
		pending: []database.Article{
			{ID: "a1", Title: "First"},
			{ID: "a2", Title: "Second"},
		},
	}
	client := &fakeClient{jsonErr: fmt.Errorf("provider unavailable")}

	analyzer := NewAnalyzer(client, repo, 10)
	stats, err := analyzer.Run(context.Background(), 50)
	if err != nil {
		t.Fatalf("Expected provider error contained, got: %v", err)
	}

	if stats.Failed != 2 {
		t.Errorf("Expected both articles failed, got %+v", stats)
	}

	if len(stats.Batches) != 1 {
		t.Fatalf("Expected 1 batch result, got %d", len(stats.Batches))
	}
	batch := stats.Batches[0]
	if batch.Error == "" {
		t.Errorf("Expected batch error recorded, got %+v", batch)
	}
	if batch.Failed != 2 || batch.Succeeded != 0 {
		t.Errorf("Unexpected batch counts: %+v", batch)
	}
}

func TestAnalyzerRun_BatchesIndependently(t *testing.T) {
	var pending []database.Article
	for i := 0; i < 5; i++ {
		pending = append(pending, database.Article{ID: fmt.Sprintf("a%d", i), Title: fmt.Sprintf("Article %d", i)})
	}
	repo := &fakeArticleRepo{pending: pending}
	client := &fakeClient{jsonResponse: `{"analyses": []}`}

	analyzer := NewAnalyzer(client, repo, 2)
	stats, err := analyzer.Run(context.Background(), 50)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if client.calls != 3 {
		t.Errorf("Expected 3 batch calls for 5 articles at size 2, got %d", client.calls)
	}
	if len(repo.applied) != 3 {
		t.Errorf("Expected 3 independent commits, got %d", len(repo.applied))
	}
	if stats.Processed != 5 {
		t.Errorf("Expected all 5 processed, got %d", stats.Processed)
	}

	if len(stats.Batches) != 3 {
		t.Fatalf("Expected 3 batch results, got %d", len(stats.Batches))
	}
	for i, expected := range []int{2, 2, 1} {
		batch := stats.Batches[i]
		if len(batch.ArticleIDs) != expected {
			t.Errorf("Expected %d articles in batch %d, got %v", expected, i, batch.ArticleIDs)
		}
		// Empty response means every member is missing a result
		if batch.Failed != expected || batch.Succeeded != 0 {
			t.Errorf("Unexpected counts in batch %d: %+v", i, batch)
		}
	}
	if stats.Batches[0].ArticleIDs[0] != "a0" || stats.Batches[2].ArticleIDs[0] != "a4" {
		t.Errorf("Expected batch results in claim order, got %+v", stats.Batches)
	}
}

func TestAnalyzerRun_NoPendingArticles(t *testing.T) {
	repo := &fakeArticleRepo{}
	client := &fakeClient{}

	analyzer := NewAnalyzer(client, repo, 10)
	stats, err := analyzer.Run(context.Background(), 50)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stats.Processed != 0 || client.calls != 0 {
		t.Errorf("Expected no work, got %+v with %d calls", stats, client.calls)
	}
}

func TestDetectDrift_ReflagsChangedArticles(t *testing.T) {
	stable := database.Article{ID: "a1", Title: "Stable", Description: "Same"}
	stable.ContentHash = ContentHash(stable.Title, stable.Description, stable.Content)

	drifted := database.Article{ID: "a2", Title: "Drifted", Description: "Now different"}
	drifted.ContentHash = ContentHash(drifted.Title, "Original description", "")

	repo := &fakeArticleRepo{completed: []database.Article{stable, drifted}}
	analyzer := NewAnalyzer(&fakeClient{}, repo, 10)

	count, err := analyzer.DetectDrift(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if count != 1 {
		t.Errorf("Expected 1 article reflagged, got %d", count)
	}
	if len(repo.reflagged) != 1 || repo.reflagged[0] != "a2" {
		t.Errorf("Expected a2 reflagged, got %v", repo.reflagged)
	}
}
