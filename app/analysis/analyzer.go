package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"newspulse/app/database"
	"newspulse/app/llm"
)

// Categories is the fixed classification taxonomy presented to the
// completion service.
var Categories = []string{
	"Politics",
	"Business",
	"Technology",
	"Science",
	"Health",
	"Sports",
	"Entertainment",
	"World",
	"Environment",
	"Opinion",
}

const analysisSystemPrompt = `You are a news article analyzer. For each article, extract:
1. category: One of [Politics, Business, Technology, Science, Health, Sports, Entertainment, World, Environment, Opinion]
2. sentiment: One of [positive, negative, neutral]
3. entities: List of key people, organizations, and places mentioned
4. topics: List of 3-5 topic keywords
5. key_facts: List of 2-3 key facts from the article

Respond with a JSON array containing analysis for each article.`

const descriptionLimit = 500

// Stats aggregates the outcome counters of one analysis run, with one
// BatchResult per committed batch.
type Stats struct {
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Batches   []BatchResult `json:"batches,omitempty"`
}

// BatchResult records one batch's outcome. Batches commit independently,
// so a failed completion call shows up here without affecting the
// batches before or after it.
type BatchResult struct {
	ArticleIDs []string `json:"article_ids"`
	Succeeded  int      `json:"succeeded"`
	Failed     int      `json:"failed"`
	Skipped    int      `json:"skipped"`
	Error      string   `json:"error,omitempty"`
}

func (s *Stats) add(other Stats) {
	s.Processed += other.Processed
	s.Succeeded += other.Succeeded
	s.Failed += other.Failed
	s.Skipped += other.Skipped
	s.Batches = append(s.Batches, other.Batches...)
}

// Analyzer enriches pending articles with category, sentiment, entities,
// topic keywords and key facts, one completion call per batch.
type Analyzer struct {
	client      llm.Client
	articleRepo database.ArticleRepository
	batchSize   int
}

func NewAnalyzer(client llm.Client, articleRepo database.ArticleRepository, batchSize int) *Analyzer {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Analyzer{
		client:      client,
		articleRepo: articleRepo,
		batchSize:   batchSize,
	}
}

// ContentHash digests the analyzable fields of an article. A stable hash
// means the stored analysis is still valid.
func ContentHash(title, description, content string) string {
	payload := fmt.Sprintf("%s|%s|%s", title, description, content)
	hash := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(hash[:])
}

// articleDescriptor is the compact per-article payload sent to the
// completion service. The id is positional within the batch.
type articleDescriptor struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type articleAnalysis struct {
	ID        int      `json:"id"`
	Category  string   `json:"category"`
	Sentiment string   `json:"sentiment"`
	Entities  []string `json:"entities"`
	Topics    []string `json:"topics"`
	KeyFacts  []string `json:"key_facts"`
}

type analysisResponse struct {
	Analyses []articleAnalysis `json:"analyses"`
}

// Run processes up to limit pending articles, most recently fetched first,
// in batches. Each batch claims its members, calls the completion service
// once, and commits its outcomes independently so a later batch's failure
// never affects an earlier one.
func (a *Analyzer) Run(ctx context.Context, limit int) (Stats, error) {
	var stats Stats

	pending, err := a.articleRepo.GetPendingArticles(limit)
	if err != nil {
		return stats, fmt.Errorf("failed to get pending articles: %w", err)
	}

	if len(pending) == 0 {
		slog.Debug("No pending articles to analyze")
		return stats, nil
	}

	slog.Info("Analyzing pending articles", "count", len(pending))

	for start := 0; start < len(pending); start += a.batchSize {
		end := min(start+a.batchSize, len(pending))

		batchStats, err := a.runBatch(ctx, pending[start:end])
		stats.add(batchStats)
		if err != nil {
			return stats, err
		}

		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}
	}

	slog.Info("Analysis run complete",
		"processed", stats.Processed,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"skipped", stats.Skipped)

	return stats, nil
}

func (a *Analyzer) runBatch(ctx context.Context, candidates []database.Article) (Stats, error) {
	var stats Stats

	ids := make([]string, len(candidates))
	for i, article := range candidates {
		ids[i] = article.ID
	}

	claimedIDs, err := a.articleRepo.ClaimPending(ids)
	if err != nil {
		return stats, fmt.Errorf("failed to claim batch: %w", err)
	}

	claimed := make(map[string]bool, len(claimedIDs))
	for _, id := range claimedIDs {
		claimed[id] = true
	}

	batch := make([]database.Article, 0, len(candidates))
	for _, article := range candidates {
		if claimed[article.ID] {
			batch = append(batch, article)
		}
	}

	if len(batch) == 0 {
		return stats, nil
	}

	batchResult := BatchResult{ArticleIDs: make([]string, 0, len(batch))}
	for _, article := range batch {
		batchResult.ArticleIDs = append(batchResult.ArticleIDs, article.ID)
	}

	results, batchErr := a.analyzeBatch(ctx, batch)
	if batchErr != nil {
		batchResult.Error = batchErr.Error()
	}

	byID := make(map[int]articleAnalysis, len(results))
	for _, result := range results {
		byID[result.ID] = result
	}

	now := time.Now().UTC()
	updates := make([]database.AnalysisUpdate, 0, len(batch))

	for i, article := range batch {
		stats.Processed++

		newHash := ContentHash(article.Title, article.Description, article.Content)
		if article.ContentHash == newHash && article.AnalyzedAt != nil {
			updates = append(updates, database.AnalysisUpdate{
				ID:     article.ID,
				Status: database.AnalysisCompleted,
			})
			stats.Skipped++
			batchResult.Skipped++
			continue
		}

		result, ok := byID[i]
		if !ok {
			updates = append(updates, database.AnalysisUpdate{
				ID:     article.ID,
				Status: database.AnalysisFailed,
			})
			stats.Failed++
			batchResult.Failed++
			continue
		}

		analyzedAt := now
		updates = append(updates, database.AnalysisUpdate{
			ID:        article.ID,
			Status:    database.AnalysisCompleted,
			Category:  result.Category,
			Sentiment: result.Sentiment,
			Metadata: &database.LLMMetadata{
				Entities: result.Entities,
				Topics:   result.Topics,
				KeyFacts: result.KeyFacts,
			},
			ContentHash: newHash,
			AnalyzedAt:  &analyzedAt,
		})
		stats.Succeeded++
		batchResult.Succeeded++
	}

	if err := a.articleRepo.ApplyAnalysis(updates); err != nil {
		return stats, fmt.Errorf("failed to apply batch results: %w", err)
	}

	stats.Batches = append(stats.Batches, batchResult)

	return stats, nil
}

// analyzeBatch sends one completion request for the whole batch. Provider
// and parse failures are logged and returned so the batch is recorded as
// failed without aborting the run.
func (a *Analyzer) analyzeBatch(ctx context.Context, batch []database.Article) ([]articleAnalysis, error) {
	descriptors := make([]articleDescriptor, len(batch))
	for i, article := range batch {
		descriptors[i] = articleDescriptor{
			ID:          i,
			Title:       article.Title,
			Description: truncate(article.Description, descriptionLimit),
		}
	}

	payload, err := json.Marshal(descriptors)
	if err != nil {
		slog.Error("Failed to encode batch descriptors", "error", err)
		return nil, fmt.Errorf("failed to encode batch descriptors: %w", err)
	}

	prompt := fmt.Sprintf(`Analyze these %d news articles:

%s

For each article (identified by id), provide analysis in this JSON format:
{
    "analyses": [
        {
            "id": 0,
            "category": "Politics",
            "sentiment": "neutral",
            "entities": ["Person Name", "Organization"],
            "topics": ["topic1", "topic2", "topic3"],
            "key_facts": ["fact 1", "fact 2"]
        }
    ]
}`, len(batch), payload)

	var response analysisResponse
	err = a.client.CompleteJSON(ctx, llm.Request{
		Prompt:    prompt,
		System:    analysisSystemPrompt,
		MaxTokens: 2048,
	}, &response)
	if err != nil {
		slog.Error("Batch analysis failed", "provider", a.client.Name(), "size", len(batch), "error", err)
		return nil, err
	}

	return response.Analyses, nil
}

// DetectDrift re-flags completed articles whose content hash no longer
// matches the hash recorded at analysis time. Returns the number of
// articles returned to pending.
func (a *Analyzer) DetectDrift(ctx context.Context) (int, error) {
	completed, err := a.articleRepo.GetCompletedArticles()
	if err != nil {
		return 0, fmt.Errorf("failed to get completed articles: %w", err)
	}

	var drifted []string
	for _, article := range completed {
		if ContentHash(article.Title, article.Description, article.Content) != article.ContentHash {
			drifted = append(drifted, article.ID)
		}
	}

	if len(drifted) == 0 {
		return 0, nil
	}

	count, err := a.articleRepo.MarkPending(drifted)
	if err != nil {
		return 0, fmt.Errorf("failed to mark articles for reanalysis: %w", err)
	}

	slog.Info("Content drift detected", "reflagged", count)

	return count, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
