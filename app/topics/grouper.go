package topics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"newspulse/app/database"
	"newspulse/app/llm"
)

const (
	groupingArticleLimit    = 200
	groupingDescriptionCap  = 300
	groupingResponseBudget  = 2048
	groupingSystemPrompt    = `You are a news analyst that groups related news articles into topics.
Given a list of article titles and descriptions, identify groups of articles that cover the same story or event.
For each group, provide:
1. A compelling topic title (not just copying an article title)
2. The article IDs that belong to this group
3. The category (Politics, Business, Technology, Science, Health, Sports, Entertainment, World, Environment, Opinion)
4. An importance score from 0.0 to 1.0 based on global significance

Only group articles that are clearly about the same specific story/event, not just the same general topic.`
)

// Group is one semantically related set of articles proposed by the
// completion service.
type Group struct {
	Title      string
	Articles   []database.Article
	Category   string
	Importance float64
}

// SemanticGrouper is the preferred grouping path when a completion
// service is available. Keyword clustering remains the fallback.
type SemanticGrouper struct {
	client       llm.Client
	articleRepo  database.ArticleRepository
	minGroupSize int
}

func NewSemanticGrouper(client llm.Client, articleRepo database.ArticleRepository, minGroupSize int) *SemanticGrouper {
	if minGroupSize < 1 {
		minGroupSize = 2
	}
	return &SemanticGrouper{
		client:       client,
		articleRepo:  articleRepo,
		minGroupSize: minGroupSize,
	}
}

type groupingDescriptor struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Topics      []string `json:"topics"`
}

type rawGroup struct {
	Title      string   `json:"title"`
	ArticleIDs []string `json:"article_ids"`
	Category   string   `json:"category"`
	Importance float64  `json:"importance"`
}

type groupingResponse struct {
	Groups []rawGroup `json:"groups"`
}

// Run asks the completion service to group completed articles fetched
// since the given time. It never returns an error: any failure yields an
// empty result so the caller can fall back to keyword clustering.
func (g *SemanticGrouper) Run(ctx context.Context, since time.Time) []Group {
	articles, err := g.articleRepo.GetCompletedSince(since, groupingArticleLimit)
	if err != nil {
		slog.Error("Failed to load articles for grouping", "error", err)
		return nil
	}

	if len(articles) < g.minGroupSize {
		slog.Info("Not enough analyzed articles to group", "count", len(articles))
		return nil
	}

	descriptors := make([]groupingDescriptor, len(articles))
	articleByID := make(map[string]database.Article, len(articles))
	for i, article := range articles {
		var topicKeywords []string
		if article.LLMMetadata != nil {
			topicKeywords = article.LLMMetadata.Topics
		}
		descriptors[i] = groupingDescriptor{
			ID:          article.ID,
			Title:       article.Title,
			Description: truncateRunesafe(article.Description, groupingDescriptionCap),
			Category:    article.LLMCategory,
			Topics:      topicKeywords,
		}
		articleByID[article.ID] = article
	}

	payload, err := json.Marshal(descriptors)
	if err != nil {
		slog.Error("Failed to encode grouping descriptors", "error", err)
		return nil
	}

	prompt := fmt.Sprintf(`Analyze these %d news articles and group related ones:

%s

Respond with JSON in this format:
{
    "groups": [
        {
            "title": "Descriptive Topic Title",
            "article_ids": ["a1", "a2", "a3"],
            "category": "Politics",
            "importance": 0.8
        }
    ]
}

Rules:
- Only group articles that cover the SAME specific story/event
- Each article can only belong to one group
- Groups must have at least %d articles
- Importance: 0.9-1.0 for major breaking news, 0.7-0.8 for significant news, 0.5-0.6 for regular news, below 0.5 for minor news`,
		len(articles), payload, g.minGroupSize)

	var response groupingResponse
	err = g.client.CompleteJSON(ctx, llm.Request{
		Prompt:    prompt,
		System:    groupingSystemPrompt,
		MaxTokens: groupingResponseBudget,
	}, &response)
	if err != nil {
		slog.Error("Semantic grouping failed", "provider", g.client.Name(), "error", err)
		return nil
	}

	var groups []Group
	for _, raw := range response.Groups {
		members := make([]database.Article, 0, len(raw.ArticleIDs))
		for _, id := range raw.ArticleIDs {
			if article, ok := articleByID[id]; ok {
				members = append(members, article)
			}
		}

		if len(members) < g.minGroupSize {
			continue
		}

		importance := raw.Importance
		if importance == 0 {
			importance = 0.5
		}

		title := raw.Title
		if title == "" {
			title = "News Update"
		}

		groups = append(groups, Group{
			Title:      title,
			Articles:   members,
			Category:   raw.Category,
			Importance: importance,
		})
	}

	slog.Info("Semantic grouping complete", "articles", len(articles), "groups", len(groups))

	return groups
}

func truncateRunesafe(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
