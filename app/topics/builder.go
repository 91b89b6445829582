package topics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"newspulse/app/database"
)

const (
	topicKeywordLimit = 10

	// Relevance decays by position within a group; the semantic path
	// decays slower because group order reflects the service's ranking.
	semanticRelevanceStep = 0.05
	keywordRelevanceStep  = 0.10
)

// Builder turns grouped articles into persisted topics. When a semantic
// grouper is configured it is tried first; keyword clustering is the
// fallback and the only path otherwise.
type Builder struct {
	articleRepo         database.ArticleRepository
	topicRepo           database.TopicRepository
	grouper             *SemanticGrouper
	titler              *Titler
	similarityThreshold float64
	maxTopicAge         time.Duration
}

func NewBuilder(articleRepo database.ArticleRepository, topicRepo database.TopicRepository,
	grouper *SemanticGrouper, titler *Titler, similarityThreshold float64, maxTopicAge time.Duration) *Builder {
	return &Builder{
		articleRepo:         articleRepo,
		topicRepo:           topicRepo,
		grouper:             grouper,
		titler:              titler,
		similarityThreshold: similarityThreshold,
		maxTopicAge:         maxTopicAge,
	}
}

// CreateTopics prunes stale topics and rebuilds the topic set from
// articles fetched since the given time.
func (b *Builder) CreateTopics(ctx context.Context, since time.Time) ([]database.Topic, error) {
	pruned, err := b.topicRepo.DeleteTopicsOlderThan(time.Now().UTC().Add(-b.maxTopicAge))
	if err != nil {
		return nil, fmt.Errorf("failed to prune stale topics: %w", err)
	}
	if pruned > 0 {
		slog.Info("Pruned stale topics", "count", pruned)
	}

	if b.grouper != nil {
		groups := b.grouper.Run(ctx, since)
		if len(groups) > 0 {
			return b.createFromGroups(ctx, groups)
		}
		slog.Info("No semantic groups found, falling back to keyword clustering")
	}

	return b.createFromClusters(ctx, since)
}

func (b *Builder) createFromGroups(ctx context.Context, groups []Group) ([]database.Topic, error) {
	created := make([]database.Topic, 0, len(groups))

	for _, group := range groups {
		llmSummary := b.titler.Summarize(ctx, group.Articles, group.Title)

		topic := database.Topic{
			Title:           group.Title,
			Summary:         llmSummary,
			LLMSummary:      llmSummary,
			Keywords:        metadataKeywords(group.Articles),
			Thumbnail:       firstThumbnail(group.Articles),
			ArticleCount:    len(group.Articles),
			Category:        group.Category,
			ImportanceScore: group.Importance,
		}

		id, err := b.topicRepo.CreateTopic(topic, relevanceLinks(group.Articles, semanticRelevanceStep))
		if err != nil {
			return created, fmt.Errorf("failed to create topic %q: %w", group.Title, err)
		}
		topic.ID = id
		created = append(created, topic)
	}

	slog.Info("Created topics from semantic groups", "count", len(created))

	return created, nil
}

func (b *Builder) createFromClusters(ctx context.Context, since time.Time) ([]database.Topic, error) {
	articles, err := b.articleRepo.GetArticlesFetchedSince(since)
	if err != nil {
		return nil, fmt.Errorf("failed to load articles for clustering: %w", err)
	}

	clusters := BuildClusters(articles, b.similarityThreshold)

	created := make([]database.Topic, 0, len(clusters))
	for _, cluster := range clusters {
		title, summary, llmSummary := b.titler.Generate(ctx, cluster.Articles)

		keywords := cluster.Keywords
		if len(keywords) > topicKeywordLimit {
			keywords = keywords[:topicKeywordLimit]
		}

		topic := database.Topic{
			Title:           title,
			Summary:         summary,
			LLMSummary:      llmSummary,
			Keywords:        keywords,
			Thumbnail:       bestThumbnail(cluster.Articles),
			ArticleCount:    len(cluster.Articles),
			ImportanceScore: 0.5,
		}

		id, err := b.topicRepo.CreateTopic(topic, relevanceLinks(cluster.Articles, keywordRelevanceStep))
		if err != nil {
			return created, fmt.Errorf("failed to create topic %q: %w", title, err)
		}
		topic.ID = id
		created = append(created, topic)
	}

	slog.Info("Created topics from keyword clusters", "articles", len(articles), "count", len(created))

	return created, nil
}

// Refresh deletes every topic and rebuilds from scratch.
func (b *Builder) Refresh(ctx context.Context, since time.Time) ([]database.Topic, error) {
	if err := b.topicRepo.DeleteAllTopics(); err != nil {
		return nil, fmt.Errorf("failed to clear topics: %w", err)
	}
	return b.CreateTopics(ctx, since)
}

func relevanceLinks(articles []database.Article, step float64) []database.TopicLink {
	links := make([]database.TopicLink, len(articles))
	for i, article := range articles {
		links[i] = database.TopicLink{
			ArticleID:      article.ID,
			RelevanceScore: 1.0 - float64(i)*step,
		}
	}
	return links
}

// metadataKeywords collects the distinct topic keywords extracted during
// analysis, in first-seen order, capped at the topic keyword limit.
func metadataKeywords(articles []database.Article) []string {
	seen := make(map[string]struct{})
	var keywords []string
	for _, article := range articles {
		if article.LLMMetadata == nil {
			continue
		}
		for _, keyword := range article.LLMMetadata.Topics {
			if _, dup := seen[keyword]; dup {
				continue
			}
			seen[keyword] = struct{}{}
			keywords = append(keywords, keyword)
			if len(keywords) == topicKeywordLimit {
				return keywords
			}
		}
	}
	return keywords
}

func firstThumbnail(articles []database.Article) string {
	for _, article := range articles {
		if article.Thumbnail != "" {
			return article.Thumbnail
		}
	}
	return ""
}

// bestThumbnail prefers a real image URL that doesn't look like a site
// icon or logo, settling for any valid URL otherwise.
func bestThumbnail(articles []database.Article) string {
	for _, article := range articles {
		thumb := article.Thumbnail
		if !isHTTPURL(thumb) {
			continue
		}
		lower := strings.ToLower(thumb)
		if strings.Contains(lower, "icon") || strings.Contains(lower, "logo") {
			continue
		}
		return thumb
	}

	for _, article := range articles {
		if isHTTPURL(article.Thumbnail) {
			return article.Thumbnail
		}
	}

	return ""
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
