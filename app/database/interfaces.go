package database

import (
	"time"
)

// NewArticle carries the normalized fields supplied by the feed fetcher.
type NewArticle struct {
	GUID        string
	Title       string
	Link        string
	Description string
	Content     string
	Author      string
	Thumbnail   string
	PublishedAt time.Time
}

// AnalysisUpdate is one article's outcome from an analysis batch.
// A batch of updates is committed in a single transaction.
type AnalysisUpdate struct {
	ID          string
	Status      string
	Category    string
	Sentiment   string
	Metadata    *LLMMetadata
	ContentHash string
	AnalyzedAt  *time.Time
}

// TopicLink pairs a member article with its decaying relevance weight.
type TopicLink struct {
	ArticleID      string
	RelevanceScore float64
}

// ArticleForExtraction is the minimal projection needed by the content
// extraction task.
type ArticleForExtraction struct {
	ID   string
	Link string
}

type FeedRepository interface {
	UpsertFeed(name, url, category string) (string, error)
	GetFeed(name string) (*Feed, error)
	GetEnabledFeeds() ([]Feed, error)
	GetFeedCount() (int, error)
	UpdateLastFetched(feedID string, fetchedAt time.Time) error
}

type ArticleRepository interface {
	UpsertArticle(feedID string, article NewArticle) (string, bool, error)

	GetPendingArticles(limit int) ([]Article, error)
	ClaimPending(ids []string) ([]string, error)
	ApplyAnalysis(updates []AnalysisUpdate) error

	GetCompletedArticles() ([]Article, error)
	MarkPending(ids []string) (int, error)

	GetArticlesFetchedSince(since time.Time) ([]Article, error)
	GetCompletedSince(since time.Time, limit int) ([]Article, error)

	GetArticlesForExtraction(since time.Time, limit int) ([]ArticleForExtraction, error)
	UpdateContent(articleID, content string) error

	GetArticleCount() (int, error)
	GetStatusCounts() (map[string]int, error)
}

type TopicRepository interface {
	CreateTopic(topic Topic, links []TopicLink) (string, error)
	DeleteTopicsOlderThan(cutoff time.Time) (int, error)
	DeleteAllTopics() error

	GetTopics(limit int) ([]Topic, error)
	GetTopic(id string) (*Topic, error)
	GetTopicArticles(topicID string, limit int) ([]Article, error)
	GetSimilarArticles(topicID, category string, limit int) ([]Article, error)
	GetRankingCandidates(limit int) ([]Topic, error)
	GetTopicSources(topicID string, limit int) ([]string, error)
	GetTopicCount() (int, error)
}
