package database

import (
	"time"
)

// Article analysis lifecycle states. Transitions are
// pending -> processing -> {completed, failed}; completed articles
// return to pending only through content-hash drift detection.
const (
	AnalysisPending    = "pending"
	AnalysisProcessing = "processing"
	AnalysisCompleted  = "completed"
	AnalysisFailed     = "failed"
)

// Feed represents a configured news source.
type Feed struct {
	ID            string // Database UUID
	Name          string // Derived from source definition filename
	URL           string
	Category      string
	Enabled       bool
	LastFetchedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LLMMetadata holds the structured enrichment extracted for an article.
type LLMMetadata struct {
	Entities []string `json:"entities"`
	Topics   []string `json:"topics"`
	KeyFacts []string `json:"key_facts"`
}

// Article is a fetched news item plus its enrichment fields.
type Article struct {
	ID          string
	FeedID      string
	FeedName    string
	GUID        string
	Title       string
	Link        string
	Description string
	Content     string
	Author      string
	Thumbnail   string
	PublishedAt time.Time
	FetchedAt   time.Time

	AnalysisStatus string
	ContentHash    string
	LLMCategory    string
	LLMSentiment   string
	LLMMetadata    *LLMMetadata
	AnalyzedAt     *time.Time
}

// Topic is a clustered, titled, summarized group of related articles.
type Topic struct {
	ID              string
	Title           string
	Summary         string
	LLMSummary      string
	Keywords        []string
	Thumbnail       string
	ArticleCount    int
	Category        string
	ImportanceScore float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DisplaySummary returns the summary preferred for presentation.
func (t Topic) DisplaySummary() string {
	if t.LLMSummary != "" {
		return t.LLMSummary
	}
	return t.Summary
}
