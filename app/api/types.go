package api

import (
	"newspulse/app/analysis"
	"newspulse/app/database"
	"newspulse/app/llm"
	"newspulse/app/tasks"
	"newspulse/app/topics"
)

type Handler struct {
	feedRepo    database.FeedRepository
	articleRepo database.ArticleRepository
	topicRepo   database.TopicRepository
	analyzer    *analysis.Analyzer
	llmClient   llm.Client
	builder     *topics.Builder
	ranker      *topics.Ranker
	scheduler   tasks.TaskSchedulerInterface
}

// topicResponse is the wire shape of a topic.
type topicResponse struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Summary      string            `json:"summary"`
	Keywords     []string          `json:"keywords"`
	Thumbnail    string            `json:"thumbnail,omitempty"`
	ArticleCount int               `json:"article_count"`
	Category     string            `json:"category,omitempty"`
	Importance   float64           `json:"importance_score"`
	CreatedAt    string            `json:"created_at"`
	UpdatedAt    string            `json:"updated_at"`
	RankingScore *float64          `json:"ranking_score,omitempty"`
	Sources      []string          `json:"sources,omitempty"`
	Articles     []articleResponse `json:"articles,omitempty"`
}

type articleResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Source      string `json:"source,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Category    string `json:"category,omitempty"`
	Sentiment   string `json:"sentiment,omitempty"`
	PublishedAt string `json:"published_at"`
}
