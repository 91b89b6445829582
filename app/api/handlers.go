package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"newspulse/app/analysis"
	"newspulse/app/cfg"
	"newspulse/app/database"
	"newspulse/app/llm"
	"newspulse/app/tasks"
	"newspulse/app/topics"
)

const topicArticleLimit = 20

func NewHandler(feedRepo database.FeedRepository, articleRepo database.ArticleRepository,
	topicRepo database.TopicRepository, analyzer *analysis.Analyzer, llmClient llm.Client,
	builder *topics.Builder, ranker *topics.Ranker, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		feedRepo:    feedRepo,
		articleRepo: articleRepo,
		topicRepo:   topicRepo,
		analyzer:    analyzer,
		llmClient:   llmClient,
		builder:     builder,
		ranker:      ranker,
		scheduler:   scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		health["feeds"] = feedCount
	}
	if topicCount, err := h.topicRepo.GetTopicCount(); err == nil {
		health["topics"] = topicCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	appCfg := cfg.Get()

	stats := map[string]interface{}{
		"llm": map[string]interface{}{
			"enabled":   appCfg.LLMEnabled,
			"available": h.analyzer != nil,
			"provider":  appCfg.LLMProvider,
		},
	}

	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		stats["feeds"] = feedCount
	}
	if topicCount, err := h.topicRepo.GetTopicCount(); err == nil {
		stats["topics"] = topicCount
	}

	articleStats := map[string]interface{}{}
	if total, err := h.articleRepo.GetArticleCount(); err == nil {
		articleStats["total"] = total
	}
	if statusCounts, err := h.articleRepo.GetStatusCounts(); err == nil {
		articleStats["by_status"] = statusCounts
	}
	stats["articles"] = articleStats

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListTopics(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, 50)
		}
	}
	includeArticles := c.Query("include_articles") == "true"

	topicList, err := h.topicRepo.GetTopics(limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_topics", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	responses := make([]topicResponse, 0, len(topicList))
	for _, topic := range topicList {
		response := makeTopicResponse(topic)
		if includeArticles {
			articles, err := h.topicRepo.GetTopicArticles(topic.ID, topicArticleLimit)
			if err != nil {
				slog.Error("Database error", "operation", "get_topic_articles", "topic", topic.ID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
				return
			}
			response.Articles = makeArticleResponses(articles)
		}
		responses = append(responses, response)
	}

	c.JSON(http.StatusOK, gin.H{
		"topics": responses,
		"count":  len(responses),
	})
}

func (h *Handler) GetTopic(c *gin.Context) {
	id := c.Param("id")

	topic, err := h.topicRepo.GetTopic(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_topic", "topic", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if topic == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Topic not found"})
		return
	}

	articles, err := h.topicRepo.GetTopicArticles(topic.ID, topicArticleLimit)
	if err != nil {
		slog.Error("Database error", "operation", "get_topic_articles", "topic", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := makeTopicResponse(*topic)
	response.Articles = makeArticleResponses(articles)

	c.JSON(http.StatusOK, gin.H{"topic": response})
}

func (h *Handler) GetTopTopics(c *gin.Context) {
	ranked, err := h.ranker.Rank()
	if err != nil {
		slog.Error("Ranking failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ranking failed"})
		return
	}

	responses := make([]topicResponse, 0, len(ranked))
	for _, entry := range ranked {
		response := makeTopicResponse(entry.Topic)
		score := entry.Score
		response.RankingScore = &score
		response.Sources = entry.Sources
		responses = append(responses, response)
	}

	c.JSON(http.StatusOK, gin.H{
		"topics": responses,
		"count":  len(responses),
	})
}

const askContextArticles = 10

type askTopicRequest struct {
	Question string `json:"question"`
}

type askSource struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	Link   string `json:"link"`
}

// AskTopic answers a free-form question about a topic, grounded in the
// topic's member articles.
func (h *Handler) AskTopic(c *gin.Context) {
	id := c.Param("id")

	topic, err := h.topicRepo.GetTopic(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_topic", "topic", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if topic == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Topic not found"})
		return
	}

	var req askTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Question is required"})
		return
	}

	if h.llmClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":  "LLM not configured",
			"answer": "AI Q&A is not available. Please configure an LLM provider (set LLM_ENABLED=true and provide API keys).",
		})
		return
	}

	articles, err := h.topicRepo.GetTopicArticles(topic.ID, askContextArticles)
	if err != nil {
		slog.Error("Database error", "operation", "get_topic_articles", "topic", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	contextParts := make([]string, 0, len(articles))
	sources := make([]askSource, 0, len(articles))
	for _, article := range articles {
		contextParts = append(contextParts, fmt.Sprintf("Article from %s:\nTitle: %s\n%s",
			article.FeedName, article.Title, article.Description))
		sources = append(sources, askSource{
			Title:  article.Title,
			Source: article.FeedName,
			Link:   article.Link,
		})
	}

	system := fmt.Sprintf(`You are a helpful news assistant. Answer questions based on the provided news articles about the topic "%s".

Be concise and factual. If the articles don't contain enough information to answer the question, say so.
Base your answer only on the provided articles, not on external knowledge.
Keep your response under 200 words.`, topic.Title)

	prompt := fmt.Sprintf(`Here are news articles about "%s":

%s

Question: %s

Please provide a helpful, accurate answer based on these articles.`,
		topic.Title, strings.Join(contextParts, "\n\n"), req.Question)

	answer, err := h.llmClient.Complete(c.Request.Context(), llm.Request{
		Prompt:    prompt,
		System:    system,
		MaxTokens: 500,
	})
	if err != nil {
		slog.Error("Topic question failed", "topic", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  err.Error(),
			"answer": "Sorry, I encountered an error processing your question. Please try again.",
		})
		return
	}

	if len(sources) > 5 {
		sources = sources[:5]
	}

	c.JSON(http.StatusOK, gin.H{
		"answer":  answer,
		"topic":   topic.Title,
		"sources": sources,
	})
}

// GetSimilarArticles returns recent articles related to a topic but not
// part of it, matched by the topic's category when it has one.
func (h *Handler) GetSimilarArticles(c *gin.Context) {
	id := c.Param("id")

	topic, err := h.topicRepo.GetTopic(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_topic", "topic", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if topic == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Topic not found"})
		return
	}

	limit := 5
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, 10)
		}
	}

	articles, err := h.topicRepo.GetSimilarArticles(topic.ID, topic.Category, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_similar_articles", "topic", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	similar := make([]gin.H, 0, len(articles))
	for _, article := range articles {
		similar = append(similar, gin.H{
			"id":           article.ID,
			"title":        article.Title,
			"thumbnail":    article.Thumbnail,
			"source":       article.FeedName,
			"published_at": article.PublishedAt.Format(time.RFC3339),
			"link":         article.Link,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"similar": similar,
		"count":   len(similar),
	})
}

// GetTopicImages collects the distinct article thumbnails of a topic for
// gallery display.
func (h *Handler) GetTopicImages(c *gin.Context) {
	id := c.Param("id")

	topic, err := h.topicRepo.GetTopic(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_topic", "topic", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if topic == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Topic not found"})
		return
	}

	limit := 12
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, 20)
		}
	}

	articles, err := h.topicRepo.GetTopicArticles(topic.ID, topicArticleLimit)
	if err != nil {
		slog.Error("Database error", "operation", "get_topic_articles", "topic", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	seen := make(map[string]bool)
	images := make([]gin.H, 0, limit)
	for _, article := range articles {
		if article.Thumbnail == "" || seen[article.Thumbnail] {
			continue
		}
		seen[article.Thumbnail] = true
		images = append(images, gin.H{
			"url":          article.Thumbnail,
			"title":        article.Title,
			"source":       article.FeedName,
			"article_link": article.Link,
		})
		if len(images) >= limit {
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"images":      images,
		"count":       len(images),
		"topic_title": topic.Title,
	})
}

type triggerAnalysisRequest struct {
	Limit        *int  `json:"limit"`
	CreateTopics *bool `json:"create_topics"`
}

// APITriggerAnalysis runs the analysis pipeline synchronously and
// optionally rebuilds topics from the result.
func (h *Handler) APITriggerAnalysis(c *gin.Context) {
	if h.analyzer == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "LLM is not configured or available",
			"message": "Set LLM_ENABLED=true and provide an API key",
		})
		return
	}

	appCfg := cfg.Get()

	limit := appCfg.AnalysisLimit
	createTopics := true

	var req triggerAnalysisRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		if req.Limit != nil && *req.Limit > 0 {
			limit = *req.Limit
		}
		if req.CreateTopics != nil {
			createTopics = *req.CreateTopics
		}
	}

	stats, err := h.analyzer.Run(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Triggered analysis failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Analysis failed",
			"message": err.Error(),
		})
		return
	}

	result := gin.H{
		"message":        "Analysis complete",
		"analysis":       stats,
		"topics_created": 0,
	}

	if createTopics && stats.Succeeded > 0 {
		since := time.Now().UTC().Add(-time.Duration(appCfg.LookbackHours) * time.Hour)
		created, err := h.builder.CreateTopics(c.Request.Context(), since)
		if err != nil {
			slog.Error("Topic creation after analysis failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Topic creation failed",
				"message": err.Error(),
			})
			return
		}
		result["topics_created"] = len(created)
	}

	c.JSON(http.StatusOK, result)
}

type refreshTopicsRequest struct {
	Hours *int `json:"hours"`
}

// APIRefreshTopics drops all topics and rebuilds them from scratch.
func (h *Handler) APIRefreshTopics(c *gin.Context) {
	appCfg := cfg.Get()

	hours := appCfg.TopicMaxAgeHours
	var req refreshTopicsRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		if req.Hours != nil && *req.Hours > 0 {
			hours = *req.Hours
		}
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	created, err := h.builder.Refresh(c.Request.Context(), since)
	if err != nil {
		slog.Error("Topic refresh failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Topic refresh failed",
			"message": err.Error(),
		})
		return
	}

	responses := make([]topicResponse, 0, len(created))
	for _, topic := range created {
		responses = append(responses, makeTopicResponse(topic))
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Topics refreshed",
		"count":   len(created),
		"topics":  responses,
	})
}

// APIRebuildTopics enqueues an out-of-cycle topic creation run instead of
// waiting for the next scheduler tick.
func (h *Handler) APIRebuildTopics(c *gin.Context) {
	task := tasks.NewCreateTopicsTask(h.builder, time.Duration(cfg.Get().LookbackHours)*time.Hour, false)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Failed to enqueue topic creation", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue task"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Topic creation enqueued",
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}

func makeTopicResponse(topic database.Topic) topicResponse {
	return topicResponse{
		ID:           topic.ID,
		Title:        topic.Title,
		Summary:      topic.DisplaySummary(),
		Keywords:     topic.Keywords,
		Thumbnail:    topic.Thumbnail,
		ArticleCount: topic.ArticleCount,
		Category:     topic.Category,
		Importance:   topic.ImportanceScore,
		CreatedAt:    topic.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    topic.UpdatedAt.Format(time.RFC3339),
	}
}

func makeArticleResponses(articles []database.Article) []articleResponse {
	responses := make([]articleResponse, 0, len(articles))
	for _, article := range articles {
		responses = append(responses, articleResponse{
			ID:          article.ID,
			Title:       article.Title,
			Link:        article.Link,
			Source:      article.FeedName,
			Thumbnail:   article.Thumbnail,
			Category:    article.LLMCategory,
			Sentiment:   article.LLMSentiment,
			PublishedAt: article.PublishedAt.Format(time.RFC3339),
		})
	}
	return responses
}
