package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"newspulse/app/database"
	"newspulse/app/llm"
)

type stubLLMClient struct {
	answer     string
	err        error
	lastPrompt string
	lastSystem string
	maxTokens  int
}

func (c *stubLLMClient) Name() string { return "stub" }

func (c *stubLLMClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	c.lastPrompt = req.Prompt
	c.lastSystem = req.System
	c.maxTokens = req.MaxTokens
	return c.answer, c.err
}

func (c *stubLLMClient) CompleteJSON(ctx context.Context, req llm.Request, out interface{}) error {
	return fmt.Errorf("not implemented")
}

type stubTopicRepo struct {
	topics   map[string]database.Topic
	articles map[string][]database.Article
	similar  []database.Article

	similarCategory string
	similarLimit    int
}

func (r *stubTopicRepo) CreateTopic(topic database.Topic, links []database.TopicLink) (string, error) {
	return "", nil
}

func (r *stubTopicRepo) DeleteTopicsOlderThan(cutoff time.Time) (int, error) { return 0, nil }

func (r *stubTopicRepo) DeleteAllTopics() error { return nil }

func (r *stubTopicRepo) GetTopics(limit int) ([]database.Topic, error) { return nil, nil }

func (r *stubTopicRepo) GetTopic(id string) (*database.Topic, error) {
	if topic, ok := r.topics[id]; ok {
		return &topic, nil
	}
	return nil, nil
}

func (r *stubTopicRepo) GetTopicArticles(topicID string, limit int) ([]database.Article, error) {
	articles := r.articles[topicID]
	if len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}

func (r *stubTopicRepo) GetSimilarArticles(topicID, category string, limit int) ([]database.Article, error) {
	r.similarCategory = category
	r.similarLimit = limit
	if len(r.similar) > limit {
		return r.similar[:limit], nil
	}
	return r.similar, nil
}

func (r *stubTopicRepo) GetRankingCandidates(limit int) ([]database.Topic, error) { return nil, nil }

func (r *stubTopicRepo) GetTopicSources(topicID string, limit int) ([]string, error) {
	return nil, nil
}

func (r *stubTopicRepo) GetTopicCount() (int, error) { return len(r.topics), nil }

func newTestRouter(topicRepo database.TopicRepository, client llm.Client) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(nil, nil, topicRepo, nil, client, nil, nil, nil)
	r := gin.New()
	r.POST("/topics/:id/ask", handler.AskTopic)
	r.GET("/topics/:id/similar", handler.GetSimilarArticles)
	r.GET("/topics/:id/images", handler.GetTopicImages)
	return r
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	return body
}

func sampleTopicRepo() *stubTopicRepo {
	now := time.Now().UTC()
	return &stubTopicRepo{
		topics: map[string]database.Topic{
			"t1": {ID: "t1", Title: "Storm response", Category: "World", UpdatedAt: now},
		},
		articles: map[string][]database.Article{
			"t1": {
				{ID: "a1", Title: "Coastal towns evacuate", Description: "Thousands moved inland.",
					FeedName: "BBC News", Link: "https://example.org/a1", Thumbnail: "https://img.example.org/1.jpg",
					PublishedAt: now},
				{ID: "a2", Title: "Relief effort begins", Description: "Aid convoys dispatched.",
					FeedName: "Reuters", Link: "https://example.org/a2", Thumbnail: "https://img.example.org/1.jpg",
					PublishedAt: now},
				{ID: "a3", Title: "Storm weakens offshore", FeedName: "AP",
					Link: "https://example.org/a3", PublishedAt: now},
			},
		},
	}
}

func TestAskTopic_RequiresQuestion(t *testing.T) {
	router := newTestRouter(sampleTopicRepo(), &stubLLMClient{})

	recorder := doRequest(router, "POST", "/topics/t1/ask", `{}`)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing question, got %d", recorder.Code)
	}

	recorder = doRequest(router, "POST", "/topics/t1/ask", "")
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty body, got %d", recorder.Code)
	}
}

func TestAskTopic_UnknownTopic(t *testing.T) {
	router := newTestRouter(sampleTopicRepo(), &stubLLMClient{})

	recorder := doRequest(router, "POST", "/topics/missing/ask", `{"question": "What happened?"}`)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown topic, got %d", recorder.Code)
	}
}

func TestAskTopic_UnavailableWithoutClient(t *testing.T) {
	router := newTestRouter(sampleTopicRepo(), nil)

	recorder := doRequest(router, "POST", "/topics/t1/ask", `{"question": "What happened?"}`)
	if recorder.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without a configured client, got %d", recorder.Code)
	}

	body := decodeBody(t, recorder)
	if body["error"] != "LLM not configured" {
		t.Errorf("Unexpected error payload: %v", body)
	}
	if answer, _ := body["answer"].(string); !strings.Contains(answer, "not available") {
		t.Errorf("Expected fallback answer, got %v", body["answer"])
	}
}

func TestAskTopic_AnswersFromArticles(t *testing.T) {
	client := &stubLLMClient{answer: "Coastal towns were evacuated ahead of the storm."}
	router := newTestRouter(sampleTopicRepo(), client)

	recorder := doRequest(router, "POST", "/topics/t1/ask", `{"question": "What happened?"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	body := decodeBody(t, recorder)
	if body["answer"] != client.answer {
		t.Errorf("Expected answer passed through, got %v", body["answer"])
	}
	if body["topic"] != "Storm response" {
		t.Errorf("Expected topic title, got %v", body["topic"])
	}

	sources, _ := body["sources"].([]interface{})
	if len(sources) != 3 {
		t.Fatalf("Expected 3 sources, got %d", len(sources))
	}
	first, _ := sources[0].(map[string]interface{})
	if first["source"] != "BBC News" || first["link"] != "https://example.org/a1" {
		t.Errorf("Unexpected first source: %v", first)
	}

	if !strings.Contains(client.lastPrompt, "What happened?") {
		t.Errorf("Expected question in prompt, got %q", client.lastPrompt)
	}
	if !strings.Contains(client.lastPrompt, "Article from BBC News:") {
		t.Errorf("Expected article context in prompt, got %q", client.lastPrompt)
	}
	if !strings.Contains(client.lastSystem, `"Storm response"`) {
		t.Errorf("Expected topic title in system prompt, got %q", client.lastSystem)
	}
	if client.maxTokens != 500 {
		t.Errorf("Expected 500 max tokens, got %d", client.maxTokens)
	}
}

func TestAskTopic_CapsSourcesAtFive(t *testing.T) {
	repo := sampleTopicRepo()
	now := time.Now().UTC()
	for i := 0; i < 7; i++ {
		repo.articles["t1"] = append(repo.articles["t1"], database.Article{
			ID: fmt.Sprintf("extra%d", i), Title: fmt.Sprintf("Update %d", i),
			FeedName: "AP", Link: fmt.Sprintf("https://example.org/extra%d", i), PublishedAt: now,
		})
	}
	router := newTestRouter(repo, &stubLLMClient{answer: "ok"})

	recorder := doRequest(router, "POST", "/topics/t1/ask", `{"question": "Any updates?"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", recorder.Code)
	}

	body := decodeBody(t, recorder)
	sources, _ := body["sources"].([]interface{})
	if len(sources) != 5 {
		t.Errorf("Expected sources capped at 5, got %d", len(sources))
	}
}

func TestGetSimilarArticles(t *testing.T) {
	repo := sampleTopicRepo()
	now := time.Now().UTC()
	repo.similar = []database.Article{
		{ID: "s1", Title: "Neighboring region braces", FeedName: "BBC News",
			Link: "https://example.org/s1", Thumbnail: "https://img.example.org/s1.jpg", PublishedAt: now},
		{ID: "s2", Title: "Insurance claims surge", FeedName: "Reuters",
			Link: "https://example.org/s2", PublishedAt: now},
	}
	router := newTestRouter(repo, nil)

	recorder := doRequest(router, "GET", "/topics/t1/similar", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", recorder.Code)
	}

	body := decodeBody(t, recorder)
	similar, _ := body["similar"].([]interface{})
	if len(similar) != 2 {
		t.Fatalf("Expected 2 similar articles, got %d", len(similar))
	}
	if count, _ := body["count"].(float64); int(count) != 2 {
		t.Errorf("Expected count 2, got %v", body["count"])
	}
	first, _ := similar[0].(map[string]interface{})
	if first["id"] != "s1" || first["source"] != "BBC News" {
		t.Errorf("Unexpected first similar article: %v", first)
	}

	if repo.similarCategory != "World" {
		t.Errorf("Expected category filter from topic, got %q", repo.similarCategory)
	}
	if repo.similarLimit != 5 {
		t.Errorf("Expected default limit 5, got %d", repo.similarLimit)
	}
}

func TestGetSimilarArticles_ClampsLimit(t *testing.T) {
	repo := sampleTopicRepo()
	router := newTestRouter(repo, nil)

	if recorder := doRequest(router, "GET", "/topics/t1/similar?limit=50", ""); recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", recorder.Code)
	}
	if repo.similarLimit != 10 {
		t.Errorf("Expected limit clamped to 10, got %d", repo.similarLimit)
	}
}

func TestGetTopicImages_DeduplicatesThumbnails(t *testing.T) {
	router := newTestRouter(sampleTopicRepo(), nil)

	recorder := doRequest(router, "GET", "/topics/t1/images", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", recorder.Code)
	}

	// a1 and a2 share a thumbnail and a3 has none, so one image survives
	body := decodeBody(t, recorder)
	images, _ := body["images"].([]interface{})
	if len(images) != 1 {
		t.Fatalf("Expected 1 unique image, got %d", len(images))
	}
	image, _ := images[0].(map[string]interface{})
	if image["url"] != "https://img.example.org/1.jpg" || image["title"] != "Coastal towns evacuate" {
		t.Errorf("Unexpected image entry: %v", image)
	}
	if body["topic_title"] != "Storm response" {
		t.Errorf("Expected topic title in payload, got %v", body["topic_title"])
	}
}

func TestGetTopicImages_UnknownTopic(t *testing.T) {
	router := newTestRouter(sampleTopicRepo(), nil)

	recorder := doRequest(router, "GET", "/topics/missing/images", "")
	if recorder.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown topic, got %d", recorder.Code)
	}
}
