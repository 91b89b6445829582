package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// SQLTopicRepository handles database operations for topics and their
// article links. Topics are owned by the grouping pipeline: it creates,
// prunes and fully replaces them.
type SQLTopicRepository struct {
	db *DB
}

var _ TopicRepository = (*SQLTopicRepository)(nil)

// NewTopicRepository creates a new topic repository
func NewTopicRepository(db *DB) *SQLTopicRepository {
	return &SQLTopicRepository{db: db}
}

// CreateTopic persists a topic and its article links in one transaction
func (r *SQLTopicRepository) CreateTopic(topic Topic, links []TopicLink) (string, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin topic transaction: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRow(`
		INSERT INTO topics (
			title, summary, llm_summary, keywords, thumbnail,
			article_count, category, importance_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, topic.Title, topic.Summary, topic.LLMSummary, pq.Array(topic.Keywords),
		topic.Thumbnail, len(links), topic.Category, topic.ImportanceScore).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert topic: %w", err)
	}

	for _, link := range links {
		_, err = tx.Exec(`
			INSERT INTO article_topics (article_id, topic_id, relevance_score)
			VALUES ($1, $2, $3)
			ON CONFLICT (article_id, topic_id) DO NOTHING
		`, link.ArticleID, id, link.RelevanceScore)
		if err != nil {
			return "", fmt.Errorf("failed to insert article link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit topic transaction: %w", err)
	}

	return id, nil
}

// DeleteTopicsOlderThan prunes stale topics; links go with them via cascade
func (r *SQLTopicRepository) DeleteTopicsOlderThan(cutoff time.Time) (int, error) {
	result, err := r.db.Exec(`
		DELETE FROM topics
		WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old topics: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected row count: %w", err)
	}

	return int(affected), nil
}

func (r *SQLTopicRepository) DeleteAllTopics() error {
	if _, err := r.db.Exec("DELETE FROM topics"); err != nil {
		return fmt.Errorf("failed to delete topics: %w", err)
	}
	return nil
}

const topicColumns = `
	id, title, COALESCE(summary, ''), COALESCE(llm_summary, ''),
	COALESCE(keywords, '{}'), COALESCE(thumbnail, ''), article_count,
	COALESCE(category, ''), importance_score, created_at, updated_at`

func scanTopic(scanner interface{ Scan(...interface{}) error }) (Topic, error) {
	var topic Topic
	err := scanner.Scan(
		&topic.ID, &topic.Title, &topic.Summary, &topic.LLMSummary,
		pq.Array(&topic.Keywords), &topic.Thumbnail, &topic.ArticleCount,
		&topic.Category, &topic.ImportanceScore, &topic.CreatedAt, &topic.UpdatedAt,
	)
	return topic, err
}

func (r *SQLTopicRepository) queryTopics(query string, args ...interface{}) ([]Topic, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query topics: %w", err)
	}
	defer rows.Close()

	var topics []Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic row: %w", err)
		}
		topics = append(topics, topic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating topic rows: %w", err)
	}

	return topics, nil
}

// GetTopics returns topics ordered by coverage then freshness
func (r *SQLTopicRepository) GetTopics(limit int) ([]Topic, error) {
	return r.queryTopics(`
		SELECT `+topicColumns+`
		FROM topics
		ORDER BY article_count DESC, updated_at DESC
		LIMIT $1
	`, limit)
}

func (r *SQLTopicRepository) GetTopic(id string) (*Topic, error) {
	row := r.db.QueryRow(`
		SELECT `+topicColumns+`
		FROM topics
		WHERE id = $1
	`, id)

	topic, err := scanTopic(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}

	return &topic, nil
}

// GetTopicArticles returns a topic's member articles by descending relevance
func (r *SQLTopicRepository) GetTopicArticles(topicID string, limit int) ([]Article, error) {
	rows, err := r.db.Query(`
		SELECT `+articleColumns+`
		FROM article_topics at
		JOIN articles a ON a.id = at.article_id
		JOIN feeds f ON f.id = a.feed_id
		WHERE at.topic_id = $1
		ORDER BY at.relevance_score DESC
		LIMIT $2
	`, topicID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get topic articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

// GetSimilarArticles returns recent articles outside the topic, restricted
// to the topic's category when it has one.
func (r *SQLTopicRepository) GetSimilarArticles(topicID, category string, limit int) ([]Article, error) {
	rows, err := r.db.Query(`
		SELECT `+articleColumns+`
		FROM articles a
		JOIN feeds f ON f.id = a.feed_id
		WHERE a.id NOT IN (
			SELECT article_id FROM article_topics WHERE topic_id = $1
		)
		AND ($2 = '' OR a.llm_category = $2)
		ORDER BY a.published_at DESC
		LIMIT $3
	`, topicID, category, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get similar articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

// GetRankingCandidates returns displayable topics, most recently updated first
func (r *SQLTopicRepository) GetRankingCandidates(limit int) ([]Topic, error) {
	return r.queryTopics(`
		SELECT `+topicColumns+`
		FROM topics
		WHERE article_count >= 1
		ORDER BY updated_at DESC
		LIMIT $1
	`, limit)
}

// GetTopicSources returns distinct source feed names drawn from the topic's
// highest-relevance article links.
func (r *SQLTopicRepository) GetTopicSources(topicID string, limit int) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT DISTINCT f.name
		FROM (
			SELECT article_id
			FROM article_topics
			WHERE topic_id = $1
			ORDER BY relevance_score DESC
			LIMIT $2
		) links
		JOIN articles a ON a.id = links.article_id
		JOIN feeds f ON f.id = a.feed_id
	`, topicID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get topic sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

func (r *SQLTopicRepository) GetTopicCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM topics").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get topic count: %w", err)
	}
	return count, nil
}
