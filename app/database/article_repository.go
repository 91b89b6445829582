package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// SQLArticleRepository handles database operations for articles
type SQLArticleRepository struct {
	db *DB
}

var _ ArticleRepository = (*SQLArticleRepository)(nil)

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *DB) *SQLArticleRepository {
	return &SQLArticleRepository{db: db}
}

const articleColumns = `
	a.id, a.feed_id, f.name, a.guid, COALESCE(a.title, ''), COALESCE(a.link, ''),
	COALESCE(a.description, ''), COALESCE(a.content, ''), COALESCE(a.author, ''),
	COALESCE(a.thumbnail, ''), a.published_at, a.fetched_at,
	a.analysis_status, COALESCE(a.content_hash, ''), COALESCE(a.llm_category, ''),
	COALESCE(a.llm_sentiment, ''), a.llm_metadata, a.analyzed_at`

func scanArticle(scanner interface{ Scan(...interface{}) error }) (Article, error) {
	var article Article
	var metadata []byte

	err := scanner.Scan(
		&article.ID, &article.FeedID, &article.FeedName, &article.GUID,
		&article.Title, &article.Link, &article.Description, &article.Content,
		&article.Author, &article.Thumbnail, &article.PublishedAt, &article.FetchedAt,
		&article.AnalysisStatus, &article.ContentHash, &article.LLMCategory,
		&article.LLMSentiment, &metadata, &article.AnalyzedAt,
	)
	if err != nil {
		return Article{}, err
	}

	if len(metadata) > 0 {
		var m LLMMetadata
		if err := json.Unmarshal(metadata, &m); err != nil {
			return Article{}, fmt.Errorf("failed to decode article metadata: %w", err)
		}
		article.LLMMetadata = &m
	}

	return article, nil
}

func (r *SQLArticleRepository) queryArticles(query string, args ...interface{}) ([]Article, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
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

// UpsertArticle stores a normalized article, preserving enrichment fields on
// conflict. Returns the article ID and whether the row was newly inserted.
func (r *SQLArticleRepository) UpsertArticle(feedID string, article NewArticle) (string, bool, error) {
	var id string
	var inserted bool

	err := r.db.QueryRow(`
		INSERT INTO articles (
			feed_id, guid, title, link, description, content,
			author, thumbnail, published_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (feed_id, guid) DO UPDATE SET
			title = EXCLUDED.title,
			link = EXCLUDED.link,
			description = EXCLUDED.description,
			content = CASE WHEN EXCLUDED.content != '' THEN EXCLUDED.content ELSE articles.content END,
			author = EXCLUDED.author,
			thumbnail = EXCLUDED.thumbnail
		RETURNING id, (xmax = 0)
	`, feedID, article.GUID, article.Title, article.Link, article.Description,
		article.Content, article.Author, article.Thumbnail, article.PublishedAt).Scan(&id, &inserted)

	if err != nil {
		return "", false, fmt.Errorf("failed to upsert article: %w", err)
	}

	return id, inserted, nil
}

// GetPendingArticles returns articles awaiting analysis, most recently fetched first
func (r *SQLArticleRepository) GetPendingArticles(limit int) ([]Article, error) {
	return r.queryArticles(`
		SELECT `+articleColumns+`
		FROM articles a
		JOIN feeds f ON f.id = a.feed_id
		WHERE a.analysis_status = $1
		ORDER BY a.fetched_at DESC
		LIMIT $2
	`, AnalysisPending, limit)
}

// ClaimPending atomically flips a batch of pending articles to processing and
// returns the IDs actually claimed. Articles claimed by a concurrent run are
// left out of the result.
func (r *SQLArticleRepository) ClaimPending(ids []string) ([]string, error) {
	rows, err := r.db.Query(`
		UPDATE articles
		SET analysis_status = $1
		WHERE id = ANY($2) AND analysis_status = $3
		RETURNING id
	`, AnalysisProcessing, pq.Array(ids), AnalysisPending)
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending articles: %w", err)
	}
	defer rows.Close()

	var claimed []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan claimed article id: %w", err)
		}
		claimed = append(claimed, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claimed article rows: %w", err)
	}

	return claimed, nil
}

// ApplyAnalysis commits one analysis batch in a single transaction so a later
// batch's failure never rolls back an earlier one.
func (r *SQLArticleRepository) ApplyAnalysis(updates []AnalysisUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin analysis transaction: %w", err)
	}
	defer tx.Rollback()

	for _, update := range updates {
		var metadata interface{}
		if update.Metadata != nil {
			encoded, err := json.Marshal(update.Metadata)
			if err != nil {
				return fmt.Errorf("failed to encode article metadata: %w", err)
			}
			metadata = encoded
		}

		if update.Status == AnalysisCompleted && update.Metadata != nil {
			_, err = tx.Exec(`
				UPDATE articles
				SET analysis_status = $2, llm_category = $3, llm_sentiment = $4,
				    llm_metadata = $5, content_hash = $6, analyzed_at = $7
				WHERE id = $1
			`, update.ID, update.Status, update.Category, update.Sentiment,
				metadata, update.ContentHash, update.AnalyzedAt)
		} else {
			_, err = tx.Exec(`
				UPDATE articles
				SET analysis_status = $2
				WHERE id = $1
			`, update.ID, update.Status)
		}

		if err != nil {
			return fmt.Errorf("failed to apply analysis update: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit analysis transaction: %w", err)
	}

	return nil
}

// GetCompletedArticles returns all analyzed articles for drift detection
func (r *SQLArticleRepository) GetCompletedArticles() ([]Article, error) {
	return r.queryArticles(`
		SELECT `+articleColumns+`
		FROM articles a
		JOIN feeds f ON f.id = a.feed_id
		WHERE a.analysis_status = $1
	`, AnalysisCompleted)
}

// MarkPending re-flags articles for analysis and returns the affected count
func (r *SQLArticleRepository) MarkPending(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := r.db.Exec(`
		UPDATE articles
		SET analysis_status = $1
		WHERE id = ANY($2)
	`, AnalysisPending, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to mark articles pending: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected row count: %w", err)
	}

	return int(affected), nil
}

// GetArticlesFetchedSince returns articles in the lookback window ordered by
// published_at descending. The clustering pass depends on this order.
func (r *SQLArticleRepository) GetArticlesFetchedSince(since time.Time) ([]Article, error) {
	return r.queryArticles(`
		SELECT `+articleColumns+`
		FROM articles a
		JOIN feeds f ON f.id = a.feed_id
		WHERE a.fetched_at >= $1
		ORDER BY a.published_at DESC
	`, since)
}

// GetCompletedSince returns analyzed articles in the lookback window for the
// semantic grouper, published_at descending.
func (r *SQLArticleRepository) GetCompletedSince(since time.Time, limit int) ([]Article, error) {
	return r.queryArticles(`
		SELECT `+articleColumns+`
		FROM articles a
		JOIN feeds f ON f.id = a.feed_id
		WHERE a.fetched_at >= $1 AND a.analysis_status = $2
		ORDER BY a.published_at DESC
		LIMIT $3
	`, since, AnalysisCompleted, limit)
}

// GetArticlesForExtraction returns recent articles without full content
func (r *SQLArticleRepository) GetArticlesForExtraction(since time.Time, limit int) ([]ArticleForExtraction, error) {
	rows, err := r.db.Query(`
		SELECT id, COALESCE(link, '')
		FROM articles
		WHERE fetched_at >= $1 AND content = '' AND link != ''
		ORDER BY fetched_at DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get articles for extraction: %w", err)
	}
	defer rows.Close()

	var articles []ArticleForExtraction
	for rows.Next() {
		var article ArticleForExtraction
		if err := rows.Scan(&article.ID, &article.Link); err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

func (r *SQLArticleRepository) UpdateContent(articleID, content string) error {
	_, err := r.db.Exec(`
		UPDATE articles
		SET content = $2
		WHERE id = $1
	`, articleID, content)

	if err != nil {
		return fmt.Errorf("failed to update article content: %w", err)
	}

	return nil
}

func (r *SQLArticleRepository) GetArticleCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM articles").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get article count: %w", err)
	}
	return count, nil
}

// GetStatusCounts returns article counts grouped by analysis status
func (r *SQLArticleRepository) GetStatusCounts() (map[string]int, error) {
	rows, err := r.db.Query(`
		SELECT analysis_status, COUNT(*)
		FROM articles
		GROUP BY analysis_status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count row: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status count rows: %w", err)
	}

	return counts, nil
}
