package database

import (
	"database/sql"
	"fmt"
	"time"
)

// SQLFeedRepository handles database operations for feeds
type SQLFeedRepository struct {
	db *DB
}

var _ FeedRepository = (*SQLFeedRepository)(nil)

// NewFeedRepository creates a new feed repository
func NewFeedRepository(db *DB) *SQLFeedRepository {
	return &SQLFeedRepository{db: db}
}

// UpsertFeed inserts or updates a feed source definition
func (r *SQLFeedRepository) UpsertFeed(name, url, category string) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO feeds (name, url, category)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			url = EXCLUDED.url,
			category = EXCLUDED.category,
			updated_at = NOW()
		RETURNING id
	`, name, url, category).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to upsert feed: %w", err)
	}

	return id, nil
}

func (r *SQLFeedRepository) GetFeed(name string) (*Feed, error) {
	var feed Feed
	err := r.db.QueryRow(`
		SELECT id, name, url, category, enabled, last_fetched_at, created_at, updated_at
		FROM feeds
		WHERE name = $1
	`, name).Scan(&feed.ID, &feed.Name, &feed.URL, &feed.Category, &feed.Enabled,
		&feed.LastFetchedAt, &feed.CreatedAt, &feed.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return &feed, nil
}

func (r *SQLFeedRepository) GetEnabledFeeds() ([]Feed, error) {
	rows, err := r.db.Query(`
		SELECT id, name, url, category, enabled, last_fetched_at, created_at, updated_at
		FROM feeds
		WHERE enabled = true
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get enabled feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		var feed Feed
		err := rows.Scan(&feed.ID, &feed.Name, &feed.URL, &feed.Category, &feed.Enabled,
			&feed.LastFetchedAt, &feed.CreatedAt, &feed.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

func (r *SQLFeedRepository) GetFeedCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM feeds").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}

func (r *SQLFeedRepository) UpdateLastFetched(feedID string, fetchedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE feeds
		SET last_fetched_at = $2, updated_at = NOW()
		WHERE id = $1
	`, feedID, fetchedAt)

	if err != nil {
		return fmt.Errorf("failed to update feed fetch time: %w", err)
	}

	return nil
}
