// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/biomed-rag/internal/corpus"
	"github.com/pdiddy/biomed-rag/pkg/types"
)

// ParseCache adapts a Store to corpus.ArticleCache.
type ParseCache struct {
	s *Store
}

// ParseCache returns the parse cache view of s.
func (s *Store) ParseCache() *ParseCache {
	return &ParseCache{s: s}
}

// Get implements corpus.ArticleCache.
func (c *ParseCache) Get(ctx context.Context, key corpus.CacheKey) ([]types.Article, bool, error) {
	var data string
	err := c.s.db.QueryRowContext(ctx,
		`SELECT articles FROM parsed_articles WHERE source_schema = ? AND content_hash = ? AND include_body = ?`,
		string(key.Schema), key.ContentHash, key.IncludeBody,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying parse cache: %w", err)
	}

	var arts []types.Article
	if err := json.Unmarshal([]byte(data), &arts); err != nil {
		return nil, false, fmt.Errorf("decoding cached articles: %w", err)
	}
	return arts, true, nil
}

// Put implements corpus.ArticleCache.
func (c *ParseCache) Put(ctx context.Context, key corpus.CacheKey, arts []types.Article) error {
	if arts == nil {
		arts = []types.Article{}
	}
	data, err := json.Marshal(arts)
	if err != nil {
		return fmt.Errorf("encoding articles: %w", err)
	}
	_, err = c.s.db.ExecContext(ctx,
		`INSERT INTO parsed_articles (source_schema, content_hash, include_body, articles, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(source_schema, content_hash, include_body) DO UPDATE SET
			articles=excluded.articles, created_at=excluded.created_at`,
		string(key.Schema), key.ContentHash, key.IncludeBody, string(data),
		time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("storing parse cache entry: %w", err)
	}
	return nil
}

// Prune removes cache entries older than age and returns how many were removed.
func (c *ParseCache) Prune(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age).Format(timeLayout)
	res, err := c.s.db.ExecContext(ctx, `DELETE FROM parsed_articles WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning parse cache: %w", err)
	}
	return res.RowsAffected()
}
