// Package cache is a SQLite-backed TTL cache for ingested items and their
// embeddings. Entries expire by fetch time; stale reads behave exactly like
// misses so callers re-fetch instead of branching on age.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/maintainerd/gatekeeper/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS item_cache (
	owner          TEXT    NOT NULL,
	repo           TEXT    NOT NULL,
	kind           TEXT    NOT NULL,
	number         INTEGER NOT NULL,
	metadata_json  TEXT    NOT NULL,
	embedding_json TEXT,
	fetched_at     INTEGER NOT NULL,
	PRIMARY KEY (owner, repo, kind, number)
);
`

// Cache stores normalized PRs, issues, and their embeddings with TTL-based
// invalidation. Safe for concurrent use; database/sql serializes access.
type Cache struct {
	db  *sql.DB
	ttl time.Duration

	// now is swapped in tests.
	now func() time.Time
}

// Open creates (or opens) the cache database at path. An empty path is
// rejected; use ":memory:" for an ephemeral cache.
func Open(path string, ttl time.Duration) (*Cache, error) {
	if path == "" {
		return nil, fmt.Errorf("cache path is required (use \":memory:\" for ephemeral)")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}

	return &Cache{db: db, ttl: ttl, now: time.Now}, nil
}

// GetPR returns the cached PR, or nil on a miss or a stale entry.
func (c *Cache) GetPR(ctx context.Context, owner, repo string, number int) (*types.PullRequest, error) {
	raw, err := c.get(ctx, owner, repo, types.KindPullRequest, number)
	if err != nil || raw == nil {
		return nil, err
	}
	var pr types.PullRequest
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("decoding cached PR: %w", err)
	}
	return &pr, nil
}

// PutPR stores a PR, resetting its fetch time.
func (c *Cache) PutPR(ctx context.Context, pr *types.PullRequest) error {
	return c.put(ctx, pr.Owner, pr.Repo, types.KindPullRequest, pr.Number, pr)
}

// GetIssue returns the cached issue, or nil on a miss or a stale entry.
func (c *Cache) GetIssue(ctx context.Context, owner, repo string, number int) (*types.Issue, error) {
	raw, err := c.get(ctx, owner, repo, types.KindIssue, number)
	if err != nil || raw == nil {
		return nil, err
	}
	var issue types.Issue
	if err := json.Unmarshal(raw, &issue); err != nil {
		return nil, fmt.Errorf("decoding cached issue: %w", err)
	}
	return &issue, nil
}

// PutIssue stores an issue, resetting its fetch time.
func (c *Cache) PutIssue(ctx context.Context, issue *types.Issue) error {
	return c.put(ctx, issue.Owner, issue.Repo, types.KindIssue, issue.Number, issue)
}

// GetEmbedding returns the cached embedding for an item, or nil when the
// item is missing, stale, or has no embedding recorded yet.
func (c *Cache) GetEmbedding(ctx context.Context, owner, repo string, kind types.ItemKind, number int) ([]float64, error) {
	cutoff := c.now().Add(-c.ttl).Unix()
	var raw sql.NullString
	err := c.db.QueryRowContext(ctx, `
		SELECT embedding_json FROM item_cache
		WHERE owner=? AND repo=? AND kind=? AND number=? AND fetched_at>?
	`, owner, repo, string(kind), number, cutoff).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached embedding: %w", err)
	}
	if !raw.Valid {
		return nil, nil
	}
	var emb []float64
	if err := json.Unmarshal([]byte(raw.String), &emb); err != nil {
		return nil, fmt.Errorf("decoding cached embedding: %w", err)
	}
	return emb, nil
}

// PutEmbedding attaches an embedding to an already-cached item. A no-op if
// the item was never cached.
func (c *Cache) PutEmbedding(ctx context.Context, owner, repo string, kind types.ItemKind, number int, embedding []float64) error {
	raw, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("encoding embedding: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		UPDATE item_cache SET embedding_json=?
		WHERE owner=? AND repo=? AND kind=? AND number=?
	`, string(raw), owner, repo, string(kind), number)
	if err != nil {
		return fmt.Errorf("storing embedding: %w", err)
	}
	return nil
}

// PurgeStale deletes expired entries and reports how many were removed.
func (c *Cache) PurgeStale(ctx context.Context) (int64, error) {
	cutoff := c.now().Add(-c.ttl).Unix()
	res, err := c.db.ExecContext(ctx, `DELETE FROM item_cache WHERE fetched_at<=?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging stale cache entries: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) get(ctx context.Context, owner, repo string, kind types.ItemKind, number int) ([]byte, error) {
	cutoff := c.now().Add(-c.ttl).Unix()
	var raw string
	err := c.db.QueryRowContext(ctx, `
		SELECT metadata_json FROM item_cache
		WHERE owner=? AND repo=? AND kind=? AND number=? AND fetched_at>?
	`, owner, repo, string(kind), number, cutoff).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}
	return []byte(raw), nil
}

func (c *Cache) put(ctx context.Context, owner, repo string, kind types.ItemKind, number int, item any) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO item_cache (owner, repo, kind, number, metadata_json, embedding_json, fetched_at)
		VALUES (?, ?, ?, ?, ?, NULL, ?)
		ON CONFLICT (owner, repo, kind, number) DO UPDATE SET
			metadata_json = excluded.metadata_json,
			embedding_json = NULL,
			fetched_at = excluded.fetched_at
	`, owner, repo, string(kind), number, string(raw), c.now().Unix())
	if err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}
