package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sentitrade/internal/domain"
)

// PostStore implements domain.PostStore using PostgreSQL. Read-only: posts
// are owned by the ingestion service.
type PostStore struct {
	pool *pgxpool.Pool
}

// NewPostStore creates a PostStore backed by the given pool.
func NewPostStore(pool *pgxpool.Pool) *PostStore {
	return &PostStore{pool: pool}
}

// GetByID fetches one post. It returns domain.ErrNotFound when the row does
// not exist.
func (s *PostStore) GetByID(ctx context.Context, id int64) (domain.Post, error) {
	var (
		p           domain.Post
		displayName *string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, post_text, author_username, author_display_name, post_url, posted_at
		FROM posts WHERE id = $1`, id,
	).Scan(&p.ID, &p.PostText, &p.AuthorUsername, &displayName, &p.PostURL, &p.PostedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Post{}, domain.ErrNotFound
		}
		return domain.Post{}, fmt.Errorf("postgres: get post %d: %w", id, err)
	}
	if displayName != nil {
		p.AuthorDisplayName = *displayName
	}
	return p, nil
}

// Compile-time interface check.
var _ domain.PostStore = (*PostStore)(nil)
