// Package store persists short links. Postgres goes through sqlx, sqlite and
// mysql through gorm.
package store

import (
	"context"
	"errors"

	"github.com/Yapcheekian/shortlink/models"
)

var ErrNotFound = errors.New("[store]: link not found")

type LinkStore interface {
	// Create inserts link and fills the store managed CreatedAt.
	Create(ctx context.Context, link *models.Link) error
	// List returns every link, newest first.
	List(ctx context.Context) ([]models.Link, error)
	FindByShortID(ctx context.Context, shortID string) (*models.Link, error)
	// IncrementClicks bumps the counter in a single statement and returns the new value.
	IncrementClicks(ctx context.Context, shortID string) (int64, error)
	Delete(ctx context.Context, shortID string) error
	Ping(ctx context.Context) error
	Close() error
}
