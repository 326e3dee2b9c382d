package store

import (
	"context"
	"database/sql"

	"github.com/Yapcheekian/shortlink/models"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ConnectPostgres opens and pings a lib/pq connection.
func ConnectPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	return NewPostgresStore(db), nil
}

func (s *PostgresStore) Create(ctx context.Context, link *models.Link) error {
	row := s.db.QueryRowxContext(ctx,
		"INSERT INTO links(id, short_id, original_url, clicks, expires_at) VALUES ($1, $2, $3, $4, $5) RETURNING created_at",
		link.ID, link.ShortID, link.OriginalURL, link.Clicks, link.ExpiresAt)
	if err := row.Scan(&link.CreatedAt); err != nil {
		return errors.Wrapf(err, "insert link %s", link.ShortID)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.Link, error) {
	links := []models.Link{}
	if err := s.db.SelectContext(ctx, &links,
		"SELECT id, short_id, original_url, clicks, created_at, expires_at FROM links ORDER BY created_at DESC, id DESC"); err != nil {
		return nil, errors.Wrap(err, "list links")
	}
	return links, nil
}

func (s *PostgresStore) FindByShortID(ctx context.Context, shortID string) (*models.Link, error) {
	var link models.Link
	err := s.db.GetContext(ctx, &link,
		"SELECT id, short_id, original_url, clicks, created_at, expires_at FROM links WHERE short_id = $1", shortID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find link %s", shortID)
	}
	return &link, nil
}

func (s *PostgresStore) IncrementClicks(ctx context.Context, shortID string) (int64, error) {
	var clicks int64
	err := s.db.GetContext(ctx, &clicks,
		"UPDATE links SET clicks = clicks + 1 WHERE short_id = $1 RETURNING clicks", shortID)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, errors.Wrapf(err, "increment clicks %s", shortID)
	}
	return clicks, nil
}

func (s *PostgresStore) Delete(ctx context.Context, shortID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM links WHERE short_id = $1", shortID)
	if err != nil {
		return errors.Wrapf(err, "delete link %s", shortID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "delete link %s", shortID)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// DB exposes the handle for migrations.
func (s *PostgresStore) DB() *sql.DB {
	return s.db.DB
}
