package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Yapcheekian/shortlink/models"
	"github.com/Yapcheekian/shortlink/store"
	"github.com/bwmarrin/snowflake"
	"github.com/mattheath/base62"
	"github.com/sirupsen/logrus"
)

// maxExpiresInHours keeps now + expiresIn inside time.Duration range.
const maxExpiresInHours = 24 * 365 * 100

var base62EncodeID = base62.EncodeInt64

type LinkService struct {
	store            store.LinkStore
	defaultExpiresIn time.Duration
	logger           *logrus.Entry

	// generateID and now are swapped in tests to get predictable output
	generateID func() int64
	now        func() time.Time
}

// NewLinkService builds the service around an already opened store.
// nodeID identifies this process to the snowflake generator and must be
// unique among instances sharing a store.
func NewLinkService(st store.LinkStore, nodeID int64, defaultExpiresIn time.Duration, logger *logrus.Logger) (*LinkService, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}

	return &LinkService{
		store:            st,
		defaultExpiresIn: defaultExpiresIn,
		logger:           logger.WithField("module", "services/link"),
		generateID:       func() int64 { return node.Generate().Int64() },
		now:              time.Now,
	}, nil
}

// Create stores a new link for originalURL. expiresIn is in hours; nil means
// the configured default.
func (s *LinkService) Create(ctx context.Context, originalURL string, expiresIn *float64) (*models.Link, error) {
	ttl, err := s.expiration(originalURL, expiresIn)
	if err != nil {
		return nil, err
	}

	id := s.generateID()
	link := &models.Link{
		ID:          id,
		ShortID:     base62EncodeID(id),
		OriginalURL: originalURL,
		Clicks:      0,
		ExpiresAt:   s.now().Add(ttl).UTC(),
	}

	if err := s.store.Create(ctx, link); err != nil {
		return nil, s.internal(err)
	}

	s.logger.WithFields(logrus.Fields{
		"shortId":   link.ShortID,
		"expiresAt": link.ExpiresAt,
	}).Debug("link created")
	return link, nil
}

func (s *LinkService) expiration(originalURL string, expiresIn *float64) (time.Duration, error) {
	if strings.TrimSpace(originalURL) == "" {
		return 0, fmt.Errorf("%w: originalUrl is required", ErrValidation)
	}
	if expiresIn == nil {
		return s.defaultExpiresIn, nil
	}
	if *expiresIn <= 0 {
		return 0, fmt.Errorf("%w: expiresIn must be positive", ErrValidation)
	}
	if *expiresIn > maxExpiresInHours {
		return 0, fmt.Errorf("%w: expiresIn must not exceed %d hours", ErrValidation, maxExpiresInHours)
	}
	return time.Duration(*expiresIn * float64(time.Hour)), nil
}

// List returns every link, newest first. Expired links are included.
func (s *LinkService) List(ctx context.Context) ([]models.Link, error) {
	links, err := s.store.List(ctx)
	if err != nil {
		return nil, s.internal(err)
	}
	return links, nil
}

// Resolve records a click and returns the link. Expired links are refused
// without touching the counter.
func (s *LinkService) Resolve(ctx context.Context, shortID string) (*models.Link, error) {
	link, err := s.store.FindByShortID(ctx, shortID)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}

	if link.IsExpired(s.now()) {
		return nil, fmt.Errorf("%w: %s expired at %s", ErrExpired, shortID, link.ExpiresAt.Format(time.RFC3339))
	}

	clicks, err := s.store.IncrementClicks(ctx, shortID)
	if err != nil {
		// deleted between the lookup and the update
		return nil, s.mapStoreErr(err)
	}
	link.Clicks = clicks
	return link, nil
}

func (s *LinkService) Delete(ctx context.Context, shortID string) error {
	if err := s.store.Delete(ctx, shortID); err != nil {
		return s.mapStoreErr(err)
	}
	s.logger.WithField("shortId", shortID).Debug("link deleted")
	return nil
}

// Ping checks the store connection.
func (s *LinkService) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return s.internal(err)
	}
	return nil
}

func (s *LinkService) mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return s.internal(err)
}

func (s *LinkService) internal(err error) error {
	if errors.Is(err, context.Canceled) {
		s.logger.WithError(err).Warn("store operation canceled")
	} else {
		s.logger.WithError(err).Error("store operation failed")
	}
	return fmt.Errorf("%w: %w", ErrInternal, err)
}
