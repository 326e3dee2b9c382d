package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Yapcheekian/shortlink/models"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/suite"
)

type GormSuite struct {
	suite.Suite
	store *GormStore
	ctx   context.Context
}

func (s *GormSuite) SetupTest() {
	st, err := OpenSQLite(":memory:")
	s.Require().NoError(err)
	s.store = st
	s.ctx = context.Background()
}

func (s *GormSuite) TearDownTest() {
	s.NoError(s.store.Close())
}

func TestGormSuite(t *testing.T) {
	suite.Run(t, new(GormSuite))
}

func (s *GormSuite) newLink(id int64, shortID string) *models.Link {
	return &models.Link{
		ID:          id,
		ShortID:     shortID,
		OriginalURL: gofakeit.URL(),
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func (s *GormSuite) TestCreateSetsCreatedAt() {
	link := s.newLink(1, "a")
	s.Require().NoError(s.store.Create(s.ctx, link))
	s.False(link.CreatedAt.IsZero())

	got, err := s.store.FindByShortID(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal(link.OriginalURL, got.OriginalURL)
	s.Equal(int64(0), got.Clicks)
	s.True(got.ExpiresAt.After(got.CreatedAt))
}

func (s *GormSuite) TestCreateDuplicateShortID() {
	s.Require().NoError(s.store.Create(s.ctx, s.newLink(1, "dup")))
	s.Error(s.store.Create(s.ctx, s.newLink(2, "dup")))
}

func (s *GormSuite) TestListNewestFirst() {
	base := time.Now().Add(-time.Hour)
	// inserted out of creation order on purpose
	for i, offset := range []int{2, 0, 3, 1} {
		link := s.newLink(int64(i+1), string(rune('a'+i)))
		link.CreatedAt = base.Add(time.Duration(offset) * time.Minute)
		s.Require().NoError(s.store.Create(s.ctx, link))
	}

	links, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(links, 4)
	for i := 1; i < len(links); i++ {
		s.False(links[i].CreatedAt.After(links[i-1].CreatedAt))
	}
	s.Equal("c", links[0].ShortID)
	s.Equal("b", links[3].ShortID)
}

func (s *GormSuite) TestIncrementClicks() {
	s.Require().NoError(s.store.Create(s.ctx, s.newLink(1, "a")))

	for want := int64(1); want <= 3; want++ {
		clicks, err := s.store.IncrementClicks(s.ctx, "a")
		s.Require().NoError(err)
		s.Equal(want, clicks)
	}

	_, err := s.store.IncrementClicks(s.ctx, "missing")
	s.ErrorIs(err, ErrNotFound)
}

func (s *GormSuite) TestIncrementClicksConcurrent() {
	st, err := OpenSQLite(filepath.Join(s.T().TempDir(), "links.db"))
	s.Require().NoError(err)
	defer st.Close()
	s.Require().NoError(st.Create(s.ctx, s.newLink(1, "a")))

	const workers = 50
	var (
		wg     sync.WaitGroup
		counts = make(chan int64, workers)
		errs   = make(chan error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clicks, err := st.IncrementClicks(s.ctx, "a")
			if err != nil {
				errs <- err
				return
			}
			counts <- clicks
		}()
	}
	wg.Wait()
	close(counts)
	close(errs)

	for err := range errs {
		s.NoError(err)
	}
	seen := map[int64]bool{}
	for c := range counts {
		s.False(seen[c], "counter %d returned twice", c)
		seen[c] = true
	}
	s.Len(seen, workers)

	got, err := st.FindByShortID(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal(int64(workers), got.Clicks)
}

func (s *GormSuite) TestDelete() {
	s.Require().NoError(s.store.Create(s.ctx, s.newLink(1, "a")))

	s.Require().NoError(s.store.Delete(s.ctx, "a"))
	s.ErrorIs(s.store.Delete(s.ctx, "a"), ErrNotFound)

	_, err := s.store.FindByShortID(s.ctx, "a")
	s.ErrorIs(err, ErrNotFound)
}

func (s *GormSuite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}
