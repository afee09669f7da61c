package catalog_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ogero/moviebrowser/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu       sync.Mutex
	calls    int
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	details  func(id catalog.MovieID) (*catalog.MovieDetails, error)
}

func (s *fakeService) FetchList(context.Context) ([]catalog.MovieSummary, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeService) FetchRecommended(context.Context, catalog.MovieID) ([]catalog.MovieSummary, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeService) FetchDetails(_ context.Context, id catalog.MovieID) (*catalog.MovieDetails, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(s.delay)

	return s.details(id)
}

func (s *fakeService) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func rated(rating string) func(id catalog.MovieID) (*catalog.MovieDetails, error) {
	return func(id catalog.MovieID) (*catalog.MovieDetails, error) {
		r := rating
		return &catalog.MovieDetails{ID: id, Title: "t" + id.String(), Rating: &r}, nil
	}
}

func TestRatingEnricher_PopulatesIndex(t *testing.T) {
	svc := &fakeService{details: rated("7.5")}
	e := catalog.NewRatingEnricher(svc, 0, nil)

	e.EnsureRatings(context.Background(), []catalog.MovieID{"1", "2", "3"})

	assert.Equal(t, 3, e.Index().Len())
	r, ok := e.Index().Rating("2")
	require.True(t, ok)
	assert.Equal(t, 7.5, r)
	assert.False(t, e.Fetching())
}

func TestRatingEnricher_Idempotent(t *testing.T) {
	svc := &fakeService{details: rated("8.1")}
	e := catalog.NewRatingEnricher(svc, 0, nil)
	ids := []catalog.MovieID{"1", "2"}

	e.EnsureRatings(context.Background(), ids)
	require.Equal(t, 2, svc.callCount())
	before := e.Index().Snapshot()

	e.EnsureRatings(context.Background(), ids)
	assert.Equal(t, 2, svc.callCount(), "second run must not hit the service")
	assert.Equal(t, before, e.Index().Snapshot())
}

func TestRatingEnricher_PartialFailure(t *testing.T) {
	svc := &fakeService{details: func(id catalog.MovieID) (*catalog.MovieDetails, error) {
		if id == "3" {
			return nil, &catalog.HTTPError{URL: "https://x/details/3.json", StatusCode: 500}
		}
		return rated("6.0")(id)
	}}
	e := catalog.NewRatingEnricher(svc, 0, nil)

	e.EnsureRatings(context.Background(), []catalog.MovieID{"1", "2", "3", "4"})

	assert.Equal(t, 4, svc.callCount(), "one failure must not cancel the others")
	assert.Equal(t, 3, e.Index().Len())
	_, ok := e.Index().Rating("3")
	assert.False(t, ok)
	for _, id := range []catalog.MovieID{"1", "2", "4"} {
		_, ok := e.Index().Rating(id)
		assert.True(t, ok, "missing rating for %s", id)
	}
}

func TestRatingEnricher_MissingRatingIsUnknown(t *testing.T) {
	svc := &fakeService{details: func(id catalog.MovieID) (*catalog.MovieDetails, error) {
		if id == "2" {
			return &catalog.MovieDetails{ID: id}, nil
		}
		return rated("9.0")(id)
	}}
	e := catalog.NewRatingEnricher(svc, 0, nil)

	e.EnsureRatings(context.Background(), []catalog.MovieID{"1", "2"})

	assert.Equal(t, map[catalog.MovieID]float64{"1": 9.0}, e.Index().Snapshot())
}

func TestRatingEnricher_AllInFlightAtOnce(t *testing.T) {
	svc := &fakeService{details: rated("5.0"), delay: 50 * time.Millisecond}
	e := catalog.NewRatingEnricher(svc, 0, nil)

	e.EnsureRatings(context.Background(), []catalog.MovieID{"1", "2", "3", "4", "5"})

	assert.EqualValues(t, 5, svc.peak.Load())
}

func TestRatingEnricher_Limit(t *testing.T) {
	svc := &fakeService{details: rated("5.0"), delay: 10 * time.Millisecond}
	e := catalog.NewRatingEnricher(svc, 2, nil)

	e.EnsureRatings(context.Background(), []catalog.MovieID{"1", "2", "3", "4", "5"})

	assert.LessOrEqual(t, svc.peak.Load(), int32(2))
	assert.Equal(t, 5, e.Index().Len())
}

func TestRatingEnricher_AllFailedCanRetry(t *testing.T) {
	failing := true
	var mu sync.Mutex
	svc := &fakeService{details: func(id catalog.MovieID) (*catalog.MovieDetails, error) {
		mu.Lock()
		defer mu.Unlock()
		if failing {
			return nil, errors.New("offline")
		}
		return rated("4.2")(id)
	}}
	e := catalog.NewRatingEnricher(svc, 0, nil)

	e.EnsureRatings(context.Background(), []catalog.MovieID{"1"})
	assert.Zero(t, e.Index().Len())

	mu.Lock()
	failing = false
	mu.Unlock()

	e.EnsureRatings(context.Background(), []catalog.MovieID{"1"})
	assert.Equal(t, 1, e.Index().Len())
}
