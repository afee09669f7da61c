package catalog

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// RatingIndex maps movies to their numeric rating.
// Entries are only ever added. A missing entry means the rating is unknown.
type RatingIndex struct {
	mu      sync.RWMutex
	ratings map[MovieID]float64
}

// NewRatingIndex creates an empty index.
func NewRatingIndex() *RatingIndex {
	return &RatingIndex{ratings: make(map[MovieID]float64)}
}

// Rating returns the rating of id and whether it is known.
func (ri *RatingIndex) Rating(id MovieID) (float64, bool) {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	r, ok := ri.ratings[id]
	return r, ok
}

// Len returns the number of known ratings.
func (ri *RatingIndex) Len() int {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return len(ri.ratings)
}

// Snapshot returns a copy of the index contents.
func (ri *RatingIndex) Snapshot() map[MovieID]float64 {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	out := make(map[MovieID]float64, len(ri.ratings))
	for id, r := range ri.ratings {
		out[id] = r
	}
	return out
}

func (ri *RatingIndex) add(id MovieID, rating float64) {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	ri.ratings[id] = rating
}

// RatingEnricher fills a RatingIndex by fetching the details of every movie.
type RatingEnricher struct {
	service Service
	index   *RatingIndex
	limit   int
	logger  *slog.Logger

	mu       sync.Mutex
	fetching atomic.Bool
}

// NewRatingEnricher creates an enricher writing into a fresh index.
// limit caps the number of requests in flight; zero or less sends all of them at once.
func NewRatingEnricher(service Service, limit int, logger *slog.Logger) *RatingEnricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RatingEnricher{
		service: service,
		index:   NewRatingIndex(),
		limit:   limit,
		logger:  logger,
	}
}

// Index returns the index populated by EnsureRatings.
func (e *RatingEnricher) Index() *RatingIndex {
	return e.index
}

// Fetching reports whether an EnsureRatings run is in progress.
func (e *RatingEnricher) Fetching() bool {
	return e.fetching.Load()
}

// EnsureRatings fetches the details of every id concurrently and records the ratings found.
//
// It does nothing if the index already holds ratings. A failed fetch only leaves its id out of
// the index; it never stops the other fetches and is never returned.
func (e *RatingEnricher) EnsureRatings(ctx context.Context, ids []MovieID) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "catalog.RatingEnricher.EnsureRatings")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.index.Len() > 0 {
		span.SetAttributes(attribute.Bool("ratings.skipped", true))
		return
	}

	e.fetching.Store(true)
	defer e.fetching.Store(false)

	var failed atomic.Int64
	var g errgroup.Group
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	for _, id := range ids {
		g.Go(func() error {
			details, err := e.service.FetchDetails(ctx, id)
			if err != nil {
				failed.Add(1)
				e.logger.WarnContext(ctx, "Failed to fetch rating", "id", id, "err", err)
				return nil
			}
			if details.Rating == nil {
				return nil
			}
			rating, err := strconv.ParseFloat(*details.Rating, 64)
			if err != nil {
				e.logger.WarnContext(ctx, "Ignoring unparseable rating", "id", id, "rating", *details.Rating)
				return nil
			}
			e.index.add(id, rating)
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(
		attribute.Int("ratings.requested", len(ids)),
		attribute.Int("ratings.known", e.index.Len()),
		attribute.Int64("ratings.failed", failed.Load()),
	)
	e.logger.InfoContext(ctx, "Ratings fetched", "requested", len(ids), "known", e.index.Len(), "failed", failed.Load())
}
