package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"sort"
	"sync"

	"github.com/centrifugal/centrifuge"
	"github.com/ogero/moviebrowser/internal/common"
	"github.com/ogero/moviebrowser/pkg/catalog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Movie is everything the detail screen shows.
type Movie struct {
	Details     *catalog.MovieDetails
	Recommended []catalog.MovieSummary
	Liked       bool
}

// RatingsState is published on the ratings websocket channel whenever it changes.
type RatingsState struct {
	// Fetching is true while ratings are being fetched.
	Fetching bool `json:"fetching"`
	// Known is the number of movies with a known rating.
	Known int `json:"known"`
}

// PosterLoader resolves poster URLs to decoded images.
type PosterLoader interface {
	Image(ctx context.Context, rawURL string) (image.Image, bool)
}

// BrowserService holds the browsing session: the loaded catalog, ratings, and favorites.
type BrowserService interface {
	// Handler handles incoming HTTP requests via a websocket handler
	http.Handler
	// LoadList fetches the catalog and replaces the loaded movies.
	LoadList(ctx context.Context) ([]catalog.MovieSummary, error)
	// LoadListIfNeeded fetches the catalog only when no movies are loaded yet.
	LoadListIfNeeded(ctx context.Context) ([]catalog.MovieSummary, error)
	// VisibleMovies returns the loaded movies matching query, in the given order.
	VisibleMovies(query string, option catalog.SortOption) []catalog.MovieSummary
	// EnsureRatings fetches the rating of every loaded movie, once per session.
	EnsureRatings(ctx context.Context)
	// Fetching reports whether ratings are being fetched.
	Fetching() bool
	// Rating returns the rating of id, if known.
	Rating(id catalog.MovieID) (float64, bool)
	// GetMovie loads the details of id together with its recommendations.
	GetMovie(ctx context.Context, id catalog.MovieID) (*Movie, error)
	// ToggleLike flips the favorite state of id and returns the new state.
	ToggleLike(ctx context.Context, id catalog.MovieID) bool
	// IsLiked reports whether id is a favorite.
	IsLiked(id catalog.MovieID) bool
	// Favorites returns the liked movies of the catalog, ordered by title.
	Favorites(ctx context.Context) ([]catalog.MovieSummary, error)
	// Poster returns the decoded image at rawURL, if it could be obtained.
	Poster(ctx context.Context, rawURL string) (image.Image, bool)
	// BroadcastRatings updates and publishes the ratings state to the websocket channel.
	BroadcastRatings(updater func(state *RatingsState)) error
	// Shutdown stops the websocket node.
	Shutdown(ctx context.Context) error
}

type browserService struct {
	ratingsWebsocketChannel string
	catalog                 catalog.Service
	enricher                *catalog.RatingEnricher
	likes                   catalog.Likes
	posters                 PosterLoader

	moviesMutex sync.RWMutex
	movies      []catalog.MovieSummary

	node             *centrifuge.Node
	websocketHandler *centrifuge.WebsocketHandler
	ratingsMutex     sync.Mutex
	ratings          RatingsState
}

// NewBrowserService creates a new BrowserService and starts its websocket node.
func NewBrowserService(ratingsWebsocketChannel string, catalogService catalog.Service, enricher *catalog.RatingEnricher, likes catalog.Likes, posters PosterLoader) (BrowserService, error) {
	svc := &browserService{
		ratingsWebsocketChannel: ratingsWebsocketChannel,
		catalog:                 catalogService,
		enricher:                enricher,
		likes:                   likes,
		posters:                 posters,
	}

	node, err := centrifuge.New(centrifuge.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to centrifuge.New: %w", err)
	}
	svc.node = node

	node.OnConnecting(func(ctx context.Context, e centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
		return centrifuge.ConnectReply{}, nil
	})

	node.OnConnect(func(client *centrifuge.Client) {
		client.OnSubscribe(func(e centrifuge.SubscribeEvent, cb centrifuge.SubscribeCallback) {
			if e.Channel != ratingsWebsocketChannel {
				cb(centrifuge.SubscribeReply{}, centrifuge.ErrorPermissionDenied)
				return
			}

			cb(centrifuge.SubscribeReply{
				Options: centrifuge.SubscribeOptions{},
			}, nil)

			// Todo: Avoid broadcasting to all clients
			go func() {
				err := svc.BroadcastRatings(func(*RatingsState) {})
				if err != nil {
					common.Log.Warn("Failed to internal.BrowserService.BroadcastRatings", "err", err)
				}
			}()
		})
	})

	if err := node.Run(); err != nil {
		return nil, fmt.Errorf("failed to centrifuge.Node.Run: %w", err)
	}

	svc.websocketHandler = centrifuge.NewWebsocketHandler(node, centrifuge.WebsocketConfig{
		ReadBufferSize:     1024,
		UseWriteBufferPool: true,
	})

	return svc, nil
}

// LoadList fetches the catalog and replaces the loaded movies.
// On failure the previously loaded movies are kept.
func (s *browserService) LoadList(ctx context.Context) ([]catalog.MovieSummary, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.BrowserService.LoadList")
	defer span.End()

	movies, err := s.catalog.FetchList(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to catalog.Service.FetchList: %w", err)
	}
	span.SetAttributes(attribute.Int("movies.count", len(movies)))

	s.moviesMutex.Lock()
	s.movies = movies
	s.moviesMutex.Unlock()

	return movies, nil
}

// LoadListIfNeeded fetches the catalog only when no movies are loaded yet.
func (s *browserService) LoadListIfNeeded(ctx context.Context) ([]catalog.MovieSummary, error) {
	if movies := s.loaded(); len(movies) > 0 {
		return movies, nil
	}
	return s.LoadList(ctx)
}

// VisibleMovies returns the loaded movies matching query, in the given order.
func (s *browserService) VisibleMovies(query string, option catalog.SortOption) []catalog.MovieSummary {
	return catalog.SortMovies(catalog.FilterMovies(s.loaded(), query), option, s.enricher.Index())
}

// EnsureRatings fetches the rating of every loaded movie, once per session.
func (s *browserService) EnsureRatings(ctx context.Context) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.BrowserService.EnsureRatings")
	defer span.End()

	movies := s.loaded()
	ids := make([]catalog.MovieID, 0, len(movies))
	for _, m := range movies {
		ids = append(ids, m.ID)
	}

	skipped := s.enricher.Index().Len() > 0
	span.SetAttributes(attribute.Bool("ratings.skipped", skipped), attribute.Int("ratings.ids", len(ids)))
	common.RatingsEnrichmentsTotalIncr(ctx, skipped)
	if skipped {
		return
	}

	s.broadcastFetching(ctx, true)
	defer s.broadcastFetching(ctx, false)

	s.enricher.EnsureRatings(ctx, ids)
}

// Fetching reports whether ratings are being fetched.
func (s *browserService) Fetching() bool {
	return s.enricher.Fetching()
}

// Rating returns the rating of id, if known.
func (s *browserService) Rating(id catalog.MovieID) (float64, bool) {
	return s.enricher.Index().Rating(id)
}

// GetMovie loads the details of id together with its recommendations.
// Both are fetched at the same time and either failure fails the whole load.
func (s *browserService) GetMovie(ctx context.Context, id catalog.MovieID) (*Movie, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.BrowserService.GetMovie")
	defer span.End()
	span.SetAttributes(attribute.String("movie.id", id.String()))

	var details *catalog.MovieDetails
	var recommended []catalog.MovieSummary

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		details, err = s.catalog.FetchDetails(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to catalog.Service.FetchDetails: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		recommended, err = s.catalog.FetchRecommended(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to catalog.Service.FetchRecommended: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("movie.recommended", len(recommended)))

	return &Movie{
		Details:     details,
		Recommended: recommended,
		Liked:       s.likes.IsLiked(id),
	}, nil
}

// ToggleLike flips the favorite state of id and returns the new state.
func (s *browserService) ToggleLike(ctx context.Context, id catalog.MovieID) bool {
	s.likes.Toggle(id)
	liked := s.likes.IsLiked(id)
	common.Log.InfoContext(ctx, "Favorite toggled", "id", id, "liked", liked)
	common.FavoritesTogglesTotalIncr(ctx, liked)
	return liked
}

// IsLiked reports whether id is a favorite.
func (s *browserService) IsLiked(id catalog.MovieID) bool {
	return s.likes.IsLiked(id)
}

// Favorites returns the liked movies of the catalog, ordered by title.
func (s *browserService) Favorites(ctx context.Context) ([]catalog.MovieSummary, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.BrowserService.Favorites")
	defer span.End()

	movies, err := s.catalog.FetchList(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to catalog.Service.FetchList: %w", err)
	}

	liked := make([]catalog.MovieSummary, 0)
	for _, m := range movies {
		if s.likes.IsLiked(m.ID) {
			liked = append(liked, m)
		}
	}
	sort.SliceStable(liked, func(i, j int) bool { return liked[i].Title < liked[j].Title })
	span.SetAttributes(attribute.Int("favorites.count", len(liked)))

	return liked, nil
}

// Poster returns the decoded image at rawURL, if it could be obtained.
func (s *browserService) Poster(ctx context.Context, rawURL string) (image.Image, bool) {
	return s.posters.Image(ctx, rawURL)
}

// BroadcastRatings updates and publishes the ratings state to the websocket channel.
func (s *browserService) BroadcastRatings(updater func(state *RatingsState)) error {
	state := func() RatingsState {
		s.ratingsMutex.Lock()
		defer s.ratingsMutex.Unlock()
		updater(&s.ratings)
		return s.ratings
	}()

	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to json.Marshal: %w", err)
	}

	_, err = s.node.Publish(s.ratingsWebsocketChannel, b)
	if err != nil {
		return fmt.Errorf("failed to centrifuge.Node.Publish: %w", err)
	}

	return nil
}

// Shutdown stops the websocket node.
func (s *browserService) Shutdown(ctx context.Context) error {
	return s.node.Shutdown(ctx)
}

// ServeHTTP handles incoming HTTP requests via a websocket handler
func (s *browserService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	newCtx := centrifuge.SetCredentials(ctx, &centrifuge.Credentials{})
	r = r.WithContext(newCtx)

	s.websocketHandler.ServeHTTP(w, r)
}

func (s *browserService) broadcastFetching(ctx context.Context, fetching bool) {
	known := s.enricher.Index().Len()
	err := s.BroadcastRatings(func(state *RatingsState) {
		state.Fetching = fetching
		state.Known = known
	})
	if err != nil {
		common.Log.WarnContext(ctx, "Failed to internal.BrowserService.BroadcastRatings", "err", err)
	}
}

func (s *browserService) loaded() []catalog.MovieSummary {
	s.moviesMutex.RLock()
	defer s.moviesMutex.RUnlock()
	return s.movies
}
