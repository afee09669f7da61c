package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/ogero/moviebrowser/internal/common"
	"github.com/ogero/moviebrowser/pkg/api"
	"github.com/ogero/moviebrowser/pkg/catalog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// App represents the main application structure that holds the browser service.
type App struct {
	BrowserService BrowserService
}

// NewApp creates a new instance of the App struct.
func NewApp(browserService BrowserService) *App {
	return &App{
		BrowserService: browserService,
	}
}

// Routes registers the app handlers on r.
func (a *App) Routes(r chi.Router) {
	r.Get("/movies", a.MoviesHandler)
	r.Post("/movies/refresh", a.RefreshHandler)
	r.Post("/movies/ratings", a.RatingsHandler)
	r.Get("/movies/{id}", a.MovieHandler)
	r.Post("/movies/{id}/like", a.LikeHandler)
	r.Get("/favorites", a.FavoritesHandler)
	r.Get("/posters", a.PosterHandler)
	r.HandleFunc("/connection/websocket", a.WebsocketHandler)
}

/*
MoviesHandler serves the movie list.

The catalog is loaded on first use. The q query parameter filters by title or year and
sort selects the order; sorting by rating fetches the ratings first.
*/
func (a *App) MoviesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "MoviesHandler")

	query := r.URL.Query().Get("q")
	option, err := catalog.ParseSortOption(r.URL.Query().Get("sort"))
	if err != nil {
		common.Log.WarnContext(ctx, "Failed to catalog.ParseSortOption", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("params.sort", string(option)), attribute.String("params.q", query))

	if _, err := a.BrowserService.LoadListIfNeeded(ctx); err != nil {
		common.Log.ErrorContext(ctx, "Failed to BrowserService.LoadListIfNeeded", "err", err)
		span.RecordError(err)
		writeError(w, r, err)
		return
	}

	if option == catalog.SortRatingHigh {
		a.BrowserService.EnsureRatings(ctx)
	}

	a.writeList(w, r, query, option)
}

// RefreshHandler reloads the catalog and serves the movie list in its default order.
func (a *App) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "RefreshHandler")

	if _, err := a.BrowserService.LoadList(ctx); err != nil {
		common.Log.ErrorContext(ctx, "Failed to BrowserService.LoadList", "err", err)
		span.RecordError(err)
		writeError(w, r, err)
		return
	}

	a.writeList(w, r, "", catalog.SortTitleAZ)
}

// RatingsHandler fetches the ratings of the loaded movies, once per session.
func (a *App) RatingsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "RatingsHandler")

	movies, err := a.BrowserService.LoadListIfNeeded(ctx)
	if err != nil {
		common.Log.ErrorContext(ctx, "Failed to BrowserService.LoadListIfNeeded", "err", err)
		span.RecordError(err)
		writeError(w, r, err)
		return
	}

	a.BrowserService.EnsureRatings(ctx)

	known := 0
	for _, m := range movies {
		if _, ok := a.BrowserService.Rating(m.ID); ok {
			known++
		}
	}

	writeJSON(w, r, http.StatusOK, api.Ratings{
		Fetching: a.BrowserService.Fetching(),
		Known:    known,
	})
}

// MovieHandler serves the details of a movie together with its recommendations.
func (a *App) MovieHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "MovieHandler")

	paramsID := chi.URLParam(r, "id")
	if err := common.ValidateMovieID(paramsID); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateMovieID", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("param.id", paramsID))

	movie, err := a.BrowserService.GetMovie(ctx, catalog.MovieID(paramsID))
	if err != nil {
		common.Log.ErrorContext(ctx, "Failed to BrowserService.GetMovie", "err", err)
		span.RecordError(err)
		writeError(w, r, err)
		return
	}

	d := movie.Details
	response := api.Movie{
		ID:          d.ID.String(),
		Title:       d.Title,
		Year:        d.Year,
		Plot:        d.Plot,
		Notes:       d.Notes,
		Rating:      d.Rating,
		Liked:       movie.Liked,
		Recommended: a.summaries(movie.Recommended),
	}
	if d.Poster != nil {
		response.Poster = d.Poster.String()
	}

	writeJSON(w, r, http.StatusOK, response)
}

// LikeHandler toggles the favorite state of a movie.
func (a *App) LikeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "LikeHandler")

	paramsID := chi.URLParam(r, "id")
	if err := common.ValidateMovieID(paramsID); err != nil {
		common.Log.WarnContext(ctx, "Failed to common.ValidateMovieID", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("param.id", paramsID))

	liked := a.BrowserService.ToggleLike(ctx, catalog.MovieID(paramsID))

	writeJSON(w, r, http.StatusOK, api.Like{ID: paramsID, Liked: liked})
}

// FavoritesHandler serves the liked movies.
func (a *App) FavoritesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "FavoritesHandler")

	favorites, err := a.BrowserService.Favorites(ctx)
	if err != nil {
		common.Log.ErrorContext(ctx, "Failed to BrowserService.Favorites", "err", err)
		span.RecordError(err)
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, api.MovieList{
		Movies:      a.summaries(favorites),
		Sort:        string(catalog.SortTitleAZ),
		SortOptions: sortOptions(),
	})
}

/*
PosterHandler serves a poster as PNG.

The url query parameter must be an absolute http(s) URL. A poster that cannot be obtained
answers 404 so the client can show its placeholder.
*/
func (a *App) PosterHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	span := trace.SpanFromContext(ctx)

	common.Log.DebugContext(ctx, "PosterHandler")

	rawURL := r.URL.Query().Get("url")
	u, err := url.Parse(rawURL)
	if err == nil && ((u.Scheme != "http" && u.Scheme != "https") || u.Host == "") {
		err = errors.New("poster url must be an absolute http url")
	}
	if err != nil {
		common.Log.WarnContext(ctx, "Invalid poster url", "url", rawURL, "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("param.url", rawURL))

	img, ok := a.BrowserService.Poster(ctx, rawURL)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		common.Log.ErrorContext(ctx, "Failed to png.Encode", "err", err)
		span.RecordError(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")

	if _, err := w.Write(buf.Bytes()); err != nil {
		common.Log.ErrorContext(ctx, "Failed to write response", "err", err)
		span.RecordError(err)
		return
	}
}

// WebsocketHandler handles WebSocket connections
func (a *App) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	common.Log.DebugContext(ctx, "WebsocketHandler")

	a.BrowserService.ServeHTTP(w, r)
}

func (a *App) writeList(w http.ResponseWriter, r *http.Request, query string, option catalog.SortOption) {
	writeJSON(w, r, http.StatusOK, api.MovieList{
		Movies:          a.summaries(a.BrowserService.VisibleMovies(query, option)),
		Query:           query,
		Sort:            string(option),
		SortOptions:     sortOptions(),
		FetchingRatings: a.BrowserService.Fetching(),
	})
}

func (a *App) summaries(movies []catalog.MovieSummary) []api.MovieSummary {
	out := make([]api.MovieSummary, 0, len(movies))
	for _, m := range movies {
		s := api.MovieSummary{
			ID:    m.ID.String(),
			Title: m.Title,
			Year:  m.Year,
			Liked: a.BrowserService.IsLiked(m.ID),
		}
		if m.Poster != nil {
			s.Poster = m.Poster.String()
		}
		if rating, ok := a.BrowserService.Rating(m.ID); ok {
			s.Rating = &rating
		}
		out = append(out, s)
	}
	return out
}

func sortOptions() []string {
	out := make([]string, 0, len(catalog.SortOptions))
	for _, o := range catalog.SortOptions {
		out = append(out, string(o))
	}
	return out
}

// writeError answers with the user facing message for err.
// Offline failures answer 503, every other upstream failure 502.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	offline := catalog.IsOffline(err)
	status := http.StatusBadGateway
	if offline {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, r, status, api.Error{
		Message: catalog.UserMessage(err),
		Offline: offline,
		Retry:   true,
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		common.Log.ErrorContext(r.Context(), "Failed to write response", "err", err)
		trace.SpanFromContext(r.Context()).RecordError(err)
	}
}
