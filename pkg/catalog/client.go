package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ogero/moviebrowser/pkg/transport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	keyPrefixList        = "catalog.list"
	keyPrefixDetails     = "catalog.details"
	keyPrefixRecommended = "catalog.recommended"
)

// Client implements Service with cache-aside reads over a Transport.
//
// A cached response is always preferred over the network, even if it may be stale.
type Client struct {
	transport transport.Transport
	cache     Cache
	endpoints Endpoints
	logger    *slog.Logger
	cacheGets metric.Int64Counter
}

var _ Service = (*Client)(nil)

// NewClient creates a new catalog client reading from baseURL.
func NewClient(t transport.Transport, cache Cache, baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	cacheGets, err := otel.Meter("github.com/ogero/moviebrowser/pkg/catalog").Int64Counter("cache_gets_total")
	if err != nil {
		logger.Warn("Failed to create cache_gets_total counter", "err", err)
	}

	return &Client{
		transport: t,
		cache:     cache,
		endpoints: Endpoints{BaseURL: baseURL},
		logger:    logger,
		cacheGets: cacheGets,
	}
}

// FetchList returns the whole catalog.
func (c *Client) FetchList(ctx context.Context) ([]MovieSummary, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "catalog.Client.FetchList")
	defer span.End()

	rawURL, err := c.endpoints.List()
	if err != nil {
		return nil, err
	}

	envelope, err := loadJSON[RawMovieListEnvelope](ctx, c, keyPrefixList, rawURL)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	summaries := MapSummaries(*envelope)
	span.SetAttributes(attribute.Int("catalog.movies", len(summaries)))

	return summaries, nil
}

// FetchDetails returns the details of a single movie.
func (c *Client) FetchDetails(ctx context.Context, id MovieID) (*MovieDetails, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "catalog.Client.FetchDetails")
	defer span.End()
	span.SetAttributes(attribute.String("catalog.id", id.String()))

	rawURL, err := c.endpoints.Details(id)
	if err != nil {
		return nil, err
	}

	raw, err := loadJSON[RawMovieDetails](ctx, c, keyPrefixDetails, rawURL)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	details := MapDetails(*raw)
	return &details, nil
}

// FetchRecommended returns the movies recommended for id.
func (c *Client) FetchRecommended(ctx context.Context, id MovieID) ([]MovieSummary, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "catalog.Client.FetchRecommended")
	defer span.End()
	span.SetAttributes(attribute.String("catalog.id", id.String()))

	rawURL, err := c.endpoints.Recommended(id)
	if err != nil {
		return nil, err
	}

	envelope, err := loadJSON[RawMovieListEnvelope](ctx, c, keyPrefixRecommended, rawURL)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return MapSummaries(*envelope), nil
}

// loadJSON returns the decoded payload of rawURL, from cache when possible.
// Only bodies that decode successfully are cached.
func loadJSON[T any](ctx context.Context, c *Client, keyPrefix, rawURL string) (*T, error) {

	cacheResult := "miss"
	defer func() {
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("cache."+keyPrefix+".result", cacheResult))
		if c.cacheGets != nil {
			c.cacheGets.Add(ctx, 1, metric.WithAttributes(
				attribute.String("key.prefix", keyPrefix),
				attribute.String("result", cacheResult),
			))
		}
	}()

	if data, ok := c.cache.Get(rawURL); ok {
		value, err := decode[T](data)
		if err == nil {
			cacheResult = "hit"
			return value, nil
		}
		cacheResult = "corrupt"
		c.logger.WarnContext(ctx, "Discarding undecodable cache entry", "url", rawURL, "err", err)
	}

	body, status, err := c.transport.Get(ctx, rawURL)
	if err != nil {
		if IsOffline(err) {
			c.logger.InfoContext(ctx, "Catalog unreachable", "url", rawURL, "err", err)
			return nil, &OfflineError{URL: rawURL, Err: err}
		}
		return nil, fmt.Errorf("failed to transport.Transport.Get: %w", err)
	}

	if status == 0 {
		status = StatusNoResponse
	}
	if status != http.StatusOK {
		return nil, &HTTPError{URL: rawURL, StatusCode: status}
	}

	value, err := decode[T](body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to decode catalog response", "url", rawURL, "size", len(body), "err", err)
		return nil, &DecodeError{URL: rawURL, Err: err}
	}

	c.cache.Set(rawURL, body)

	return value, nil
}
