package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/ogero/moviebrowser/pkg/transport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// DefaultTimeout bounds a single poster download.
	DefaultTimeout = 8 * time.Second
	// DefaultMaxBodyBytes bounds the size of a poster download.
	DefaultMaxBodyBytes = 16 * 1024 * 1024
	// DefaultMemoryBytes is the default budget of decoded images kept in memory.
	DefaultMemoryBytes = 64 * 1024 * 1024
)

// ResponseStore keeps raw image bodies between downloads.
type ResponseStore interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
}

// Loader resolves poster URLs to decoded images.
//
// Lookups go through a memory cache of decoded images, then the response store, then the network.
// Failures are logged and reported as a missing image.
type Loader struct {
	transport transport.Transport
	store     ResponseStore
	memory    *ristretto.Cache[string, image.Image]
	logger    *slog.Logger
	gets      metric.Int64Counter
}

// NewTransport creates a transport suited for poster downloads.
func NewTransport(opts ...transport.Option) transport.Transport {
	return transport.NewHTTPTransport(append([]transport.Option{
		transport.WithTimeout(DefaultTimeout),
		transport.WithMaxBodyBytes(DefaultMaxBodyBytes),
		transport.WithAcceptHeader("image/*"),
	}, opts...)...)
}

// NewLoader creates a Loader keeping at most memoryBytes of decoded pixels in memory.
// store may be nil, in which case downloads are not kept.
func NewLoader(t transport.Transport, store ResponseStore, memoryBytes int64, logger *slog.Logger) (*Loader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if memoryBytes <= 0 {
		return nil, fmt.Errorf("invalid image memory budget: %d", memoryBytes)
	}

	memory, err := ristretto.NewCache(&ristretto.Config[string, image.Image]{
		NumCounters:        10_000,
		MaxCost:            memoryBytes,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ristretto.NewCache: %w", err)
	}

	gets, err := otel.Meter("github.com/ogero/moviebrowser/pkg/images").Int64Counter("image_gets_total")
	if err != nil {
		logger.Warn("Failed to create image_gets_total counter", "err", err)
	}

	return &Loader{
		transport: t,
		store:     store,
		memory:    memory,
		logger:    logger,
		gets:      gets,
	}, nil
}

// Image returns the decoded image at rawURL, or false when it could not be obtained.
func (l *Loader) Image(ctx context.Context, rawURL string) (image.Image, bool) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "images.Loader.Image")
	defer span.End()

	result := "miss"
	defer func() {
		span.SetAttributes(attribute.String("image.result", result))
		if l.gets != nil {
			l.gets.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
		}
	}()

	if img, ok := l.memory.Get(rawURL); ok {
		result = "memory"
		return img, true
	}

	if img, ok := l.fromStore(ctx, rawURL); ok {
		result = "store"
		l.remember(rawURL, img)
		return img, true
	}

	body, status, err := l.transport.Get(ctx, rawURL)
	if err != nil {
		l.logger.DebugContext(ctx, "Failed to download image", "url", rawURL, "err", err)
		span.RecordError(err)
		return nil, false
	}
	if status < 200 || status > 299 {
		l.logger.DebugContext(ctx, "Unexpected image status", "url", rawURL, "status", status)
		return nil, false
	}

	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		l.logger.DebugContext(ctx, "Failed to decode image", "url", rawURL, "size", len(body), "err", err)
		span.RecordError(err)
		return nil, false
	}
	span.SetAttributes(attribute.String("image.format", format))

	if l.store != nil {
		if err := l.store.Set(rawURL, body); err != nil {
			l.logger.WarnContext(ctx, "Failed to keep image", "url", rawURL, "err", err)
		}
	}

	result = "network"
	l.remember(rawURL, img)

	return img, true
}

// Close releases the memory cache.
func (l *Loader) Close() {
	l.memory.Close()
}

func (l *Loader) fromStore(ctx context.Context, rawURL string) (image.Image, bool) {
	if l.store == nil {
		return nil, false
	}

	data, ok, err := l.store.Get(rawURL)
	if err != nil {
		l.logger.WarnContext(ctx, "Failed to read kept image", "url", rawURL, "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		l.logger.WarnContext(ctx, "Discarding undecodable kept image", "url", rawURL, "err", err)
		return nil, false
	}

	return img, true
}

func (l *Loader) remember(rawURL string, img image.Image) {
	b := img.Bounds()
	cost := int64(b.Dx()) * int64(b.Dy()) * 4
	if cost <= 0 {
		cost = 1
	}
	l.memory.Set(rawURL, img, cost)
	l.memory.Wait()
}
