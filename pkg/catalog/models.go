package catalog

import (
	"context"
	"net/url"
)

// MovieID identifies a movie in the catalog.
type MovieID string

// String returns the raw identifier.
func (id MovieID) String() string {
	return string(id)
}

// MovieSummary is a catalog list or recommendation entry.
type MovieSummary struct {
	ID     MovieID
	Title  string
	Year   string
	Poster *url.URL
}

// MovieDetails holds everything the details endpoint knows about a movie.
type MovieDetails struct {
	ID     MovieID
	Title  string
	Year   string
	Plot   string
	Notes  *string
	Poster *url.URL
	// Rating is formatted with exactly one decimal digit, e.g. "8.7".
	Rating *string
}

// Service defines the catalog operations.
type Service interface {
	// FetchList returns the whole catalog.
	FetchList(ctx context.Context) ([]MovieSummary, error)
	// FetchDetails returns the details of a single movie.
	FetchDetails(ctx context.Context, id MovieID) (*MovieDetails, error)
	// FetchRecommended returns the movies recommended for id.
	FetchRecommended(ctx context.Context, id MovieID) ([]MovieSummary, error)
}

// Cache stores raw response bodies keyed by canonical request URL.
type Cache interface {
	// Get returns the bytes stored for key, if any.
	Get(key string) ([]byte, bool)
	// Set stores data under key.
	Set(key string, data []byte)
}

// Likes is the favorites capability.
type Likes interface {
	// IsLiked reports whether id is a favorite.
	IsLiked(id MovieID) bool
	// Toggle flips the favorite state of id.
	Toggle(id MovieID)
}
