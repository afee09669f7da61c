package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// decode unmarshals data into a T and checks that every required field is present.
func decode[T any](data []byte) (*T, error) {
	value := new(T)
	if err := json.Unmarshal(data, value); err != nil {
		return nil, fmt.Errorf("failed to json.Unmarshal: %w", err)
	}
	if err := validate.Struct(value); err != nil {
		return nil, fmt.Errorf("failed to validator.Validate.Struct: %w", err)
	}
	return value, nil
}

// MapSummaries converts an envelope into summaries. A missing movies array maps to an empty slice.
func MapSummaries(envelope RawMovieListEnvelope) []MovieSummary {
	summaries := make([]MovieSummary, 0, len(envelope.Movies))
	for _, raw := range envelope.Movies {
		summaries = append(summaries, MapSummary(raw))
	}
	return summaries
}

// MapSummary converts a raw list entry into a MovieSummary.
// Required fields are expected to be present, as guaranteed by decode.
func MapSummary(raw RawMovieSummary) MovieSummary {
	return MovieSummary{
		ID:     MovieID(strconv.Itoa(deref(raw.ID))),
		Title:  deref(raw.Name),
		Year:   strconv.Itoa(deref(raw.Year)),
		Poster: parsePoster(deref(raw.Thumbnail)),
	}
}

// MapDetails converts a raw details payload into MovieDetails.
//
// The year comes from the release date interpreted in the local timezone, and the rating is
// rendered with one decimal digit.
func MapDetails(raw RawMovieDetails) MovieDetails {
	details := MovieDetails{
		ID:     MovieID(strconv.Itoa(deref(raw.ID))),
		Title:  deref(raw.Name),
		Year:   releaseYear(deref(raw.ReleaseDate)),
		Plot:   deref(raw.Description),
		Notes:  raw.Notes,
		Poster: parsePoster(deref(raw.Picture)),
	}
	if raw.Rating != nil {
		rating := strconv.FormatFloat(*raw.Rating, 'f', 1, 64)
		details.Rating = &rating
	}
	return details
}

func releaseYear(epochSeconds float64) string {
	sec, frac := math.Modf(epochSeconds)
	t := time.Unix(int64(sec), int64(frac*float64(time.Second))).In(time.Local)
	return strconv.Itoa(t.Year())
}

// parsePoster returns nil for anything that is not an absolute URL.
func parsePoster(s string) *url.URL {
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil
	}
	return u
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
