package catalog

// RawMovieListEnvelope is the payload of the list and recommendation endpoints.
type RawMovieListEnvelope struct {
	Movies []RawMovieSummary `json:"movies" validate:"omitempty,dive"`
}

// RawMovieSummary is a single entry inside RawMovieListEnvelope.
type RawMovieSummary struct {
	ID        *int    `json:"id" validate:"required"`
	Name      *string `json:"name" validate:"required"`
	Thumbnail *string `json:"thumbnail" validate:"required"`
	Year      *int    `json:"year" validate:"required"`
}

// RawMovieDetails is the payload of the details endpoint.
type RawMovieDetails struct {
	ID          *int     `json:"id" validate:"required"`
	Name        *string  `json:"name" validate:"required"`
	Description *string  `json:"Description" validate:"required"`
	Notes       *string  `json:"Notes"`
	Rating      *float64 `json:"Rating"`
	Picture     *string  `json:"picture" validate:"required"`
	ReleaseDate *float64 `json:"releaseDate" validate:"required"`
}
