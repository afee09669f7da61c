package api

// MovieSummary represents a movie in a list
type MovieSummary struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Year   string   `json:"year"`
	Poster string   `json:"poster,omitempty"`
	Rating *float64 `json:"rating,omitempty"`
	Liked  bool     `json:"liked"`
}

// MovieList represents the movie list screen
type MovieList struct {
	Movies          []MovieSummary `json:"movies"`
	Query           string         `json:"query,omitempty"`
	Sort            string         `json:"sort"`
	SortOptions     []string       `json:"sortOptions"`
	FetchingRatings bool           `json:"fetchingRatings"`
}

// Movie represents the movie detail screen
type Movie struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Year        string         `json:"year"`
	Plot        string         `json:"plot"`
	Notes       *string        `json:"notes,omitempty"`
	Poster      string         `json:"poster,omitempty"`
	Rating      *string        `json:"rating,omitempty"`
	Liked       bool           `json:"liked"`
	Recommended []MovieSummary `json:"recommended"`
}

// Like represents the favorite state of a movie
type Like struct {
	ID    string `json:"id"`
	Liked bool   `json:"liked"`
}

// Ratings represents the state of rating enrichment
type Ratings struct {
	Fetching bool `json:"fetching"`
	Known    int  `json:"known"`
}

// Error represents a failed request. Retry tells the client the same request may succeed later.
type Error struct {
	Message string `json:"message"`
	Offline bool   `json:"offline"`
	Retry   bool   `json:"retry"`
}
