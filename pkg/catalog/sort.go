package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortOption selects the ordering of a movie list.
type SortOption string

const (
	SortTitleAZ    SortOption = "title_az"
	SortTitleZA    SortOption = "title_za"
	SortYearNewest SortOption = "year_newest"
	SortYearOldest SortOption = "year_oldest"
	SortRatingHigh SortOption = "rating_high"
)

// SortOptions lists every option in display order.
var SortOptions = []SortOption{SortTitleAZ, SortTitleZA, SortYearNewest, SortYearOldest, SortRatingHigh}

// ParseSortOption parses s, defaulting to SortTitleAZ when s is empty.
func ParseSortOption(s string) (SortOption, error) {
	if s == "" {
		return SortTitleAZ, nil
	}
	for _, o := range SortOptions {
		if string(o) == s {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown sort option %q", s)
}

// FilterMovies keeps the movies whose title or year contains query, ignoring case.
// A blank query keeps everything.
func FilterMovies(movies []MovieSummary, query string) []MovieSummary {
	query = strings.TrimSpace(query)
	if query == "" {
		return movies
	}

	fold := cases.Fold()
	q := fold.String(query)

	filtered := make([]MovieSummary, 0, len(movies))
	for _, m := range movies {
		if strings.Contains(fold.String(m.Title), q) || strings.Contains(m.Year, q) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// SortMovies returns a sorted copy of movies.
// SortRatingHigh reads ratings from index; movies without a known rating sort last.
func SortMovies(movies []MovieSummary, option SortOption, index *RatingIndex) []MovieSummary {
	sorted := make([]MovieSummary, len(movies))
	copy(sorted, movies)

	coll := collate.New(language.Und, collate.IgnoreCase)
	titleLess := func(a, b MovieSummary) bool {
		return coll.CompareString(a.Title, b.Title) < 0
	}

	switch option {
	case SortTitleZA:
		sort.SliceStable(sorted, func(i, j int) bool { return titleLess(sorted[j], sorted[i]) })
	case SortYearNewest:
		sort.SliceStable(sorted, func(i, j int) bool { return yearOf(sorted[i]) > yearOf(sorted[j]) })
	case SortYearOldest:
		sort.SliceStable(sorted, func(i, j int) bool { return yearOf(sorted[i]) < yearOf(sorted[j]) })
	case SortRatingHigh:
		var ratings map[MovieID]float64
		if index != nil {
			ratings = index.Snapshot()
		}
		sort.SliceStable(sorted, func(i, j int) bool {
			ri, iok := ratings[sorted[i].ID]
			rj, jok := ratings[sorted[j].ID]
			switch {
			case iok != jok:
				return iok
			case !iok || ri == rj:
				return sorted[i].Title < sorted[j].Title
			default:
				return ri > rj
			}
		})
	default:
		sort.SliceStable(sorted, func(i, j int) bool { return titleLess(sorted[i], sorted[j]) })
	}

	return sorted
}

func yearOf(m MovieSummary) int {
	y, err := strconv.Atoi(m.Year)
	if err != nil {
		return 0
	}
	return y
}
