package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sortFixture = []MovieSummary{
	{ID: "1", Title: "inception", Year: "2010"},
	{ID: "2", Title: "Interstellar", Year: "2014"},
	{ID: "3", Title: "Amélie", Year: "2001"},
	{ID: "4", Title: "Zodiac", Year: "unknown"},
}

func titles(movies []MovieSummary) []string {
	out := make([]string, 0, len(movies))
	for _, m := range movies {
		out = append(out, m.Title)
	}
	return out
}

func TestSortMovies(t *testing.T) {
	index := NewRatingIndex()
	index.add("2", 8.6)
	index.add("4", 7.7)
	index.add("1", 8.6)

	tests := []struct {
		option SortOption
		want   []string
	}{
		{SortTitleAZ, []string{"Amélie", "inception", "Interstellar", "Zodiac"}},
		{SortTitleZA, []string{"Zodiac", "Interstellar", "inception", "Amélie"}},
		{SortYearNewest, []string{"Interstellar", "inception", "Amélie", "Zodiac"}},
		{SortYearOldest, []string{"Zodiac", "Amélie", "inception", "Interstellar"}},
		{SortRatingHigh, []string{"Interstellar", "inception", "Zodiac", "Amélie"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.option), func(t *testing.T) {
			assert.Equal(t, tt.want, titles(SortMovies(sortFixture, tt.option, index)))
		})
	}
}

func TestSortMovies_DoesNotModifyInput(t *testing.T) {
	before := titles(sortFixture)
	_ = SortMovies(sortFixture, SortTitleZA, nil)
	assert.Equal(t, before, titles(sortFixture))
}

func TestSortMovies_RatingWithoutIndex(t *testing.T) {
	got := SortMovies(sortFixture, SortRatingHigh, nil)
	assert.Equal(t, []string{"Amélie", "Interstellar", "Zodiac", "inception"}, titles(got))
}

func TestFilterMovies(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"inception", "Interstellar", "Amélie", "Zodiac"}},
		{"   ", []string{"inception", "Interstellar", "Amélie", "Zodiac"}},
		{"INTER", []string{"Interstellar"}},
		{"in", []string{"inception", "Interstellar"}},
		{"2001", []string{"Amélie"}},
		{"201", []string{"inception", "Interstellar"}},
		{"matrix", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, titles(FilterMovies(sortFixture, tt.query)))
		})
	}
}

func TestParseSortOption(t *testing.T) {
	o, err := ParseSortOption("")
	require.NoError(t, err)
	assert.Equal(t, SortTitleAZ, o)

	o, err = ParseSortOption("rating_high")
	require.NoError(t, err)
	assert.Equal(t, SortRatingHigh, o)

	_, err = ParseSortOption("popularity")
	assert.Error(t, err)
}
