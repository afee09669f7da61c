package common

import (
	"errors"
	"regexp"

	"github.com/ogero/moviebrowser/pkg/catalog"
)

var movieIDRE = regexp.MustCompile(`^\d+$`)

// ValidateMovieID checks if the given catalog movie ID is valid.
// It expects a non-empty run of decimal digits.
func ValidateMovieID(id string) error {
	if !movieIDRE.MatchString(id) {
		return errors.New("invalid movie id, not a number")
	}

	return nil
}

// ValidateSortOption checks if s names a supported sort order.
// An empty value is valid and selects the default order.
func ValidateSortOption(s string) error {
	_, err := catalog.ParseSortOption(s)
	return err
}
