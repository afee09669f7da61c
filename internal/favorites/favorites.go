package favorites

import (
	"sync"

	"github.com/ogero/moviebrowser/pkg/catalog"
)

// Store keeps liked movies in memory for the lifetime of the process.
type Store struct {
	mu    sync.RWMutex
	liked map[catalog.MovieID]struct{}
}

var _ catalog.Likes = (*Store)(nil)

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{liked: make(map[catalog.MovieID]struct{})}
}

// IsLiked reports whether id is a favorite.
func (s *Store) IsLiked(id catalog.MovieID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.liked[id]
	return ok
}

// Toggle flips the favorite state of id.
func (s *Store) Toggle(id catalog.MovieID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.liked[id]; ok {
		delete(s.liked, id)
		return
	}
	s.liked[id] = struct{}{}
}
