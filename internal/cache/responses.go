package cache

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// DefaultResponsesMaxCost is the default byte budget of a Responses cache.
const DefaultResponsesMaxCost = 4 * 1024 * 1024

// Responses is an in-memory response body cache bounded by the total byte length of its entries.
// Entries never expire; they are only evicted to make room for new ones.
// It is safe for concurrent use.
type Responses struct {
	cache *ristretto.Cache[string, []byte]
}

// NewResponses creates a cache holding at most maxCost bytes.
func NewResponses(maxCost int64) (*Responses, error) {
	if maxCost <= 0 {
		return nil, fmt.Errorf("invalid cache budget: %d", maxCost)
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		// ~10x the number of entries expected, assuming bodies of a few hundred bytes.
		NumCounters:        max(maxCost/32, 1024),
		MaxCost:            maxCost,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ristretto.NewCache: %w", err)
	}

	return &Responses{cache: c}, nil
}

// Get returns the body stored for key.
func (r *Responses) Get(key string) ([]byte, bool) {
	return r.cache.Get(key)
}

// Set stores data under key, with its length as cost.
// The entry is visible to Get once Set returns, unless it was rejected to stay within budget.
func (r *Responses) Set(key string, data []byte) {
	r.cache.Set(key, data, int64(len(data)))
	r.cache.Wait()
}

// Close stops the cache background goroutines.
func (r *Responses) Close() {
	r.cache.Close()
}
