package fabso

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

func hashPos(v []float64) [sha1.Size]byte {
	data := make([]byte, len(v)*8)
	for i, x := range v {
		binary.BigEndian.PutUint64(data[i*8:], math.Float64bits(x))
	}
	return sha1.Sum(data)
}

// CacheObjectiver memoizes objective values for previously seen positions.
// Only deterministic objectives should be wrapped.  Failed evaluations are
// not cached.
type CacheObjectiver struct {
	obj    Objectiver
	cache  *lru.Cache[[sha1.Size]byte, float64]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCacheObjectiver wraps obj with a cache holding at most size positions.
func NewCacheObjectiver(obj Objectiver, size int) (*CacheObjectiver, error) {
	cache, err := lru.New[[sha1.Size]byte, float64](size)
	if err != nil {
		return nil, fmt.Errorf("%w: cache size %v: %v", ErrConfig, size, err)
	}
	return &CacheObjectiver{obj: obj, cache: cache}, nil
}

func (c *CacheObjectiver) Objective(v []float64) (float64, error) {
	key := hashPos(v)
	if val, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return val, nil
	}
	c.misses.Add(1)

	val, err := c.obj.Objective(v)
	if err != nil {
		return val, err
	}
	c.cache.Add(key, val)
	return val, nil
}

func (c *CacheObjectiver) Hits() int64 { return c.hits.Load() }

func (c *CacheObjectiver) Misses() int64 { return c.misses.Load() }
