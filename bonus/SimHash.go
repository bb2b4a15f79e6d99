// Package bonus implements count-based exploration bonuses. States are
// hashed with SimHash and visit counts of hash codes determine the
// bonus added to the reward.
package bonus

import (
	"fmt"

	sync "github.com/sasha-s/go-deadlock"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultBucketSizes returns the prime table sizes used when a
// HashConfig has no bucket sizes
func DefaultBucketSizes() []int64 {
	return []int64{999931, 999953, 999959, 999961, 999979, 999983}
}

// HashConfig describes a SimHash
type HashConfig struct {
	ItemDim     int     `json:"item_dim" yaml:"item_dim"`
	DimKey      int     `json:"dim_key" yaml:"dim_key"`
	BucketSizes []int64 `json:"bucket_sizes" yaml:"bucket_sizes"`
	Seed        uint64  `json:"seed" yaml:"seed"`
}

// Validate checks that a HashConfig describes a valid SimHash
func (h HashConfig) Validate() error {
	if h.ItemDim <= 0 {
		return fmt.Errorf("validate: item dimension must be positive"+
			"\n\thave(%v)", h.ItemDim)
	}
	if h.DimKey <= 0 || h.DimKey > 64 {
		return fmt.Errorf("validate: key dimension must be in [1, 64]"+
			"\n\thave(%v)", h.DimKey)
	}
	for _, size := range h.BucketSizes {
		if size <= 0 {
			return fmt.Errorf("validate: bucket sizes must be positive"+
				"\n\thave(%v)", h.BucketSizes)
		}
	}
	return nil
}

// SimHash counts items by the signs of a Gaussian random projection.
// Each item is mapped to one key per bucket table, and its count is
// the minimum count over all tables.
type SimHash struct {
	itemDim     int
	dimKey      int
	bucketSizes []int64

	// projection is ItemDim × DimKey
	projection *mat.Dense

	// mods[i][j] = 2^j mod bucketSizes[i]
	mods [][]int64

	mu     sync.Mutex
	tables []map[int64]int
}

// NewSimHash returns a new SimHash with an empty count table
func NewSimHash(c HashConfig) (*SimHash, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newSimHash: %v", err)
	}

	bucketSizes := c.BucketSizes
	if bucketSizes == nil {
		bucketSizes = DefaultBucketSizes()
	}
	if len(bucketSizes) == 0 {
		return nil, fmt.Errorf("newSimHash: at least one bucket size required")
	}

	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(c.Seed)}
	data := make([]float64, c.ItemDim*c.DimKey)
	for i := range data {
		data[i] = normal.Rand()
	}

	mods := make([][]int64, len(bucketSizes))
	tables := make([]map[int64]int, len(bucketSizes))
	for i, size := range bucketSizes {
		mods[i] = make([]int64, c.DimKey)
		pow := int64(1) % size
		for j := range mods[i] {
			mods[i][j] = pow
			pow = (2 * pow) % size
		}
		tables[i] = make(map[int64]int)
	}

	return &SimHash{
		itemDim:     c.ItemDim,
		dimKey:      c.DimKey,
		bucketSizes: append([]int64(nil), bucketSizes...),
		projection:  mat.NewDense(c.ItemDim, c.DimKey, data),
		mods:        mods,
		tables:      tables,
	}, nil
}

// ItemDim returns the dimension of hashed items
func (s *SimHash) ItemDim() int {
	return s.itemDim
}

// Keys returns the keys of each item, one row of items per row of the
// returned slice and one key per bucket table
func (s *SimHash) Keys(items mat.Matrix) ([][]int64, error) {
	r, c := items.Dims()
	if c != s.itemDim {
		return nil, fmt.Errorf("keys: invalid item dimension\n\twant(%v)"+
			"\n\thave(%v)", s.itemDim, c)
	}

	var proj mat.Dense
	proj.Mul(items, s.projection)

	keys := make([][]int64, r)
	for row := 0; row < r; row++ {
		keys[row] = make([]int64, len(s.bucketSizes))
		for i, size := range s.bucketSizes {
			var key int64
			for j := 0; j < s.dimKey; j++ {
				switch v := proj.At(row, j); {
				case v > 0:
					key += s.mods[i][j]
				case v < 0:
					key -= s.mods[i][j]
				}
			}
			keys[row][i] = ((key % size) + size) % size
		}
	}
	return keys, nil
}

// Inc increments the count of each item
func (s *SimHash) Inc(items mat.Matrix) error {
	keys, err := s.Keys(items)
	if err != nil {
		return fmt.Errorf("inc: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, itemKeys := range keys {
		for i, key := range itemKeys {
			s.tables[i][key]++
		}
	}
	return nil
}

// Query returns the count of each item
func (s *SimHash) Query(items mat.Matrix) ([]int, error) {
	keys, err := s.Keys(items)
	if err != nil {
		return nil, fmt.Errorf("query: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make([]int, len(keys))
	for row, itemKeys := range keys {
		for i, key := range itemKeys {
			if n := s.tables[i][key]; i == 0 || n < counts[row] {
				counts[row] = n
			}
		}
	}
	return counts, nil
}

// Distinct returns the number of distinct keys counted in the first
// bucket table
func (s *SimHash) Distinct() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables[0])
}

// Reset clears all counts
func (s *SimHash) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tables {
		s.tables[i] = make(map[int64]int)
	}
}
