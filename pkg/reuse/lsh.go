package reuse

import (
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// lshIndex buckets feature vectors by the sign pattern of Gaussian
// random projections. The projection matrix is generated once per cache
// and never rebuilt; buckets are mutated on insert and evict only.
type lshIndex struct {
	projections *mat.Dense          // hashCount x FeatureDim
	buckets     map[string][]string // bucket key -> cache keys
}

func newLSHIndex(hashCount int, seed uint64) *lshIndex {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, seed)}
	data := make([]float64, hashCount*FeatureDim)
	for i := range data {
		data[i] = normal.Rand()
	}
	return &lshIndex{
		projections: mat.NewDense(hashCount, FeatureDim, data),
		buckets:     make(map[string][]string),
	}
}

// key computes the bucket for a feature vector: one bit per projection
// row, set when the dot product is positive.
func (idx *lshIndex) key(features []float64) string {
	rows, _ := idx.projections.Dims()

	var projected mat.VecDense
	projected.MulVec(idx.projections, mat.NewVecDense(len(features), features))

	var b strings.Builder
	b.Grow(rows)
	for i := 0; i < rows; i++ {
		if projected.AtVec(i) > 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// candidates returns the cache keys sharing the bucket. A missing
// bucket yields nil, which callers treat as a miss.
func (idx *lshIndex) candidates(bucket string) []string {
	return idx.buckets[bucket]
}

func (idx *lshIndex) add(bucket, cacheKey string) {
	idx.buckets[bucket] = append(idx.buckets[bucket], cacheKey)
}

// remove deletes a cache key from its bucket, dropping the bucket once
// it empties.
func (idx *lshIndex) remove(bucket, cacheKey string) {
	keys := idx.buckets[bucket]
	for i, k := range keys {
		if k == cacheKey {
			idx.buckets[bucket] = append(keys[:i], keys[i+1:]...)
			break
		}
	}
	if len(idx.buckets[bucket]) == 0 {
		delete(idx.buckets, bucket)
	}
}
