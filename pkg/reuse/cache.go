package reuse

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/mkarlsson/edge-offload-engine/pkg/models"
)

// Empirical defaults for the reuse cache. The acceptance threshold and
// decay coefficients are tunables, not derived quantities.
const (
	DefaultMaxSize         = 100
	DefaultK               = 3
	DefaultAcceptThreshold = 0.2
	DefaultScoreDecayRate  = 0.01
	DefaultScoreIncrement  = 0.1
	DefaultHashCount       = 10
)

// Config tunes one per-server cache.
type Config struct {
	MaxSize         int     `json:"max_size"`         // Entry capacity before eviction
	K               int     `json:"k"`                // Neighbors ranked in the refinement stage
	AcceptThreshold float64 `json:"accept_threshold"` // Weighted distance below which a match counts as a hit
	ScoreDecayRate  float64 `json:"score_decay_rate"` // Exponential decay rate per second of entry age
	ScoreIncrement  float64 `json:"score_increment"`  // Score gain per recorded hit before decay
	HashCount       int     `json:"hash_count"`       // LSH projection rows, one bucket bit each

	// Seed fixes the projection matrix; 0 draws one from the clock.
	Seed uint64 `json:"seed"`

	// Clock supplies timestamps for recency weighting. Nil means time.Now.
	Clock func() time.Time `json:"-"`
}

// DefaultConfig returns the standard cache tuning.
func DefaultConfig() Config {
	return Config{
		MaxSize:         DefaultMaxSize,
		K:               DefaultK,
		AcceptThreshold: DefaultAcceptThreshold,
		ScoreDecayRate:  DefaultScoreDecayRate,
		ScoreIncrement:  DefaultScoreIncrement,
		HashCount:       DefaultHashCount,
	}
}

// Entry is one cached computation result. An entry belongs to exactly
// one cache and is destroyed on eviction.
type Entry struct {
	Key           string    `json:"key"`
	TaskID        int       `json:"task_id"`
	Features      []float64 `json:"features"`
	Result        string    `json:"result"`         // Opaque handle to the stored output
	ExecutionTime float64   `json:"execution_time"` // seconds
	Score         float64   `json:"score"`          // Reuse score in [0, 1]
	LastAccess    time.Time `json:"last_access"`    // Refreshed on insert and hit, never on lookup

	bucket string
}

// Match is a similar-enough cache entry found by Lookup.
type Match struct {
	Key           string  `json:"key"`
	TaskID        int     `json:"task_id"`
	Result        string  `json:"result"`
	ExecutionTime float64 `json:"execution_time"`
	Distance      float64 `json:"distance"` // Weighted distance of the winning neighbor
}

// Stats counts cache activity. Hits and insertions track the executed
// offload path only; solver probes leave them untouched.
type Stats struct {
	Hits       int `json:"hits"`
	Insertions int `json:"insertions"`
	Evictions  int `json:"evictions"`
}

// HitRate returns the percentage of reuse decisions among all cached
// offloads.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Insertions
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100.0
}

// Cache holds previously computed task results for one server and
// answers approximate similarity queries against them. It is not safe
// for concurrent use.
type Cache struct {
	serverID int
	cfg      Config
	entries  map[string]*Entry
	index    *lshIndex
	clock    func() time.Time
	stats    Stats
}

// New builds a cache for the given server. Zero config fields fall back
// to the defaults.
func New(serverID int, cfg Config) *Cache {
	def := DefaultConfig()
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = def.MaxSize
	}
	if cfg.K <= 0 {
		cfg.K = def.K
	}
	if cfg.AcceptThreshold <= 0 {
		cfg.AcceptThreshold = def.AcceptThreshold
	}
	if cfg.ScoreDecayRate <= 0 {
		cfg.ScoreDecayRate = def.ScoreDecayRate
	}
	if cfg.ScoreIncrement <= 0 {
		cfg.ScoreIncrement = def.ScoreIncrement
	}
	if cfg.HashCount <= 0 {
		cfg.HashCount = def.HashCount
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(clock().UnixNano())
	}

	return &Cache{
		serverID: serverID,
		cfg:      cfg,
		entries:  make(map[string]*Entry),
		index:    newLSHIndex(cfg.HashCount, cfg.Seed),
		clock:    clock,
	}
}

// Key derives the deterministic cache key for a task from its identity
// and size attributes.
func Key(t *models.Task) string {
	return fmt.Sprintf("task_%d_%g_%g_%g", t.ID, t.ComputingCycles, t.InputDataSize, t.OutputDataSize)
}

// Lookup runs the two-stage similarity query: the LSH bucket supplies
// candidates, then the k nearest by recency-weighted cosine distance
// are ranked. A hit requires the best weighted distance to fall below
// the acceptance threshold. Lookup never mutates the cache, so the
// solver may probe hypothetical placements freely.
func (c *Cache) Lookup(t *models.Task) (*Match, bool) {
	features := Features(t)
	candidates := c.index.candidates(c.index.key(features))
	if len(candidates) == 0 {
		return nil, false
	}

	now := c.clock()
	type ranked struct {
		key      string
		weighted float64
	}
	neighbors := make([]ranked, 0, len(candidates))
	for _, key := range candidates {
		entry, ok := c.entries[key]
		if !ok {
			continue
		}
		dist := cosineDistance(features, entry.Features)
		age := now.Sub(entry.LastAccess).Seconds()
		weighted := dist * recencyWeight(age, entry.Score, c.cfg.ScoreDecayRate)
		neighbors = append(neighbors, ranked{key: key, weighted: weighted})
	}
	if len(neighbors) == 0 {
		return nil, false
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].weighted != neighbors[j].weighted {
			return neighbors[i].weighted < neighbors[j].weighted
		}
		return neighbors[i].key < neighbors[j].key
	})
	if len(neighbors) > c.cfg.K {
		neighbors = neighbors[:c.cfg.K]
	}

	best := neighbors[0]
	if best.weighted >= c.cfg.AcceptThreshold {
		return nil, false
	}

	entry := c.entries[best.key]
	return &Match{
		Key:           entry.Key,
		TaskID:        entry.TaskID,
		Result:        entry.Result,
		ExecutionTime: entry.ExecutionTime,
		Distance:      best.weighted,
	}, true
}

// HasSimilar reports whether a lookup for the task would hit. It
// satisfies the solver's reuse probe.
func (c *Cache) HasSimilar(t *models.Task) bool {
	_, ok := c.Lookup(t)
	return ok
}

// RecordHit bumps the entry's reuse score by a recency-decayed
// increment, capped at 1.0, and refreshes its timestamp. Returns false
// when the key is no longer cached.
func (c *Cache) RecordHit(key string) bool {
	entry, ok := c.entries[key]
	if !ok {
		return false
	}

	now := c.clock()
	age := now.Sub(entry.LastAccess).Seconds()
	gain := c.cfg.ScoreIncrement * math.Exp(-c.cfg.ScoreDecayRate*age)
	entry.Score = math.Min(entry.Score+gain, 1.0)
	entry.LastAccess = now
	c.stats.Hits++
	return true
}

// Insert stores an executed task's result under its deterministic key
// with a fresh score, registers it in the LSH bucket, and evicts the
// oldest entries while over capacity. Inserting an existing key
// replaces the entry in place.
func (c *Cache) Insert(t *models.Task, result string, executionTime float64) string {
	key := Key(t)
	features := Features(t)
	bucket := c.index.key(features)
	now := c.clock()

	if existing, ok := c.entries[key]; ok {
		existing.Features = features
		existing.Result = result
		existing.ExecutionTime = executionTime
		existing.Score = 1.0
		existing.LastAccess = now
		return key
	}

	c.entries[key] = &Entry{
		Key:           key,
		TaskID:        t.ID,
		Features:      features,
		Result:        result,
		ExecutionTime: executionTime,
		Score:         1.0,
		LastAccess:    now,
		bucket:        bucket,
	}
	c.index.add(bucket, key)
	c.stats.Insertions++

	for len(c.entries) > c.cfg.MaxSize {
		c.evictOldest()
	}
	return key
}

// evictOldest removes the entry with the earliest timestamp from both
// the store and its LSH bucket. Timestamp ties break on the key so
// eviction order stays deterministic.
func (c *Cache) evictOldest() {
	var oldest *Entry
	for _, entry := range c.entries {
		if oldest == nil ||
			entry.LastAccess.Before(oldest.LastAccess) ||
			(entry.LastAccess.Equal(oldest.LastAccess) && entry.Key < oldest.Key) {
			oldest = entry
		}
	}
	if oldest == nil {
		return
	}
	c.index.remove(oldest.bucket, oldest.Key)
	delete(c.entries, oldest.Key)
	c.stats.Evictions++
}

// ServerID returns the server this cache belongs to.
func (c *Cache) ServerID() int { return c.serverID }

// Len returns the number of cached entries.
func (c *Cache) Len() int { return len(c.entries) }

// BucketCount returns the number of occupied LSH buckets.
func (c *Cache) BucketCount() int { return len(c.index.buckets) }

// Stats returns a copy of the activity counters.
func (c *Cache) Stats() Stats { return c.stats }

// recencyWeight scales a raw distance by how stale and how trusted the
// entry is: fresh, high-score entries shrink the distance toward zero,
// old or low-score entries leave it nearly unchanged.
func recencyWeight(ageSeconds, score, decayRate float64) float64 {
	return 1.0 - math.Exp(-decayRate*ageSeconds)*score
}

// cosineDistance returns 1 minus the cosine similarity of two vectors.
// Zero-norm vectors are treated as maximally distant.
func cosineDistance(a, b []float64) float64 {
	na := math.Sqrt(floats.Dot(a, a))
	nb := math.Sqrt(floats.Dot(b, b))
	if na == 0 || nb == 0 {
		return 1.0
	}
	return 1.0 - floats.Dot(a, b)/(na*nb)
}
