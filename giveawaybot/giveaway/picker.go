package giveaway

import (
	"math/rand"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Picker draws uniform samples without replacement. Selection only needs to
// be statistically unbiased, not tamper-proof, so it runs on a seeded
// math/rand source; tests inject a fixed seed.
type Picker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewPicker() *Picker {
	return NewSeededPicker(time.Now().UnixNano())
}

func NewSeededPicker(seed int64) *Picker {
	return &Picker{rng: rand.New(rand.NewSource(seed))}
}

// Pick returns min(count, len(pool)) users, every subset of that size
// equally likely. The input slice is not modified. An empty pool or a
// non-positive count yields an empty result.
func (p *Picker) Pick(pool []snowflake.ID, count int) []snowflake.ID {
	if count <= 0 || len(pool) == 0 {
		return nil
	}
	if count > len(pool) {
		count = len(pool)
	}

	shuffled := make([]snowflake.ID, len(pool))
	copy(shuffled, pool)

	p.mu.Lock()
	// Partial Fisher-Yates: after k swaps the first k slots are a uniform
	// k-subset in uniform order.
	for i := 0; i < count; i++ {
		j := i + p.rng.Intn(len(shuffled)-i)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	p.mu.Unlock()

	return shuffled[:count]
}

// Exclude returns pool minus every user in exclude, preserving order.
func Exclude(pool []snowflake.ID, exclude []snowflake.ID) []snowflake.ID {
	if len(exclude) == 0 {
		return pool
	}
	excluded := make(map[snowflake.ID]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}
	out := make([]snowflake.ID, 0, len(pool))
	for _, id := range pool {
		if _, ok := excluded[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
