package policy

import (
	"fmt"
	"math/rand"
	"time"
)

// RandomPolicy selects uniformly among n discrete actions
type RandomPolicy struct {
	rng *rand.Rand
	n   int
}

// NewRandom creates a random policy over n actions. A nil rng is seeded from the clock.
func NewRandom(n int, rng *rand.Rand) (*RandomPolicy, error) {
	if n <= 0 {
		return nil, fmt.Errorf("action space must have at least one action, got %d", n)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomPolicy{rng: rng, n: n}, nil
}

// SelectAction implements Policy interface
func (p *RandomPolicy) SelectAction(observation []float64) (int, error) {
	return p.rng.Intn(p.n), nil
}
