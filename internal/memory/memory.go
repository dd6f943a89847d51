// Package memory keeps a bounded history of agent steps and draws windowed
// training batches from it.
package memory

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cartridge/memory/internal/ringbuffer"
)

var (
	// ErrInvalidArgument is shared with ringbuffer so callers match a single value.
	ErrInvalidArgument = ringbuffer.ErrInvalidArgument

	ErrInsufficientData = errors.New("insufficient data for sampling")
)

// Experience is one transition: performing Action after State0 yields Reward
// and results in State1, which might be Terminal.
type Experience[O, A any] struct {
	State0   []O     `json:"state0"`
	Action   A       `json:"action"`
	Reward   float64 `json:"reward"`
	Terminal bool    `json:"terminal"`
	State1   []O     `json:"state1"`
}

// Rand is the source of anchor indexes. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// Stats is a point-in-time view of the memory.
type Stats struct {
	Entries int    `json:"entries"`
	Limit   int    `json:"limit"`
	Appends uint64 `json:"appends"`
}

// Memory holds four index-aligned ring buffers. Logical index i in each of
// them refers to the same time step.
type Memory[O, A any] struct {
	mu           sync.RWMutex
	observations *ringbuffer.RingBuffer[O]
	actions      *ringbuffer.RingBuffer[A]
	rewards      *ringbuffer.RingBuffer[float64]
	terminals    *ringbuffer.RingBuffer[bool]
	limit        int
	appends      uint64

	randMu sync.Mutex
	rng    Rand

	logger zerolog.Logger
}

// Option configures a Memory.
type Option func(*options)

type options struct {
	rng    Rand
	logger zerolog.Logger
}

// WithRand sets the anchor source. Use a seeded source for repeatable batches.
// A nil source, including a nil *rand.Rand, falls back to a clock-seeded one.
func WithRand(rng Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates a Memory retaining at most limit steps.
func New[O, A any](limit int, opts ...Option) (*Memory[O, A], error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidArgument, limit)
	}

	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if r, ok := o.rng.(*rand.Rand); o.rng == nil || (ok && r == nil) {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	observations, err := ringbuffer.New[O](limit)
	if err != nil {
		return nil, err
	}
	actions, err := ringbuffer.New[A](limit)
	if err != nil {
		return nil, err
	}
	rewards, err := ringbuffer.New[float64](limit)
	if err != nil {
		return nil, err
	}
	terminals, err := ringbuffer.New[bool](limit)
	if err != nil {
		return nil, err
	}

	return &Memory[O, A]{
		observations: observations,
		actions:      actions,
		rewards:      rewards,
		terminals:    terminals,
		limit:        limit,
		rng:          o.rng,
		logger:       o.logger,
	}, nil
}

// Append records one step. Once the limit is reached the oldest step is dropped.
func (m *Memory[O, A]) Append(observation O, action A, reward float64, terminal bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.observations.Append(observation)
	m.actions.Append(action)
	m.rewards.Append(reward)
	m.terminals.Append(terminal)
	m.appends++
}

// NbEntries returns the number of retained steps.
func (m *Memory[O, A]) NbEntries() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.observations.Len()
}

// Limit returns the maximum number of retained steps.
func (m *Memory[O, A]) Limit() int {
	return m.limit
}

// Stats returns a snapshot of the memory counters.
func (m *Memory[O, A]) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Stats{
		Entries: m.observations.Len(),
		Limit:   m.limit,
		Appends: m.appends,
	}
}

// Sample draws batchSize experiences with replacement. Each anchor idx is
// uniform in [windowLength, NbEntries()-1] so that a full window precedes it.
func (m *Memory[O, A]) Sample(batchSize, windowLength int) ([]Experience[O, A], error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidArgument, batchSize)
	}
	if windowLength <= 0 {
		return nil, fmt.Errorf("%w: window length must be positive, got %d", ErrInvalidArgument, windowLength)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.observations.Len()
	if entries <= windowLength {
		return nil, fmt.Errorf("%w: have %d entries, need more than %d", ErrInsufficientData, entries, windowLength)
	}

	anchors := m.drawAnchors(batchSize, windowLength, entries-windowLength)

	experiences := make([]Experience[O, A], 0, batchSize)
	for _, idx := range anchors {
		experiences = append(experiences, m.experienceAt(idx, windowLength))
	}

	m.logger.Debug().
		Int("batch_size", batchSize).
		Int("window_length", windowLength).
		Int("entries", entries).
		Msg("sampled batch")

	return experiences, nil
}

func (m *Memory[O, A]) drawAnchors(batchSize, windowLength, span int) []int {
	m.randMu.Lock()
	defer m.randMu.Unlock()

	anchors := make([]int, batchSize)
	for i := range anchors {
		anchors[i] = windowLength + m.rng.Intn(span)
	}
	return anchors
}

// experienceAt builds the experience for anchor idx. Callers hold m.mu.
func (m *Memory[O, A]) experienceAt(idx, windowLength int) Experience[O, A] {
	state0 := make([]O, 0, windowLength)
	for i := idx - windowLength; i < idx; i++ {
		state0 = append(state0, mustGet(m.observations, i))
	}
	state1 := make([]O, 0, windowLength)
	for i := idx - windowLength + 1; i <= idx; i++ {
		state1 = append(state1, mustGet(m.observations, i))
	}

	return Experience[O, A]{
		State0:   state0,
		Action:   mustGet(m.actions, idx-1),
		Reward:   mustGet(m.rewards, idx-1),
		Terminal: mustGet(m.terminals, idx-1),
		State1:   state1,
	}
}

// mustGet reads an index that the anchor range guarantees to be valid.
func mustGet[T any](rb *ringbuffer.RingBuffer[T], index int) T {
	v, err := rb.Get(index)
	if err != nil {
		panic(fmt.Sprintf("memory: sample index invariant violated: %v", err))
	}
	return v
}
