package actor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cartridge/memory/internal/config"
	"github.com/cartridge/memory/internal/engine"
	"github.com/cartridge/memory/internal/memory"
	"github.com/cartridge/memory/internal/metrics"
	"github.com/cartridge/memory/internal/policy"
)

// Memory is the step history the actor fills: cartpole observations and
// discrete actions.
type Memory = memory.Memory[[]float64, int]

// Actor plays episodes against an engine, records every step into a Memory
// and periodically draws training batches from it.
type Actor struct {
	cfg     *config.Config
	engine  engine.Engine
	policy  policy.Policy
	memory  *Memory
	metrics *metrics.Collector
	logger  zerolog.Logger

	episodeCount int
	totalSteps   int
	batches      int
}

// New creates a new actor instance
func New(cfg *config.Config, eng engine.Engine, pol policy.Policy, mem *Memory, collector *metrics.Collector, logger zerolog.Logger) (*Actor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if eng == nil || pol == nil || mem == nil || collector == nil {
		return nil, errors.New("engine, policy, memory and metrics are required")
	}
	if mem.Limit() != cfg.MemoryLimit {
		return nil, fmt.Errorf("memory limit %d does not match memory_limit %d", mem.Limit(), cfg.MemoryLimit)
	}

	logger = logger.With().Str("actor_id", cfg.ActorID).Logger()
	logger.Info().
		Int("memory_limit", mem.Limit()).
		Int("window_length", cfg.WindowLength).
		Int("batch_size", cfg.BatchSize).
		Msg("actor initialized")

	return &Actor{
		cfg:     cfg,
		engine:  eng,
		policy:  pol,
		memory:  mem,
		metrics: collector,
		logger:  logger,
	}, nil
}

// Run starts the actor main loop. It returns nil after MaxEpisodes episodes
// and ctx.Err() when ctx is cancelled.
func (a *Actor) Run(ctx context.Context) error {
	a.logger.Info().Msg("actor starting main loop")

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("context cancelled, stopping actor")
			return ctx.Err()
		default:
		}

		if a.cfg.MaxEpisodes > 0 && a.episodeCount >= a.cfg.MaxEpisodes {
			a.logger.Info().Int("episodes", a.episodeCount).Msg("reached maximum episodes, stopping")
			return nil
		}

		if err := a.runEpisode(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Continue with next episode rather than stopping
			a.logger.Warn().Err(err).Int("episode", a.episodeCount+1).Msg("episode failed")
		}

		a.episodeCount++
		if a.episodeCount%10 == 0 {
			stats := a.memory.Stats()
			a.metrics.MemoryOccupancy(stats.Entries, stats.Limit, stats.Appends)
		}
	}
}

// Episodes returns the number of finished episodes.
func (a *Actor) Episodes() int {
	return a.episodeCount
}

// Steps returns the number of steps recorded across all episodes.
func (a *Actor) Steps() int {
	return a.totalSteps
}

// Batches returns the number of batches sampled so far.
func (a *Actor) Batches() int {
	return a.batches
}

// runEpisode plays one episode, appending each step to memory
func (a *Actor) runEpisode(ctx context.Context) error {
	episodeCtx, cancel := context.WithTimeout(ctx, a.cfg.EpisodeTimeout)
	defer cancel()

	episodeID := uuid.New().String()
	start := time.Now()
	observation := a.engine.Reset()
	episodeReward := 0.0

	for step := 1; ; step++ {
		select {
		case <-episodeCtx.Done():
			return fmt.Errorf("episode %s interrupted after %d steps: %w", episodeID, step-1, episodeCtx.Err())
		default:
		}

		action, err := a.policy.SelectAction(observation)
		if err != nil {
			return fmt.Errorf("failed to select action: %w", err)
		}

		next, reward, done := a.engine.Step(action)
		a.memory.Append(observation, action, reward, done)
		a.totalSteps++
		episodeReward += reward

		if a.totalSteps%a.cfg.SampleInterval == 0 {
			a.sampleBatch()
		}

		if done || step >= a.cfg.MaxEpisodeSteps {
			a.metrics.EpisodeCompleted(episodeID, step, episodeReward, time.Since(start))
			return nil
		}
		observation = next
	}
}

// sampleBatch draws one batch once the memory has warmed up and holds more
// entries than a window needs
func (a *Actor) sampleBatch() {
	entries := a.memory.NbEntries()
	if entries <= a.cfg.WarmupEntries || entries <= a.cfg.WindowLength {
		return
	}

	start := time.Now()
	batch, err := a.memory.Sample(a.cfg.BatchSize, a.cfg.WindowLength)
	if err != nil {
		a.metrics.SampleFailed(a.cfg.BatchSize, a.cfg.WindowLength, entries, err)
		return
	}

	var rewardSum float64
	terminals := 0
	for _, exp := range batch {
		rewardSum += exp.Reward
		if exp.Terminal {
			terminals++
		}
	}
	a.batches++
	a.metrics.BatchSampled(len(batch), a.cfg.WindowLength, entries,
		rewardSum/float64(len(batch)), terminals, time.Since(start))
}
