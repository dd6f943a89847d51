package metrics

import (
	"time"

	"github.com/rs/zerolog"
)

// Collector emits actor and memory metrics as structured log events
type Collector struct {
	logger zerolog.Logger
}

func NewCollector(logger zerolog.Logger) *Collector {
	return &Collector{
		logger: logger,
	}
}

// Track completed episodes
func (c *Collector) EpisodeCompleted(episodeID string, steps int, reward float64, duration time.Duration) {
	c.logger.Info().
		Str("metric", "episode_completed").
		Str("episode_id", episodeID).
		Int("steps", steps).
		Float64("reward", reward).
		Dur("duration", duration).
		Msg("Episode metric")
}

// Track sampled training batches
func (c *Collector) BatchSampled(batchSize, windowLength, entries int, meanReward float64, terminals int, latency time.Duration) {
	c.logger.Info().
		Str("metric", "batch_sampled").
		Int("batch_size", batchSize).
		Int("window_length", windowLength).
		Int("entries", entries).
		Float64("mean_reward", meanReward).
		Int("terminals", terminals).
		Dur("latency", latency).
		Msg("Sample metric")
}

// Track failed sample attempts
func (c *Collector) SampleFailed(batchSize, windowLength, entries int, err error) {
	c.logger.Warn().
		Str("metric", "sample_failed").
		Int("batch_size", batchSize).
		Int("window_length", windowLength).
		Int("entries", entries).
		Err(err).
		Msg("Sample metric")
}

// Track memory occupancy
func (c *Collector) MemoryOccupancy(entries, limit int, appends uint64) {
	c.logger.Info().
		Str("metric", "memory_occupancy").
		Int("entries", entries).
		Int("limit", limit).
		Uint64("appends", appends).
		Float64("fill_ratio", float64(entries)/float64(limit)).
		Msg("Memory metric")
}
