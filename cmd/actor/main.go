package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cartridge/memory/internal/actor"
	"github.com/cartridge/memory/internal/config"
	"github.com/cartridge/memory/internal/engine"
	httpServer "github.com/cartridge/memory/internal/http"
	"github.com/cartridge/memory/internal/memory"
	"github.com/cartridge/memory/internal/metrics"
	"github.com/cartridge/memory/internal/policy"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "actor",
	Short: "Cartridge experience memory actor",
	Long: `Actor that plays cartpole episodes, records every step in a bounded
experience memory and periodically samples windowed training batches from it.

Memory statistics and debug samples are served over HTTP when --stats-addr is set.`,
	RunE: runActor,
}

func init() {
	def := config.Default()
	flags := rootCmd.Flags()

	flags.String("actor-id", def.ActorID, "Unique actor identifier")
	flags.Int64("seed", def.Seed, "Random seed (0 seeds from the clock)")

	flags.Int("memory-limit", def.MemoryLimit, "Maximum number of steps retained in memory")
	flags.Int("window-length", def.WindowLength, "Observations per sampled state window")

	flags.Int("batch-size", def.BatchSize, "Experiences per sampled batch")
	flags.Int("sample-interval", def.SampleInterval, "Steps between sampled batches")
	flags.Int("warmup-entries", def.WarmupEntries, "Entries required before sampling starts")

	flags.Int("max-episodes", def.MaxEpisodes, "Maximum episodes to run (-1 for unlimited)")
	flags.Int("max-episode-steps", def.MaxEpisodeSteps, "Step limit per episode")
	flags.Duration("episode-timeout", def.EpisodeTimeout, "Timeout per episode")

	flags.String("stats-addr", def.StatsAddr, "HTTP listen address for memory stats (empty disables)")
	flags.String("log-level", def.LogLevel, "Log level (debug, info, warn, error)")

	// Bind flags to viper keys for environment variable support
	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(flagKey(f.Name), f)
	})
	v.SetEnvPrefix("ACTOR")
	v.AutomaticEnv()
}

func runActor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	level, _ := cfg.Level()
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger.Info().Str("actor_id", cfg.ActorID).Int64("seed", seed).Msg("starting actor")

	// Separate streams keep the engine, the policy and sampling independently reproducible.
	seeds := rand.New(rand.NewSource(seed))
	mem, err := memory.New[[]float64, int](cfg.MemoryLimit,
		memory.WithRand(rand.New(rand.NewSource(seeds.Int63()))),
		memory.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	eng := engine.NewCartPole(rand.New(rand.NewSource(seeds.Int63())), cfg.MaxEpisodeSteps)
	pol, err := policy.NewRandom(eng.ActionSpace(), rand.New(rand.NewSource(seeds.Int63())))
	if err != nil {
		return err
	}

	actorInstance, err := actor.New(cfg, eng, pol, mem, metrics.NewCollector(logger), logger)
	if err != nil {
		return fmt.Errorf("failed to create actor: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var srv *http.Server
	if cfg.StatsAddr != "" {
		srv = &http.Server{
			Addr:              cfg.StatsAddr,
			Handler:           httpServer.NewServer(mem, logger).Routes(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", cfg.StatsAddr).Msg("stats HTTP server starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("stats server failed")
				cancel()
			}
		}()
	}

	runErr := actorInstance.Run(ctx)

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("actor failed: %w", runErr)
	}

	stats := mem.Stats()
	logger.Info().
		Int("episodes", actorInstance.Episodes()).
		Int("steps", actorInstance.Steps()).
		Int("batches", actorInstance.Batches()).
		Int("entries", stats.Entries).
		Msg("actor stopped gracefully")
	return nil
}

// flagKey maps a flag name to its config key, e.g. memory-limit -> memory_limit.
func flagKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
