// Command arcana drives the narrative synthesis engine from the terminal:
// generate a reading document from a JSON context, inspect the symbol
// database, and manage the synthesis cache.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"arcana/internal/astro"
	"arcana/internal/cache"
	"arcana/internal/compose"
	"arcana/internal/config"
	"arcana/internal/enhance"
	"arcana/internal/reading"
	"arcana/internal/synthesis"
	"arcana/internal/tarot"
)

var (
	verbose    bool
	configPath string

	readingFile string
	candidates  int
	skipCache   bool
	deadline    time.Duration
	fixedSeed   float64
	seedSet     bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "arcana",
	Short: "arcana - procedural narrative synthesis for symbolic readings",
	Long: `arcana composes long-form reading documents from a structured context:
an ordered set of symbolic draws, free-form answer signals, and profile data.

Generation is deterministic per seed, ranked across K candidates, and
memoized under a seed-independent canonicalization of the context.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Compose a reading document from a JSON context",
	Long: `Reads a reading context (draws, answers, profile, intention) from a JSON
file or stdin and prints the composed document.

Example:
  arcana generate -f reading.json --candidates 5`,
	RunE: runGenerate,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the persistent synthesis cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show persistent cache statistics",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all persisted documents",
	RunE:  runCacheClear,
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "List the symbol database",
	RunE:  runSymbols,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to arcana.yaml")

	generateCmd.Flags().StringVarP(&readingFile, "file", "f", "-", "reading context JSON file ('-' for stdin)")
	generateCmd.Flags().IntVarP(&candidates, "candidates", "k", 0, "candidate count (0 uses config)")
	generateCmd.Flags().BoolVar(&skipCache, "skip-cache", false, "bypass cache read and write")
	generateCmd.Flags().DurationVar(&deadline, "deadline", 0, "overall deadline (0 uses config)")
	generateCmd.Flags().Float64Var(&fixedSeed, "seed", 0, "pin the base seed (deterministic output)")

	rootCmd.AddCommand(generateCmd, cacheCmd, symbolsCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	seedSet = cmd.Flags().Changed("seed")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	rc, err := loadContext(readingFile)
	if err != nil {
		return err
	}

	store := openStore(cfg)
	if store != nil {
		defer store.Close()
	}
	synthCache := newCache(cfg, store)

	var enhancer enhance.Enhancer = enhance.Nop{}
	if cfg.Enhancement.Enabled && cfg.Enhancement.APIKey != "" {
		g, err := enhance.NewGenAI(cmd.Context(), cfg.Enhancement.APIKey, cfg.Enhancement.Model, cfg.EnhancementTimeout())
		if err != nil {
			logger.Warn("enhancement unavailable, continuing without it", zap.Error(err))
		} else {
			enhancer = g
		}
	}

	orch := synthesis.New(synthesis.Config{
		Cache:    synthCache,
		Composer: compose.New(nil, astro.Provider{}, logger),
		Enhancer: enhancer,
		Logger:   logger,
	})

	opts := synthesis.Options{
		SkipCache:      skipCache,
		CandidateCount: cfg.Synthesis.CandidateCount,
		Deadline:       cfg.DeadlineDuration(),
	}
	if candidates > 0 {
		opts.CandidateCount = candidates
	}
	if deadline > 0 {
		opts.Deadline = deadline
	}
	if seedSet {
		opts.Seed = &fixedSeed
	}

	fmt.Fprintln(cmd.OutOrStdout(), orch.Generate(context.Background(), rc, opts))
	return nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	store := openStore(cfg)
	if store == nil {
		return fmt.Errorf("no persistent cache configured (set cache.store_path)")
	}
	defer store.Close()

	n, err := store.Count()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "persisted documents: %d\nstore path: %s\n", n, cfg.Cache.StorePath)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	store := openStore(cfg)
	if store == nil {
		return fmt.Errorf("no persistent cache configured (set cache.store_path)")
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
	return nil
}

func runSymbols(cmd *cobra.Command, args []string) error {
	ids := make([]int, 0, 22)
	for id := 0; id < 22; id++ {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		s := tarot.Lookup(id)
		fmt.Fprintf(cmd.OutOrStdout(), "%2d  %-20s %-6s %v\n", s.ID, s.Name, s.Element, s.KeywordsUpright)
	}
	return nil
}

func loadContext(path string) (reading.Context, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return reading.Context{}, fmt.Errorf("read reading context: %w", err)
	}

	var rc reading.Context
	if err := json.Unmarshal(data, &rc); err != nil {
		return reading.Context{}, fmt.Errorf("parse reading context: %w", err)
	}
	return rc, nil
}

func openStore(cfg config.Config) *cache.Store {
	if cfg.Cache.StorePath == "" {
		return nil
	}
	store, err := cache.OpenStore(cfg.Cache.StorePath)
	if err != nil {
		logger.Warn("persistent cache unavailable, bypassing", zap.Error(err))
		return nil
	}
	return store
}

func newCache(cfg config.Config, store *cache.Store) *cache.Cache {
	opts := []cache.Option{cache.WithLogger(logger)}
	if store != nil {
		opts = append(opts, cache.WithStore(store))
	}
	return cache.New(cfg.Cache.Capacity, opts...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
