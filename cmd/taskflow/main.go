// Command taskflow is a demo wrapper around the engine: it loads a YAML
// task manifest built from a small registry of built-in operations and
// runs it to completion, printing the resulting payload.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"taskflow/internal/cache"
	"taskflow/internal/config"
	"taskflow/internal/logging"
	"taskflow/internal/pool"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskflow",
		Short: "Run and inspect task-flow manifests",
	}
	root.AddCommand(runCmd(), cacheCmd())
	return root
}

func runCmd() *cobra.Command {
	var (
		manifestPath string
		workers      int
		cacheKind    string
		cachePath    string
		serial       bool
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a task manifest to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := config.Load(manifestPath)
			if err != nil {
				return err
			}
			tasks, err := config.Build(m)
			if err != nil {
				return err
			}

			provider, err := openProvider(cacheKind, cachePath)
			if err != nil {
				return err
			}

			opts := []pool.Option{pool.WithCache(provider)}
			if serial {
				opts = append(opts, pool.WithSerialExecutor())
			} else {
				opts = append(opts, pool.WithWorkers(workers))
			}
			if verbose {
				opts = append(opts, pool.WithLogger(logging.New(os.Stderr, zerolog.DebugLevel)))
			}

			p, err := pool.New(tasks, opts...)
			if err != nil {
				return err
			}
			defer p.Close()

			result, err := p.Run(context.Background())
			if err != nil {
				return err
			}

			for _, k := range result.Keys() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", k, result[k])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "path to a YAML task manifest (required)")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel worker count (0 = host parallelism)")
	cmd.Flags().StringVar(&cacheKind, "cache", "sqlite", "cache backend: sqlite or memory")
	cmd.Flags().StringVar(&cachePath, "cache-path", "cache.db", "sqlite cache file path")
	cmd.Flags().BoolVar(&serial, "serial", false, "use the single-threaded serial executor")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	cmd.MarkFlagRequired("manifest")

	return cmd
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or manage the persistent cache",
	}
	cmd.AddCommand(cacheClearCmd())
	return cmd
}

func cacheClearCmd() *cobra.Command {
	var (
		cachePath string
		retain    int
	)
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cache entries, keeping the N most recently inserted",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := cache.OpenSQLite(cachePath)
			if err != nil {
				return err
			}
			defer provider.Close()
			return provider.Clear(retain)
		},
	}
	cmd.Flags().StringVar(&cachePath, "cache-path", "cache.db", "sqlite cache file path")
	cmd.Flags().IntVar(&retain, "retain", 0, "number of most-recent entries to keep (0 clears all)")
	return cmd
}

func openProvider(kind, path string) (cache.Provider, error) {
	switch kind {
	case "memory":
		return cache.NewMemory(), nil
	case "sqlite", "":
		return cache.OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown cache kind %q (want sqlite or memory)", kind)
	}
}
