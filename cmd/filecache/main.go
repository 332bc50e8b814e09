package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/agentuity/go-filecache/cache"
	"github.com/agentuity/go-filecache/config"
	"github.com/agentuity/go-filecache/env"
	"github.com/agentuity/go-filecache/sys"
)

var rootCmd = &cobra.Command{
	Use:           "filecache",
	Short:         "Inspect and modify a persistent filecache",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a value, given as JSON or as a plain string",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var val any
		if err := json.Unmarshal([]byte(args[1]), &val); err != nil {
			val = args[1]
		}
		ttl, _ := cmd.Flags().GetUint64("ttl")
		opts := &cache.SetItemOptions{TTL: ttl}
		if cmd.Flags().Changed("compress") {
			compress, _ := cmd.Flags().GetBool("compress")
			opts.Compress = sys.Ptr(compress)
		}
		return withCache(cmd, func(ctx context.Context, c *cache.Cache) error {
			return c.Set(ctx, args[0], val, opts)
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value stored under a key as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(ctx context.Context, c *cache.Cache) error {
			found, val, err := c.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%s: not found", args[0])
			}
			return printJSON(cmd, val)
		})
	},
}

var hasCmd = &cobra.Command{
	Use:   "has <key>",
	Short: "Print whether a live value is stored under a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(ctx context.Context, c *cache.Cache) error {
			ok, err := c.Has(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		})
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove <key>",
	Aliases: []string{"rm"},
	Short:   "Remove a key",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(ctx context.Context, c *cache.Cache) error {
			return c.Remove(ctx, args[0])
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(ctx context.Context, c *cache.Cache) error {
			return c.Clear(ctx)
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print entry counts and the backing location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(ctx context.Context, c *cache.Cache) error {
			stats, err := c.Stats(ctx)
			if err != nil {
				return err
			}
			out := map[string]any{
				"total_size":  stats.TotalSize,
				"active_size": stats.ActiveSize,
				"location":    c.Location(),
			}
			if info, err := os.Stat(c.Location()); err == nil && !info.IsDir() {
				out["bytes"] = info.Size()
				out["human_size"] = humanize.Bytes(uint64(info.Size()))
			}
			return printJSON(cmd, out)
		})
	},
}

func printJSON(cmd *cobra.Command, val any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(val)
}

// loadConfig resolves the configuration file, then applies flag and environment overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if fn := env.FlagOrEnv(cmd, "config", env.EnvPrefix+"CONFIG", ""); fn != "" {
		var err error
		if cfg, err = config.Load(fn); err != nil {
			return cfg, err
		}
	}
	cfg.CacheDir = env.FlagOrEnv(cmd, "cache-dir", env.EnvPrefix+"CACHE_DIR", cfg.CacheDir)
	cfg.CacheFileName = env.FlagOrEnv(cmd, "file", env.EnvPrefix+"FILE", cfg.CacheFileName)
	cfg.Backend = config.Backend(env.FlagOrEnv(cmd, "backend", env.EnvPrefix+"BACKEND", string(cfg.Backend)))
	cfg.RedisURL = env.FlagOrEnv(cmd, "redis-url", env.EnvPrefix+"REDIS_URL", cfg.RedisURL)
	return cfg, nil
}

func withCache(cmd *cobra.Command, fn func(ctx context.Context, c *cache.Cache) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := env.NewLogger(cmd)
	c, err := cache.NewFromConfig(cmd.Context(), cfg, cache.WithLogger(log))
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(cmd.Context(), c)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "YAML configuration file ("+env.EnvPrefix+"CONFIG)")
	flags.String("cache-dir", "", "directory holding the cache ("+env.EnvPrefix+"CACHE_DIR)")
	flags.String("file", "", "cache file name ("+env.EnvPrefix+"FILE)")
	flags.String("backend", "", "store backend: file, sqlite or redis ("+env.EnvPrefix+"BACKEND)")
	flags.String("redis-url", "", "redis url for the redis backend ("+env.EnvPrefix+"REDIS_URL)")
	flags.String("log-level", "", "log level ("+env.EnvPrefix+"LOG_LEVEL)")

	setCmd.Flags().Uint64("ttl", 0, "lifetime in seconds, 0 never expires")
	setCmd.Flags().Bool("compress", false, "compress the stored value")

	rootCmd.AddCommand(setCmd, getCmd, hasCmd, removeCmd, clearCmd, statsCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "filecache: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
