package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/maintainerd/gatekeeper/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local item cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired cache entries",
	Long: `Delete entries older than the configured TTL from the local SQLite
cache. Fresh entries are kept.

Example:
  gatekeeper cache purge`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		c, err := cache.Open(cfg.CacheDBPath, time.Duration(cfg.CacheTTLHours)*time.Hour)
		if err != nil {
			fatal(err)
		}
		defer c.Close()

		n, err := c.PurgeStale(context.Background())
		if err != nil {
			fatal(err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Purged %d stale entr(ies) from %s\n", green("✓"), n, cfg.CacheDBPath)
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
}
