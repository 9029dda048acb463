package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/casteleyn/rollbook/config"
	"github.com/casteleyn/rollbook/db"
	"github.com/casteleyn/rollbook/errors"
	"github.com/casteleyn/rollbook/lifecycle"
	"github.com/casteleyn/rollbook/logger"
)

// CacheCmd manages the lifecycle date cache.
var CacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the lifecycle date cache",
	Long: `Manage the local cache of deceased and archived dates fetched from the
directory. The cache keeps repeat runs from re-fetching person detail for
people whose lifecycle dates are already known.

Examples:
  rollbook cache stats    # Show cache path and entry count
  rollbook cache clear    # Drop all cached lifecycle dates`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show lifecycle cache statistics",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all cached lifecycle dates",
	RunE:  runCacheClear,
}

func init() {
	CacheCmd.AddCommand(cacheStatsCmd)
	CacheCmd.AddCommand(cacheClearCmd)
}

func openCache() (*config.Config, *lifecycle.Cache, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "failed to load configuration")
	}

	database, err := db.OpenWithMigrations(cfg.Cache.Path, logger.Logger)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "failed to open lifecycle cache database")
	}

	cache, err := lifecycle.OpenCache(database, logger.Logger)
	if err != nil {
		database.Close()
		return nil, nil, nil, errors.Wrap(err, "failed to load lifecycle cache")
	}

	return cfg, cache, func() { database.Close() }, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cfg, cache, closeDB, err := openCache()
	if err != nil {
		return err
	}
	defer closeDB()

	rows := pterm.TableData{
		{"Cache Path", cfg.Cache.Path},
		{"Cached People", fmt.Sprintf("%d", cache.Len())},
	}
	return pterm.DefaultTable.WithData(rows).Render()
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	_, cache, closeDB, err := openCache()
	if err != nil {
		return err
	}
	defer closeDB()

	dropped := cache.Len()
	if err := cache.Clear(); err != nil {
		return errors.Wrap(err, "failed to clear lifecycle cache")
	}

	pterm.Success.Printf("Dropped %d cached lifecycle entries", dropped)
	return nil
}
