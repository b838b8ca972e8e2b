package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mvnoci/mvnoci/internal/cache"
	"github.com/mvnoci/mvnoci/pkg/logger"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the persistent artifact cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached artifacts for the configured repositories",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheClear(_ *cobra.Command, _ []string) error {
	logger.Initialize(viper.GetBool("debug"))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cacheDir, err := cfg.EffectiveCacheDir()
	if err != nil {
		return err
	}

	for _, repo := range cfg.Repositories {
		store, err := cache.New(cacheDir, repo.URL)
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return err
		}
		logger.Infof("Cleared cache for repository %q", repo.Name)
	}
	return nil
}
