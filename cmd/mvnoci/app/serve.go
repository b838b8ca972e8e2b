package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mvnoci/mvnoci/internal/cache"
	"github.com/mvnoci/mvnoci/internal/metrics"
	"github.com/mvnoci/mvnoci/internal/proxy"
	"github.com/mvnoci/mvnoci/internal/registry"
	"github.com/mvnoci/mvnoci/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve configured registries as Maven repositories",
	Long: `Start one proxy per configured repository. Each proxy binds an ephemeral
loopback port and serves the registry's artifacts using the standard Maven
repository layout; point the resolver at the logged URLs.`,
	RunE: runServe,
}

const (
	metricsReadHeaderTimeout = 10 * time.Second
	metricsShutdownTimeout   = 5 * time.Second
)

func runServe(_ *cobra.Command, _ []string) error {
	logger.Initialize(viper.GetBool("debug"))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cacheDir, err := cfg.EffectiveCacheDir()
	if err != nil {
		return err
	}

	m := metrics.Noop()
	if cfg.MetricsAddress != "" {
		m = metrics.New()
	}

	// The proxies created here are owned here: no global instance tracking,
	// this function stops every proxy it started.
	proxies := make([]*proxy.Proxy, 0, len(cfg.Repositories))
	defer func() {
		for _, p := range proxies {
			p.Stop()
		}
	}()

	for _, repo := range cfg.Repositories {
		store, err := cache.New(cacheDir, repo.URL)
		if err != nil {
			return err
		}

		p := proxy.New(repo, registry.NewResolver(repo),
			proxy.WithStore(store),
			proxy.WithMetrics(m),
		)
		if err := p.Start(); err != nil {
			return err
		}
		proxies = append(proxies, p)
	}

	var metricsServer *http.Server
	if cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
		})

		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: metricsReadHeaderTimeout,
		}
		go func() {
			logger.Infof("Metrics listening on %s", cfg.MetricsAddress)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("Metrics server failed: %v", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Metrics server forced to shut down: %v", err)
		}
	}
	return nil
}
