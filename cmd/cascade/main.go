// Command cascade runs the cache cascade in front of a remote inference
// endpoint and manages its caches.
package main

import (
	"fmt"
	"os"

	"github.com/Sternrassler/cache-cascade/pkg/backend"
	"github.com/Sternrassler/cache-cascade/pkg/cascade"
	"github.com/Sternrassler/cache-cascade/pkg/config"
	"github.com/Sternrassler/cache-cascade/pkg/logging"
	"github.com/Sternrassler/cache-cascade/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "cascade",
		Short:         "Multi-level cache in front of an expensive inference backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: environment only)")

	root.AddCommand(
		newServeCmd(&configPath),
		newWarmCmd(&configPath),
		newClearCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration, configures logging and builds the
// service over the HTTP backend. The returned cleanup releases everything.
func setup(configPath string) (*config.Config, *cascade.Service, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logging.Setup(cfg.LoggingConfig())

	httpCfg := cfg.HTTPConfig()
	var quotaClient *redis.Client
	if cfg.Backend.Quota.Enabled {
		opts, err := cfg.RedisOptions()
		if err != nil {
			return nil, nil, nil, err
		}
		quotaClient = redis.NewClient(opts)
		httpCfg.Quota = ratelimit.NewTracker(quotaClient, cfg.QuotaConfig(), logging.NewLogger("quota"))
	}

	closeQuota := func() {
		if quotaClient != nil {
			quotaClient.Close()
		}
	}

	b, err := backend.NewHTTP(httpCfg)
	if err != nil {
		closeQuota()
		return nil, nil, nil, fmt.Errorf("create backend: %w", err)
	}

	svc, err := cascade.New(cfg.CascadeConfig(b))
	if err != nil {
		closeQuota()
		return nil, nil, nil, fmt.Errorf("create cascade: %w", err)
	}

	cleanup := func() {
		svc.Close()
		closeQuota()
	}
	return cfg, svc, cleanup, nil
}
