package di

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/intake-guard/internal/allowlist"
	"github.com/mikey/intake-guard/internal/config"
	"github.com/mikey/intake-guard/internal/core"
	"github.com/mikey/intake-guard/internal/factory"
	"github.com/mikey/intake-guard/internal/logging"
	"github.com/mikey/intake-guard/internal/metrics"
	"github.com/mikey/intake-guard/internal/ports"
	"github.com/mikey/intake-guard/internal/ratelimit"
	"github.com/mikey/intake-guard/internal/spamgate"
	"github.com/mikey/intake-guard/internal/sweeper"
	"github.com/mikey/intake-guard/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideGateway(container); err != nil {
		return nil, err
	}

	// Register metrics on a dedicated registry
	if err := container.Provide(func() *prometheus.Registry {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		return reg
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(reg *prometheus.Registry) prometheus.Gatherer {
		return reg
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(reg *prometheus.Registry) *metrics.Metrics {
		return metrics.New(reg)
	}); err != nil {
		return nil, err
	}

	// Register store sweeper
	if err := container.Provide(func(cfg *config.Config, store ratelimit.Store, m *metrics.Metrics, logger *zap.Logger) (*sweeper.Sweeper, error) {
		rlCfg, err := cfg.GetRateLimit()
		if err != nil {
			return nil, err
		}
		return sweeper.New(store, rlCfg.SweepSchedule, logger, sweeper.WithObserver(m.RecordSweep)), nil
	}); err != nil {
		return nil, err
	}

	// Register HTTP server
	if err := container.Provide(factory.NewServerFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.ServerFactory) (ports.IntakeServer, error) {
		return f.CreateIntakeServer()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideGateway registers the LLM client, the rate limiter, the spam gate and
// the gateway built from them. The CLI container shares it.
func provideGateway(container *dig.Container) error {
	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return err
	}

	// Register LLM client, nil when no provider is configured
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return err
	}

	// Register rate limit store and limiter
	if err := container.Provide(func(f *factory.StoreFactory) (ratelimit.Store, error) {
		return f.CreateStore()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(cfg *config.Config, store ratelimit.Store, logger *zap.Logger) (*ratelimit.Limiter, error) {
		rlCfg, err := cfg.GetRateLimit()
		if err != nil {
			return nil, err
		}
		logger.Info("Rate limiter configured",
			zap.String("store", rlCfg.Store),
			zap.Int("max_requests", rlCfg.MaxRequests),
			zap.Duration("window", rlCfg.Window))
		return ratelimit.NewLimiter(store, rlCfg.MaxRequests, rlCfg.Window), nil
	}); err != nil {
		return err
	}

	// Register spam gate
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (*spamgate.Gate, error) {
		spamCfg, err := cfg.GetSpam()
		if err != nil {
			return nil, err
		}
		return spamgate.New(
			allowlist.NewChecker(core.ClassificationFields, logger),
			spamgate.Config{
				HoneypotField:          spamCfg.HoneypotField,
				MinFillTime:            spamCfg.MinFillTime,
				RequireRenderTimestamp: spamCfg.RequireRenderTimestamp,
			},
			logger,
		), nil
	}); err != nil {
		return err
	}

	// Register gateway
	return container.Provide(func(
		cfg *config.Config,
		llm core.LLMClient,
		limiter *ratelimit.Limiter,
		gate *spamgate.Gate,
		logger *zap.Logger,
	) (*core.Gateway, error) {
		serverCfg, err := cfg.GetServer()
		if err != nil {
			return nil, err
		}
		llmCfg, err := cfg.GetLLM()
		if err != nil {
			return nil, err
		}
		return core.NewGateway(llm, limiter, gate, core.GatewayConfig{
			Production:               serverCfg.Production(),
			LLMTimeout:               llmCfg.Timeout,
			FallbackWhenUnconfigured: cfg.GetBool("intent.fallback_when_unconfigured"),
		}, logger), nil
	})
}
