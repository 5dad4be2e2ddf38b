package factory

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mikey/intake-guard/internal/adapters/httpapi"
	"github.com/mikey/intake-guard/internal/config"
	"github.com/mikey/intake-guard/internal/core"
	"github.com/mikey/intake-guard/internal/metrics"
	"github.com/mikey/intake-guard/internal/ports"
)

// ServerFactory creates the HTTP front end
type ServerFactory struct {
	cfg      *config.Config
	logger   *zap.Logger
	gateway  *core.Gateway
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
}

// NewServerFactory creates a new server factory
func NewServerFactory(
	cfg *config.Config,
	logger *zap.Logger,
	gateway *core.Gateway,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
) *ServerFactory {
	return &ServerFactory{
		cfg:      cfg,
		logger:   logger,
		gateway:  gateway,
		metrics:  m,
		gatherer: gatherer,
	}
}

// CreateIntakeServer creates the HTTP server from the server settings
func (f *ServerFactory) CreateIntakeServer() (ports.IntakeServer, error) {
	serverCfg, err := f.cfg.GetServer()
	if err != nil {
		return nil, err
	}

	return httpapi.NewServer(f.gateway, f.metrics, f.gatherer, httpapi.Options{
		ListenAddress: serverCfg.ListenAddress,
		ReadTimeout:   serverCfg.ReadTimeout,
		WriteTimeout:  serverCfg.WriteTimeout,
		CORSOrigins:   serverCfg.CORSOrigins,
	}, f.logger), nil
}
