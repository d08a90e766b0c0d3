package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-scenario/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = 8080

	MetricsHost = "0.0.0.0"
	MetricsPort = 7300
)

// Config selects the listen addresses of the healthz and metrics servers.
type Config struct {
	HealthzAddr    string
	MetricsEnabled bool
	MetricsAddr    string
}

// DefaultConfig listens on the default ports on all interfaces.
func DefaultConfig() Config {
	return Config{
		HealthzAddr:    net.JoinHostPort(HealthzHost, strconv.Itoa(HealthzPort)),
		MetricsEnabled: true,
		MetricsAddr:    net.JoinHostPort(MetricsHost, strconv.Itoa(MetricsPort)),
	}
}

type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer

	cfg Config
	log log.Logger
}

func New(cfg Config, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Root()
	}
	s := &Service{
		Healthz: &HealthzServer{log: logger},
		Metrics: &MetricsServer{},
		cfg:     cfg,
		log:     logger,
	}
	return s
}

func (s *Service) Start(ctx context.Context) {
	s.log.Info("service starting")

	if s.cfg.HealthzAddr != "" {
		go func() {
			s.log.Info("starting healthz server", "addr", s.cfg.HealthzAddr)
			if err := s.Healthz.Start(ctx, s.cfg.HealthzAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("error starting healthz server", "err", err)
				metrics.RecordErrorDetails("healthz", err)
			}
		}()
	}

	if s.cfg.MetricsEnabled && s.cfg.MetricsAddr != "" {
		go func() {
			s.log.Info("starting metrics server", "addr", s.cfg.MetricsAddr)
			if err := s.Metrics.Start(ctx, s.cfg.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("error starting metrics server", "err", err)
				metrics.RecordErrorDetails("metrics_server", err)
			}
		}()
	}

	s.log.Info("service started")
}

func (s *Service) Shutdown() {
	s.log.Info("service shutting down")

	_ = s.Healthz.Shutdown()
	s.log.Info("healthz stopped")

	_ = s.Metrics.Shutdown()
	s.log.Info("metrics stopped")

	s.log.Info("service stopped")
}
