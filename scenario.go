package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-scenario/exitcodes"
	"github.com/ethereum-optimism/infra/op-scenario/registry"
	"github.com/ethereum-optimism/infra/op-scenario/reporting"
	"github.com/ethereum-optimism/infra/op-scenario/runner"
	"github.com/ethereum-optimism/infra/op-scenario/service"
	"github.com/ethereum-optimism/infra/op-scenario/types"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
)

// scenario implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &scenario{}

// RunResult is the outcome of one run over the selected collections.
type RunResult struct {
	Collections []*runner.CollectionResult
	Summary     types.RunSummary
}

// scenario runs the collections of a plan once or periodically.
type scenario struct {
	config    *Config
	version   string
	registry  *registry.Registry
	runner    runner.TestRunner
	recorder  *reporting.Recorder
	bus       runner.MessageBus
	scheduler RunScheduler
	reporter  MetricsReporter
	printer   *ResultPrinter
	service   *service.Service
	progress  runner.ProgressIndicator

	mu     sync.Mutex
	result *RunResult

	running atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

// Options carries the collaborators of a scenario service that are not read
// from the command line.
type Options struct {
	Catalog  types.Catalog
	Fixtures runner.FixtureProvider
	// Runner replaces the default runner, mainly in tests.
	Runner runner.TestRunner
	// Out receives the results tables. Defaults to stdout.
	Out io.Writer
	// DisableService skips the healthz and metrics servers.
	DisableService bool
}

// New creates the scenario service.
func New(ctx context.Context, config *Config, opts Options, version string, shutdownCallback func(error)) (*scenario, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating scenario service with config",
		"plan", config.PlanFile,
		"collections", config.Collections,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce,
		"allowSkips", config.AllowSkips)

	reg, err := registry.NewRegistry(registry.Config{
		Log:      config.Log,
		PlanFile: config.PlanFile,
		Catalog:  opts.Catalog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}
	for _, id := range config.Collections {
		if _, ok := reg.GetCollection(id); !ok {
			return nil, fmt.Errorf("collection %q not found in plan", id)
		}
	}

	progress := runner.NewNoOpProgressIndicator()
	if config.ShowProgress {
		progress = runner.NewConsoleProgressIndicator(config.Log, config.ProgressInterval)
	}
	testRunner := opts.Runner
	if testRunner == nil {
		testRunner, err = runner.NewTestRunner(runner.Config{
			Log:           config.Log,
			Fixtures:      opts.Fixtures,
			Progress:      progress,
			AllowSkips:    config.AllowSkips,
			Serial:        config.Serial,
			MaxWorkers:    config.MaxWorkers,
			ClauseTimeout: config.ClauseTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create test runner: %w", err)
		}
	}
	config.Log.Info("scenario.New: created registry and test runner")

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	var svc *service.Service
	if !opts.DisableService {
		svc = service.New(config.Service, config.Log)
	}

	recorder := reporting.NewRecorder()
	return &scenario{
		config:           config,
		version:          version,
		registry:         reg,
		runner:           testRunner,
		recorder:         recorder,
		bus:              reporting.Fanout(recorder, reporting.NewLogSink(config.Log)),
		scheduler:        NewPeriodicScheduler(config.RunInterval, config.Log),
		reporter:         NewDefaultMetricsReporter(),
		printer:          NewResultPrinter(out, config.ShowTests, config.TranscriptDir),
		service:          svc,
		progress:         progress,
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs the collections immediately and then, unless in run-once mode,
// every run interval.
// Start implements the cliapp.Lifecycle interface.
func (s *scenario) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			s.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	s.running.Store(true)
	if s.service != nil {
		s.service.Start(ctx)
	}

	if s.config.RunOnce {
		s.config.Log.Info("Starting op-scenario in run-once mode", "version", s.version)
	} else {
		s.config.Log.Info("Starting op-scenario in continuous mode", "version", s.version, "interval", s.config.RunInterval)
	}

	if err := s.scheduler.Start(ctx, s.runCollections); err != nil {
		s.config.Log.Error("Runtime error running collections", "error", err)
		return cli.Exit(err.Error(), exitcodes.RuntimeErr)
	}

	if !s.config.RunOnce {
		s.config.Log.Debug("op-scenario started successfully")
		return nil
	}

	s.config.Log.Info("Collections completed, exiting (run-once mode)")
	if result := s.LastResult(); result != nil && result.Summary.Status() == types.TestStatusFail {
		s.config.Log.Warn("Run-once run completed with failures, returning exit code 1")
		return NewTestFailureError(result.Summary)
	}

	go func() {
		s.shutdownCallback(nil)
	}()
	return nil
}

// runCollections runs every selected collection once, sequentially.
func (s *scenario) runCollections(ctx context.Context) (*RunResult, error) {
	s.recorder.Reset()
	result := &RunResult{}

	for _, c := range s.selected() {
		logger := s.config.Log.New("collection", c.Name)
		logger.Info("Running collection", "classes", len(c.Classes))

		res, err := s.runner.RunAll(ctx, c, nil, s.bus)
		if res != nil {
			result.Collections = append(result.Collections, res)
			result.Summary.Aggregate(res.Summary)
			s.reporter.ReportResults(res)
			if report := s.recorder.Report(c.Name); report != nil {
				if perr := s.printer.Print(report, res); perr != nil {
					logger.Error("Failed to print results", "err", perr)
				}
			}
			if res.LifecycleErrors != nil {
				logger.Warn("Collection had lifecycle errors", "err", res.LifecycleErrors)
			}
		}
		if err != nil {
			logger.Error("Runtime error running collection", "error", err)
			return result, NewRuntimeError(err)
		}
	}

	s.mu.Lock()
	s.result = result
	s.mu.Unlock()
	s.config.Log.Info("Run completed", "status", result.Summary.Status(), "summary", result.Summary)
	return result, nil
}

func (s *scenario) selected() []runner.Collection {
	if len(s.config.Collections) == 0 {
		return s.registry.GetCollections()
	}
	var out []runner.Collection
	for _, id := range s.config.Collections {
		if c, ok := s.registry.GetCollection(id); ok {
			out = append(out, c)
		}
	}
	return out
}

// LastResult returns the result of the last completed run, if any.
func (s *scenario) LastResult() *RunResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Stop stops the op-scenario service.
// Stop implements the cliapp.Lifecycle interface.
func (s *scenario) Stop(ctx context.Context) error {
	s.config.Log.Info("Stopping op-scenario")

	if !s.running.Swap(false) {
		s.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}

	err := s.scheduler.Stop()
	s.progress.Stop()
	if s.service != nil {
		s.service.Shutdown()
	}
	s.config.Log.Info("op-scenario stopped successfully")
	return err
}

// Stopped returns true if the op-scenario service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (s *scenario) Stopped() bool {
	return !s.running.Load()
}

// WaitForShutdown blocks until all goroutines have terminated.
func (s *scenario) WaitForShutdown(ctx context.Context) error {
	return s.scheduler.WaitForShutdown(ctx)
}
