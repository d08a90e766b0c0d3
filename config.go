package scenario

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/op-scenario/flags"
	"github.com/ethereum-optimism/infra/op-scenario/service"
)

// Config holds the application configuration
type Config struct {
	PlanFile         string
	Collections      []string      // Collections to run; all when empty
	RunInterval      time.Duration // Interval between runs
	RunOnce          bool          // Indicates if the service should exit after one run
	AllowSkips       bool          // Report clauses skipping themselves as skipped instead of failed
	Serial           bool          // Run classes one at a time
	MaxWorkers       int           // Overrides the plan's max_workers when positive
	ClauseTimeout    time.Duration // Timeout for every clause body, 0 disables it
	ShowProgress     bool          // Whether to log periodic progress updates
	ProgressInterval time.Duration // Interval between progress updates when ShowProgress is 'true'
	ShowTests        bool          // Include clause rows in the results table
	TranscriptDir    string        // Directory for plain-text transcripts, disabled when empty
	Service          service.Config
	Log              log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}
	plan := ctx.String(flags.Plan.Name)
	if plan == "" {
		return nil, errors.New("plan file is required")
	}
	absPlan, err := filepath.Abs(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for plan '%s': %w", plan, err)
	}

	maxWorkers := ctx.Int(flags.MaxWorkers.Name)
	if maxWorkers < 0 {
		return nil, fmt.Errorf("max workers cannot be negative: %d", maxWorkers)
	}
	clauseTimeout := ctx.Duration(flags.ClauseTimeout.Name)
	if clauseTimeout < 0 {
		return nil, fmt.Errorf("clause timeout cannot be negative: %s", clauseTimeout)
	}
	runInterval := ctx.Duration(flags.RunInterval.Name)
	if runInterval < 0 {
		return nil, fmt.Errorf("run interval cannot be negative: %s", runInterval)
	}

	transcriptDir := ctx.String(flags.TranscriptDir.Name)
	if transcriptDir != "" {
		transcriptDir, err = filepath.Abs(transcriptDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for transcript directory: %w", err)
		}
	}

	metricsCfg := opmetrics.ReadCLIConfig(ctx)

	return &Config{
		PlanFile:         absPlan,
		Collections:      ctx.StringSlice(flags.Collection.Name),
		RunInterval:      runInterval,
		RunOnce:          runInterval == 0,
		AllowSkips:       ctx.Bool(flags.AllowSkips.Name),
		Serial:           ctx.Bool(flags.Serial.Name),
		MaxWorkers:       maxWorkers,
		ClauseTimeout:    clauseTimeout,
		ShowProgress:     ctx.Bool(flags.ShowProgress.Name),
		ProgressInterval: ctx.Duration(flags.ProgressInterval.Name),
		ShowTests:        ctx.Bool(flags.ShowTests.Name),
		TranscriptDir:    transcriptDir,
		Service: service.Config{
			HealthzAddr:    ctx.String(flags.HealthzAddr.Name),
			MetricsEnabled: metricsCfg.Enabled,
			MetricsAddr:    net.JoinHostPort(metricsCfg.ListenAddr, strconv.Itoa(metricsCfg.ListenPort)),
		},
		Log: log,
	}, nil
}
