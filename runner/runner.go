package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-scenario/clause"
	"github.com/ethereum-optimism/infra/op-scenario/types"
)

// TestCase is one composite test case: a summary member of a class together
// with the definition assembled from the class and its companions.
type TestCase struct {
	Class   *types.Class
	Summary clause.Clause
	// SkipReason, when set, reports the case as skipped without running it.
	SkipReason string
	// Companions supplies aggregated companion instances by class name.
	Companions map[string]any
}

// ID returns "<class>.<summary member>".
func (tc *TestCase) ID() string {
	return tc.Class.Name + "." + tc.Summary.Name()
}

// DisplayName is the summary's description.
func (tc *TestCase) DisplayName() string {
	return tc.Summary.BaseDisplayName()
}

func (tc *TestCase) ref(collection string) CaseRef {
	return CaseRef{Collection: collection, Class: tc.Class.Name, Case: tc.ID()}
}

// Collection is a set of classes run under one parallelization policy and
// one set of collection fixtures.
type Collection struct {
	Name                   string
	DisableParallelization bool
	// MaxWorkers bounds the number of classes running at once. Zero or less
	// means one worker per class.
	MaxWorkers int
	// Classes are run even when no case of theirs was passed to RunAll; their
	// cases come from class-level discovery.
	Classes []*types.Class
	// Skip maps case IDs to skip reasons.
	Skip map[string]string
}

// CollectionResult captures the outcome of a collection run
type CollectionResult struct {
	Collection    string
	RunID         string
	Summary       types.RunSummary
	Classes       map[string]types.RunSummary
	ClassOrder    []string
	WallClockTime time.Duration
	// LifecycleErrors joins construction and disposal failures recorded
	// during the run. They are already counted as failed results.
	LifecycleErrors error
}

// TestRunner defines the interface for running composite test cases
type TestRunner interface {
	// RunAll runs the cases and classes of a collection.
	RunAll(ctx context.Context, collection Collection, cases []*TestCase, bus MessageBus) (*CollectionResult, error)
	// RunCase runs one composite case against an instance constructed from args.
	RunCase(ctx context.Context, tc *TestCase, args []any, bus MessageBus, agg *Aggregator) (types.RunSummary, error)
	// Discover returns one case per summary member declared on class.
	Discover(ctx context.Context, class *types.Class, bus MessageBus) ([]*TestCase, error)
}

// Config holds configuration for creating a new runner
type Config struct {
	Log       log.Logger
	Invoker   Invoker
	Instances InstanceFactory
	Fixtures  FixtureProvider
	Progress  ProgressIndicator
	// AllowSkips reports clauses returning clause.Skip as skipped rather than failed.
	AllowSkips bool
	// Serial runs classes one at a time regardless of the collection policy.
	Serial bool
	// MaxWorkers, when positive, overrides Collection.MaxWorkers.
	MaxWorkers int
	// ClauseTimeout applies to the default invoker only.
	ClauseTimeout time.Duration
}

// runner struct implements TestRunner interface
type runner struct {
	log        log.Logger
	invoker    Invoker
	instances  InstanceFactory
	fixtures   FixtureProvider
	progress   ProgressIndicator
	allowSkips bool
	serial     bool
	maxWorkers int
	tracer     trace.Tracer
	clauses    *ClauseRunner
}

// NewTestRunner creates a new test runner instance
func NewTestRunner(cfg Config) (TestRunner, error) {
	if cfg.MaxWorkers < 0 {
		return nil, fmt.Errorf("max workers cannot be negative: %d", cfg.MaxWorkers)
	}
	if cfg.ClauseTimeout < 0 {
		return nil, fmt.Errorf("clause timeout cannot be negative: %s", cfg.ClauseTimeout)
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Invoker == nil {
		cfg.Invoker = DefaultInvoker{Timeout: cfg.ClauseTimeout}
	}
	if cfg.Instances == nil {
		cfg.Instances = DefaultInstanceFactory{}
	}
	if cfg.Fixtures == nil {
		cfg.Fixtures = StaticFixtures{}
	}
	if cfg.Progress == nil {
		cfg.Progress = NewNoOpProgressIndicator()
	}

	cfg.Log.Debug("NewTestRunner()", "allowSkips", cfg.AllowSkips, "serial", cfg.Serial,
		"maxWorkers", cfg.MaxWorkers, "clauseTimeout", cfg.ClauseTimeout)

	tracer := otel.Tracer("scenario runner")
	return &runner{
		log:        cfg.Log,
		invoker:    cfg.Invoker,
		instances:  cfg.Instances,
		fixtures:   cfg.Fixtures,
		progress:   cfg.Progress,
		allowSkips: cfg.AllowSkips,
		serial:     cfg.Serial,
		maxWorkers: cfg.MaxWorkers,
		tracer:     tracer,
		clauses: &ClauseRunner{
			invoker:    cfg.Invoker,
			allowSkips: cfg.AllowSkips,
			progress:   cfg.Progress,
			tracer:     tracer,
		},
	}, nil
}
