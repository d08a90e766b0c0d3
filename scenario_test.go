package scenario

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-scenario/catalog"
	"github.com/ethereum-optimism/infra/op-scenario/exitcodes"
	"github.com/ethereum-optimism/infra/op-scenario/runner"
	"github.com/ethereum-optimism/infra/op-scenario/types"
)

// mockRunner is a runner.TestRunner whose collection results are scripted.
type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) RunAll(_ context.Context, collection runner.Collection, _ []*runner.TestCase, _ runner.MessageBus) (*runner.CollectionResult, error) {
	args := m.Called(collection.Name)
	res, _ := args.Get(0).(*runner.CollectionResult)
	return res, args.Error(1)
}

func (m *mockRunner) RunCase(context.Context, *runner.TestCase, []any, runner.MessageBus, *runner.Aggregator) (types.RunSummary, error) {
	args := m.Called()
	return args.Get(0).(types.RunSummary), args.Error(1)
}

func (m *mockRunner) Discover(context.Context, *types.Class, runner.MessageBus) ([]*runner.TestCase, error) {
	args := m.Called()
	return nil, args.Error(1)
}

func planPath(t *testing.T) string {
	t.Helper()
	path, err := filepath.Abs("plans/default.yaml")
	require.NoError(t, err)
	return path
}

func testConfig(t *testing.T) *Config {
	return &Config{
		PlanFile:  planPath(t),
		RunOnce:   true,
		ShowTests: true,
		Log:       discardLogger(),
	}
}

func newTestScenario(t *testing.T, cfg *Config, opts Options, shutdown func(error)) *scenario {
	t.Helper()
	classes, err := catalog.Default()
	require.NoError(t, err)
	opts.Catalog = classes
	if opts.Fixtures == nil {
		opts.Fixtures = catalog.Fixtures()
	}
	if opts.Out == nil {
		opts.Out = &bytes.Buffer{}
	}
	opts.DisableService = true
	if shutdown == nil {
		shutdown = func(error) {}
	}
	s, err := New(context.Background(), cfg, opts, "test", shutdown)
	require.NoError(t, err)
	return s
}

func collectionResult(name string, summary types.RunSummary) *runner.CollectionResult {
	return &runner.CollectionResult{Collection: name, RunID: "run-" + name, Summary: summary}
}

func TestScenario_RunOncePass(t *testing.T) {
	m := &mockRunner{}
	for _, name := range []string{"smoke", "ledger", "audit"} {
		m.On("RunAll", name).Return(collectionResult(name, types.RunSummary{Total: 2}), nil).Once()
	}

	shutdownCalled := make(chan error, 1)
	s := newTestScenario(t, testConfig(t), Options{Runner: m}, func(err error) { shutdownCalled <- err })

	require.NoError(t, s.Start(context.Background()))
	select {
	case err := <-shutdownCalled:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("shutdown callback not called")
	}

	result := s.LastResult()
	require.NotNil(t, result)
	assert.Len(t, result.Collections, 3)
	assert.Equal(t, 6, result.Summary.Total)
	m.AssertExpectations(t)

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, s.Stopped())
	require.NoError(t, s.Stop(context.Background()))
}

func TestScenario_RunOnceFailure(t *testing.T) {
	m := &mockRunner{}
	m.On("RunAll", "smoke").Return(collectionResult("smoke", types.RunSummary{Total: 2, Failed: 1}), nil)

	cfg := testConfig(t)
	cfg.Collections = []string{"smoke"}
	s := newTestScenario(t, cfg, Options{Runner: m}, nil)

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsTestFailureError(err))
	m.AssertNotCalled(t, "RunAll", "ledger")
}

func TestScenario_RuntimeError(t *testing.T) {
	m := &mockRunner{}
	m.On("RunAll", "smoke").Return(collectionResult("smoke", types.RunSummary{Total: 1}), errors.New("bus down"))

	cfg := testConfig(t)
	cfg.Collections = []string{"smoke"}
	s := newTestScenario(t, cfg, Options{Runner: m}, nil)

	err := s.Start(context.Background())
	require.Error(t, err)
	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, exitcodes.RuntimeErr, exitErr.ExitCode())
	assert.Contains(t, err.Error(), "bus down")
}

func TestScenario_UnknownCollection(t *testing.T) {
	classes, err := catalog.Default()
	require.NoError(t, err)
	cfg := testConfig(t)
	cfg.Collections = []string{"nope"}
	_, err = New(context.Background(), cfg, Options{Catalog: classes, DisableService: true}, "test", nil)
	assert.ErrorContains(t, err, `collection "nope" not found`)

	_, err = New(context.Background(), nil, Options{}, "test", nil)
	assert.ErrorContains(t, err, "config is required")
}

// TestScenario_EndToEnd runs the bundled plan with the default runner.
func TestScenario_EndToEnd(t *testing.T) {
	out := &bytes.Buffer{}
	cfg := testConfig(t)
	cfg.TranscriptDir = t.TempDir()
	s := newTestScenario(t, cfg, Options{Out: out}, nil)

	require.NoError(t, s.Start(context.Background()))
	defer func() { require.NoError(t, s.Stop(context.Background())) }()

	result := s.LastResult()
	require.NotNil(t, result)
	require.Len(t, result.Collections, 3)
	assert.Equal(t, types.TestStatusPass, result.Summary.Status())
	assert.Equal(t, 42, result.Summary.Total)
	assert.Equal(t, 1, result.Summary.Skipped)

	table := out.String()
	assert.Contains(t, table, "Scenario Results: smoke")
	assert.Contains(t, table, "Scenario Results: ledger")
	assert.Contains(t, table, "deposit and withdraw")
	assert.Contains(t, table, "transfer between accounts")

	for _, res := range result.Collections {
		path := filepath.Join(cfg.TranscriptDir, "run-"+res.RunID, res.Collection+".log")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "collection "+res.Collection+": pass")
	}
}
