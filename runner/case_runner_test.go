package runner

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-scenario/clause"
	"github.com/ethereum-optimism/infra/op-scenario/definition"
	"github.com/ethereum-optimism/infra/op-scenario/types"
)

func loginMembers(pre1 clause.Method) []clause.Member {
	return []clause.Member{
		clause.Summary("User can log in", "LoginWorks", record("summary")),
		clause.ExpectedResult(1, "Dashboard is shown", "DashboardShown", record("expected")),
		clause.Input(1, "Submit credentials", "Submit", record("input")),
		clause.Precondition(2, "Account exists", "AccountExists", record("pre2")),
		clause.Precondition(1, "Server is up", "ServerUp", pre1),
	}
}

func TestRunCase_TwoPreconditionsOneStep(t *testing.T) {
	class, instances := newJourneyClass("Login", loginMembers(record("pre1"))...)
	r := newTestRunner(t, Config{})
	bus := &recordingBus{}

	tc := NewTestCases(class)[0]
	summary, err := r.RunCase(context.Background(), tc, nil, bus, nil)
	require.NoError(t, err)

	assert.Equal(t, types.RunSummary{Total: 5}, counts(summary))
	assert.Equal(t, []string{
		"[1/4] 1. [Precondition] Server is up",
		"[2/4] 2. [Precondition] Account exists",
		"[3/4] 1. [Input] Submit credentials",
		"[4/4] 1. [Expected Result] Dashboard is shown",
		"User can log in",
	}, bus.results())

	require.Len(t, instances.all(), 1)
	j := instances.all()[0]
	assert.Equal(t, []string{"pre1", "pre2", "input", "expected", "summary"}, j.calls)
	assert.Equal(t, 1, j.disposed)

	kinds := bus.kinds()
	assert.Equal(t, KindTestCaseStarting, kinds[0])
	assert.Equal(t, KindTestCaseFinished, kinds[len(kinds)-1])
	finished := bus.ofKind(KindTestCaseFinished)[0].(TestCaseFinished)
	assert.Equal(t, "Login.LoginWorks", finished.Case)
	assert.Equal(t, summary, finished.Summary)
}

func TestRunCase_StartingPrecedesEachResult(t *testing.T) {
	class, _ := newJourneyClass("Login", loginMembers(record("pre1"))...)
	r := newTestRunner(t, Config{})
	bus := &recordingBus{}

	_, err := r.RunCase(context.Background(), NewTestCases(class)[0], nil, bus, nil)
	require.NoError(t, err)

	var pending string
	for _, m := range bus.messages() {
		switch msg := m.(type) {
		case TestStarting:
			require.Empty(t, pending, "two clauses running at once")
			pending = msg.DisplayName
		case TestFinished:
			require.Equal(t, pending, msg.DisplayName)
			pending = ""
		}
	}
	assert.Empty(t, pending)
}

func TestRunCase_FailureDoesNotShortCircuit(t *testing.T) {
	class, instances := newJourneyClass("Login", loginMembers(failing("pre1"))...)
	r := newTestRunner(t, Config{})
	bus := &recordingBus{}

	summary, err := r.RunCase(context.Background(), NewTestCases(class)[0], nil, bus, nil)
	require.NoError(t, err)

	assert.Equal(t, types.RunSummary{Total: 5, Failed: 1}, counts(summary))
	assert.Equal(t, []string{"pre1", "pre2", "input", "expected", "summary"}, instances.all()[0].calls)

	finished := bus.finished()
	require.Len(t, finished, 5)
	assert.Equal(t, types.TestStatusFail, finished[0].Status)
	assert.ErrorContains(t, finished[0].Err, "pre1 failed")
	for _, f := range finished[1:] {
		assert.Equal(t, types.TestStatusPass, f.Status, f.DisplayName)
	}
}

func TestRunCase_PanickingClauseIsAFailure(t *testing.T) {
	panics := clause.Bind(func(context.Context, *journey, io.Writer) error {
		panic("boom")
	})
	class, instances := newJourneyClass("Login", loginMembers(panics)...)
	r := newTestRunner(t, Config{})
	bus := &recordingBus{}

	summary, err := r.RunCase(context.Background(), NewTestCases(class)[0], nil, bus, nil)
	require.NoError(t, err)
	assert.Equal(t, types.RunSummary{Total: 5, Failed: 1}, counts(summary))
	assert.True(t, errors.Is(bus.finished()[0].Err, ErrPanic))
	assert.Equal(t, 1, instances.all()[0].disposed)
}

func TestRunCase_MissingAggregatedCompanion(t *testing.T) {
	mailbox := &types.Class{
		Name: "Mailbox",
		Type: types.TypeOf[*struct{ inbox []string }](),
		Members: []clause.Member{
			clause.Precondition(1, "inbox is empty", "InboxEmpty", record("inbox")),
		},
	}
	class, instances := newJourneyClass("Login", loginMembers(record("pre1"))...)
	class.Dependencies = []types.Dependency{{Class: mailbox, Relation: types.Aggregation}}

	r := newTestRunner(t, Config{})
	bus := &recordingBus{}
	summary, err := r.RunCase(context.Background(), NewTestCases(class)[0], nil, bus, nil)
	require.NoError(t, err)

	assert.Equal(t, types.RunSummary{Total: 1, Failed: 1}, counts(summary))
	finished := bus.finished()
	require.Len(t, finished, 1)
	assert.Equal(t, "User can log in", finished[0].DisplayName)
	assert.Equal(t, types.TestStatusFail, finished[0].Status)
	assert.True(t, definition.IsConfigurationError(finished[0].Err))
	assert.True(t, errors.Is(finished[0].Err, definition.ErrMissingCompanion))

	j := instances.all()[0]
	assert.Empty(t, j.calls)
	assert.Equal(t, 1, j.disposed)
}

func TestRunCase_AggregatedCompanionFromArgs(t *testing.T) {
	type inbox struct{ checked bool }
	mailbox := &types.Class{
		Name: "Mailbox",
		Type: types.TypeOf[*inbox](),
		Members: []clause.Member{
			clause.Precondition(1, "inbox is empty", "InboxEmpty", clause.Bind(func(_ context.Context, in *inbox, _ io.Writer) error {
				in.checked = true
				return nil
			})),
		},
	}
	class, instances := newJourneyClass("Notify",
		clause.Summary("User is notified", "Notified", record("summary")),
		clause.Input(1, "Send a message", "Send", record("send")),
	)
	class.Dependencies = []types.Dependency{{Class: mailbox, Relation: types.Aggregation}}

	companion := &inbox{}
	r := newTestRunner(t, Config{})
	bus := &recordingBus{}
	summary, err := r.RunCase(context.Background(), NewTestCases(class)[0], []any{companion}, bus, nil)
	require.NoError(t, err)

	assert.Equal(t, types.RunSummary{Total: 3}, counts(summary))
	assert.True(t, companion.checked)
	assert.Equal(t, []string{
		"[1/2] 1. [Precondition] inbox is empty",
		"[2/2] 1. [Input] Send a message",
		"User is notified",
	}, bus.results())
	assert.Equal(t, []any{companion}, instances.all()[0].constructor)
}

type countingFactory struct {
	DefaultInstanceFactory
	createErr error
	disposed  []any
}

func (f *countingFactory) Create(ctx context.Context, class *types.Class, args []any) (any, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.DefaultInstanceFactory.Create(ctx, class, args)
}

func (f *countingFactory) Dispose(ctx context.Context, instance any) error {
	f.disposed = append(f.disposed, instance)
	return f.DefaultInstanceFactory.Dispose(ctx, instance)
}

func TestRunCase_ConstructionFailure(t *testing.T) {
	class, _ := newJourneyClass("Login", loginMembers(record("pre1"))...)
	factory := &countingFactory{createErr: errors.New("no database")}
	r := newTestRunner(t, Config{Instances: factory})
	bus := &recordingBus{}
	agg := &Aggregator{}

	summary, err := r.RunCase(context.Background(), NewTestCases(class)[0], nil, bus, agg)
	require.NoError(t, err)

	assert.Equal(t, types.RunSummary{Total: 1, Failed: 1}, counts(summary))
	assert.Equal(t, []string{"User can log in"}, bus.results())
	assert.ErrorContains(t, bus.finished()[0].Err, "no database")
	assert.True(t, agg.HasErrors())
	assert.Equal(t, []any{nil}, factory.disposed)
}

func TestRunCase_DisposalFailure(t *testing.T) {
	class, _ := newJourneyClass("Login", loginMembers(record("pre1"))...)
	inner := class.New
	class.New = func(ctx context.Context, args []any) (any, error) {
		instance, err := inner(ctx, args)
		instance.(*journey).disposeErr = errors.New("leaked connection")
		return instance, err
	}
	r := newTestRunner(t, Config{})
	bus := &recordingBus{}
	agg := &Aggregator{}

	summary, err := r.RunCase(context.Background(), NewTestCases(class)[0], nil, bus, agg)
	require.NoError(t, err)

	assert.Equal(t, types.RunSummary{Total: 6, Failed: 1}, counts(summary))
	cleanup := bus.ofKind(KindTestCaseCleanupFailure)
	require.Len(t, cleanup, 1)
	assert.ErrorContains(t, cleanup[0].(TestCaseCleanupFailure).Err, "leaked connection")
	require.Len(t, agg.Errors(), 1)
	assert.ErrorContains(t, agg.Err(), "leaked connection")
}

// panickyDisposal disposes nothing and panics instead.
type panickyDisposal struct {
	DefaultInstanceFactory
}

func (panickyDisposal) Dispose(context.Context, any) error {
	panic("pool already closed")
}

func TestRunCase_PanickingDisposalIsRecorded(t *testing.T) {
	class, _ := newJourneyClass("Login", loginMembers(record("pre1"))...)
	r := newTestRunner(t, Config{Instances: panickyDisposal{}})
	bus := &recordingBus{}
	agg := &Aggregator{}

	summary, err := r.RunCase(context.Background(), NewTestCases(class)[0], nil, bus, agg)
	require.NoError(t, err)

	assert.Equal(t, types.RunSummary{Total: 6, Failed: 1}, counts(summary))
	cleanup := bus.ofKind(KindTestCaseCleanupFailure)
	require.Len(t, cleanup, 1)
	assert.ErrorContains(t, cleanup[0].(TestCaseCleanupFailure).Err, "panic: pool already closed")
	require.Len(t, agg.Errors(), 1)
}

func TestRunCase_SkipReason(t *testing.T) {
	class, instances := newJourneyClass("Login", loginMembers(record("pre1"))...)
	r := newTestRunner(t, Config{})
	bus := &recordingBus{}

	tc := NewTestCases(class)[0]
	tc.SkipReason = "maintenance window"
	summary, err := r.RunCase(context.Background(), tc, nil, bus, nil)
	require.NoError(t, err)

	assert.Equal(t, types.RunSummary{Total: 1, Skipped: 1}, counts(summary))
	assert.Empty(t, instances.all())
	skipped := bus.ofKind(KindTestSkipped)
	require.Len(t, skipped, 1)
	assert.Equal(t, "maintenance window", skipped[0].(TestSkipped).Reason)
	assert.Equal(t, []MessageKind{KindTestCaseStarting, KindTestStarting, KindTestSkipped, KindTestCaseFinished}, bus.kinds())
}

func TestRunCase_ClauseSkip(t *testing.T) {
	skips := clause.Bind(func(context.Context, *journey, io.Writer) error {
		return clause.Skip("no network")
	})

	tests := []struct {
		name       string
		allowSkips bool
		want       types.RunSummary
	}{
		{"allowed", true, types.RunSummary{Total: 5, Skipped: 1}},
		{"not allowed", false, types.RunSummary{Total: 5, Failed: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, _ := newJourneyClass("Login", loginMembers(skips)...)
			r := newTestRunner(t, Config{AllowSkips: tt.allowSkips})
			bus := &recordingBus{}

			summary, err := r.RunCase(context.Background(), NewTestCases(class)[0], nil, bus, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, counts(summary))
			assert.Len(t, bus.results(), 5)
		})
	}
}

func TestRunCase_BusRejection(t *testing.T) {
	class, instances := newJourneyClass("Login", loginMembers(record("pre1"))...)
	r := newTestRunner(t, Config{})
	rejected := errors.New("sink closed")
	bus := &recordingBus{reject: func(m Message) error {
		if f, ok := m.(TestFinished); ok && f.Role == clause.RoleStepInput {
			return rejected
		}
		return nil
	}}

	_, err := r.RunCase(context.Background(), NewTestCases(class)[0], nil, bus, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBusRejected))
	assert.True(t, errors.Is(err, rejected))

	j := instances.all()[0]
	assert.Equal(t, []string{"pre1", "pre2", "input"}, j.calls)
	assert.Equal(t, 1, j.disposed)
	assert.Empty(t, bus.ofKind(KindTestCaseFinished))
}

func TestRunCase_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cancelling := clause.Bind(func(_ context.Context, j *journey, _ io.Writer) error {
		j.calls = append(j.calls, "pre1")
		cancel()
		return nil
	})
	class, instances := newJourneyClass("Login", loginMembers(cancelling)...)
	r := newTestRunner(t, Config{})

	summary, err := r.RunCase(ctx, NewTestCases(class)[0], nil, &recordingBus{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCancelled))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, types.RunSummary{Total: 1}, counts(summary))

	j := instances.all()[0]
	assert.Equal(t, []string{"pre1"}, j.calls)
	assert.Equal(t, 1, j.disposed)
}

func TestRunCase_ClauseOutputIsReported(t *testing.T) {
	talking := clause.Bind(func(_ context.Context, _ *journey, out io.Writer) error {
		_, err := io.WriteString(out, "server responded 200\n")
		return err
	})
	class, _ := newJourneyClass("Login", loginMembers(talking)...)
	r := newTestRunner(t, Config{})
	bus := &recordingBus{}

	_, err := r.RunCase(context.Background(), NewTestCases(class)[0], nil, bus, nil)
	require.NoError(t, err)
	assert.Equal(t, "server responded 200\n", bus.finished()[0].Output)
}

func TestCaseState_String(t *testing.T) {
	assert.Equal(t, "running-preconditions", StateRunningPreconditions.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "state(42)", CaseState(42).String())
}
