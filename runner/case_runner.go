package runner

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-scenario/clause"
	"github.com/ethereum-optimism/infra/op-scenario/definition"
	"github.com/ethereum-optimism/infra/op-scenario/metrics"
	"github.com/ethereum-optimism/infra/op-scenario/types"
)

// CaseState is a stage of a composite case run.
type CaseState int

const (
	StateCreated CaseState = iota
	StateInstanceReady
	StateDefinitionBuilt
	StateRunningPreconditions
	StateRunningSteps
	StateRunningSummary
	StateFinalizing
	StateDone
)

func (s CaseState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInstanceReady:
		return "instance-ready"
	case StateDefinitionBuilt:
		return "definition-built"
	case StateRunningPreconditions:
		return "running-preconditions"
	case StateRunningSteps:
		return "running-steps"
	case StateRunningSummary:
		return "running-summary"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// caseRun is the execution context of one composite case. It is owned by a
// single goroutine.
type caseRun struct {
	r     *runner
	tc    *TestCase
	ref   CaseRef
	args  []any
	bus   MessageBus
	agg   *Aggregator
	log   log.Logger
	span  trace.Span
	state CaseState

	instance any
	summary  types.RunSummary
}

// RunCase implements the TestRunner interface
func (r *runner) RunCase(ctx context.Context, tc *TestCase, args []any, bus MessageBus, agg *Aggregator) (types.RunSummary, error) {
	return r.runCase(ctx, "", tc, args, bus, agg)
}

func (r *runner) runCase(ctx context.Context, collection string, tc *TestCase, args []any, bus MessageBus, agg *Aggregator) (types.RunSummary, error) {
	if agg == nil {
		agg = &Aggregator{}
	}
	ref := tc.ref(collection)
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("case %s", ref.Case), trace.WithAttributes(
		attribute.String("collection", collection),
		attribute.String("class", ref.Class),
	))
	defer span.End()

	cr := &caseRun{
		r:    r,
		tc:   tc,
		ref:  ref,
		args: args,
		bus:  bus,
		agg:  agg,
		log:  r.log.New("case", ref.Case),
		span: span,
	}
	summary, err := cr.run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "case aborted")
	} else if summary.Failed > 0 {
		span.SetStatus(codes.Error, "case failed")
	}
	return summary, err
}

func (cr *caseRun) transition(to CaseState) {
	cr.log.Debug("Case state transition", "from", cr.state, "to", to)
	cr.span.AddEvent(to.String())
	cr.state = to
}

func (cr *caseRun) run(ctx context.Context) (types.RunSummary, error) {
	if ctx.Err() != nil {
		return types.RunSummary{}, cancelled(ctx)
	}
	if err := publish(ctx, cr.bus, TestCaseStarting{CaseRef: cr.ref, DisplayName: cr.tc.DisplayName()}); err != nil {
		return types.RunSummary{}, err
	}

	if cr.tc.SkipReason != "" {
		if err := cr.skip(ctx); err != nil {
			return cr.summary, err
		}
		return cr.finish(ctx)
	}

	runErr := cr.execute(ctx)

	// The instance is disposed even when the run was cancelled or aborted.
	cr.transition(StateFinalizing)
	disposeCtx := context.WithoutCancel(ctx)
	err := cr.agg.Run(func() error {
		if err := cr.r.instances.Dispose(disposeCtx, cr.instance); err != nil {
			return fmt.Errorf("disposing %s: %w", cr.ref.Case, err)
		}
		return nil
	})
	if err != nil {
		cr.log.Warn("Failed to dispose test case instance", "err", err)
		cr.summary.Aggregate(types.RunSummary{Total: 1, Failed: 1})
		metrics.RecordErrorDetails("dispose", err)
		msg := TestCaseCleanupFailure{CaseRef: cr.ref, DisplayName: cr.tc.DisplayName(), Err: err}
		if pubErr := publish(disposeCtx, cr.bus, msg); pubErr != nil && runErr == nil {
			runErr = pubErr
		}
	}

	if runErr != nil {
		cr.log.Debug("Case aborted", "err", runErr)
		return cr.summary, runErr
	}
	return cr.finish(ctx)
}

// execute constructs the instance, builds the definition and runs every
// clause followed by the summary. Clause failures never stop it; only a bus
// rejection or cancellation does.
func (cr *caseRun) execute(ctx context.Context) error {
	var instance any
	err := cr.agg.Run(func() (err error) {
		instance, err = cr.r.instances.Create(ctx, cr.tc.Class, cr.args)
		return err
	})
	if err != nil {
		cr.log.Warn("Failed to construct test case instance", "err", err)
		return cr.fail(ctx, err)
	}
	cr.instance = instance
	cr.transition(StateInstanceReady)

	def, err := definition.Build(cr.tc.Class, instance, cr.args, cr.tc.Companions)
	if err != nil {
		cr.log.Error("Invalid composite test definition", "err", err)
		metrics.RecordErrorDetails("definition", err)
		return cr.fail(ctx, err)
	}
	cr.transition(StateDefinitionBuilt)

	cr.transition(StateRunningPreconditions)
	for _, test := range def.Preconditions() {
		if err := cr.runClause(ctx, test); err != nil {
			return err
		}
	}

	cr.transition(StateRunningSteps)
	for _, step := range def.Steps() {
		if err := cr.runClause(ctx, step.Input); err != nil {
			return err
		}
		if step.ExpectedResult != nil {
			if err := cr.runClause(ctx, *step.ExpectedResult); err != nil {
				return err
			}
		}
	}

	cr.transition(StateRunningSummary)
	return cr.runClause(ctx, definition.Test{
		Clause:      cr.tc.Summary,
		Instance:    instance,
		DisplayName: cr.tc.DisplayName(),
	})
}

func (cr *caseRun) runClause(ctx context.Context, test definition.Test) error {
	if ctx.Err() != nil {
		return cancelled(ctx)
	}
	delta, err := cr.r.clauses.Run(ctx, cr.ref, test, cr.bus)
	cr.summary.Aggregate(delta)
	return err
}

// fail reports the whole case as one failed result named after the case.
func (cr *caseRun) fail(ctx context.Context, cause error) error {
	name := cr.tc.DisplayName()
	if err := publish(ctx, cr.bus, TestStarting{CaseRef: cr.ref, DisplayName: name, Role: clause.RoleSummary}); err != nil {
		return err
	}
	cr.summary.Aggregate(types.RunSummary{Total: 1, Failed: 1})
	metrics.RecordClause(cr.ref.Class, clause.RoleSummary.String(), types.TestStatusFail, 0)
	return publish(ctx, cr.bus, TestFinished{
		CaseRef:     cr.ref,
		DisplayName: name,
		Role:        clause.RoleSummary,
		Status:      types.TestStatusFail,
		Err:         cause,
	})
}

func (cr *caseRun) skip(ctx context.Context) error {
	name := cr.tc.DisplayName()
	if err := publish(ctx, cr.bus, TestStarting{CaseRef: cr.ref, DisplayName: name, Role: clause.RoleSummary}); err != nil {
		return err
	}
	cr.summary.Aggregate(types.RunSummary{Total: 1, Skipped: 1})
	metrics.RecordClause(cr.ref.Class, clause.RoleSummary.String(), types.TestStatusSkip, 0)
	return publish(ctx, cr.bus, TestSkipped{
		CaseRef:     cr.ref,
		DisplayName: name,
		Role:        clause.RoleSummary,
		Reason:      cr.tc.SkipReason,
	})
}

func (cr *caseRun) finish(ctx context.Context) (types.RunSummary, error) {
	cr.transition(StateDone)
	metrics.RecordCase(cr.ref.Class, cr.summary.Status())
	cr.log.Debug("Case finished", "summary", cr.summary)
	err := publish(ctx, cr.bus, TestCaseFinished{
		CaseRef:     cr.ref,
		DisplayName: cr.tc.DisplayName(),
		Summary:     cr.summary,
	})
	return cr.summary, err
}
