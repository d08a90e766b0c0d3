package runner

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-scenario/clause"
	"github.com/ethereum-optimism/infra/op-scenario/definition"
	"github.com/ethereum-optimism/infra/op-scenario/metrics"
	"github.com/ethereum-optimism/infra/op-scenario/types"
)

// ClauseRunner runs a single clause and reports exactly one result for it.
type ClauseRunner struct {
	invoker    Invoker
	allowSkips bool
	progress   ProgressIndicator
	tracer     trace.Tracer
}

// NewClauseRunner creates a clause runner around invoker.
func NewClauseRunner(invoker Invoker, allowSkips bool) *ClauseRunner {
	return &ClauseRunner{
		invoker:    invoker,
		allowSkips: allowSkips,
		progress:   NewNoOpProgressIndicator(),
		tracer:     otel.Tracer("scenario runner"),
	}
}

// Run invokes the clause and publishes its result. A failing or panicking
// body is counted in the returned delta and never returned as an error; the
// error is only non-nil when the bus rejects a message.
func (c *ClauseRunner) Run(ctx context.Context, ref CaseRef, test definition.Test, bus MessageBus) (types.RunSummary, error) {
	ctx, span := c.tracer.Start(ctx, test.DisplayName, trace.WithAttributes(
		attribute.String("class", ref.Class),
		attribute.String("case", ref.Case),
		attribute.String("role", test.Clause.Role.String()),
	))
	defer span.End()

	if err := publish(ctx, bus, TestStarting{CaseRef: ref, DisplayName: test.DisplayName, Role: test.Clause.Role}); err != nil {
		return types.RunSummary{}, err
	}
	progressKey := ref.Case + " " + test.DisplayName
	c.progress.StartTest(progressKey)

	inv := c.invoker.Invoke(ctx, test)
	delta := types.RunSummary{Total: 1, Time: inv.Elapsed}

	status := types.TestStatusPass
	var msg Message
	reason, skipped := clause.SkipReason(inv.Err)
	switch {
	case inv.Err == nil:
	case skipped && c.allowSkips:
		status = types.TestStatusSkip
		delta.Skipped = 1
		msg = TestSkipped{CaseRef: ref, DisplayName: test.DisplayName, Role: test.Clause.Role, Reason: reason}
	default:
		status = types.TestStatusFail
		delta.Failed = 1
		span.RecordError(inv.Err)
		span.SetStatus(codes.Error, "clause failed")
	}
	if msg == nil {
		msg = TestFinished{
			CaseRef:     ref,
			DisplayName: test.DisplayName,
			Role:        test.Clause.Role,
			Status:      status,
			Elapsed:     inv.Elapsed,
			Output:      inv.Output,
			Err:         inv.Err,
		}
	}

	c.progress.UpdateTest(progressKey, status)
	metrics.RecordClause(ref.Class, test.Clause.Role.String(), status, inv.Elapsed)

	if err := publish(ctx, bus, msg); err != nil {
		return delta, err
	}
	return delta, nil
}
