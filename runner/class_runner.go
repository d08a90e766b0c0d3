package runner

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-scenario/definition"
	"github.com/ethereum-optimism/infra/op-scenario/types"
)

// classGroup is the work a single worker does: the cases of one class.
type classGroup struct {
	class *types.Class
	cases []*TestCase
}

// groupByClass groups cases by class in first-seen order, then appends the
// extra classes that have no case yet. Case order within a class is kept and
// duplicate case IDs are dropped.
func groupByClass(cases []*TestCase, extra ...*types.Class) []classGroup {
	var groups []classGroup
	index := make(map[*types.Class]int)
	seen := make(map[string]bool)
	for _, tc := range cases {
		if tc == nil || tc.Class == nil || seen[tc.ID()] {
			continue
		}
		seen[tc.ID()] = true
		i, ok := index[tc.Class]
		if !ok {
			i = len(groups)
			index[tc.Class] = i
			groups = append(groups, classGroup{class: tc.Class})
		}
		groups[i].cases = append(groups[i].cases, tc)
	}
	for _, class := range extra {
		if class == nil {
			continue
		}
		if _, ok := index[class]; ok {
			continue
		}
		index[class] = len(groups)
		groups = append(groups, classGroup{class: class})
	}
	return groups
}

// runClass runs the cases of one class sequentially, after completing the
// group with cases found by class-level discovery.
func (r *runner) runClass(ctx context.Context, collection Collection, fixtures types.Fixtures, group classGroup, bus MessageBus, agg *Aggregator) (types.RunSummary, error) {
	class := group.class
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("class %s", class.Name), trace.WithAttributes(
		attribute.String("collection", collection.Name),
	))
	defer span.End()
	logger := r.log.New("collection", collection.Name, "class", class.Name)

	var summary types.RunSummary

	known := make(map[string]bool, len(group.cases))
	for _, tc := range group.cases {
		known[tc.ID()] = true
	}
	discovered, err := r.discover(ctx, collection.Name, class, known, bus)
	if err != nil {
		return summary, err
	}
	cases := make([]*TestCase, 0, len(group.cases)+len(discovered))
	cases = append(cases, group.cases...)
	cases = append(cases, discovered...)
	for i, tc := range cases {
		if reason, ok := collection.Skip[tc.ID()]; ok && tc.SkipReason == "" {
			skipped := *tc
			skipped.SkipReason = reason
			cases[i] = &skipped
		}
	}

	r.progress.StartClass(class.Name, len(cases))
	defer r.progress.CompleteClass(class.Name)

	args, err := fixtures.Resolve(class.Args)
	if err != nil {
		logger.Error("Cannot resolve constructor arguments", "err", err)
		cfgErr := &definition.ConfigurationError{Class: class.Name, Err: err}
		for _, tc := range cases {
			if ctx.Err() != nil {
				return summary, cancelled(ctx)
			}
			var s types.RunSummary
			if tc.SkipReason != "" {
				s, err = r.runCase(ctx, collection.Name, tc, nil, bus, agg)
			} else {
				s, err = r.failCase(ctx, collection.Name, tc, cfgErr, bus)
			}
			summary.Aggregate(s)
			if err != nil {
				return summary, err
			}
		}
		return summary, nil
	}

	for _, tc := range cases {
		if ctx.Err() != nil {
			return summary, cancelled(ctx)
		}
		s, err := r.runCase(ctx, collection.Name, tc, args, bus, agg)
		summary.Aggregate(s)
		if err != nil {
			return summary, err
		}
	}
	logger.Debug("Class finished", "summary", summary)
	return summary, nil
}

// failCase reports a case that cannot be run as a single failed result.
func (r *runner) failCase(ctx context.Context, collection string, tc *TestCase, cause error, bus MessageBus) (types.RunSummary, error) {
	cr := &caseRun{
		r:   r,
		tc:  tc,
		ref: tc.ref(collection),
		bus: bus,
		log: r.log.New("case", tc.ID()),
	}
	_, span := r.tracer.Start(ctx, fmt.Sprintf("case %s", tc.ID()))
	defer span.End()
	cr.span = span

	if err := publish(ctx, bus, TestCaseStarting{CaseRef: cr.ref, DisplayName: tc.DisplayName()}); err != nil {
		return types.RunSummary{}, err
	}
	if err := cr.fail(ctx, cause); err != nil {
		return cr.summary, err
	}
	return cr.finish(ctx)
}
