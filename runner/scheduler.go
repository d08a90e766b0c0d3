package runner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/ethereum-optimism/infra/op-scenario/metrics"
	"github.com/ethereum-optimism/infra/op-scenario/types"
)

// RunAll implements the TestRunner interface.
//
// Cases are grouped by class. Each class runs its cases sequentially on one
// goroutine. Classes run one at a time when the collection disables
// parallelization (or the runner is serial), and otherwise concurrently with
// at most the configured number of workers.
func (r *runner) RunAll(ctx context.Context, collection Collection, cases []*TestCase, bus MessageBus) (*CollectionResult, error) {
	runID := uuid.New().String()
	start := time.Now()
	logger := r.log.New("collection", collection.Name, "run_id", runID)

	ctx, span := r.tracer.Start(ctx, "collection "+collection.Name)
	defer span.End()

	groups := groupByClass(cases, collection.Classes...)
	fixtures := types.MergeFixtures(r.fixtures.AssemblyFixtures(), r.fixtures.CollectionFixtures(collection.Name))
	agg := &Aggregator{}

	result := &CollectionResult{
		Collection: collection.Name,
		RunID:      runID,
		Classes:    make(map[string]types.RunSummary, len(groups)),
	}
	for _, g := range groups {
		result.ClassOrder = append(result.ClassOrder, g.class.Name)
	}

	r.progress.StartCollection(collection.Name, len(groups))
	defer r.progress.CompleteCollection(collection.Name)

	var err error
	if collection.DisableParallelization || r.serial {
		logger.Info("Running classes sequentially", "classes", len(groups))
		err = r.runSequential(ctx, collection, fixtures, groups, bus, agg, result)
	} else {
		workers := r.workerLimit(collection, len(groups))
		logger.Info("Running classes in parallel", "classes", len(groups), "workers", workers)
		err = r.runParallel(ctx, collection, fixtures, groups, workers, bus, agg, result)
	}

	result.WallClockTime = time.Since(start)
	result.LifecycleErrors = agg.Err()
	if err != nil {
		span.RecordError(err)
		metrics.RecordErrorDetails("collection", err)
		logger.Error("Collection run aborted", "err", err, "summary", result.Summary)
		return result, err
	}

	logger.Info("Collection run completed", "status", result.Summary.Status(), "summary", result.Summary,
		"wallClock", result.WallClockTime)
	return result, nil
}

func (r *runner) workerLimit(collection Collection, groups int) int {
	limit := collection.MaxWorkers
	if r.maxWorkers > 0 {
		limit = r.maxWorkers
	}
	if limit <= 0 || limit > groups {
		limit = groups
	}
	return max(limit, 1)
}

func (r *runner) runSequential(ctx context.Context, collection Collection, fixtures types.Fixtures, groups []classGroup, bus MessageBus, agg *Aggregator, result *CollectionResult) error {
	for _, g := range groups {
		if ctx.Err() != nil {
			return cancelled(ctx)
		}
		s, err := r.runClass(ctx, collection, fixtures, g, bus, agg)
		result.Summary.Aggregate(s)
		result.Classes[g.class.Name] = s
		if err != nil {
			return err
		}
	}
	return nil
}

// runParallel starts one goroutine per class, bounded by a weighted semaphore.
// The first infrastructure error cancels the remaining classes.
func (r *runner) runParallel(ctx context.Context, collection Collection, fixtures types.Fixtures, groups []classGroup, workers int, bus MessageBus, agg *Aggregator, result *CollectionResult) error {
	parent := ctx
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	started := 0
	for _, g := range groups {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		started++
		wg.Add(1)
		go func(g classGroup) {
			defer wg.Done()
			defer sem.Release(1)

			s, err := r.runClass(ctx, collection, fixtures, g, bus, agg)

			mu.Lock()
			defer mu.Unlock()
			result.Summary.Aggregate(s)
			result.Classes[g.class.Name] = s
			if err != nil && firstErr == nil {
				firstErr = err
				cancel(err)
			}
		}(g)
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	// Cancellation only aborts the run when it kept a class from starting,
	// as in runSequential.
	if started < len(groups) && parent.Err() != nil {
		return cancelled(parent)
	}
	return nil
}
