package reporting

import (
	"context"
	"errors"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-scenario/runner"
	"github.com/ethereum-optimism/infra/op-scenario/types"
)

// LogSink is a runner.MessageBus that writes every message to a logger.
type LogSink struct {
	log log.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger log.Logger) *LogSink {
	return &LogSink{log: logger}
}

// Publish implements runner.MessageBus.
func (s *LogSink) Publish(_ context.Context, msg runner.Message) error {
	ref := msg.Ref()
	l := s.log.New("collection", ref.Collection, "case", ref.Case)

	switch m := msg.(type) {
	case runner.TestCaseDiscovered:
		l.Debug("Discovered test case", "name", m.DisplayName)
	case runner.TestCaseStarting:
		l.Info("Starting test case", "name", m.DisplayName)
	case runner.TestStarting:
		l.Debug("Starting test", "test", m.DisplayName, "role", m.Role)
	case runner.TestFinished:
		if m.Status == types.TestStatusPass {
			l.Info("Test passed", "test", m.DisplayName, "duration", m.Elapsed)
			return nil
		}
		l.Warn("Test failed", "test", m.DisplayName, "duration", m.Elapsed, "err", m.Err,
			"output", stripansi.Strip(m.Output))
	case runner.TestSkipped:
		l.Info("Test skipped", "test", m.DisplayName, "reason", m.Reason)
	case runner.TestCaseCleanupFailure:
		l.Error("Test case cleanup failed", "name", m.DisplayName, "err", m.Err)
	case runner.TestCaseFinished:
		l.Info("Finished test case", "name", m.DisplayName, "status", m.Summary.Status(), "summary", m.Summary)
	default:
		l.Warn("Unknown message", "kind", msg.Kind())
	}
	return nil
}

// Fanout returns a bus that publishes every message to each of buses in
// order. All buses receive the message; their errors are joined.
func Fanout(buses ...runner.MessageBus) runner.MessageBus {
	return runner.BusFunc(func(ctx context.Context, msg runner.Message) error {
		var errs []error
		for _, bus := range buses {
			if bus == nil {
				continue
			}
			if err := bus.Publish(ctx, msg); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
