package runner

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-scenario/clause"
	"github.com/ethereum-optimism/infra/op-scenario/types"
)

// journey is the instance type of the classes used in these tests.
type journey struct {
	calls       []string
	disposed    int
	disposeErr  error
	constructor []any
}

func (j *journey) Dispose(context.Context) error {
	j.disposed++
	return j.disposeErr
}

// journeys records every instance a class constructs.
type journeys struct {
	mu        sync.Mutex
	instances []*journey
}

func (js *journeys) all() []*journey {
	js.mu.Lock()
	defer js.mu.Unlock()
	return append([]*journey(nil), js.instances...)
}

func newJourneyClass(name string, members ...clause.Member) (*types.Class, *journeys) {
	js := &journeys{}
	class := &types.Class{
		Name: name,
		Type: types.TypeOf[*journey](),
		New: func(_ context.Context, args []any) (any, error) {
			j := &journey{constructor: args}
			js.mu.Lock()
			js.instances = append(js.instances, j)
			js.mu.Unlock()
			return j, nil
		},
		Members: members,
	}
	return class, js
}

func record(name string) clause.Method {
	return clause.Bind(func(_ context.Context, j *journey, _ io.Writer) error {
		j.calls = append(j.calls, name)
		return nil
	})
}

func failing(name string) clause.Method {
	return clause.Bind(func(_ context.Context, j *journey, _ io.Writer) error {
		j.calls = append(j.calls, name)
		return errors.New(name + " failed")
	})
}

// recordingBus keeps every published message in order.
type recordingBus struct {
	mu     sync.Mutex
	msgs   []Message
	reject func(Message) error
}

func (b *recordingBus) Publish(_ context.Context, msg Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.reject != nil {
		if err := b.reject(msg); err != nil {
			return err
		}
	}
	b.msgs = append(b.msgs, msg)
	return nil
}

func (b *recordingBus) messages() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.msgs...)
}

func (b *recordingBus) kinds() []MessageKind {
	var kinds []MessageKind
	for _, m := range b.messages() {
		kinds = append(kinds, m.Kind())
	}
	return kinds
}

// results returns the display names of finished and skipped results in
// publication order.
func (b *recordingBus) results() []string {
	var names []string
	for _, m := range b.messages() {
		switch msg := m.(type) {
		case TestFinished:
			names = append(names, msg.DisplayName)
		case TestSkipped:
			names = append(names, msg.DisplayName)
		}
	}
	return names
}

func (b *recordingBus) finished() []TestFinished {
	var out []TestFinished
	for _, m := range b.messages() {
		if msg, ok := m.(TestFinished); ok {
			out = append(out, msg)
		}
	}
	return out
}

func (b *recordingBus) ofKind(kind MessageKind) []Message {
	var out []Message
	for _, m := range b.messages() {
		if m.Kind() == kind {
			out = append(out, m)
		}
	}
	return out
}

func newTestRunner(t *testing.T, cfg Config) *runner {
	t.Helper()
	if cfg.Log == nil {
		cfg.Log = log.NewLogger(log.DiscardHandler())
	}
	r, err := NewTestRunner(cfg)
	require.NoError(t, err)
	return r.(*runner)
}

// counts strips the elapsed time so summaries can be compared.
func counts(s types.RunSummary) types.RunSummary {
	s.Time = 0
	return s
}
