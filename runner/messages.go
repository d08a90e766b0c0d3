package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum-optimism/infra/op-scenario/clause"
	"github.com/ethereum-optimism/infra/op-scenario/types"
)

var (
	// ErrBusRejected wraps an error returned by MessageBus.Publish. It aborts the
	// run it happened in.
	ErrBusRejected = errors.New("message bus rejected message")
	// ErrCancelled wraps the context error when a run stops early.
	ErrCancelled = errors.New("run cancelled")
)

// MessageKind names a message type.
type MessageKind string

const (
	KindTestCaseDiscovered     MessageKind = "test-case-discovered"
	KindTestCaseStarting       MessageKind = "test-case-starting"
	KindTestCaseFinished       MessageKind = "test-case-finished"
	KindTestCaseCleanupFailure MessageKind = "test-case-cleanup-failure"
	KindTestStarting           MessageKind = "test-starting"
	KindTestFinished           MessageKind = "test-finished"
	KindTestSkipped            MessageKind = "test-skipped"
)

// Message is a notification published to a MessageBus.
type Message interface {
	Kind() MessageKind
	Ref() CaseRef
}

// MessageBus receives execution notifications. Publish is called from the
// goroutines running classes, so implementations must be safe for concurrent
// use. A returned error stops the run that published the message.
type MessageBus interface {
	Publish(ctx context.Context, msg Message) error
}

// BusFunc adapts a function to a MessageBus.
type BusFunc func(ctx context.Context, msg Message) error

func (f BusFunc) Publish(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// DiscardBus accepts and drops every message.
var DiscardBus MessageBus = BusFunc(func(context.Context, Message) error { return nil })

// CaseRef identifies the composite test case a message belongs to.
type CaseRef struct {
	Collection string
	Class      string
	Case       string
}

func (r CaseRef) Ref() CaseRef { return r }

type TestCaseDiscovered struct {
	CaseRef
	DisplayName string
}

type TestCaseStarting struct {
	CaseRef
	DisplayName string
}

type TestCaseFinished struct {
	CaseRef
	DisplayName string
	Summary     types.RunSummary
}

type TestCaseCleanupFailure struct {
	CaseRef
	DisplayName string
	Err         error
}

// TestStarting is published before a single result is produced, whether for
// a clause, a summary or a case-level failure.
type TestStarting struct {
	CaseRef
	DisplayName string
	Role        clause.Role
}

type TestFinished struct {
	CaseRef
	DisplayName string
	Role        clause.Role
	Status      types.TestStatus
	Elapsed     time.Duration
	Output      string
	Err         error
}

type TestSkipped struct {
	CaseRef
	DisplayName string
	Role        clause.Role
	Reason      string
}

func (TestCaseDiscovered) Kind() MessageKind     { return KindTestCaseDiscovered }
func (TestCaseStarting) Kind() MessageKind       { return KindTestCaseStarting }
func (TestCaseFinished) Kind() MessageKind       { return KindTestCaseFinished }
func (TestCaseCleanupFailure) Kind() MessageKind { return KindTestCaseCleanupFailure }
func (TestStarting) Kind() MessageKind           { return KindTestStarting }
func (TestFinished) Kind() MessageKind           { return KindTestFinished }
func (TestSkipped) Kind() MessageKind            { return KindTestSkipped }

func publish(ctx context.Context, bus MessageBus, msg Message) error {
	if err := bus.Publish(ctx, msg); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBusRejected, msg.Kind(), err)
	}
	return nil
}

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
}
