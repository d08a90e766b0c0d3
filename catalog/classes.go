package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"

	"github.com/google/uuid"

	"github.com/ethereum-optimism/infra/op-scenario/clause"
	"github.com/ethereum-optimism/infra/op-scenario/types"
)

// accountCase is the state shared by every class inheriting AccountSetup: a
// fresh account on the shared ledger.
type accountCase struct {
	ledger  *Ledger
	audit   *AuditTrail
	account string
}

func newAccountCase(args []any) (accountCase, error) {
	if len(args) < 1 {
		return accountCase{}, errors.New("missing ledger argument")
	}
	ledger, ok := args[0].(*Ledger)
	if !ok {
		return accountCase{}, fmt.Errorf("argument 0 is %T, want *Ledger", args[0])
	}
	ac := accountCase{ledger: ledger, account: "acct-" + uuid.NewString()}
	if len(args) > 1 {
		ac.audit, _ = args[1].(*AuditTrail)
	}
	return ac, nil
}

func (a *accountCase) base() *accountCase { return a }

func (a *accountCase) record(entry string) {
	if a.audit != nil {
		a.audit.Record(a.account, entry)
	}
}

func (a *accountCase) expectBalance(want int64) error {
	got, err := a.ledger.Balance(a.account)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("balance of %s: want %d, got %d", a.account, want, got)
	}
	return nil
}

// accountHolder is implemented by the instances of classes inheriting AccountSetup.
type accountHolder interface {
	base() *accountCase
}

// AccountSetup contributes the account precondition to the classes that
// inherit it.
func AccountSetup() *types.Class {
	return &types.Class{
		Name: "AccountSetup",
		Type: types.TypeOf[accountHolder](),
		Members: []clause.Member{
			clause.Precondition(1, "account is open", "OpenAccount",
				clause.Bind(func(_ context.Context, h accountHolder, out io.Writer) error {
					a := h.base()
					fmt.Fprintf(out, "opening %s\n", a.account)
					return a.ledger.Open(a.account)
				})),
		},
	}
}

// AuditLog is aggregated by classes that record their operations. Its
// instance is the *AuditTrail fixture.
func AuditLog() *types.Class {
	return &types.Class{
		Name: "AuditLog",
		Type: types.TypeOf[*AuditTrail](),
		Members: []clause.Member{
			clause.Precondition(2, "audit trail is recording", "AuditTrailRecording",
				clause.Bind(func(_ context.Context, a *AuditTrail, _ io.Writer) error {
					if a == nil || a.entries == nil {
						return errors.New("audit trail is not initialised")
					}
					return nil
				})),
		},
	}
}

type depositCase struct {
	accountCase
}

func (d *depositCase) Dispose(context.Context) error {
	d.ledger.Close(d.account)
	return nil
}

// Deposit deposits and withdraws on a fresh account. Its second summary
// reuses the same steps to check that overdrafts are rejected.
func Deposit(accountSetup, auditLog *types.Class) *types.Class {
	bind := func(fn func(ctx context.Context, d *depositCase, out io.Writer) error) clause.Method {
		return clause.Bind(fn)
	}
	return &types.Class{
		Name: "Deposit",
		Type: types.TypeOf[*depositCase](),
		Args: []reflect.Type{types.TypeOf[*Ledger](), types.TypeOf[*AuditTrail]()},
		New: func(_ context.Context, args []any) (any, error) {
			ac, err := newAccountCase(args)
			if err != nil {
				return nil, err
			}
			return &depositCase{accountCase: ac}, nil
		},
		Dependencies: []types.Dependency{
			{Class: accountSetup, Relation: types.Inheritance},
			{Class: auditLog, Relation: types.Aggregation},
		},
		Members: []clause.Member{
			clause.Input(1, "deposit 100", "Deposit100", bind(func(_ context.Context, d *depositCase, _ io.Writer) error {
				d.record("deposit 100")
				return d.ledger.Deposit(d.account, 100)
			})),
			clause.ExpectedResult(1, "balance is 100", "BalanceIs100", bind(func(_ context.Context, d *depositCase, _ io.Writer) error {
				return d.expectBalance(100)
			})),
			clause.Input(2, "withdraw 40", "Withdraw40", bind(func(_ context.Context, d *depositCase, _ io.Writer) error {
				d.record("withdraw 40")
				return d.ledger.Withdraw(d.account, 40)
			})),
			clause.ExpectedResult(2, "balance is 60", "BalanceIs60", bind(func(_ context.Context, d *depositCase, _ io.Writer) error {
				return d.expectBalance(60)
			})),
			clause.Summary("deposit and withdraw", "DepositAndWithdraw", bind(func(_ context.Context, d *depositCase, out io.Writer) error {
				entries := d.audit.Entries(d.account)
				fmt.Fprintf(out, "audit: %v\n", entries)
				if !slices.Equal(entries, []string{"deposit 100", "withdraw 40"}) {
					return fmt.Errorf("unexpected audit entries %v", entries)
				}
				return nil
			})),
			clause.Summary("", "RejectOverdraft", bind(func(_ context.Context, d *depositCase, _ io.Writer) error {
				err := d.ledger.Withdraw(d.account, 1000)
				if !errors.Is(err, ErrInsufficientFunds) {
					return fmt.Errorf("overdraft: want %v, got %v", ErrInsufficientFunds, err)
				}
				return d.expectBalance(60)
			})),
		},
	}
}

type transferCase struct {
	accountCase
	counterparty string
}

func (t *transferCase) Dispose(context.Context) error {
	t.ledger.Close(t.account)
	t.ledger.Close(t.counterparty)
	return nil
}

// Transfer moves funds from a fresh account to a second one.
func Transfer(accountSetup *types.Class) *types.Class {
	bind := func(fn func(ctx context.Context, t *transferCase, out io.Writer) error) clause.Method {
		return clause.Bind(fn)
	}
	return &types.Class{
		Name: "Transfer",
		Type: types.TypeOf[*transferCase](),
		Args: []reflect.Type{types.TypeOf[*Ledger]()},
		New: func(_ context.Context, args []any) (any, error) {
			ac, err := newAccountCase(args)
			if err != nil {
				return nil, err
			}
			return &transferCase{accountCase: ac, counterparty: "acct-" + uuid.NewString()}, nil
		},
		Dependencies: []types.Dependency{
			{Class: accountSetup, Relation: types.Inheritance},
		},
		Members: []clause.Member{
			clause.Precondition(2, "counterparty account is open", "OpenCounterparty", bind(func(_ context.Context, t *transferCase, _ io.Writer) error {
				return t.ledger.Open(t.counterparty)
			})),
			clause.Input(1, "fund the account with 50", "Fund", bind(func(_ context.Context, t *transferCase, _ io.Writer) error {
				return t.ledger.Deposit(t.account, 50)
			})),
			clause.Input(2, "transfer 25 to the counterparty", "Transfer25", bind(func(_ context.Context, t *transferCase, _ io.Writer) error {
				return t.ledger.Transfer(t.account, t.counterparty, 25)
			})),
			clause.ExpectedResult(2, "counterparty received 25", "CounterpartyReceived", bind(func(_ context.Context, t *transferCase, _ io.Writer) error {
				got, err := t.ledger.Balance(t.counterparty)
				if err != nil {
					return err
				}
				if got != 25 {
					return fmt.Errorf("counterparty balance: want 25, got %d", got)
				}
				return nil
			})),
			clause.Summary("transfer between accounts", "TransferBetweenAccounts", bind(func(_ context.Context, t *transferCase, _ io.Writer) error {
				return t.expectBalance(25)
			})),
		},
	}
}
