// Package catalog provides the built-in example composite classes run by the
// op-scenario binary, together with the fixtures they need.
package catalog

import (
	"github.com/ethereum-optimism/infra/op-scenario/runner"
	"github.com/ethereum-optimism/infra/op-scenario/types"
)

// Default returns a catalog with every built-in class registered.
func Default() (types.Catalog, error) {
	accountSetup := AccountSetup()
	auditLog := AuditLog()

	c := types.Catalog{}
	if err := c.Register(
		accountSetup,
		auditLog,
		Deposit(accountSetup, auditLog),
		Transfer(accountSetup),
	); err != nil {
		return nil, err
	}
	return c, nil
}

// Fixtures returns the fixtures of the built-in classes: one ledger and one
// audit trail shared by all collections, except that the "audit" collection
// gets an audit trail of its own.
func Fixtures() runner.StaticFixtures {
	return runner.StaticFixtures{
		Assembly: types.NewFixtures(NewLedger(), NewAuditTrail()),
		Collections: map[string]types.Fixtures{
			"audit": types.NewFixtures(NewAuditTrail()),
		},
	}
}
