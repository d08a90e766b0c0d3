package clause

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, any, io.Writer) error { return nil }

func TestClassify(t *testing.T) {
	members := []Member{
		Plain("helper", noop),
		Precondition(2, "second precondition", "Pre2", noop),
		Input(1, "", "EnterThePassword", noop),
		{Name: "unknownRole", Marker: &Marker{Role: Role(42), Order: 1}, Body: noop},
		{Name: "noneRole", Marker: &Marker{Role: RoleNone, Order: 1}, Body: noop},
		ExpectedResult(1, "dashboard is shown", "DashboardShown", noop),
		Precondition(1, "first precondition", "Pre1", noop),
		Summary("user can log in", "LoginWorks", noop),
	}

	clauses := Classify(members)
	require.Len(t, clauses, 5)

	names := make([]string, 0, len(clauses))
	for _, c := range clauses {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"Pre2", "EnterThePassword", "DashboardShown", "Pre1", "LoginWorks"}, names,
		"classification should keep member order")

	assert.Equal(t, RoleStepInput, clauses[1].Role)
	assert.Equal(t, "Enter the password", clauses[1].Description, "empty description should be derived from the name")
	assert.Equal(t, 2, clauses[0].Order)

	assert.Len(t, Components(clauses), 4)
	require.Len(t, Summaries(clauses), 1)
	assert.Equal(t, "LoginWorks", Summaries(clauses)[0].Name())
}

func TestClassifyEmpty(t *testing.T) {
	assert.Empty(t, Classify(nil))
	assert.Empty(t, Classify([]Member{Plain("a", noop), Plain("b", noop)}))
}

func TestBaseDisplayName(t *testing.T) {
	tests := []struct {
		name   string
		member Member
		want   string
	}{
		{"precondition", Precondition(1, "browser is open", "Open", noop), "1. [Precondition] browser is open"},
		{"input", Input(3, "submit the form", "Submit", noop), "3. [Input] submit the form"},
		{"expected result", ExpectedResult(3, "form is accepted", "Accepted", noop), "3. [Expected Result] form is accepted"},
		{"summary", Summary("form can be submitted", "Works", noop), "form can be submitted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clauses := Classify([]Member{tt.member})
			require.Len(t, clauses, 1)
			assert.Equal(t, tt.want, clauses[0].BaseDisplayName())
		})
	}
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "precondition", RolePrecondition.String())
	assert.Equal(t, "input", RoleStepInput.String())
	assert.Equal(t, "expected-result", RoleStepExpectedResult.String())
	assert.Equal(t, "summary", RoleSummary.String())
	assert.Equal(t, "none", Role(99).String())
	assert.False(t, RoleNone.Valid())
	assert.False(t, Role(99).Valid())
}

type account struct{ name string }

func TestBind(t *testing.T) {
	method := Bind(func(ctx context.Context, a *account, out io.Writer) error {
		_, err := fmt.Fprintf(out, "hello %s", a.name)
		return err
	})

	t.Run("matching instance", func(t *testing.T) {
		var out writerBuffer
		require.NoError(t, method(context.Background(), &account{name: "alice"}, &out))
		assert.Equal(t, "hello alice", string(out))
	})

	t.Run("wrong instance type", func(t *testing.T) {
		var out writerBuffer
		err := method(context.Background(), "not an account", &out)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInstanceType))
	})

	t.Run("nil instance", func(t *testing.T) {
		var out writerBuffer
		err := method(context.Background(), nil, &out)
		assert.ErrorIs(t, err, ErrInstanceType)
	})
}

type writerBuffer []byte

func (w *writerBuffer) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
