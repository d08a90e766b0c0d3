package clause

import "fmt"

// Clause is a member that carries a recognised clause marker.
type Clause struct {
	Member      Member
	Role        Role
	Order       int
	Description string
}

// Name returns the name of the underlying member.
func (c Clause) Name() string {
	return c.Member.Name
}

// BaseDisplayName returns the display name of the clause before its position
// in a definition is known, e.g. "2. [Input] Enter the password".
// Summaries display their description only.
func (c Clause) BaseDisplayName() string {
	if c.Role == RoleSummary {
		return c.Description
	}
	return fmt.Sprintf("%d. [%s] %s", c.Order, c.Role.label(), c.Description)
}

// Classify returns the members tagged with a recognised clause role, in member
// order. Untagged members and members with an unknown role are left out.
// An empty description is derived from the member name.
func Classify(members []Member) []Clause {
	var clauses []Clause
	for _, m := range members {
		if m.Marker == nil || !m.Marker.Role.Valid() {
			continue
		}
		description := m.Marker.Description
		if description == "" {
			description = DescriptionFromName(m.Name)
		}
		clauses = append(clauses, Clause{
			Member:      m,
			Role:        m.Marker.Role,
			Order:       m.Marker.Order,
			Description: description,
		})
	}
	return clauses
}

// Components returns the clauses that make up a definition: preconditions,
// step inputs and step expected results.
func Components(clauses []Clause) []Clause {
	return filter(clauses, func(c Clause) bool { return c.Role != RoleSummary })
}

// Summaries returns the summary clauses. Each one roots a composite test case.
func Summaries(clauses []Clause) []Clause {
	return filter(clauses, func(c Clause) bool { return c.Role == RoleSummary })
}

func filter(clauses []Clause, keep func(Clause) bool) []Clause {
	var out []Clause
	for _, c := range clauses {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
