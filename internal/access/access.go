// Package access maps a user to the subset of industries they may see.
// Visibility is derived per snapshot, never stored on the entity.
package access

import "github.com/gastrack/industrial-gas-monitoring/internal/domain"

// VisibleIndustries narrows the industry list for one user. Admins see
// everything and the assignment table is ignored. For everyone else the
// grant is looked up by username; no entry means no access (fail-closed).
// The result preserves the order of the industry list, not the order the
// assignment was saved in.
func VisibleIndustries(user *domain.User, industries []domain.Industry, assignments domain.Assignments) []domain.Industry {
	if user == nil {
		return nil
	}
	if user.Role.SeesAllIndustries() {
		return industries
	}
	assigned, ok := assignments[user.Username]
	if !ok {
		return nil
	}
	allowed := make(map[string]struct{}, len(assigned))
	for _, ind := range assigned {
		allowed[ind.ID] = struct{}{}
	}
	var out []domain.Industry
	for _, ind := range industries {
		if _, ok := allowed[ind.ID]; ok {
			out = append(out, ind)
		}
	}
	return out
}
