// Package access decides which located records a user may see.
//
// Only two (role, scope) pairs are restricted: ops users over wells and HSE
// leads over hazards. Everybody else sees everything. A restricted user sees
// a record when at least one of their location assignments matches it, and
// sees nothing when they have no assignments at all.
package access

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"p9e.in/rigops/models"
	"p9e.in/rigops/pkg/store"
)

// Scope names a family of located records.
type Scope string

const (
	ScopeWells   Scope = "wells"
	ScopeHazards Scope = "hazards"
)

var restricted = map[models.Role]Scope{
	models.RoleOps:     ScopeWells,
	models.RoleHSELead: ScopeHazards,
}

// IsRestricted reports whether role is limited by location assignments in scope.
func IsRestricted(role models.Role, scope Scope) bool {
	s, ok := restricted[role]
	return ok && s == scope
}

// Matches reports whether a grants visibility over loc. Every non-empty
// assignment level must equal the record's level, ignoring case.
func Matches(a models.LocationAssignment, loc models.Location) bool {
	return levelMatches(a.Country, loc.Country) &&
		levelMatches(optional(a.Project), loc.Project) &&
		levelMatches(optional(a.Unit), loc.Unit)
}

func levelMatches(granted, actual string) bool {
	if granted == "" {
		return true
	}
	return strings.EqualFold(granted, actual)
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Visibility is the resolved view of one user over one scope.
type Visibility struct {
	Restricted  bool
	Assignments []models.LocationAssignment
}

// Unrestricted sees every record.
var Unrestricted = Visibility{}

// NewVisibility resolves the view for role over scope given its assignments.
func NewVisibility(role models.Role, scope Scope, assignments []models.LocationAssignment) Visibility {
	if !IsRestricted(role, scope) {
		return Unrestricted
	}
	return Visibility{Restricted: true, Assignments: assignments}
}

// CanView reports whether a record at loc is visible.
func (v Visibility) CanView(loc models.Location) bool {
	if !v.Restricted {
		return true
	}
	for _, a := range v.Assignments {
		if Matches(a, loc) {
			return true
		}
	}
	return false
}

// Filter keeps the items visible under v, preserving order.
func Filter[T any](v Visibility, items []T, locate func(T) models.Location) []T {
	if !v.Restricted {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if v.CanView(locate(item)) {
			out = append(out, item)
		}
	}
	return out
}

// Resolver loads assignments and builds Visibility values.
type Resolver struct {
	assignments store.AssignmentStore
}

func NewResolver(assignments store.AssignmentStore) *Resolver {
	return &Resolver{assignments: assignments}
}

// For resolves the view of userID with role over scope. Unrestricted roles
// never touch the store.
func (r *Resolver) For(ctx context.Context, userID uuid.UUID, role models.Role, scope Scope) (Visibility, error) {
	if !IsRestricted(role, scope) {
		return Unrestricted, nil
	}
	list, err := r.assignments.ListAssignments(ctx, userID)
	if err != nil {
		return Visibility{}, fmt.Errorf("load assignments for %s: %w", userID, err)
	}
	return NewVisibility(role, scope, list), nil
}
