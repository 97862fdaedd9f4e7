package config

import "p9e.in/rigops/models"

// RolePermissions is the static grant table for the four application roles.
// Patterns follow utils.MatchesPermission ("resource:action", "*" wildcards).
var RolePermissions = map[models.Role][]string{
	models.RoleAdmin: {"*:*"},
	models.RoleEngineer: {
		"hierarchy:read",
		"well:read", "well:create", "well:update", "well:submit",
		"report:read", "report:create",
		"schedule:read",
		"hazard:read", "hazard:create", "hazard:photo",
		"task:read", "task:update",
		"dashboard:read",
	},
	models.RoleOps: {
		"hierarchy:read",
		"well:read", "well:approve",
		"report:read", "report:export",
		"schedule:read",
		"task:read",
		"dashboard:read",
	},
	models.RoleHSELead: {
		"hierarchy:read",
		"well:read",
		"report:read",
		"schedule:read",
		"hazard:*",
		"task:*",
		"dashboard:read",
	},
}

// PermissionsFor returns the grants of a role; unknown roles get none.
func PermissionsFor(role models.Role) []string {
	return RolePermissions[role]
}
