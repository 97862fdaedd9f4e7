package utils

import "strings"

// MatchesPermission reports whether a granted pattern covers the required
// permission. Permissions have the form "resource:action"; either part of
// the grant may be "*", and a bare "*" grants everything.
//
//	"*:*"        matches well:approve, report:export, ...
//	"hazard:*"   matches hazard:read, hazard:create, ...
//	"*:read"     matches well:read, report:read, ...
func MatchesPermission(granted, required string) bool {
	if granted == required {
		return true
	}
	if granted == "*" {
		return true
	}

	g := strings.Split(granted, ":")
	r := strings.Split(required, ":")
	if len(g) != 2 || len(r) != 2 {
		return false
	}
	return (g[0] == "*" || g[0] == r[0]) && (g[1] == "*" || g[1] == r[1])
}

// HasPermission reports whether any grant covers required.
func HasPermission(grants []string, required string) bool {
	for _, g := range grants {
		if MatchesPermission(g, required) {
			return true
		}
	}
	return false
}
