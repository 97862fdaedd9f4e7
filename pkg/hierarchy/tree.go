// Package hierarchy manages the country → project → unit → unit number tree
// that data-entry pickers and access assignments are built on.
package hierarchy

import (
	"p9e.in/rigops/models"
)

// Tree is the nested picker shape: country → project → unit → unit numbers.
// A country or project with no children maps to an empty object and a unit
// with no numbers maps to an empty list, so every level renders in pickers.
type Tree map[string]map[string]map[string][]string

// Build nests flat rows. Input order is preserved for unit numbers.
func Build(nodes []models.LocationNode) Tree {
	tree := Tree{}
	for _, n := range nodes {
		projects, ok := tree[n.Country]
		if !ok {
			projects = map[string]map[string][]string{}
			tree[n.Country] = projects
		}
		if n.Project == nil {
			continue
		}

		units, ok := projects[*n.Project]
		if !ok {
			units = map[string][]string{}
			projects[*n.Project] = units
		}
		if n.Unit == nil {
			continue
		}

		numbers, ok := units[*n.Unit]
		if !ok {
			numbers = []string{}
		}
		if n.UnitNumber != nil {
			numbers = append(numbers, *n.UnitNumber)
		}
		units[*n.Unit] = numbers
	}
	return tree
}
