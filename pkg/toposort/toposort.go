// Package toposort orders dependency graphs with Kahn's algorithm.
package toposort

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrCircularDependency is returned when the input contains a dependency cycle.
	ErrCircularDependency = errors.New("circular dependency detected")

	// ErrMissingDependency is returned when a required dependency is not found.
	ErrMissingDependency = errors.New("dependency not found")
)

// Node is an element of a dependency graph.
type Node interface {
	NodeID() string
	DependsOn() []string
}

// Levels groups items into waves: every item's dependencies are in earlier
// waves, so the items of one wave can run concurrently. Within a wave items
// are ordered by ID.
//
// Dependencies on IDs that are not among items are an error wrapping
// ErrMissingDependency unless ignoreMissing is set. A cycle is an error
// wrapping ErrCircularDependency naming the unresolved nodes.
func Levels[T Node](items []T, ignoreMissing bool) ([][]T, error) {
	if len(items) == 0 {
		return nil, nil
	}

	byID := make(map[string]T, len(items))
	for _, item := range items {
		byID[item.NodeID()] = item
	}

	dependents := make(map[string][]string, len(items))
	pending := make(map[string]int, len(items))
	for id := range byID {
		pending[id] = 0
	}

	for _, item := range items {
		id := item.NodeID()
		for _, dep := range item.DependsOn() {
			if dep == id {
				return nil, fmt.Errorf("%w: %q depends on itself", ErrCircularDependency, id)
			}
			if _, ok := byID[dep]; !ok {
				if ignoreMissing {
					continue
				}
				return nil, fmt.Errorf("dependency %q of %q: %w", dep, id, ErrMissingDependency)
			}
			dependents[dep] = append(dependents[dep], id)
			pending[id]++
		}
	}

	var wave []string
	for id, n := range pending {
		if n == 0 {
			wave = append(wave, id)
		}
	}

	var (
		levels [][]T
		placed int
	)
	for len(wave) > 0 {
		sort.Strings(wave)
		level := make([]T, 0, len(wave))
		var next []string
		for _, id := range wave {
			level = append(level, byID[id])
			for _, dependent := range dependents[id] {
				pending[dependent]--
				if pending[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		levels = append(levels, level)
		placed += len(level)
		wave = next
	}

	if placed != len(byID) {
		var stuck []string
		for id, n := range pending {
			if n > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("%w: cycle among nodes: %v", ErrCircularDependency, stuck)
	}

	return levels, nil
}
