package graph

import (
	"fmt"
	"strings"
)

// DuplicateNodeError means the same ID appears more than once.
type DuplicateNodeError struct {
	ID ID
}

func (e DuplicateNodeError) Error() string {
	return fmt.Sprintf("duplicate resource: %s", e.ID)
}

// DependencyNotFoundError means a declared dependency does not exist.
type DependencyNotFoundError struct {
	From ID
	To   ID
}

func (e DependencyNotFoundError) Error() string {
	return fmt.Sprintf("resource dependency not found: %s -> %s", e.From, e.To)
}

// CycleDetectedError means there is a dependency cycle in the graph.
type CycleDetectedError struct {
	Path []ID
}

func (e CycleDetectedError) Error() string {
	if len(e.Path) == 0 {
		return "resource dependency cycle detected"
	}
	parts := make([]string, len(e.Path))
	for i := range e.Path {
		parts[i] = e.Path[i].String()
	}
	return "resource dependency cycle detected: " + strings.Join(parts, " -> ")
}
