package graph

import (
	"fmt"
	"strings"
)

// ID identifies a resource by kind and name.
type ID struct {
	Kind string `json:"kind" yaml:"kind"`
	Name string `json:"name" yaml:"name"`
}

func (id ID) String() string {
	return id.Kind + "/" + id.Name
}

// ParseID parses a "kind/name" reference.
func ParseID(s string) (ID, error) {
	kind, name, ok := strings.Cut(s, "/")
	if !ok || kind == "" || name == "" {
		return ID{}, fmt.Errorf("invalid resource reference %q, expected kind/name", s)
	}
	return ID{Kind: kind, Name: name}, nil
}

// Node is a declared resource and the resources it depends on.
type Node struct {
	ID        ID
	DependsOn []ID
}

// Edge means "From depends on To".
type Edge struct {
	From ID `json:"from"`
	To   ID `json:"to"`
}
