package state

import (
	"fmt"
	"maps"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imamik/aries/internal/graph"
)

// CurrentVersion is the state document format version.
const CurrentVersion = 1

// State is the persisted record of a stack.
type State struct {
	Version   int               `yaml:"version"`
	Stack     string            `yaml:"stack"`
	Serial    int64             `yaml:"serial"`
	Resources []Resource        `yaml:"resources"`
	Outputs   map[string]string `yaml:"outputs,omitempty"`
	UpdatedAt time.Time         `yaml:"updated_at,omitempty"`
}

// Resource is one managed resource.
type Resource struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
	// Properties are the inputs the resource was last created or updated from.
	Properties map[string]string `yaml:"properties,omitempty"`
	// Outputs are provider-assigned attributes (id, addresses, devices).
	Outputs   map[string]string `yaml:"outputs,omitempty"`
	DependsOn []string          `yaml:"depends_on,omitempty"`
	CreatedAt time.Time         `yaml:"created_at"`
	UpdatedAt time.Time         `yaml:"updated_at"`
}

// New returns an empty state for a stack.
func New(stack string) *State {
	return &State{Version: CurrentVersion, Stack: stack}
}

// GraphID returns the resource identifier.
func (r *Resource) GraphID() graph.ID {
	return graph.ID{Kind: r.Kind, Name: r.Name}
}

// Output returns an output value, or "" when unset.
func (r *Resource) Output(key string) string {
	if r == nil {
		return ""
	}
	return r.Outputs[key]
}

// Dependencies parses DependsOn, skipping malformed entries.
func (r *Resource) Dependencies() []graph.ID {
	out := make([]graph.ID, 0, len(r.DependsOn))
	for _, d := range r.DependsOn {
		if id, err := graph.ParseID(d); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// Clone returns a deep copy of the resource.
func (r Resource) Clone() Resource {
	r.Properties = maps.Clone(r.Properties)
	r.Outputs = maps.Clone(r.Outputs)
	r.DependsOn = append([]string(nil), r.DependsOn...)
	return r
}

// Get returns the resource with the given ID, or nil.
func (s *State) Get(id graph.ID) *Resource {
	key := id.String()
	for i := range s.Resources {
		if s.Resources[i].ID == key {
			return &s.Resources[i]
		}
	}
	return nil
}

// Put inserts or replaces a resource, keeping its position when it exists.
func (s *State) Put(r Resource) {
	r.ID = r.GraphID().String()
	for i := range s.Resources {
		if s.Resources[i].ID == r.ID {
			s.Resources[i] = r
			return
		}
	}
	s.Resources = append(s.Resources, r)
}

// Remove deletes a resource and reports whether it was present.
func (s *State) Remove(id graph.ID) bool {
	key := id.String()
	for i := range s.Resources {
		if s.Resources[i].ID == key {
			s.Resources = append(s.Resources[:i], s.Resources[i+1:]...)
			return true
		}
	}
	return false
}

// IDs returns the IDs of all resources in state order.
func (s *State) IDs() []graph.ID {
	out := make([]graph.ID, len(s.Resources))
	for i := range s.Resources {
		out[i] = s.Resources[i].GraphID()
	}
	return out
}

// Empty reports whether the state tracks no resources.
func (s *State) Empty() bool {
	return len(s.Resources) == 0
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := *s
	c.Resources = make([]Resource, len(s.Resources))
	for i := range s.Resources {
		c.Resources[i] = s.Resources[i].Clone()
	}
	c.Outputs = maps.Clone(s.Outputs)
	return &c
}

// Encode marshals the state as YAML.
func Encode(s *State) ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	return data, nil
}

// Decode parses a YAML state document.
func Decode(data []byte) (*State, error) {
	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}
	if s.Version > CurrentVersion {
		return nil, fmt.Errorf("state version %d is newer than supported version %d", s.Version, CurrentVersion)
	}
	if s.Version == 0 {
		s.Version = CurrentVersion
	}
	return &s, nil
}

// stamp prepares a state for saving.
func stamp(s *State, now time.Time) {
	s.Version = CurrentVersion
	s.Serial++
	s.UpdatedAt = now.UTC()
}
