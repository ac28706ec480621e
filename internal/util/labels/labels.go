package labels

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Standard label keys for Hetzner Cloud resources.
const (
	// KeyStack identifies which stack a resource belongs to.
	KeyStack = "aries.io/stack"

	// KeyResource holds the graph ID (kind-name) of the resource.
	KeyResource = "aries.io/resource"

	// KeyManagedBy identifies the management system.
	KeyManagedBy = "aries.io/managed-by"
)

// ManagedByAries is the value of KeyManagedBy for engine-created resources.
const ManagedByAries = "aries"

// Hetzner label values: up to 63 chars, alphanumerics plus '-', '_' and '.',
// starting and ending with an alphanumeric. Empty values are allowed.
var valueRegex = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9._-]{0,61}[a-zA-Z0-9])?)?$`)

// LabelBuilder provides a fluent interface for building Hetzner Cloud resource labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a new label builder with the stack name pre-set.
func NewLabelBuilder(stack string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyStack:     stack,
			KeyManagedBy: ManagedByAries,
		},
	}
}

// WithResource tags the label set with the resource's kind and name.
func (lb *LabelBuilder) WithResource(kind, name string) *LabelBuilder {
	lb.labels[KeyResource] = kind + "-" + name
	return lb
}

// Merge adds all labels from the provided map. User labels never override
// the stack bookkeeping keys.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		if k == KeyStack || k == KeyManagedBy || k == KeyResource {
			continue
		}
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// SelectorForStack returns a label selector string for all resources in a stack.
func SelectorForStack(stack string) string {
	return KeyStack + "=" + stack
}

// Selector renders a label map as a Hetzner label selector with keys sorted,
// so the output is stable.
func Selector(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+labels[k])
	}
	return strings.Join(parts, ",")
}

// Encode renders labels as a stable "k=v,k=v" string for diffing and state.
func Encode(labels map[string]string) string {
	return Selector(labels)
}

// Decode parses the output of Encode.
func Decode(s string) map[string]string {
	result := make(map[string]string)
	if s == "" {
		return result
	}
	for _, part := range strings.Split(s, ",") {
		k, v, _ := strings.Cut(part, "=")
		result[k] = v
	}
	return result
}

// ValidateValue checks a label value against Hetzner's label rules.
func ValidateValue(v string) error {
	if !valueRegex.MatchString(v) {
		return fmt.Errorf("invalid label value %q: must be at most 63 alphanumeric, '-', '_' or '.' characters", v)
	}
	return nil
}
