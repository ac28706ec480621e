// Package naming provides consistent names for resources and state derived
// from the stack and server names.
//
// Derived names are only defaults. Every one of them can be set explicitly
// in aries.yaml.
package naming
