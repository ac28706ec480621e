// Package labels builds the Hetzner Cloud labels that mark resources as
// belonging to an aries stack.
//
// Every resource the engine creates carries the stack label, which is also
// what orphan cleanup selects on.
package labels
