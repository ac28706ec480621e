// Package graph holds the dependency graph of declared stack resources.
//
// Nodes are identified by kind and name ("server/test-server"). An edge
// means "From depends on To". [New] validates the declaration (duplicates,
// dangling dependencies, cycles) and computes a deterministic topological
// order: dependencies come first and ties keep declaration order. Creation
// walks [Graph.TopoOrder]; teardown walks [Graph.ReverseOrder].
package graph
