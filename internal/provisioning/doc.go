// Package provisioning is the engine that turns declared resources into
// provider resources and records them in state.
//
// # Subpackages
//
//   - resources/ — handlers for ssh keys, primary IPs, servers, volumes and remote commands
//
// # Core Types
//
// Desired declares one resource with its properties and dependency hints.
// Handler creates, updates, deletes and reads resources of one kind.
// Plan is the diff between the declarations and the stored state.
// Engine executes plans, destroys stacks and refreshes state, saving after
// every step so an interrupted run can be resumed.
//
// # Observability
//
// Observer receives structured events. ConsoleObserver prints them through
// the log package and NewJSONObserver emits JSON lines through logr/funcr.
// Metrics keeps prometheus counters and histograms in a private registry.
package provisioning
