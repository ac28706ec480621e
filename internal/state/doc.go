// Package state persists what the engine has created.
//
// A [State] lists every managed resource with the properties it was
// created from and the outputs the provider returned. Backends store the
// state as YAML, either in a local file or in an S3-compatible bucket, and
// guard it with a lock so two runs never modify the same stack at once.
// Every save increments the serial and keeps the previous document as a
// backup next to the current one.
package state
