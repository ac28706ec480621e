// Package ssh provides an SSH client for executing commands on remote servers.
//
// It runs the lifecycle hooks of remote command resources on the stack's
// server: dialing is retried with backoff while the server boots, commands
// honor context cancellation, and an optional environment is exported before
// the command runs. Host keys are checked against a known_hosts file when one
// is configured.
package ssh
