// Package retry provides exponential backoff retry logic for transient failures.
//
// [WithExponentialBackoff] retries an operation with configurable max attempts,
// initial delay and maximum delay. It is used for Hetzner Cloud API calls,
// SSH dials and state backend writes. Errors wrapped with [Fatal] stop the
// loop immediately.
package retry
