// Package s3 provides a client for Hetzner Object Storage (S3-compatible).
//
// It backs the remote state backend: bucket creation on first use, object
// upload and download, existence checks for lock objects, and prefix
// listing for cleanup.
package s3
