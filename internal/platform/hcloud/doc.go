// Package hcloud provides a wrapper around the Hetzner Cloud API client with enhanced
// reliability features including retry logic, timeout management, and error handling.
//
// # Architecture
//
// The package is organized into domain-specific modules:
//
//   - client.go: Interfaces consumed by the resource handlers
//   - real_client.go: Client initialization and configuration
//   - operations.go: Generic operations for Delete and Ensure patterns
//   - ssh_key.go: SSH key management
//   - primary_ip.go: Primary IP management (the server's static address)
//   - server.go, server_helpers.go: Server lifecycle and dependency resolution
//   - volume.go: Volume lifecycle, attachment and resizing
//   - cleanup.go: Label-based cleanup of orphaned resources
//   - errors.go: Error classification for retry logic
//
// # Generic Operations
//
// DeleteOperation provides idempotent resource deletion with automatic retry logic:
//   - Handles resource locking with exponential backoff
//   - Returns success if resource doesn't exist
//   - Configurable timeouts and retry parameters
//
// EnsureOperation provides get-or-create semantics with optional update/validation:
//   - Simple Ensure: Get → return if exists → Create if not
//   - Ensure with Update: Get → Update if exists → Create if not
//   - Ensure with Validation: Get → Validate if exists → Create if not
//
// # Retry and Timeout Configuration
//
// Timeouts and retry parameters are configurable via environment variables:
//
//   - HCLOUD_TIMEOUT_SERVER_CREATE: Server creation timeout (default: 10m)
//   - HCLOUD_TIMEOUT_DELETE: Resource deletion timeout (default: 5m)
//   - HCLOUD_TIMEOUT_ACTION: Volume and IP action timeout (default: 5m)
//   - HCLOUD_TIMEOUT_SERVER_IP: Server IP assignment timeout (default: 60s)
//   - HCLOUD_RETRY_MAX_ATTEMPTS: Maximum retry attempts (default: 5)
//   - HCLOUD_RETRY_INITIAL_DELAY: Initial retry delay (default: 1s)
//
// # Example Usage
//
//	client := hcloud.NewRealClient(token)
//
//	key, err := client.EnsureSSHKey(ctx, "ARIES", publicKey, labels)
//	ip, err := client.EnsurePrimaryIP(ctx, "test-server-ipv4", "fsn1", hcloud.PrimaryIPTypeIPv4, labels)
//	server, err := client.CreateServer(ctx, ServerCreateOpts{
//	    Name:        "test-server",
//	    Image:       "ubuntu-24.04",
//	    ServerType:  "cx33",
//	    Location:    "fsn1",
//	    SSHKeys:     []string{"ARIES"},
//	    PrimaryIPv4: ip.Name,
//	    EnableIPv4:  true,
//	    UserData:    userData,
//	})
package hcloud
