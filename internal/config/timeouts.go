package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	ServerCreate      time.Duration // Timeout for server creation operations
	ServerIP          time.Duration // Timeout for waiting for server IP assignment
	Delete            time.Duration // Timeout for all delete operations
	Action            time.Duration // Timeout for waiting on volume and IP actions
	RetryMaxAttempts  int           // Maximum number of retry attempts
	RetryInitialDelay time.Duration // Initial delay between retries

	SSHConnect    time.Duration // Timeout for establishing an SSH connection
	SSHCommand    time.Duration // Timeout for a single remote command
	SSHReadyWait  time.Duration // How long to wait for sshd after server creation
	SSHRetryDelay time.Duration // Delay between SSH dial attempts
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - HCLOUD_TIMEOUT_SERVER_CREATE (default: 10m)
//   - HCLOUD_TIMEOUT_SERVER_IP (default: 60s)
//   - HCLOUD_TIMEOUT_DELETE (default: 5m)
//   - HCLOUD_TIMEOUT_ACTION (default: 5m)
//   - HCLOUD_RETRY_MAX_ATTEMPTS (default: 5)
//   - HCLOUD_RETRY_INITIAL_DELAY (default: 1s)
//   - ARIES_SSH_CONNECT_TIMEOUT (default: 10s)
//   - ARIES_SSH_COMMAND_TIMEOUT (default: 10m)
//   - ARIES_SSH_READY_WAIT (default: 5m)
//   - ARIES_SSH_RETRY_DELAY (default: 5s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		ServerCreate:      parseDuration("HCLOUD_TIMEOUT_SERVER_CREATE", 10*time.Minute),
		ServerIP:          parseDuration("HCLOUD_TIMEOUT_SERVER_IP", 60*time.Second),
		Delete:            parseDuration("HCLOUD_TIMEOUT_DELETE", 5*time.Minute),
		Action:            parseDuration("HCLOUD_TIMEOUT_ACTION", 5*time.Minute),
		RetryMaxAttempts:  parseInt("HCLOUD_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("HCLOUD_RETRY_INITIAL_DELAY", 1*time.Second),
		SSHConnect:        parseDuration("ARIES_SSH_CONNECT_TIMEOUT", 10*time.Second),
		SSHCommand:        parseDuration("ARIES_SSH_COMMAND_TIMEOUT", 10*time.Minute),
		SSHReadyWait:      parseDuration("ARIES_SSH_READY_WAIT", 5*time.Minute),
		SSHRetryDelay:     parseDuration("ARIES_SSH_RETRY_DELAY", 5*time.Second),
	}
}

// TestTimeouts returns short timeouts for use in tests.
func TestTimeouts() *Timeouts {
	return &Timeouts{
		ServerCreate:      5 * time.Second,
		ServerIP:          time.Second,
		Delete:            5 * time.Second,
		Action:            5 * time.Second,
		RetryMaxAttempts:  3,
		RetryInitialDelay: 10 * time.Millisecond,
		SSHConnect:        time.Second,
		SSHCommand:        5 * time.Second,
		SSHReadyWait:      time.Second,
		SSHRetryDelay:     10 * time.Millisecond,
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
