package naming

import (
	"fmt"
	"path"
	"path/filepath"
)

// StateDir is the directory holding local state files, relative to the
// configuration file.
const StateDir = ".aries"

// PrimaryIP returns the name of the primary IPv4 assigned to a server.
func PrimaryIP(server string) string {
	return fmt.Sprintf("%s-ipv4", server)
}

// LocalStatePath returns the default local state file of a stack.
func LocalStatePath(stack string) string {
	return filepath.Join(StateDir, fmt.Sprintf("%s.state.yaml", stack))
}

// S3StateKey returns the default object key of a stack's state.
func S3StateKey(stack string) string {
	return path.Join(stack, "state.yaml")
}
