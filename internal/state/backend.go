package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend loads and stores the state of one stack.
type Backend interface {
	// Load returns the stored state, or an empty state when none exists.
	Load(ctx context.Context) (*State, error)
	// Save stores the state. It increments the serial.
	Save(ctx context.Context, s *State) error
	// Lock acquires the stack lock or returns a *LockedError.
	Lock(ctx context.Context, operation string) error
	// Unlock releases the stack lock.
	Unlock(ctx context.Context) error
	// Delete removes the stored state and its backup.
	Delete(ctx context.Context) error
	// String describes where the state lives.
	String() string
}

// LockInfo describes the holder of a stack lock.
type LockInfo struct {
	Who       string    `yaml:"who"`
	Operation string    `yaml:"operation"`
	Created   time.Time `yaml:"created"`
}

// LockedError is returned when the stack is locked by another run.
type LockedError struct {
	Info LockInfo
}

func (e *LockedError) Error() string {
	if e.Info.Who == "" {
		return "state is locked"
	}
	return fmt.Sprintf("state is locked by %s (%s since %s)",
		e.Info.Who, e.Info.Operation, e.Info.Created.Format(time.RFC3339))
}

// IsLocked reports whether err is a *LockedError.
func IsLocked(err error) bool {
	var le *LockedError
	return errors.As(err, &le)
}

func newLockInfo(operation string, now time.Time) LockInfo {
	who := "unknown"
	if u, err := user.Current(); err == nil {
		who = u.Username
	}
	if host, err := os.Hostname(); err == nil {
		who += "@" + host
	}
	return LockInfo{Who: who, Operation: operation, Created: now.UTC()}
}

func encodeLock(info LockInfo) ([]byte, error) {
	return yaml.Marshal(info)
}

func decodeLock(data []byte) LockInfo {
	var info LockInfo
	_ = yaml.Unmarshal(data, &info)
	return info
}
