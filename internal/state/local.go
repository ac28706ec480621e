package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// LocalBackend stores the state in a YAML file.
type LocalBackend struct {
	path  string
	stack string
	now   func() time.Time
}

// NewLocalBackend returns a backend for the state file at path.
func NewLocalBackend(path, stack string) *LocalBackend {
	return &LocalBackend{path: path, stack: stack, now: time.Now}
}

func (b *LocalBackend) lockPath() string   { return b.path + ".lock" }
func (b *LocalBackend) backupPath() string { return b.path + ".backup" }

func (b *LocalBackend) String() string {
	return "local:" + b.path
}

// Load implements Backend.
func (b *LocalBackend) Load(_ context.Context) (*State, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(b.stack), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.path, err)
	}
	if s.Stack != "" && s.Stack != b.stack {
		return nil, fmt.Errorf("state file %s belongs to stack %q, not %q", b.path, s.Stack, b.stack)
	}
	s.Stack = b.stack
	return s, nil
}

// Save implements Backend. The file is replaced atomically; the previous
// content is kept as a backup.
func (b *LocalBackend) Save(_ context.Context, s *State) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	s.Stack = b.stack
	stamp(s, b.now())
	data, err := Encode(s)
	if err != nil {
		return err
	}

	if prev, err := os.ReadFile(b.path); err == nil {
		if err := os.WriteFile(b.backupPath(), prev, 0o600); err != nil {
			return fmt.Errorf("failed to write state backup: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Lock implements Backend using an exclusively created lock file.
func (b *LocalBackend) Lock(_ context.Context, operation string) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	f, err := os.OpenFile(b.lockPath(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		data, _ := os.ReadFile(b.lockPath())
		return &LockedError{Info: decodeLock(data)}
	}
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer f.Close()

	data, err := encodeLock(newLockInfo(operation, b.now()))
	if err != nil {
		return fmt.Errorf("failed to encode lock: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	return nil
}

// Unlock implements Backend.
func (b *LocalBackend) Unlock(_ context.Context) error {
	if err := os.Remove(b.lockPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// Delete implements Backend.
func (b *LocalBackend) Delete(_ context.Context) error {
	for _, p := range []string{b.path, b.backupPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}
