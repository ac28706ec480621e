package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/imamik/aries/internal/platform/s3"
)

// ObjectStore is the subset of the object storage client used by S3Backend.
type ObjectStore interface {
	CreateBucket(ctx context.Context, bucket string) error
	ObjectExists(ctx context.Context, bucket, key string) (bool, error)
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PutObject(ctx context.Context, bucket, key string, data []byte) error
	DeleteObject(ctx context.Context, bucket, key string) error
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
}

// S3Backend stores the state as an object in an S3-compatible bucket.
//
// The lock is a separate object. Object storage offers no atomic
// create-if-absent across providers, so two runs starting within the same
// request round trip can both acquire it.
type S3Backend struct {
	store  ObjectStore
	bucket string
	key    string
	stack  string
	now    func() time.Time

	bucketReady bool
}

// NewS3Backend returns a backend storing state at bucket/key.
func NewS3Backend(store ObjectStore, bucket, key, stack string) *S3Backend {
	return &S3Backend{store: store, bucket: bucket, key: key, stack: stack, now: time.Now}
}

func (b *S3Backend) lockKey() string   { return b.key + ".lock" }
func (b *S3Backend) backupKey() string { return b.key + ".backup" }

func (b *S3Backend) String() string {
	return fmt.Sprintf("s3://%s/%s", b.bucket, b.key)
}

// Load implements Backend.
func (b *S3Backend) Load(ctx context.Context) (*State, error) {
	data, err := b.store.GetObject(ctx, b.bucket, b.key)
	if errors.Is(err, s3.ErrNotFound) {
		return New(b.stack), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b, err)
	}
	if s.Stack != "" && s.Stack != b.stack {
		return nil, fmt.Errorf("state %s belongs to stack %q, not %q", b, s.Stack, b.stack)
	}
	s.Stack = b.stack
	return s, nil
}

// Save implements Backend. The bucket is created on first save.
func (b *S3Backend) Save(ctx context.Context, s *State) error {
	if err := b.ensureBucket(ctx); err != nil {
		return err
	}

	prev, err := b.store.GetObject(ctx, b.bucket, b.key)
	switch {
	case err == nil:
		if err := b.store.PutObject(ctx, b.bucket, b.backupKey(), prev); err != nil {
			return fmt.Errorf("failed to write state backup: %w", err)
		}
	case !errors.Is(err, s3.ErrNotFound):
		return fmt.Errorf("failed to read previous state: %w", err)
	}

	s.Stack = b.stack
	stamp(s, b.now())
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := b.store.PutObject(ctx, b.bucket, b.key, data); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func (b *S3Backend) ensureBucket(ctx context.Context) error {
	if b.bucketReady {
		return nil
	}
	if err := b.store.CreateBucket(ctx, b.bucket); err != nil {
		return fmt.Errorf("failed to prepare state bucket: %w", err)
	}
	b.bucketReady = true
	return nil
}

// Lock implements Backend.
func (b *S3Backend) Lock(ctx context.Context, operation string) error {
	if err := b.ensureBucket(ctx); err != nil {
		return err
	}

	exists, err := b.store.ObjectExists(ctx, b.bucket, b.lockKey())
	if err != nil {
		return fmt.Errorf("failed to check state lock: %w", err)
	}
	if exists {
		data, _ := b.store.GetObject(ctx, b.bucket, b.lockKey())
		return &LockedError{Info: decodeLock(data)}
	}

	data, err := encodeLock(newLockInfo(operation, b.now()))
	if err != nil {
		return fmt.Errorf("failed to encode lock: %w", err)
	}
	if err := b.store.PutObject(ctx, b.bucket, b.lockKey(), data); err != nil {
		return fmt.Errorf("failed to acquire state lock: %w", err)
	}
	return nil
}

// Unlock implements Backend.
func (b *S3Backend) Unlock(ctx context.Context) error {
	if err := b.store.DeleteObject(ctx, b.bucket, b.lockKey()); err != nil {
		return fmt.Errorf("failed to release state lock: %w", err)
	}
	return nil
}

// Delete implements Backend. It removes the state object and every object
// sharing its key prefix except the lock.
func (b *S3Backend) Delete(ctx context.Context) error {
	keys, err := b.store.ListObjects(ctx, b.bucket, b.key)
	if err != nil {
		return fmt.Errorf("failed to list state objects: %w", err)
	}
	for _, k := range keys {
		if k == b.lockKey() || !strings.HasPrefix(k, b.key) {
			continue
		}
		if err := b.store.DeleteObject(ctx, b.bucket, k); err != nil {
			return fmt.Errorf("failed to delete state: %w", err)
		}
	}
	return nil
}
