package hcloud

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/stretchr/testify/assert"
)

func hcErr(code hcloud.ErrorCode) error {
	return hcloud.Error{Code: code, Message: string(code)}
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		locked    bool
		inUse     bool
		retryable bool
		invalid   bool
	}{
		{name: "nil error"},
		{name: "generic error", err: errors.New("something went wrong")},
		{name: "locked", err: hcErr(hcloud.ErrorCodeLocked), locked: true, retryable: true},
		{name: "conflict", err: hcErr(hcloud.ErrorCodeConflict), locked: true, retryable: true},
		{name: "resource locked", err: hcErr(hcloud.ErrorCodeResourceLocked), locked: true, retryable: true},
		{name: "resource unavailable", err: hcErr(hcloud.ErrorCodeResourceUnavailable), locked: true, retryable: true},
		{name: "resource in use", err: hcErr(hcloud.ErrorCodeResourceInUse), inUse: true, retryable: true},
		{name: "rate limited", err: hcErr(hcloud.ErrorCodeRateLimitExceeded), retryable: true},
		{name: "not found", err: hcErr(hcloud.ErrorCodeNotFound), invalid: true},
		{name: "invalid input", err: hcErr(hcloud.ErrorCodeInvalidInput), invalid: true},
		{name: "invalid server type", err: hcErr(hcloud.ErrorCodeInvalidServerType), invalid: true},
		{name: "uniqueness", err: hcErr(hcloud.ErrorCodeUniquenessError), invalid: true},
		{name: "wrapped locked", err: fmt.Errorf("attach: %w", hcErr(hcloud.ErrorCodeLocked)), locked: true, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.locked, isResourceLocked(tt.err), "isResourceLocked")
			assert.Equal(t, tt.inUse, isResourceInUse(tt.err), "isResourceInUse")
			assert.Equal(t, tt.retryable, isRetryable(tt.err), "isRetryable")
			assert.Equal(t, tt.invalid, isInvalidParameter(tt.err), "isInvalidParameter")
		})
	}
}

func TestPublicErrorHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNotFound(hcErr(hcloud.ErrorCodeNotFound)))
	assert.False(t, IsNotFound(hcErr(hcloud.ErrorCodeConflict)))
	assert.False(t, IsNotFound(nil))

	assert.True(t, IsConflict(hcErr(hcloud.ErrorCodeConflict)))
	assert.False(t, IsConflict(hcErr(hcloud.ErrorCodeLocked)))

	assert.True(t, IsRateLimited(hcErr(hcloud.ErrorCodeRateLimitExceeded)))
	assert.False(t, IsRateLimited(errors.New("rate limit exceeded")))

	assert.True(t, IsUniquenessError(fmt.Errorf("create: %w", hcErr(hcloud.ErrorCodeUniquenessError))))
	assert.False(t, IsUniquenessError(hcErr(hcloud.ErrorCodeInvalidInput)))
}
