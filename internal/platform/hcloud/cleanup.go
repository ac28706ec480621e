package hcloud

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/aries/internal/util/labels"
	"github.com/imamik/aries/internal/util/retry"
)

// CleanupError represents accumulated errors from cleanup operations.
type CleanupError struct {
	Errors []error
}

func (e *CleanupError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("cleanup encountered %d errors: %v", len(e.Errors), e.Errors)
}

func (e *CleanupError) Unwrap() error {
	if len(e.Errors) == 1 {
		return e.Errors[0]
	}
	return errors.Join(e.Errors...)
}

func (e *CleanupError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

func (e *CleanupError) HasErrors() bool {
	return len(e.Errors) > 0
}

// resource is a constraint for the Hetzner Cloud resources a stack owns.
type resource interface {
	*hcloud.Server | *hcloud.Volume | *hcloud.PrimaryIP | *hcloud.SSHKey
}

// resourceInfo extracts common fields from a resource for logging.
type resourceInfo struct {
	Name string
	ID   int64
}

func getResourceInfo[T resource](r T) resourceInfo {
	switch v := any(r).(type) {
	case *hcloud.Server:
		return resourceInfo{Name: v.Name, ID: v.ID}
	case *hcloud.Volume:
		return resourceInfo{Name: v.Name, ID: v.ID}
	case *hcloud.PrimaryIP:
		return resourceInfo{Name: v.Name, ID: v.ID}
	case *hcloud.SSHKey:
		return resourceInfo{Name: v.Name, ID: v.ID}
	default:
		return resourceInfo{}
	}
}

// deleteResourcesByLabel lists resources with listFn and deletes each one.
// Returns an error if listing fails, or a combined error of all deletion failures.
func deleteResourcesByLabel[T resource](
	ctx context.Context,
	resourceType string,
	listFn func(context.Context) ([]T, error),
	deleteFn func(context.Context, T) error,
) error {
	resources, err := listFn(ctx)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", resourceType, err)
	}

	var deleteErrs []error
	for _, r := range resources {
		info := getResourceInfo(r)
		log.Printf("[Cleanup] Deleting %s: %s (ID: %d)", resourceType, info.Name, info.ID)
		if err := deleteFn(ctx, r); err != nil {
			log.Printf("[Cleanup] Warning: Failed to delete %s %s: %v", resourceType, info.Name, err)
			deleteErrs = append(deleteErrs, fmt.Errorf("%s %q: %w", resourceType, info.Name, err))
		}
	}

	if len(deleteErrs) > 0 {
		return errors.Join(deleteErrs...)
	}
	return nil
}

// CleanupByLabel deletes all Hetzner Cloud resources matching the given label selector.
// It is used to remove leftovers of a stack that are no longer tracked in state.
// Servers go first so volumes and primary IPs are released before their own deletion.
// Every resource type is attempted even if some deletions fail.
func (c *RealClient) CleanupByLabel(ctx context.Context, labelSelector map[string]string) error {
	if len(labelSelector) == 0 {
		return fmt.Errorf("refusing to clean up with an empty label selector")
	}
	selector := labels.Selector(labelSelector)
	log.Printf("[Cleanup] Starting cleanup for resources with labels: %s", selector)

	cleanupErrs := &CleanupError{}
	steps := []struct {
		name string
		fn   func(context.Context, string) error
	}{
		{"servers", c.deleteServersByLabel},
		{"volumes", c.deleteVolumesByLabel},
		{"primary IPs", c.deletePrimaryIPsByLabel},
		{"SSH keys", c.deleteSSHKeysByLabel},
	}
	for _, step := range steps {
		if err := step.fn(ctx, selector); err != nil {
			log.Printf("[Cleanup] Warning: Failed to delete %s: %v", step.name, err)
			cleanupErrs.Add(fmt.Errorf("%s: %w", step.name, err))
		}
	}

	if cleanupErrs.HasErrors() {
		log.Printf("[Cleanup] Cleanup completed with %d errors", len(cleanupErrs.Errors))
		return cleanupErrs
	}

	log.Printf("[Cleanup] Cleanup complete")
	return nil
}

// deleteServersByLabel deletes all servers matching the label selector
// and waits for each deletion to finish.
func (c *RealClient) deleteServersByLabel(ctx context.Context, labelSelector string) error {
	return deleteResourcesByLabel(ctx, "server",
		func(ctx context.Context) ([]*hcloud.Server, error) {
			return c.client.Server.AllWithOpts(ctx, hcloud.ServerListOpts{
				ListOpts: hcloud.ListOpts{LabelSelector: labelSelector},
			})
		},
		func(ctx context.Context, s *hcloud.Server) error {
			res, _, err := c.client.Server.DeleteWithResult(ctx, s)
			if err != nil {
				return err
			}
			return waitForActions(ctx, c.client, res.Action)
		},
	)
}

// deleteVolumesByLabel detaches and deletes all volumes matching the label selector.
func (c *RealClient) deleteVolumesByLabel(ctx context.Context, labelSelector string) error {
	return deleteResourcesByLabel(ctx, "volume",
		func(ctx context.Context) ([]*hcloud.Volume, error) {
			return c.client.Volume.AllWithOpts(ctx, hcloud.VolumeListOpts{
				ListOpts: hcloud.ListOpts{LabelSelector: labelSelector},
			})
		},
		func(ctx context.Context, v *hcloud.Volume) error {
			if err := c.DetachVolume(ctx, v); err != nil {
				return err
			}
			return c.retryInUse(ctx, func() error {
				_, err := c.client.Volume.Delete(ctx, v)
				return err
			})
		},
	)
}

// deletePrimaryIPsByLabel deletes all primary IPs matching the label selector.
func (c *RealClient) deletePrimaryIPsByLabel(ctx context.Context, labelSelector string) error {
	return deleteResourcesByLabel(ctx, "primary IP",
		func(ctx context.Context) ([]*hcloud.PrimaryIP, error) {
			return c.client.PrimaryIP.AllWithOpts(ctx, hcloud.PrimaryIPListOpts{
				ListOpts: hcloud.ListOpts{LabelSelector: labelSelector},
			})
		},
		func(ctx context.Context, ip *hcloud.PrimaryIP) error {
			return c.retryInUse(ctx, func() error {
				_, err := c.client.PrimaryIP.Delete(ctx, ip)
				return err
			})
		},
	)
}

// deleteSSHKeysByLabel deletes all SSH keys matching the label selector.
func (c *RealClient) deleteSSHKeysByLabel(ctx context.Context, labelSelector string) error {
	return deleteResourcesByLabel(ctx, "SSH key",
		func(ctx context.Context) ([]*hcloud.SSHKey, error) {
			return c.client.SSHKey.AllWithOpts(ctx, hcloud.SSHKeyListOpts{
				ListOpts: hcloud.ListOpts{LabelSelector: labelSelector},
			})
		},
		func(ctx context.Context, k *hcloud.SSHKey) error {
			_, err := c.client.SSHKey.Delete(ctx, k)
			return err
		},
	)
}

// retryInUse retries fn while Hetzner still reports the resource as locked or in use,
// which happens briefly after the server holding it is deleted.
func (c *RealClient) retryInUse(ctx context.Context, fn func() error) error {
	return retry.WithExponentialBackoff(ctx, func() error {
		err := fn()
		if err == nil || IsNotFound(err) {
			return nil
		}
		if isRetryable(err) {
			return err
		}
		return retry.Fatal(err)
	}, retry.WithMaxRetries(c.timeouts.RetryMaxAttempts), retry.WithInitialDelay(c.timeouts.RetryInitialDelay))
}
