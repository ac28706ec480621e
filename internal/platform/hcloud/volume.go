package hcloud

import (
	"context"
	"fmt"

	"github.com/imamik/aries/internal/util/retry"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// CreateVolume creates a volume and waits for the create and attach actions.
// A volume created for a server takes the server's location.
func (c *RealClient) CreateVolume(ctx context.Context, opts VolumeCreateOpts) (*hcloud.Volume, error) {
	if opts.ServerID == 0 && opts.Location == "" {
		return nil, fmt.Errorf("volume %s needs a server or a location", opts.Name)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Action)
	defer cancel()

	createOpts := hcloud.VolumeCreateOpts{
		Name:   opts.Name,
		Size:   opts.Size,
		Labels: opts.Labels,
	}
	if opts.Format != "" {
		createOpts.Format = hcloud.Ptr(opts.Format)
	}
	if opts.ServerID != 0 {
		createOpts.Server = &hcloud.Server{ID: opts.ServerID}
		createOpts.Automount = hcloud.Ptr(opts.Automount)
	} else {
		loc, err := c.resolveLocation(ctx, opts.Location)
		if err != nil {
			return nil, err
		}
		createOpts.Location = loc
	}

	var result hcloud.VolumeCreateResult
	err := retry.WithExponentialBackoff(ctx, func() error {
		res, _, err := c.client.Volume.Create(ctx, createOpts)
		if err != nil {
			if isRetryable(err) {
				return err
			}
			return retry.Fatal(err)
		}
		result = res
		return nil
	}, retry.WithMaxRetries(c.timeouts.RetryMaxAttempts), retry.WithInitialDelay(c.timeouts.RetryInitialDelay))
	if err != nil {
		return nil, fmt.Errorf("failed to create volume: %w", err)
	}

	actions := append([]*hcloud.Action{result.Action}, result.NextActions...)
	if err := waitForActions(ctx, c.client, actions...); err != nil {
		return nil, fmt.Errorf("failed to wait for volume creation: %w", err)
	}

	volume, _, err := c.client.Volume.GetByID(ctx, result.Volume.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read created volume: %w", err)
	}
	if volume == nil {
		return nil, fmt.Errorf("volume %s disappeared after creation", opts.Name)
	}
	return volume, nil
}

// GetVolume returns the volume by name, or nil if not found.
func (c *RealClient) GetVolume(ctx context.Context, name string) (*hcloud.Volume, error) {
	volume, _, err := c.client.Volume.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get volume: %w", err)
	}
	return volume, nil
}

// AttachVolume attaches the volume to a server. Attaching to the server it is
// already attached to is a no-op. A volume attached elsewhere is detached first.
func (c *RealClient) AttachVolume(ctx context.Context, volume *hcloud.Volume, serverID int64, automount bool) error {
	if volume.Server != nil && volume.Server.ID == serverID {
		return nil
	}
	if volume.Server != nil {
		if err := c.DetachVolume(ctx, volume); err != nil {
			return err
		}
	}

	return c.volumeAction(ctx, "attach", func() (*hcloud.Action, error) {
		action, _, err := c.client.Volume.AttachWithOpts(ctx, volume, hcloud.VolumeAttachOpts{
			Server:    &hcloud.Server{ID: serverID},
			Automount: hcloud.Ptr(automount),
		})
		return action, err
	})
}

// DetachVolume detaches the volume from its server, if any.
func (c *RealClient) DetachVolume(ctx context.Context, volume *hcloud.Volume) error {
	if volume.Server == nil {
		return nil
	}
	return c.volumeAction(ctx, "detach", func() (*hcloud.Action, error) {
		action, _, err := c.client.Volume.Detach(ctx, volume)
		return action, err
	})
}

// ResizeVolume grows the volume to size GB.
func (c *RealClient) ResizeVolume(ctx context.Context, volume *hcloud.Volume, size int) error {
	if size < volume.Size {
		return fmt.Errorf("volume %s cannot shrink from %d GB to %d GB", volume.Name, volume.Size, size)
	}
	if size == volume.Size {
		return nil
	}
	return c.volumeAction(ctx, "resize", func() (*hcloud.Action, error) {
		action, _, err := c.client.Volume.Resize(ctx, volume, size)
		return action, err
	})
}

// UpdateVolumeLabels replaces the labels of a volume.
func (c *RealClient) UpdateVolumeLabels(ctx context.Context, volume *hcloud.Volume, labels map[string]string) error {
	if _, _, err := c.client.Volume.Update(ctx, volume, hcloud.VolumeUpdateOpts{Labels: labels}); err != nil {
		return fmt.Errorf("failed to update volume labels: %w", err)
	}
	return nil
}

// DeleteVolume deletes the volume with the given name, detaching it first.
func (c *RealClient) DeleteVolume(ctx context.Context, name string) error {
	return (&DeleteOperation[*hcloud.Volume]{
		Name:         name,
		ResourceType: "volume",
		Get:          c.client.Volume.Get,
		Delete: func(ctx context.Context, volume *hcloud.Volume) (*hcloud.Response, error) {
			if err := c.DetachVolume(ctx, volume); err != nil {
				return nil, retry.Fatal(err)
			}
			return c.client.Volume.Delete(ctx, volume)
		},
	}).Execute(ctx, c)
}

// volumeAction runs a volume action with retry on locks and waits for it.
func (c *RealClient) volumeAction(ctx context.Context, verb string, fn func() (*hcloud.Action, error)) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Action)
	defer cancel()

	err := retry.WithExponentialBackoff(ctx, func() error {
		action, err := fn()
		if err != nil {
			if isRetryable(err) {
				return err
			}
			return retry.Fatal(err)
		}
		if err := waitForActions(ctx, c.client, action); err != nil {
			return retry.Fatal(err)
		}
		return nil
	}, retry.WithMaxRetries(c.timeouts.RetryMaxAttempts), retry.WithInitialDelay(c.timeouts.RetryInitialDelay))
	if err != nil {
		return fmt.Errorf("failed to %s volume: %w", verb, err)
	}
	return nil
}

// VolumeMountPath is where Hetzner's automount mounts a volume.
func VolumeMountPath(volumeID int64) string {
	return fmt.Sprintf("/mnt/HC_Volume_%d", volumeID)
}
