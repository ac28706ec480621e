package hcloud

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/aries/internal/util/keygen"
)

// EnsureSSHKey returns the SSH key with the given name, uploading it when missing.
// A key that already exists under the name must carry the same public key.
func (c *RealClient) EnsureSSHKey(ctx context.Context, name, publicKey string, labels map[string]string) (*hcloud.SSHKey, error) {
	fingerprint, err := keygen.Fingerprint([]byte(publicKey))
	if err != nil {
		return nil, fmt.Errorf("invalid public key for ssh key %s: %w", name, err)
	}

	return (&EnsureOperation[*hcloud.SSHKey, hcloud.SSHKeyCreateOpts, any]{
		Name:         name,
		ResourceType: "ssh key",
		Get:          c.client.SSHKey.Get,
		Create:       simpleCreate(c.client.SSHKey.Create),
		CreateOptsMapper: func() hcloud.SSHKeyCreateOpts {
			return hcloud.SSHKeyCreateOpts{
				Name:      name,
				PublicKey: publicKey,
				Labels:    labels,
			}
		},
		Validate: func(key *hcloud.SSHKey) error {
			if key.Fingerprint != fingerprint {
				return fmt.Errorf("ssh key %s exists with fingerprint %s, want %s", name, key.Fingerprint, fingerprint)
			}
			return nil
		},
	}).Execute(ctx, c)
}

// GetSSHKey returns the SSH key by name, or nil if not found.
func (c *RealClient) GetSSHKey(ctx context.Context, name string) (*hcloud.SSHKey, error) {
	key, _, err := c.client.SSHKey.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get ssh key: %w", err)
	}
	return key, nil
}

// UpdateSSHKeyLabels replaces the labels of an SSH key.
func (c *RealClient) UpdateSSHKeyLabels(ctx context.Context, key *hcloud.SSHKey, labels map[string]string) error {
	if _, _, err := c.client.SSHKey.Update(ctx, key, hcloud.SSHKeyUpdateOpts{Labels: labels}); err != nil {
		return fmt.Errorf("failed to update ssh key labels: %w", err)
	}
	return nil
}

// DeleteSSHKey deletes the SSH key with the given name.
func (c *RealClient) DeleteSSHKey(ctx context.Context, name string) error {
	return (&DeleteOperation[*hcloud.SSHKey]{
		Name:         name,
		ResourceType: "ssh key",
		Get:          c.client.SSHKey.Get,
		Delete:       c.client.SSHKey.Delete,
	}).Execute(ctx, c)
}
