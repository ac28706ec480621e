package hcloud

import (
	"context"
	"net"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// MockClient is a mock implementation of InfrastructureManager.
// Unset functions fall back to benign defaults: Get* finds nothing,
// creates return a resource with ID 1, everything else succeeds.
type MockClient struct {
	// SSHKey
	EnsureSSHKeyFunc       func(ctx context.Context, name, publicKey string, labels map[string]string) (*hcloud.SSHKey, error)
	GetSSHKeyFunc          func(ctx context.Context, name string) (*hcloud.SSHKey, error)
	UpdateSSHKeyLabelsFunc func(ctx context.Context, key *hcloud.SSHKey, labels map[string]string) error
	DeleteSSHKeyFunc       func(ctx context.Context, name string) error

	// PrimaryIP
	EnsurePrimaryIPFunc       func(ctx context.Context, name, location string, ipType hcloud.PrimaryIPType, labels map[string]string) (*hcloud.PrimaryIP, error)
	GetPrimaryIPFunc          func(ctx context.Context, name string) (*hcloud.PrimaryIP, error)
	UpdatePrimaryIPLabelsFunc func(ctx context.Context, ip *hcloud.PrimaryIP, labels map[string]string) error
	DeletePrimaryIPFunc       func(ctx context.Context, name string) error

	// Server
	CreateServerFunc       func(ctx context.Context, opts ServerCreateOpts) (*hcloud.Server, error)
	GetServerFunc          func(ctx context.Context, name string) (*hcloud.Server, error)
	UpdateServerLabelsFunc func(ctx context.Context, server *hcloud.Server, labels map[string]string) error
	DeleteServerFunc       func(ctx context.Context, name string) error

	// Volume
	CreateVolumeFunc       func(ctx context.Context, opts VolumeCreateOpts) (*hcloud.Volume, error)
	GetVolumeFunc          func(ctx context.Context, name string) (*hcloud.Volume, error)
	AttachVolumeFunc       func(ctx context.Context, volume *hcloud.Volume, serverID int64, automount bool) error
	DetachVolumeFunc       func(ctx context.Context, volume *hcloud.Volume) error
	ResizeVolumeFunc       func(ctx context.Context, volume *hcloud.Volume, size int) error
	UpdateVolumeLabelsFunc func(ctx context.Context, volume *hcloud.Volume, labels map[string]string) error
	DeleteVolumeFunc       func(ctx context.Context, name string) error

	CleanupByLabelFunc func(ctx context.Context, labelSelector map[string]string) error
}

// Ensure interface compliance
var _ InfrastructureManager = (*MockClient)(nil)

// EnsureSSHKey mocks SSH key upload.
func (m *MockClient) EnsureSSHKey(ctx context.Context, name, publicKey string, labels map[string]string) (*hcloud.SSHKey, error) {
	if m.EnsureSSHKeyFunc != nil {
		return m.EnsureSSHKeyFunc(ctx, name, publicKey, labels)
	}
	return &hcloud.SSHKey{ID: 1, Name: name, PublicKey: publicKey, Labels: labels}, nil
}

// GetSSHKey mocks SSH key lookup.
func (m *MockClient) GetSSHKey(ctx context.Context, name string) (*hcloud.SSHKey, error) {
	if m.GetSSHKeyFunc != nil {
		return m.GetSSHKeyFunc(ctx, name)
	}
	return nil, nil
}

// UpdateSSHKeyLabels mocks SSH key label updates.
func (m *MockClient) UpdateSSHKeyLabels(ctx context.Context, key *hcloud.SSHKey, labels map[string]string) error {
	if m.UpdateSSHKeyLabelsFunc != nil {
		return m.UpdateSSHKeyLabelsFunc(ctx, key, labels)
	}
	return nil
}

// DeleteSSHKey mocks SSH key deletion.
func (m *MockClient) DeleteSSHKey(ctx context.Context, name string) error {
	if m.DeleteSSHKeyFunc != nil {
		return m.DeleteSSHKeyFunc(ctx, name)
	}
	return nil
}

// EnsurePrimaryIP mocks primary IP allocation.
func (m *MockClient) EnsurePrimaryIP(ctx context.Context, name, location string, ipType hcloud.PrimaryIPType, labels map[string]string) (*hcloud.PrimaryIP, error) {
	if m.EnsurePrimaryIPFunc != nil {
		return m.EnsurePrimaryIPFunc(ctx, name, location, ipType, labels)
	}
	return &hcloud.PrimaryIP{ID: 1, Name: name, Type: ipType, IP: net.ParseIP("192.0.2.1"), Labels: labels}, nil
}

// GetPrimaryIP mocks primary IP lookup.
func (m *MockClient) GetPrimaryIP(ctx context.Context, name string) (*hcloud.PrimaryIP, error) {
	if m.GetPrimaryIPFunc != nil {
		return m.GetPrimaryIPFunc(ctx, name)
	}
	return nil, nil
}

// UpdatePrimaryIPLabels mocks primary IP label updates.
func (m *MockClient) UpdatePrimaryIPLabels(ctx context.Context, ip *hcloud.PrimaryIP, labels map[string]string) error {
	if m.UpdatePrimaryIPLabelsFunc != nil {
		return m.UpdatePrimaryIPLabelsFunc(ctx, ip, labels)
	}
	return nil
}

// DeletePrimaryIP mocks primary IP deletion.
func (m *MockClient) DeletePrimaryIP(ctx context.Context, name string) error {
	if m.DeletePrimaryIPFunc != nil {
		return m.DeletePrimaryIPFunc(ctx, name)
	}
	return nil
}

// CreateServer mocks server creation.
func (m *MockClient) CreateServer(ctx context.Context, opts ServerCreateOpts) (*hcloud.Server, error) {
	if m.CreateServerFunc != nil {
		return m.CreateServerFunc(ctx, opts)
	}
	return &hcloud.Server{ID: 1, Name: opts.Name, Status: hcloud.ServerStatusRunning, Labels: opts.Labels}, nil
}

// GetServer mocks server lookup.
func (m *MockClient) GetServer(ctx context.Context, name string) (*hcloud.Server, error) {
	if m.GetServerFunc != nil {
		return m.GetServerFunc(ctx, name)
	}
	return nil, nil
}

// UpdateServerLabels mocks server label updates.
func (m *MockClient) UpdateServerLabels(ctx context.Context, server *hcloud.Server, labels map[string]string) error {
	if m.UpdateServerLabelsFunc != nil {
		return m.UpdateServerLabelsFunc(ctx, server, labels)
	}
	return nil
}

// DeleteServer mocks server deletion.
func (m *MockClient) DeleteServer(ctx context.Context, name string) error {
	if m.DeleteServerFunc != nil {
		return m.DeleteServerFunc(ctx, name)
	}
	return nil
}

// CreateVolume mocks volume creation.
func (m *MockClient) CreateVolume(ctx context.Context, opts VolumeCreateOpts) (*hcloud.Volume, error) {
	if m.CreateVolumeFunc != nil {
		return m.CreateVolumeFunc(ctx, opts)
	}
	v := &hcloud.Volume{ID: 1, Name: opts.Name, Size: opts.Size, Labels: opts.Labels, LinuxDevice: "/dev/disk/by-id/scsi-0HC_Volume_1"}
	if opts.ServerID != 0 {
		v.Server = &hcloud.Server{ID: opts.ServerID}
	}
	return v, nil
}

// GetVolume mocks volume lookup.
func (m *MockClient) GetVolume(ctx context.Context, name string) (*hcloud.Volume, error) {
	if m.GetVolumeFunc != nil {
		return m.GetVolumeFunc(ctx, name)
	}
	return nil, nil
}

// AttachVolume mocks volume attachment.
func (m *MockClient) AttachVolume(ctx context.Context, volume *hcloud.Volume, serverID int64, automount bool) error {
	if m.AttachVolumeFunc != nil {
		return m.AttachVolumeFunc(ctx, volume, serverID, automount)
	}
	return nil
}

// DetachVolume mocks volume detachment.
func (m *MockClient) DetachVolume(ctx context.Context, volume *hcloud.Volume) error {
	if m.DetachVolumeFunc != nil {
		return m.DetachVolumeFunc(ctx, volume)
	}
	return nil
}

// ResizeVolume mocks volume resizing.
func (m *MockClient) ResizeVolume(ctx context.Context, volume *hcloud.Volume, size int) error {
	if m.ResizeVolumeFunc != nil {
		return m.ResizeVolumeFunc(ctx, volume, size)
	}
	return nil
}

// UpdateVolumeLabels mocks volume label updates.
func (m *MockClient) UpdateVolumeLabels(ctx context.Context, volume *hcloud.Volume, labels map[string]string) error {
	if m.UpdateVolumeLabelsFunc != nil {
		return m.UpdateVolumeLabelsFunc(ctx, volume, labels)
	}
	return nil
}

// DeleteVolume mocks volume deletion.
func (m *MockClient) DeleteVolume(ctx context.Context, name string) error {
	if m.DeleteVolumeFunc != nil {
		return m.DeleteVolumeFunc(ctx, name)
	}
	return nil
}

// CleanupByLabel mocks label-based cleanup.
func (m *MockClient) CleanupByLabel(ctx context.Context, labelSelector map[string]string) error {
	if m.CleanupByLabelFunc != nil {
		return m.CleanupByLabelFunc(ctx, labelSelector)
	}
	return nil
}
