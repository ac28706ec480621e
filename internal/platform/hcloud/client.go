package hcloud

import (
	"context"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// ServerCreateOpts holds all parameters for creating an HCloud server.
type ServerCreateOpts struct {
	Name       string
	Image      string
	ServerType string
	Location   string
	SSHKeys    []string
	Labels     map[string]string
	UserData   string
	EnableIPv4 bool
	EnableIPv6 bool
	// PrimaryIPv4 names an existing primary IP to assign as the public IPv4.
	// Empty lets Hetzner allocate one.
	PrimaryIPv4 string
}

// VolumeCreateOpts holds all parameters for creating an HCloud volume.
type VolumeCreateOpts struct {
	Name string
	Size int
	// ServerID attaches the volume on creation. The volume takes the
	// server's location.
	ServerID  int64
	Location  string
	Format    string
	Automount bool
	Labels    map[string]string
}

// SSHKeyManager defines the interface for managing SSH keys.
type SSHKeyManager interface {
	// EnsureSSHKey returns the key with the given name, creating it when missing.
	// An existing key with a different public key is an error.
	EnsureSSHKey(ctx context.Context, name, publicKey string, labels map[string]string) (*hcloud.SSHKey, error)
	GetSSHKey(ctx context.Context, name string) (*hcloud.SSHKey, error)
	UpdateSSHKeyLabels(ctx context.Context, key *hcloud.SSHKey, labels map[string]string) error
	DeleteSSHKey(ctx context.Context, name string) error
}

// PrimaryIPManager defines the interface for managing primary IPs.
type PrimaryIPManager interface {
	// EnsurePrimaryIP returns the primary IP with the given name, creating an
	// unassigned one with auto_delete disabled when missing.
	EnsurePrimaryIP(ctx context.Context, name, location string, ipType hcloud.PrimaryIPType, labels map[string]string) (*hcloud.PrimaryIP, error)
	GetPrimaryIP(ctx context.Context, name string) (*hcloud.PrimaryIP, error)
	UpdatePrimaryIPLabels(ctx context.Context, ip *hcloud.PrimaryIP, labels map[string]string) error
	// DeletePrimaryIP unassigns the IP first when it is still assigned.
	DeletePrimaryIP(ctx context.Context, name string) error
}

// ServerProvisioner defines the interface for provisioning servers.
type ServerProvisioner interface {
	// CreateServer creates a server and waits until it is running.
	CreateServer(ctx context.Context, opts ServerCreateOpts) (*hcloud.Server, error)
	// GetServer returns the server by name, or nil if not found.
	GetServer(ctx context.Context, name string) (*hcloud.Server, error)
	UpdateServerLabels(ctx context.Context, server *hcloud.Server, labels map[string]string) error
	// DeleteServer deletes the server and waits for the deletion to finish.
	DeleteServer(ctx context.Context, name string) error
}

// VolumeManager defines the interface for managing volumes.
type VolumeManager interface {
	CreateVolume(ctx context.Context, opts VolumeCreateOpts) (*hcloud.Volume, error)
	// GetVolume returns the volume by name, or nil if not found.
	GetVolume(ctx context.Context, name string) (*hcloud.Volume, error)
	AttachVolume(ctx context.Context, volume *hcloud.Volume, serverID int64, automount bool) error
	DetachVolume(ctx context.Context, volume *hcloud.Volume) error
	// ResizeVolume grows the volume. Volumes cannot shrink.
	ResizeVolume(ctx context.Context, volume *hcloud.Volume, size int) error
	UpdateVolumeLabels(ctx context.Context, volume *hcloud.Volume, labels map[string]string) error
	// DeleteVolume detaches the volume first when it is still attached.
	DeleteVolume(ctx context.Context, name string) error
}

// Cleaner removes labelled resources regardless of recorded state.
type Cleaner interface {
	// CleanupByLabel deletes all resources matching the given label selector.
	CleanupByLabel(ctx context.Context, labelSelector map[string]string) error
}

// InfrastructureManager combines all infrastructure interfaces.
type InfrastructureManager interface {
	SSHKeyManager
	PrimaryIPManager
	ServerProvisioner
	VolumeManager
	Cleaner
}
