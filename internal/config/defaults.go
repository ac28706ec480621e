package config

import (
	"github.com/imamik/aries/internal/util/naming"
	"github.com/imamik/aries/internal/util/ptr"
)

// Default values for an unset field.
const (
	DefaultStackName     = "aries"
	DefaultLocation      = "fsn1"
	DefaultSSHKeyName    = "ARIES"
	DefaultPublicKeyEnv  = "ARIES_PUB"
	DefaultPrivateKeyEnv = "ARIES"
	DefaultServerName    = "test-server"
	DefaultServerType    = "cx33"
	DefaultImage         = "ubuntu-24.04"
	DefaultUserData      = "cloud-init.yaml"
	DefaultVolumeName    = "data-volume"
	DefaultVolumeSize    = 50
	DefaultVolumeFormat  = "ext4"
	DefaultSSHUser       = "root"
	DefaultSSHPort       = 22
	DefaultStateBackend  = BackendLocal
	DefaultStateDir      = naming.StateDir
)

// State backends.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// Environment variables read by ResolveSecrets.
const (
	EnvHCloudToken = "HCLOUD_TOKEN"
	EnvS3AccessKey = "HETZNER_S3_ACCESS_KEY"
	EnvS3SecretKey = "HETZNER_S3_SECRET_KEY"
)

// DefaultCommands returns the lifecycle commands used when none are configured.
// Destroy runs them in reverse: k3s is stopped before the data volume is
// unmounted, which happens before the volume is detached.
func DefaultCommands(volumeName string) []Command {
	return []Command{
		{
			Name:      "unmount-data",
			Delete:    "umount {{ volume-mount }} || true",
			DependsOn: []string{"volume/" + volumeName},
		},
		{
			Name:      "shutdown-k3s",
			Delete:    "systemctl stop k3s",
			DependsOn: []string{"command/unmount-data"},
		},
	}
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = DefaultStackName
	}
	if c.Location == "" {
		c.Location = DefaultLocation
	}

	if c.SSHKey.Name == "" {
		c.SSHKey.Name = DefaultSSHKeyName
	}
	if c.SSHKey.PublicKeyEnv == "" {
		c.SSHKey.PublicKeyEnv = DefaultPublicKeyEnv
	}

	if c.Server.Name == "" {
		c.Server.Name = DefaultServerName
	}
	if c.Server.ServerType == "" {
		c.Server.ServerType = DefaultServerType
	}
	if c.Server.Image == "" {
		c.Server.Image = DefaultImage
	}
	if c.Server.IPv4 == nil {
		c.Server.IPv4 = ptr.Bool(true)
	}
	if c.Server.IPv6 == nil {
		c.Server.IPv6 = ptr.Bool(false)
	}
	if c.Server.UserData.Template == "" {
		c.Server.UserData.Template = DefaultUserData
	}

	if c.PrimaryIP.Enabled == nil {
		c.PrimaryIP.Enabled = ptr.Bool(c.Server.IPv4Enabled())
	}
	if c.PrimaryIP.Name == "" {
		c.PrimaryIP.Name = naming.PrimaryIP(c.Server.Name)
	}

	if c.Volume.Name == "" {
		c.Volume.Name = DefaultVolumeName
	}
	if c.Volume.Size == 0 {
		c.Volume.Size = DefaultVolumeSize
	}
	if c.Volume.Format == "" {
		c.Volume.Format = DefaultVolumeFormat
	}
	if c.Volume.Automount == nil {
		c.Volume.Automount = ptr.Bool(true)
	}

	if c.Connection.User == "" {
		c.Connection.User = DefaultSSHUser
	}
	if c.Connection.Port == 0 {
		c.Connection.Port = DefaultSSHPort
	}
	if c.Connection.PrivateKeyEnv == "" {
		c.Connection.PrivateKeyEnv = DefaultPrivateKeyEnv
	}

	if c.Commands == nil {
		c.Commands = DefaultCommands(c.Volume.Name)
	}

	if c.State.Backend == "" {
		c.State.Backend = DefaultStateBackend
	}
	if c.State.Backend == BackendLocal && c.State.Path == "" {
		c.State.Path = naming.LocalStatePath(c.Name)
	}
	if c.State.Backend == BackendS3 && c.State.S3.Key == "" {
		c.State.S3.Key = naming.S3StateKey(c.Name)
	}
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}
