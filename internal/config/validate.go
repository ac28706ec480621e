package config

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/imamik/aries/internal/util/tmpl"
)

// ValidLocations contains all valid Hetzner Cloud locations.
// https://docs.hetzner.com/cloud/general/locations/
var ValidLocations = map[string]bool{
	"nbg1": true, // Nuremberg, Germany
	"fsn1": true, // Falkenstein, Germany
	"hel1": true, // Helsinki, Finland
	"ash":  true, // Ashburn, USA
	"hil":  true, // Hillsboro, USA
	"sin":  true, // Singapore
}

// ValidVolumeFormats are the filesystems Hetzner can format a volume with.
var ValidVolumeFormats = []string{"ext4", "xfs"}

// Volume size limits in GB.
const (
	MinVolumeSize = 10
	MaxVolumeSize = 10240
)

var dnsNameRegex = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// Validate checks the configuration and returns every problem found.
// It expects ApplyDefaults to have been called.
func (c *Config) Validate() error {
	var errs []error

	if c.Name == "" {
		errs = append(errs, errors.New("name is required"))
	} else if !isValidDNSName(c.Name) {
		errs = append(errs, errors.New("name must be DNS-safe (lowercase alphanumeric and hyphens, must start with letter)"))
	}

	if !ValidLocations[c.Location] {
		errs = append(errs, fmt.Errorf("location %q is not a valid Hetzner location", c.Location))
	}

	if c.SSHKey.Name == "" {
		errs = append(errs, errors.New("ssh_key.name is required"))
	}

	if !isValidDNSName(c.Server.Name) {
		errs = append(errs, fmt.Errorf("server.name %q must be DNS-safe", c.Server.Name))
	}
	if c.Server.ServerType == "" {
		errs = append(errs, errors.New("server.server_type is required"))
	}
	if c.Server.Image == "" {
		errs = append(errs, errors.New("server.image is required"))
	}
	if !c.Server.IPv4Enabled() && !c.Server.IPv6Enabled() {
		errs = append(errs, errors.New("server needs at least one of ipv4 or ipv6 enabled"))
	}
	for _, name := range slices.Sorted(maps.Keys(c.Server.UserData.Vars)) {
		if !tmpl.ValidName(name) {
			errs = append(errs, fmt.Errorf("server.user_data.vars: %q is not a valid variable name (lowercase letters, digits, '-' and '_')", name))
		}
	}
	if c.PrimaryIP.IsEnabled() {
		if !c.Server.IPv4Enabled() {
			errs = append(errs, errors.New("primary_ip requires server.ipv4 to be enabled"))
		}
		if c.PrimaryIP.Name == "" {
			errs = append(errs, errors.New("primary_ip.name is required"))
		}
	}

	if c.Volume.Name == "" {
		errs = append(errs, errors.New("volume.name is required"))
	}
	if c.Volume.Size < MinVolumeSize || c.Volume.Size > MaxVolumeSize {
		errs = append(errs, fmt.Errorf("volume.size must be %d-%d GB, got %d", MinVolumeSize, MaxVolumeSize, c.Volume.Size))
	}
	if !slices.Contains(ValidVolumeFormats, c.Volume.Format) {
		errs = append(errs, fmt.Errorf("volume.format must be one of: %v", ValidVolumeFormats))
	}

	if c.Connection.Port < 1 || c.Connection.Port > 65535 {
		errs = append(errs, fmt.Errorf("connection.port %d is out of range", c.Connection.Port))
	}

	errs = append(errs, c.validateCommands()...)

	switch c.State.Backend {
	case BackendLocal:
	case BackendS3:
		if c.State.S3.Bucket == "" {
			errs = append(errs, errors.New("state.s3.bucket is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("state.backend must be %q or %q, got %q", BackendLocal, BackendS3, c.State.Backend))
	}

	return errors.Join(errs...)
}

func (c *Config) validateCommands() []error {
	var errs []error
	known := c.resourceRefs()
	seen := make(map[string]bool, len(c.Commands))

	for i, cmd := range c.Commands {
		if cmd.Name == "" {
			errs = append(errs, fmt.Errorf("commands[%d].name is required", i))
			continue
		}
		if seen[cmd.Name] {
			errs = append(errs, fmt.Errorf("command %q is declared more than once", cmd.Name))
		}
		seen[cmd.Name] = true

		if cmd.Create == "" && cmd.Update == "" && cmd.Delete == "" {
			errs = append(errs, fmt.Errorf("command %q needs at least one of create, update or delete", cmd.Name))
		}
		for _, dep := range cmd.DependsOn {
			if dep == "command/"+cmd.Name {
				errs = append(errs, fmt.Errorf("command %q depends on itself", cmd.Name))
				continue
			}
			if !known[dep] {
				errs = append(errs, fmt.Errorf("command %q depends on unknown resource %q", cmd.Name, dep))
			}
		}
	}
	return errs
}

// resourceRefs returns every "kind/name" reference a command may depend on.
func (c *Config) resourceRefs() map[string]bool {
	refs := map[string]bool{
		"ssh_key/" + c.SSHKey.Name: true,
		"server/" + c.Server.Name:  true,
		"volume/" + c.Volume.Name:  true,
	}
	if c.PrimaryIP.IsEnabled() {
		refs["primary_ip/"+c.PrimaryIP.Name] = true
	}
	for _, cmd := range c.Commands {
		refs["command/"+cmd.Name] = true
	}
	return refs
}

func isValidDNSName(name string) bool {
	if len(name) == 0 || len(name) > 63 {
		return false
	}
	return dnsNameRegex.MatchString(name) && !strings.Contains(name, "--")
}
