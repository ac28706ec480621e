package resources

import (
	"slices"

	"github.com/imamik/aries/internal/config"
	"github.com/imamik/aries/internal/provisioning"
	"github.com/imamik/aries/internal/state"
)

// Stack output names.
const (
	OutputServerIPv4   = "server_ipv4"
	OutputServerIPv6   = "server_ipv6"
	OutputServerID     = "server_id"
	OutputVolumeID     = "volume_id"
	OutputVolumeDevice = "volume_device"
	OutputSSHKeyID     = "ssh_key_id"
	OutputPrimaryIP    = "primary_ip"
)

// OutputNames lists every stack output.
var OutputNames = []string{
	OutputServerIPv4,
	OutputServerIPv6,
	OutputServerID,
	OutputVolumeID,
	OutputVolumeDevice,
	OutputSSHKeyID,
	OutputPrimaryIP,
}

// Outputs returns the function computing the stack outputs for cfg. Empty
// values are left out and cfg.Outputs restricts the result when set.
func Outputs(cfg *config.Config) provisioning.OutputFunc {
	keyID, ipID, serverID, volumeID := IDs(cfg)

	return func(s *state.State) map[string]string {
		server := s.Get(serverID)
		volume := s.Get(volumeID)

		all := map[string]string{
			OutputServerIPv4:   server.Output(outIPv4),
			OutputServerIPv6:   server.Output(outIPv6),
			OutputServerID:     server.Output(outID),
			OutputVolumeID:     volume.Output(outID),
			OutputVolumeDevice: volume.Output(outLinuxDevice),
			OutputSSHKeyID:     s.Get(keyID).Output(outID),
		}
		if ipID.Kind != "" {
			all[OutputPrimaryIP] = s.Get(ipID).Output(outIP)
		}

		out := map[string]string{}
		for k, v := range all {
			if v == "" {
				continue
			}
			if len(cfg.Outputs) > 0 && !slices.Contains(cfg.Outputs, k) {
				continue
			}
			out[k] = v
		}
		return out
	}
}
