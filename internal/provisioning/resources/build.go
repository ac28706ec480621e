package resources

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/aries/internal/cloudinit"
	"github.com/imamik/aries/internal/config"
	"github.com/imamik/aries/internal/graph"
	"github.com/imamik/aries/internal/provisioning"
	"github.com/imamik/aries/internal/util/keygen"
	"github.com/imamik/aries/internal/util/labels"
)

// IDs returns the graph IDs of the stack's infrastructure resources. The
// primary IP ID is the zero ID when no primary IP is managed.
func IDs(cfg *config.Config) (sshKey, primaryIP, server, volume graph.ID) {
	sshKey = graph.ID{Kind: KindSSHKey, Name: cfg.SSHKey.Name}
	if cfg.PrimaryIP.IsEnabled() {
		primaryIP = graph.ID{Kind: KindPrimaryIP, Name: cfg.PrimaryIP.Name}
	}
	server = graph.ID{Kind: KindServer, Name: cfg.Server.Name}
	volume = graph.ID{Kind: KindVolume, Name: cfg.Volume.Name}
	return sshKey, primaryIP, server, volume
}

// Build returns the declarations for a config. userData is the rendered
// cloud-init document. It is passed to the server handler but only its hash
// is persisted.
func Build(cfg *config.Config, userData string) ([]provisioning.Desired, error) {
	keyID, ipID, serverID, volumeID := IDs(cfg)

	stackLabels := func(kind, name string, extra map[string]string) string {
		return labels.Encode(labels.NewLabelBuilder(cfg.Name).
			WithResource(kind, name).
			Merge(extra).
			Build())
	}

	fingerprint, err := keygen.Fingerprint([]byte(cfg.SSHKey.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("invalid public key in $%s: %w", cfg.SSHKey.PublicKeyEnv, err)
	}

	desired := []provisioning.Desired{{
		ID: keyID,
		Properties: map[string]string{
			propFingerprint: fingerprint,
			propLabels:      stackLabels(KindSSHKey, keyID.Name, nil),
		},
		Payload: map[string]string{payloadPublicKey: cfg.SSHKey.PublicKey},
	}}

	serverDeps := []graph.ID{keyID}
	primaryIPName := ""
	if cfg.PrimaryIP.IsEnabled() {
		primaryIPName = ipID.Name
		serverDeps = append(serverDeps, ipID)
		desired = append(desired, provisioning.Desired{
			ID: ipID,
			Properties: map[string]string{
				propIPType:   string(hcloud.PrimaryIPTypeIPv4),
				propLocation: cfg.Location,
				propLabels:   stackLabels(KindPrimaryIP, ipID.Name, nil),
			},
		})
	}

	desired = append(desired, provisioning.Desired{
		ID: serverID,
		Properties: map[string]string{
			propServerType:   cfg.Server.ServerType,
			propImage:        cfg.Server.Image,
			propLocation:     cfg.Location,
			propUserDataHash: cloudinit.Hash(userData),
			propIPv4:         strconv.FormatBool(cfg.Server.IPv4Enabled()),
			propIPv6:         strconv.FormatBool(cfg.Server.IPv6Enabled()),
			propSSHKeys:      keyID.Name,
			propPrimaryIP:    primaryIPName,
			propLabels:       stackLabels(KindServer, serverID.Name, cfg.Server.Labels),
		},
		Payload:     map[string]string{payloadUserData: userData},
		DependsOn:   serverDeps,
		ReplaceWith: serverDeps,
	})

	desired = append(desired, provisioning.Desired{
		ID: volumeID,
		Properties: map[string]string{
			propSize:      strconv.Itoa(cfg.Volume.Size),
			propFormat:    cfg.Volume.Format,
			propAutomount: strconv.FormatBool(cfg.Volume.AutomountEnabled()),
			propLocation:  cfg.Location,
			propLabels:    stackLabels(KindVolume, volumeID.Name, cfg.Volume.Labels),
		},
		DependsOn:  []graph.ID{serverID},
		UpdateWith: []graph.ID{serverID},
	})

	for _, cmd := range cfg.Commands {
		d, err := buildCommand(cmd, serverID)
		if err != nil {
			return nil, err
		}
		desired = append(desired, d)
	}

	return desired, nil
}

func buildCommand(cmd config.Command, serverID graph.ID) (provisioning.Desired, error) {
	deps := []graph.ID{serverID}
	for _, ref := range cmd.DependsOn {
		id, err := graph.ParseID(ref)
		if err != nil {
			return provisioning.Desired{}, fmt.Errorf("command %s: %w", cmd.Name, err)
		}
		if !slices.Contains(deps, id) {
			deps = append(deps, id)
		}
	}

	return provisioning.Desired{
		ID: graph.ID{Kind: KindCommand, Name: cmd.Name},
		Properties: map[string]string{
			propCreate:          cmd.Create,
			propUpdate:          cmd.Update,
			propDelete:          cmd.Delete,
			propEnvironment:     EncodeEnvironment(cmd.Environment),
			propTriggers:        strings.Join(cmd.Triggers, ","),
			propContinueOnError: strconv.FormatBool(cmd.ContinueOnError),
		},
		DependsOn:   deps,
		ReplaceWith: []graph.ID{serverID},
	}, nil
}
