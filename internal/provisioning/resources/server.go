package resources

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	hcloud_internal "github.com/imamik/aries/internal/platform/hcloud"
	"github.com/imamik/aries/internal/provisioning"
	"github.com/imamik/aries/internal/util/labels"
)

const (
	propServerType   = "server_type"
	propImage        = "image"
	propUserDataHash = "user_data_sha256"
	propIPv4         = "ipv4"
	propIPv6         = "ipv6"
	propSSHKeys      = "ssh_keys"
	propPrimaryIP    = "primary_ip"

	payloadUserData = "user_data"

	outIPv4   = "ipv4"
	outIPv6   = "ipv6"
	outStatus = "status"
)

// ServerHandler manages the compute instance. Everything but labels forces
// a replacement.
type ServerHandler struct {
	infra hcloud_internal.ServerProvisioner
}

// ForceNew implements provisioning.Handler.
func (h *ServerHandler) ForceNew() []string {
	return []string{
		propServerType,
		propImage,
		propLocation,
		propUserDataHash,
		propIPv4,
		propIPv6,
		propSSHKeys,
		propPrimaryIP,
	}
}

// Create creates the server and waits until it is running. A server with the
// same name that carries this stack's labels is adopted, so a run that
// crashed before saving state can be resumed.
func (h *ServerHandler) Create(ctx context.Context, req *provisioning.Request) (map[string]string, error) {
	want := labels.Decode(req.Properties[propLabels])

	existing, err := h.infra.GetServer(ctx, req.ID.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Labels[labels.KeyStack] != want[labels.KeyStack] || want[labels.KeyStack] == "" {
			return nil, fmt.Errorf("server %s already exists and is not managed by this stack", req.ID.Name)
		}
		if req.Log != nil {
			req.Log.Printf("[server] adopting existing server %s (id %d)", existing.Name, existing.ID)
		}
		return serverOutputs(existing), nil
	}

	opts := hcloud_internal.ServerCreateOpts{
		Name:        req.ID.Name,
		Image:       req.Properties[propImage],
		ServerType:  req.Properties[propServerType],
		Location:    req.Properties[propLocation],
		SSHKeys:     splitList(req.Properties[propSSHKeys]),
		Labels:      want,
		UserData:    req.Payload[payloadUserData],
		EnableIPv4:  req.Properties[propIPv4] == "true",
		EnableIPv6:  req.Properties[propIPv6] == "true",
		PrimaryIPv4: req.Properties[propPrimaryIP],
	}

	server, err := h.infra.CreateServer(ctx, opts)
	if err != nil {
		return nil, err
	}
	return serverOutputs(server), nil
}

// Update implements provisioning.Handler. Only labels change in place.
func (h *ServerHandler) Update(ctx context.Context, req *provisioning.Request) (map[string]string, error) {
	server, err := h.infra.GetServer(ctx, req.ID.Name)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, missingError(KindServer, req.ID.Name)
	}

	if err := h.infra.UpdateServerLabels(ctx, server, labels.Decode(req.Properties[propLabels])); err != nil {
		return nil, fmt.Errorf("failed to update labels: %w", err)
	}
	return serverOutputs(server), nil
}

// Delete implements provisioning.Handler.
func (h *ServerHandler) Delete(ctx context.Context, req *provisioning.Request) error {
	return h.infra.DeleteServer(ctx, req.ID.Name)
}

// Read implements provisioning.Handler.
func (h *ServerHandler) Read(ctx context.Context, req *provisioning.Request) (map[string]string, bool, error) {
	server, err := h.infra.GetServer(ctx, req.ID.Name)
	if err != nil || server == nil {
		return nil, false, err
	}
	return serverOutputs(server), true, nil
}

func serverOutputs(s *hcloud.Server) map[string]string {
	out := map[string]string{
		outID:     strconv.FormatInt(s.ID, 10),
		outStatus: string(s.Status),
	}
	if ip := hcloud_internal.ServerIPv4(s); ip != "" {
		out[outIPv4] = ip
	}
	if ip := hcloud_internal.ServerIPv6(s); ip != "" {
		out[outIPv6] = ip
	}
	return out
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
