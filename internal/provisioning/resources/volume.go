package resources

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/aries/internal/graph"
	hcloud_internal "github.com/imamik/aries/internal/platform/hcloud"
	"github.com/imamik/aries/internal/provisioning"
	"github.com/imamik/aries/internal/util/labels"
)

const (
	propSize      = "size"
	propFormat    = "format"
	propAutomount = "automount"

	outLinuxDevice = "linux_device"
	outMountPath   = "mount_path"
	outServerID    = "server_id"
)

// VolumeHandler manages the block storage volume. Size grows in place,
// the filesystem format forces a replacement and a replaced server gets the
// volume re-attached.
type VolumeHandler struct {
	infra hcloud_internal.VolumeManager
}

// ForceNew implements provisioning.Handler.
func (h *VolumeHandler) ForceNew() []string {
	return []string{propFormat, propLocation}
}

// Create creates the volume attached to the server dependency. An existing
// volume of this stack is adopted and brought to the declared size and
// attachment.
func (h *VolumeHandler) Create(ctx context.Context, req *provisioning.Request) (map[string]string, error) {
	server, err := requireDep(req, KindServer)
	if err != nil {
		return nil, err
	}
	serverID, err := strconv.ParseInt(server.Output(outID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("server %s has no id in state: %w", server.Name, err)
	}
	size, err := strconv.Atoi(req.Properties[propSize])
	if err != nil {
		return nil, fmt.Errorf("invalid volume size %q: %w", req.Properties[propSize], err)
	}
	want := labels.Decode(req.Properties[propLabels])

	existing, err := h.infra.GetVolume(ctx, req.ID.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Labels[labels.KeyStack] != want[labels.KeyStack] || want[labels.KeyStack] == "" {
			return nil, fmt.Errorf("volume %s already exists and is not managed by this stack", req.ID.Name)
		}
		if req.Log != nil {
			req.Log.Printf("[volume] adopting existing volume %s (id %d)", existing.Name, existing.ID)
		}
		return h.reconcile(ctx, existing, req, serverID, size)
	}

	volume, err := h.infra.CreateVolume(ctx, hcloud_internal.VolumeCreateOpts{
		Name:      req.ID.Name,
		Size:      size,
		ServerID:  serverID,
		Format:    req.Properties[propFormat],
		Automount: req.Properties[propAutomount] == "true",
		Labels:    want,
	})
	if err != nil {
		return nil, err
	}
	return volumeOutputs(volume), nil
}

// ValidateChange implements provisioning.ChangeValidator. Volumes cannot
// shrink, so a smaller size fails the plan.
func (h *VolumeHandler) ValidateChange(id graph.ID, old, updated map[string]string) error {
	from, err := strconv.Atoi(old[propSize])
	if err != nil {
		return nil //nolint:nilerr // no usable size in state, Update reports it
	}
	to, err := strconv.Atoi(updated[propSize])
	if err != nil {
		return fmt.Errorf("invalid volume size %q: %w", updated[propSize], err)
	}
	if to < from {
		return fmt.Errorf("volume %s cannot shrink from %d GB to %d GB", id.Name, from, to)
	}
	return nil
}

// Update grows the volume, re-attaches it to the current server and syncs
// labels. Shrinking is an error.
func (h *VolumeHandler) Update(ctx context.Context, req *provisioning.Request) (map[string]string, error) {
	server, err := requireDep(req, KindServer)
	if err != nil {
		return nil, err
	}
	serverID, err := strconv.ParseInt(server.Output(outID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("server %s has no id in state: %w", server.Name, err)
	}
	size, err := strconv.Atoi(req.Properties[propSize])
	if err != nil {
		return nil, fmt.Errorf("invalid volume size %q: %w", req.Properties[propSize], err)
	}

	volume, err := h.infra.GetVolume(ctx, req.ID.Name)
	if err != nil {
		return nil, err
	}
	if volume == nil {
		return nil, missingError(KindVolume, req.ID.Name)
	}
	return h.reconcile(ctx, volume, req, serverID, size)
}

func (h *VolumeHandler) reconcile(ctx context.Context, volume *hcloud.Volume, req *provisioning.Request, serverID int64, size int) (map[string]string, error) {
	if size != volume.Size {
		if err := h.infra.ResizeVolume(ctx, volume, size); err != nil {
			return nil, err
		}
		volume.Size = size
	}

	if volume.Server == nil || volume.Server.ID != serverID {
		if err := h.infra.AttachVolume(ctx, volume, serverID, req.Properties[propAutomount] == "true"); err != nil {
			return nil, err
		}
		volume.Server = &hcloud.Server{ID: serverID}
	}

	want := labels.Decode(req.Properties[propLabels])
	if labels.Encode(volume.Labels) != labels.Encode(want) {
		if err := h.infra.UpdateVolumeLabels(ctx, volume, want); err != nil {
			return nil, err
		}
		volume.Labels = want
	}
	return volumeOutputs(volume), nil
}

// Delete implements provisioning.Handler. The volume is detached first.
func (h *VolumeHandler) Delete(ctx context.Context, req *provisioning.Request) error {
	return h.infra.DeleteVolume(ctx, req.ID.Name)
}

// Read implements provisioning.Handler.
func (h *VolumeHandler) Read(ctx context.Context, req *provisioning.Request) (map[string]string, bool, error) {
	volume, err := h.infra.GetVolume(ctx, req.ID.Name)
	if err != nil || volume == nil {
		return nil, false, err
	}
	return volumeOutputs(volume), true, nil
}

func volumeOutputs(v *hcloud.Volume) map[string]string {
	out := map[string]string{
		outID:          strconv.FormatInt(v.ID, 10),
		outLinuxDevice: v.LinuxDevice,
		outMountPath:   hcloud_internal.VolumeMountPath(v.ID),
	}
	if v.Server != nil {
		out[outServerID] = strconv.FormatInt(v.Server.ID, 10)
	}
	return out
}
