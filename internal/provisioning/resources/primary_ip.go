package resources

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	hcloud_internal "github.com/imamik/aries/internal/platform/hcloud"
	"github.com/imamik/aries/internal/provisioning"
	"github.com/imamik/aries/internal/util/labels"
)

const (
	propIPType = "type"

	outIP         = "ip"
	outAssigneeID = "assignee_id"
)

// PrimaryIPHandler manages the static public IP of the server. The IP is
// created unassigned with auto_delete disabled, so it survives server
// replacement.
type PrimaryIPHandler struct {
	infra hcloud_internal.PrimaryIPManager
}

// ForceNew implements provisioning.Handler.
func (h *PrimaryIPHandler) ForceNew() []string {
	return []string{propIPType, propLocation}
}

// Create implements provisioning.Handler. An existing IP with the same name
// is only adopted when it carries this stack's label.
func (h *PrimaryIPHandler) Create(ctx context.Context, req *provisioning.Request) (map[string]string, error) {
	want := labels.Decode(req.Properties[propLabels])

	existing, err := h.infra.GetPrimaryIP(ctx, req.ID.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil && (existing.Labels[labels.KeyStack] != want[labels.KeyStack] || want[labels.KeyStack] == "") {
		return nil, fmt.Errorf("primary ip %s already exists and is not managed by this stack", req.ID.Name)
	}

	ip, err := h.infra.EnsurePrimaryIP(ctx,
		req.ID.Name,
		req.Properties[propLocation],
		hcloud.PrimaryIPType(req.Properties[propIPType]),
		want,
	)
	if err != nil {
		return nil, err
	}
	return primaryIPOutputs(ip), nil
}

// Update implements provisioning.Handler. Only labels change in place.
func (h *PrimaryIPHandler) Update(ctx context.Context, req *provisioning.Request) (map[string]string, error) {
	ip, err := h.infra.GetPrimaryIP(ctx, req.ID.Name)
	if err != nil {
		return nil, err
	}
	if ip == nil {
		return nil, missingError(KindPrimaryIP, req.ID.Name)
	}

	if err := h.infra.UpdatePrimaryIPLabels(ctx, ip, labels.Decode(req.Properties[propLabels])); err != nil {
		return nil, fmt.Errorf("failed to update labels: %w", err)
	}
	return primaryIPOutputs(ip), nil
}

// Delete implements provisioning.Handler.
func (h *PrimaryIPHandler) Delete(ctx context.Context, req *provisioning.Request) error {
	return h.infra.DeletePrimaryIP(ctx, req.ID.Name)
}

// Read implements provisioning.Handler.
func (h *PrimaryIPHandler) Read(ctx context.Context, req *provisioning.Request) (map[string]string, bool, error) {
	ip, err := h.infra.GetPrimaryIP(ctx, req.ID.Name)
	if err != nil || ip == nil {
		return nil, false, err
	}
	return primaryIPOutputs(ip), true, nil
}

func primaryIPOutputs(ip *hcloud.PrimaryIP) map[string]string {
	out := map[string]string{
		outID: strconv.FormatInt(ip.ID, 10),
		outIP: hcloud_internal.PrimaryIPAddress(ip),
	}
	if ip.AssigneeID != 0 {
		out[outAssigneeID] = strconv.FormatInt(ip.AssigneeID, 10)
	}
	return out
}
