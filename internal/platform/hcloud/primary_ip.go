package hcloud

import (
	"context"
	"fmt"
	"sort"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// EnsurePrimaryIP returns the primary IP with the given name, creating it when missing.
// New IPs are unassigned and survive deletion of the server they are later bound to.
func (c *RealClient) EnsurePrimaryIP(ctx context.Context, name, location string, ipType hcloud.PrimaryIPType, labels map[string]string) (*hcloud.PrimaryIP, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Action)
	defer cancel()

	return (&EnsureOperation[*hcloud.PrimaryIP, hcloud.PrimaryIPCreateOpts, any]{
		Name:         name,
		ResourceType: "primary ip",
		Get:          c.client.PrimaryIP.Get,
		Create: func(ctx context.Context, opts hcloud.PrimaryIPCreateOpts) (*CreateResult[*hcloud.PrimaryIP], *hcloud.Response, error) {
			dc, err := c.resolveDatacenter(ctx, location)
			if err != nil {
				return nil, nil, err
			}
			opts.Datacenter = dc //nolint:staticcheck
			res, resp, err := c.client.PrimaryIP.Create(ctx, opts)
			if err != nil {
				return nil, resp, err
			}
			return &CreateResult[*hcloud.PrimaryIP]{Resource: res.PrimaryIP, Action: res.Action}, resp, nil
		},
		CreateOptsMapper: func() hcloud.PrimaryIPCreateOpts {
			return hcloud.PrimaryIPCreateOpts{
				Name:         name,
				Type:         ipType,
				AssigneeType: "server",
				AutoDelete:   hcloud.Ptr(false),
				Labels:       labels,
			}
		},
		Validate: func(ip *hcloud.PrimaryIP) error {
			if ip.Type != ipType {
				return fmt.Errorf("primary ip %s exists with type %s, want %s", name, ip.Type, ipType)
			}
			return nil
		},
	}).Execute(ctx, c)
}

// resolveDatacenter picks the first datacenter, by name, in the given location.
// Primary IPs are datacenter-scoped while the stack is configured by location.
func (c *RealClient) resolveDatacenter(ctx context.Context, location string) (string, error) {
	dcs, err := c.client.Datacenter.All(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list datacenters: %w", err)
	}
	var names []string
	for _, dc := range dcs {
		if dc.Location != nil && dc.Location.Name == location {
			names = append(names, dc.Name)
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no datacenter found in location %s", location)
	}
	sort.Strings(names)
	return names[0], nil
}

// GetPrimaryIP returns the primary IP by name, or nil if not found.
func (c *RealClient) GetPrimaryIP(ctx context.Context, name string) (*hcloud.PrimaryIP, error) {
	ip, _, err := c.client.PrimaryIP.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get primary ip: %w", err)
	}
	return ip, nil
}

// UpdatePrimaryIPLabels replaces the labels of a primary IP.
func (c *RealClient) UpdatePrimaryIPLabels(ctx context.Context, ip *hcloud.PrimaryIP, labels map[string]string) error {
	if _, _, err := c.client.PrimaryIP.Update(ctx, ip, hcloud.PrimaryIPUpdateOpts{Labels: &labels}); err != nil {
		return fmt.Errorf("failed to update primary ip labels: %w", err)
	}
	return nil
}

// DeletePrimaryIP deletes the primary IP with the given name.
// An IP still assigned to a server is unassigned first.
func (c *RealClient) DeletePrimaryIP(ctx context.Context, name string) error {
	return (&DeleteOperation[*hcloud.PrimaryIP]{
		Name:         name,
		ResourceType: "primary ip",
		Get:          c.client.PrimaryIP.Get,
		Delete: func(ctx context.Context, ip *hcloud.PrimaryIP) (*hcloud.Response, error) {
			if ip.AssigneeID != 0 {
				action, resp, err := c.client.PrimaryIP.Unassign(ctx, ip.ID)
				if err != nil {
					return resp, err
				}
				if err := c.client.Action.WaitFor(ctx, action); err != nil {
					return resp, fmt.Errorf("failed to wait for primary ip unassign: %w", err)
				}
			}
			return c.client.PrimaryIP.Delete(ctx, ip)
		},
	}).Execute(ctx, c)
}

// PrimaryIPAddress returns the address of a primary IP, or empty string if unset.
func PrimaryIPAddress(ip *hcloud.PrimaryIP) string {
	if ip != nil && ip.IP != nil {
		return ip.IP.String()
	}
	return ""
}
