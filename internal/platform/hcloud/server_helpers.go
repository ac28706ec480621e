package hcloud

import (
	"context"
	"fmt"
	"net"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// resolveImage resolves an image name for the server type's architecture,
// so the same image name works on x86 and arm server types.
func (c *RealClient) resolveImage(ctx context.Context, image string, serverTypeObj *hcloud.ServerType) (*hcloud.Image, error) {
	imageObj, _, err := c.client.Image.GetForArchitecture(ctx, image, serverTypeObj.Architecture)
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	if imageObj == nil {
		return nil, fmt.Errorf("image not found: %s (%s)", image, serverTypeObj.Architecture)
	}
	if imageObj.Status != "" && imageObj.Status != hcloud.ImageStatusAvailable {
		return nil, fmt.Errorf("image %s is %s, not available", image, imageObj.Status)
	}
	return imageObj, nil
}

// resolveSSHKeys resolves SSH key names/IDs to SSH key objects.
func (c *RealClient) resolveSSHKeys(ctx context.Context, sshKeys []string) ([]*hcloud.SSHKey, error) {
	var sshKeyObjs []*hcloud.SSHKey
	for _, key := range sshKeys {
		keyObj, _, err := c.client.SSHKey.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to get ssh key %s: %w", key, err)
		}
		if keyObj == nil {
			return nil, fmt.Errorf("ssh key not found: %s", key)
		}
		sshKeyObjs = append(sshKeyObjs, keyObj)
	}
	return sshKeyObjs, nil
}

// resolveLocation resolves a location name to a location object.
func (c *RealClient) resolveLocation(ctx context.Context, location string) (*hcloud.Location, error) {
	if location == "" {
		return nil, nil
	}

	locObj, _, err := c.client.Location.Get(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to get location %s: %w", location, err)
	}
	if locObj == nil {
		return nil, fmt.Errorf("location not found: %s", location)
	}
	return locObj, nil
}

// resolvePrimaryIP looks up a primary IP that must not belong to another server.
func (c *RealClient) resolvePrimaryIP(ctx context.Context, name string) (*hcloud.PrimaryIP, error) {
	ip, _, err := c.client.PrimaryIP.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get primary ip %s: %w", name, err)
	}
	if ip == nil {
		return nil, fmt.Errorf("primary ip not found: %s", name)
	}
	if ip.AssigneeID != 0 {
		return nil, fmt.Errorf("primary ip %s is already assigned to server %d", name, ip.AssigneeID)
	}
	return ip, nil
}

// ServerIPv4 extracts the public IPv4 address from a server, or empty string if not set.
func ServerIPv4(s *hcloud.Server) string {
	if s != nil && s.PublicNet.IPv4.IP != nil && !s.PublicNet.IPv4.IP.IsUnspecified() {
		return s.PublicNet.IPv4.IP.String()
	}
	return ""
}

// ServerIPv6 returns the first host address (::1) of the server's IPv6 network,
// or empty string if IPv6 is disabled.
func ServerIPv6(s *hcloud.Server) string {
	if s == nil || s.PublicNet.IPv6.IP == nil || s.PublicNet.IPv6.IP.IsUnspecified() {
		return ""
	}
	ip := make(net.IP, net.IPv6len)
	copy(ip, s.PublicNet.IPv6.IP.To16())
	ip[net.IPv6len-1] |= 1
	return ip.String()
}
