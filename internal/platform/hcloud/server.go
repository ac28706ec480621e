package hcloud

import (
	"context"
	"fmt"

	"github.com/imamik/aries/internal/util/retry"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// CreateServer creates a new server and waits until its create and start actions finish.
// The returned server is re-read after the actions, so status and addresses are current.
func (c *RealClient) CreateServer(ctx context.Context, opts ServerCreateOpts) (*hcloud.Server, error) {
	if !opts.EnableIPv4 && !opts.EnableIPv6 {
		return nil, fmt.Errorf("server %s needs at least one of ipv4 and ipv6", opts.Name)
	}
	if opts.PrimaryIPv4 != "" && !opts.EnableIPv4 {
		return nil, fmt.Errorf("server %s has a primary ipv4 but ipv4 is disabled", opts.Name)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.ServerCreate)
	defer cancel()

	// Resolve dependencies and build create options
	createOpts, err := c.buildServerCreateOpts(ctx, opts)
	if err != nil {
		return nil, err
	}

	// Create server with retry
	result, err := c.createServerWithRetry(ctx, createOpts)
	if err != nil {
		return nil, err
	}

	server, _, err := c.client.Server.GetByID(ctx, result.Server.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read created server: %w", err)
	}
	if server == nil {
		return nil, fmt.Errorf("server %s disappeared after creation", opts.Name)
	}
	return server, nil
}

// buildServerCreateOpts resolves all dependencies and builds server creation options.
func (c *RealClient) buildServerCreateOpts(ctx context.Context, opts ServerCreateOpts) (hcloud.ServerCreateOpts, error) {
	// Resolve server type
	serverTypeObj, _, err := c.client.ServerType.Get(ctx, opts.ServerType)
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get server type: %w", err)
	}
	if serverTypeObj == nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("server type not found: %s", opts.ServerType)
	}

	imageObj, err := c.resolveImage(ctx, opts.Image, serverTypeObj)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}

	sshKeyObjs, err := c.resolveSSHKeys(ctx, opts.SSHKeys)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}

	locObj, err := c.resolveLocation(ctx, opts.Location)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}

	publicNet := &hcloud.ServerCreatePublicNet{
		EnableIPv4: opts.EnableIPv4,
		EnableIPv6: opts.EnableIPv6,
	}
	if opts.PrimaryIPv4 != "" {
		ip, err := c.resolvePrimaryIP(ctx, opts.PrimaryIPv4)
		if err != nil {
			return hcloud.ServerCreateOpts{}, err
		}
		publicNet.IPv4 = ip
	}

	return hcloud.ServerCreateOpts{
		Name:       opts.Name,
		ServerType: serverTypeObj,
		Image:      imageObj,
		SSHKeys:    sshKeyObjs,
		Labels:     opts.Labels,
		UserData:   opts.UserData,
		Location:   locObj,
		PublicNet:  publicNet,
	}, nil
}

// createServerWithRetry creates a server with exponential backoff retry logic.
func (c *RealClient) createServerWithRetry(ctx context.Context, opts hcloud.ServerCreateOpts) (hcloud.ServerCreateResult, error) {
	var result hcloud.ServerCreateResult

	err := retry.WithExponentialBackoff(ctx, func() error {
		res, _, err := c.client.Server.Create(ctx, opts)
		if err != nil {
			if isInvalidParameter(err) {
				return retry.Fatal(err)
			}
			return err
		}
		result = res
		return nil
	}, retry.WithMaxRetries(c.timeouts.RetryMaxAttempts), retry.WithInitialDelay(c.timeouts.RetryInitialDelay))

	if err != nil {
		return result, fmt.Errorf("failed to create server: %w", err)
	}

	// Wait for server creation and the follow-up start action
	actions := append([]*hcloud.Action{result.Action}, result.NextActions...)
	if err := waitForActions(ctx, c.client, actions...); err != nil {
		return result, fmt.Errorf("failed to wait for server creation: %w", err)
	}

	return result, nil
}

// GetServer returns the server by name, or nil if not found.
func (c *RealClient) GetServer(ctx context.Context, name string) (*hcloud.Server, error) {
	server, _, err := c.client.Server.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get server: %w", err)
	}
	return server, nil
}

// UpdateServerLabels replaces the labels of a server.
func (c *RealClient) UpdateServerLabels(ctx context.Context, server *hcloud.Server, labels map[string]string) error {
	if _, _, err := c.client.Server.Update(ctx, server, hcloud.ServerUpdateOpts{Labels: labels}); err != nil {
		return fmt.Errorf("failed to update server labels: %w", err)
	}
	return nil
}

// DeleteServer deletes the server with the given name and waits for the deletion.
func (c *RealClient) DeleteServer(ctx context.Context, name string) error {
	return (&DeleteOperation[*hcloud.Server]{
		Name:         name,
		ResourceType: "server",
		Get:          c.client.Server.Get,
		Delete: deleteAndWait(c.client, func(ctx context.Context, server *hcloud.Server) (*hcloud.Action, *hcloud.Response, error) {
			res, resp, err := c.client.Server.DeleteWithResult(ctx, server)
			if err != nil {
				return nil, resp, err
			}
			return res.Action, resp, nil
		}),
	}).Execute(ctx, c)
}
