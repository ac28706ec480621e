package resources

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	hcloud_internal "github.com/imamik/aries/internal/platform/hcloud"
	"github.com/imamik/aries/internal/provisioning"
	"github.com/imamik/aries/internal/util/labels"
)

const (
	propFingerprint = "public_key_fingerprint"

	payloadPublicKey = "public_key"

	outFingerprint = "fingerprint"
)

// SSHKeyHandler manages the SSH key injected into the server.
type SSHKeyHandler struct {
	infra hcloud_internal.SSHKeyManager
}

// ForceNew implements provisioning.Handler.
func (h *SSHKeyHandler) ForceNew() []string {
	return []string{propFingerprint}
}

// Create uploads the key, adopting an existing key with the same name and
// fingerprint.
func (h *SSHKeyHandler) Create(ctx context.Context, req *provisioning.Request) (map[string]string, error) {
	publicKey := req.Payload[payloadPublicKey]
	if publicKey == "" {
		return nil, errors.New("public key is empty")
	}

	key, err := h.infra.EnsureSSHKey(ctx, req.ID.Name, publicKey, labels.Decode(req.Properties[propLabels]))
	if err != nil {
		return nil, err
	}
	return sshKeyOutputs(key), nil
}

// Update implements provisioning.Handler. Only labels change in place.
func (h *SSHKeyHandler) Update(ctx context.Context, req *provisioning.Request) (map[string]string, error) {
	key, err := h.infra.GetSSHKey(ctx, req.ID.Name)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, missingError(KindSSHKey, req.ID.Name)
	}

	if err := h.infra.UpdateSSHKeyLabels(ctx, key, labels.Decode(req.Properties[propLabels])); err != nil {
		return nil, fmt.Errorf("failed to update labels: %w", err)
	}
	return sshKeyOutputs(key), nil
}

// Delete implements provisioning.Handler.
func (h *SSHKeyHandler) Delete(ctx context.Context, req *provisioning.Request) error {
	return h.infra.DeleteSSHKey(ctx, req.ID.Name)
}

// Read implements provisioning.Handler.
func (h *SSHKeyHandler) Read(ctx context.Context, req *provisioning.Request) (map[string]string, bool, error) {
	key, err := h.infra.GetSSHKey(ctx, req.ID.Name)
	if err != nil || key == nil {
		return nil, false, err
	}
	return sshKeyOutputs(key), true, nil
}

func sshKeyOutputs(key *hcloud.SSHKey) map[string]string {
	return map[string]string{
		outID:          strconv.FormatInt(key.ID, 10),
		outFingerprint: key.Fingerprint,
	}
}
