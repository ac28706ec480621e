package resources

import (
	"fmt"

	"github.com/imamik/aries/internal/platform/hcloud"
	"github.com/imamik/aries/internal/provisioning"
	"github.com/imamik/aries/internal/state"
)

// Resource kinds.
const (
	KindSSHKey    = "ssh_key"
	KindPrimaryIP = "primary_ip"
	KindServer    = "server"
	KindVolume    = "volume"
	KindCommand   = "command"
)

// Property and output keys shared by several kinds.
const (
	propLabels   = "labels"
	propLocation = "location"

	outID = "id"
)

// Handlers returns the handler for every kind.
func Handlers(infra hcloud.InfrastructureManager, dial Dialer) map[string]provisioning.Handler {
	return map[string]provisioning.Handler{
		KindSSHKey:    &SSHKeyHandler{infra: infra},
		KindPrimaryIP: &PrimaryIPHandler{infra: infra},
		KindServer:    &ServerHandler{infra: infra},
		KindVolume:    &VolumeHandler{infra: infra},
		KindCommand:   &CommandHandler{dial: dial},
	}
}

// missingError reports a resource that is in state but gone at the provider.
func missingError(kind, name string) error {
	return fmt.Errorf("%s %s not found, run 'aries refresh' to sync state", kind, name)
}

// requireDep returns the dependency of the given kind or an error.
func requireDep(req *provisioning.Request, kind string) (*state.Resource, error) {
	dep := req.Dep(kind)
	if dep == nil {
		return nil, fmt.Errorf("%s requires a %s dependency", req.ID, kind)
	}
	return dep, nil
}
