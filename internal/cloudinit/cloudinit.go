package cloudinit

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/imamik/aries/internal/util/tmpl"
)

// MaxUserDataSize is the Hetzner Cloud limit for server user data.
const MaxUserDataSize = 32 * 1024

const (
	cloudConfigHeader = "#cloud-config"
	shebang           = "#!"
)

// Vars holds the values substituted into the template.
type Vars struct {
	Hostname     string // {{ hostname }}
	Location     string // {{ location }}
	Stack        string // {{ stack }}
	SSHPublicKey string // {{ ssh-public-key }}
	VolumeName   string // {{ volume-name }}

	// User holds additional variables from server.user_data.vars.
	User map[string]string
}

func (v Vars) toMap() (map[string]string, error) {
	m := map[string]string{
		"hostname":       v.Hostname,
		"location":       v.Location,
		"stack":          v.Stack,
		"ssh-public-key": v.SSHPublicKey,
		"volume-name":    v.VolumeName,
	}
	for k, val := range v.User {
		if !tmpl.ValidName(k) {
			return nil, fmt.Errorf("user variable %q is not a valid name (lowercase letters, digits, '-' and '_')", k)
		}
		if _, builtin := m[k]; builtin {
			return nil, fmt.Errorf("user variable %q shadows a built-in variable", k)
		}
		m[k] = val
	}
	return m, nil
}

// Render substitutes the variables and validates the result.
func Render(template string, vars Vars) (string, error) {
	values, err := vars.toMap()
	if err != nil {
		return "", err
	}

	out, err := tmpl.RenderStrict(template, values)
	if err != nil {
		return "", err
	}

	if err := Validate(out); err != nil {
		return "", err
	}
	return out, nil
}

// RenderFile reads a template from disk and renders it.
func RenderFile(path string, vars Vars) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read user data template: %w", err)
	}

	out, err := Render(string(data), vars)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", path, err)
	}
	return out, nil
}

// Validate checks that rendered user data is accepted by cloud-init: either a
// shell script, or a "#cloud-config" document that parses as a YAML mapping.
func Validate(userData string) error {
	if strings.TrimSpace(userData) == "" {
		return errors.New("user data is empty")
	}
	if len(userData) > MaxUserDataSize {
		return fmt.Errorf("user data is %d bytes, limit is %d", len(userData), MaxUserDataSize)
	}

	if strings.HasPrefix(userData, shebang) {
		return nil
	}
	if !strings.HasPrefix(userData, cloudConfigHeader) {
		return fmt.Errorf("user data must start with %q or %q", cloudConfigHeader, shebang)
	}

	var doc map[string]any
	if err := yaml.Unmarshal([]byte(userData), &doc); err != nil {
		return fmt.Errorf("user data is not valid YAML: %w", err)
	}
	return nil
}

// Hash returns the hex sha256 of the rendered user data. The hash is stored
// in state instead of the text.
func Hash(userData string) string {
	sum := sha256.Sum256([]byte(userData))
	return hex.EncodeToString(sum[:])
}

// DefaultTemplate is written by "aries init".
const DefaultTemplate = `#cloud-config
hostname: {{ hostname }}
package_update: true
packages:
  - curl
  - jq
users:
  - name: root
    ssh_authorized_keys:
      - {{ ssh-public-key }}
write_files:
  - path: /etc/aries/stack
    content: |
      stack={{ stack }}
      location={{ location }}
      volume={{ volume-name }}
runcmd:
  - curl -sfL https://get.k3s.io | sh -
`
