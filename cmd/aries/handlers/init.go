package handlers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/imamik/aries/internal/cloudinit"
	"github.com/imamik/aries/internal/config"
	"github.com/imamik/aries/internal/util/keygen"
)

// Key types accepted by --key-type.
const (
	KeyTypeED25519 = "ed25519"
	KeyTypeRSA     = "rsa"

	rsaKeyBits = 4096
)

// Factory function variables for init, replaced in tests.
var (
	fileExists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	generateKeyPair = func(keyType, comment string) (*keygen.KeyPair, error) {
		switch keyType {
		case KeyTypeED25519:
			return keygen.GenerateED25519KeyPair(comment)
		case KeyTypeRSA:
			kp, err := keygen.GenerateRSAKeyPair(rsaKeyBits)
			if err != nil {
				return nil, err
			}
			return kp.WithComment(comment), nil
		default:
			return nil, fmt.Errorf("unknown key type %q (expected %s or %s)", keyType, KeyTypeED25519, KeyTypeRSA)
		}
	}
)

// keyFileName is the base name of the key pair written for a key type.
func keyFileName(keyType string) string {
	return "aries_" + keyType
}

// Init writes a default aries.yaml and cloud-init.yaml to dir. Existing files
// are only overwritten with force. A non-empty keyType also writes a key pair
// of that type next to them.
func Init(dir string, force bool, keyType string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	cfg := config.Default()
	configPath := filepath.Join(dir, config.DefaultConfigFilename)
	templatePath := filepath.Join(dir, cfg.Server.UserData.Template)

	if !force {
		for _, p := range []string{configPath, templatePath} {
			if fileExists(p) {
				return fmt.Errorf("%s already exists, pass --force to overwrite", p)
			}
		}
	}

	if err := config.Save(cfg, configPath); err != nil {
		return err
	}
	if err := os.WriteFile(templatePath, []byte(cloudinit.DefaultTemplate), 0o644); err != nil { //nolint:gosec // template holds no secrets
		return fmt.Errorf("failed to write user data template: %w", err)
	}

	fmt.Fprintf(stdout, "Wrote %s\n", configPath)
	fmt.Fprintf(stdout, "Wrote %s\n", templatePath)

	var privatePath, publicPath string
	if keyType != "" {
		kp, err := generateKeyPair(keyType, cfg.Name)
		if err != nil {
			return fmt.Errorf("failed to generate SSH key: %w", err)
		}
		privatePath, publicPath, err = kp.WriteFiles(dir, keyFileName(keyType))
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote %s\n", privatePath)
		fmt.Fprintf(stdout, "Wrote %s\n", publicPath)
	}

	printInitNextSteps(cfg, privatePath, publicPath)
	return nil
}

func printInitNextSteps(cfg *config.Config, privatePath, publicPath string) {
	if privatePath == "" {
		privatePath = "<path to private key>"
		publicPath = "<path to public key>"
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Next steps:")
	fmt.Fprintf(stdout, "  export %s=<your-token>\n", config.EnvHCloudToken)
	fmt.Fprintf(stdout, "  export %s=\"$(cat %s)\"\n", cfg.SSHKey.PublicKeyEnv, publicPath)
	fmt.Fprintf(stdout, "  export %s=\"$(cat %s)\"\n", cfg.Connection.PrivateKeyEnv, privatePath)
	fmt.Fprintln(stdout, "  aries preview")
	fmt.Fprintln(stdout, "  aries up")
}
