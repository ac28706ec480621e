package config

import (
	"errors"
	"fmt"
	"strings"
)

// ResolveSecrets reads key material and credentials from the environment.
// getenv is usually os.Getenv.
func (c *Config) ResolveSecrets(getenv func(string) string) {
	c.HCloudToken = getenv(EnvHCloudToken)
	c.SSHKey.PublicKey = strings.TrimSpace(getenv(c.SSHKey.PublicKeyEnv))
	c.Connection.PrivateKey = getenv(c.Connection.PrivateKeyEnv)
	c.State.S3.AccessKey = getenv(EnvS3AccessKey)
	c.State.S3.SecretKey = getenv(EnvS3SecretKey)
}

// RequireDeploySecrets checks the secrets needed to create or update resources.
// The private key is only required when a command runs during deploy.
func (c *Config) RequireDeploySecrets() error {
	var errs []error
	if c.HCloudToken == "" {
		errs = append(errs, fmt.Errorf("%s environment variable is required", EnvHCloudToken))
	}
	if c.SSHKey.PublicKey == "" {
		errs = append(errs, fmt.Errorf("%s environment variable is required (SSH public key)", c.SSHKey.PublicKeyEnv))
	}
	if c.RunsOnDeploy() && c.Connection.PrivateKey == "" {
		errs = append(errs, fmt.Errorf("%s environment variable is required (SSH private key for remote commands)", c.Connection.PrivateKeyEnv))
	}
	errs = append(errs, c.requireStateSecrets()...)
	return errors.Join(errs...)
}

// RequireDestroySecrets checks the secrets needed to delete resources. The
// public key is not needed, but delete hooks still run over SSH.
func (c *Config) RequireDestroySecrets() error {
	var errs []error
	if c.HCloudToken == "" {
		errs = append(errs, fmt.Errorf("%s environment variable is required", EnvHCloudToken))
	}
	if c.NeedsSSH() && c.Connection.PrivateKey == "" {
		errs = append(errs, fmt.Errorf("%s environment variable is required (SSH private key for remote commands)", c.Connection.PrivateKeyEnv))
	}
	errs = append(errs, c.requireStateSecrets()...)
	return errors.Join(errs...)
}

// RequirePlanSecrets checks what computing a plan needs: the public key,
// whose fingerprint is a server input, and access to state.
func (c *Config) RequirePlanSecrets() error {
	var errs []error
	if c.SSHKey.PublicKey == "" {
		errs = append(errs, fmt.Errorf("%s environment variable is required (SSH public key)", c.SSHKey.PublicKeyEnv))
	}
	errs = append(errs, c.requireStateSecrets()...)
	return errors.Join(errs...)
}

// RequireRefreshSecrets checks what reading resources from the API needs.
func (c *Config) RequireRefreshSecrets() error {
	var errs []error
	if c.HCloudToken == "" {
		errs = append(errs, fmt.Errorf("%s environment variable is required", EnvHCloudToken))
	}
	errs = append(errs, c.requireStateSecrets()...)
	return errors.Join(errs...)
}

// RequireStateSecrets checks only what reading and writing state needs.
func (c *Config) RequireStateSecrets() error {
	return errors.Join(c.requireStateSecrets()...)
}

func (c *Config) requireStateSecrets() []error {
	if c.State.Backend != BackendS3 {
		return nil
	}
	var errs []error
	if c.State.S3.AccessKey == "" {
		errs = append(errs, fmt.Errorf("%s environment variable required for the s3 state backend", EnvS3AccessKey))
	}
	if c.State.S3.SecretKey == "" {
		errs = append(errs, fmt.Errorf("%s environment variable required for the s3 state backend", EnvS3SecretKey))
	}
	return errs
}
