// Package resources implements the provisioning handlers for the resource
// kinds of a stack and builds the declarations for a config.
//
// Handlers:
//   - ssh_key: uploads the public key (SSHKeyHandler)
//   - primary_ip: static IPv4 that survives server replacement (PrimaryIPHandler)
//   - server: the compute instance with rendered cloud-init (ServerHandler)
//   - volume: block storage attached to the server (VolumeHandler)
//   - command: remote lifecycle commands run over SSH (CommandHandler)
//
// Build turns a config into []provisioning.Desired and Outputs computes the
// stack outputs from state.
package resources
