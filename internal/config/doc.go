// Package config defines the stack configuration read from aries.yaml.
//
// A [Config] describes one server stack: the SSH key, the server with its
// primary IPv4 and boot configuration, the data volume, and the remote
// lifecycle commands run over SSH. Every field has a default, so an empty
// file yields the canonical test-server deployment. Secrets never live in
// the file; [Config.ResolveSecrets] reads them from the environment.
package config
