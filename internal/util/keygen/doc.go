// Package keygen generates SSH key pairs for the stack's access key.
//
// Private keys are PEM encoded, public keys use the OpenSSH authorized_keys
// format expected by Hetzner Cloud and by the ARIES_PUB environment variable.
package keygen
