// Package cloudinit renders the server boot configuration.
//
// The template is a cloud-init document (or a shell script) containing
// "{{ token }}" placeholders. Rendering substitutes the built-in tokens
// (hostname, location, stack, ssh-public-key, volume-name) and any user
// variables, then checks that no placeholder is left and that the result is
// something cloud-init accepts.
package cloudinit
