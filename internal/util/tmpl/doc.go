// Package tmpl renders "{{ token }}" placeholders.
//
// The placeholder syntax is shared by the cloud-init template and by remote
// command text. Tokens are lowercase words joined by hyphens. Whitespace
// inside the braces is optional, so "{{hostname}}" and "{{ hostname }}" are
// the same token.
package tmpl
