package tmpl

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	tokenPattern       = regexp.MustCompile(`\{\{\s*([a-z0-9][a-z0-9_-]*)\s*\}\}`)
	namePattern        = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	placeholderPattern = regexp.MustCompile(`\{\{([^{}]*)\}\}`)
)

// ValidName reports whether name can be used as a token.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// UnresolvedError reports tokens left in a template after rendering.
type UnresolvedError struct {
	Tokens []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved template variables: %s", strings.Join(e.Tokens, ", "))
}

// Render replaces every known token with its value. Any token without a
// value is reported as an *UnresolvedError. Text in braces that is not a
// token name, such as "{{ .ID }}", is left alone.
func Render(template string, vars map[string]string) (string, error) {
	return render(template, vars, false)
}

// RenderStrict is Render, but every "{{ ... }}" placeholder in the template
// must be a token with a value. Anything else is reported as unresolved.
func RenderStrict(template string, vars map[string]string) (string, error) {
	return render(template, vars, true)
}

func render(template string, vars map[string]string, strict bool) (string, error) {
	if template == "" {
		return "", nil
	}

	missing := map[string]bool{}
	if strict {
		for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
			if name := strings.TrimSpace(m[1]); !ValidName(name) {
				missing[name] = true
			}
		}
	}
	result := tokenPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := tokenPattern.FindStringSubmatch(match)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		missing[name] = true
		return match
	})

	if len(missing) > 0 {
		return "", &UnresolvedError{Tokens: sortedKeys(missing)}
	}
	return result, nil
}

// Tokens returns the distinct token names used in a template, sorted.
func Tokens(template string) []string {
	seen := map[string]bool{}
	for _, m := range tokenPattern.FindAllStringSubmatch(template, -1) {
		seen[m[1]] = true
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
