package engine

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"
)

var (
	sanitizePolicyOnce sync.Once
	sanitizePolicy     *bluemonday.Policy
)

func htmlSanitizer() *bluemonday.Policy {
	sanitizePolicyOnce.Do(func() {
		sanitizePolicy = bluemonday.UGCPolicy()
	})
	return sanitizePolicy
}

// registerDefaultFilters installs the built-in filters when pongo2 does not
// already provide them. pongo2 filters are process-wide.
func registerDefaultFilters(env *Environment) error {
	defaults := map[string]pongo2.FilterFunction{
		"trim":       filterTrim,
		"lowerfirst": filterLowerFirst,
		"sanitize":   filterSanitize,
	}
	filtersMu.Lock()
	defer filtersMu.Unlock()
	for name, fn := range defaults {
		if !pongo2.FilterExists(name) {
			if err := pongo2.RegisterFilter(name, fn); err != nil {
				return err
			}
		}
		env.track(env.filters, name)
	}
	return nil
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

func filterLowerFirst(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	text := in.String()
	idx := strings.IndexFunc(text, func(r rune) bool { return !unicode.IsSpace(r) })
	if idx < 0 {
		return pongo2.AsValue(text), nil
	}
	r, size := utf8.DecodeRuneInString(text[idx:])
	return pongo2.AsValue(text[:idx] + string(unicode.ToLower(r)) + text[idx+size:]), nil
}

// filterSanitize strips markup outside the user generated content policy
// and marks the result safe.
func filterSanitize(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsSafeValue(htmlSanitizer().Sanitize(in.String())), nil
}
