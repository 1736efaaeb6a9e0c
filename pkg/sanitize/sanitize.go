// Package sanitize strips script injection vectors from decoded JSON input.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	scriptTag  = regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)
	iframeTag  = regexp.MustCompile(`(?is)<iframe\b.*?</iframe\s*>`)
	jsScheme   = regexp.MustCompile(`(?i)javascript:`)
	inlineHook = regexp.MustCompile(`(?i)\bon\w+\s*=`)
)

// String removes script and iframe elements, javascript: URLs and inline
// event handler attributes, then trims surrounding space.
func String(s string) string {
	s = scriptTag.ReplaceAllString(s, "")
	s = iframeTag.ReplaceAllString(s, "")
	s = jsScheme.ReplaceAllString(s, "")
	s = inlineHook.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Value sanitizes every string inside v, including object keys' values and
// array elements. Non-string scalars pass through unchanged.
func Value(v any) any {
	switch t := v.(type) {
	case string:
		return String(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Value(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Value(e)
		}
		return out
	default:
		return v
	}
}
