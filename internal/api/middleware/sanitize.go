package middleware

import (
	"net/http"
	"strings"

	"github.com/fortiban/fortiban/internal/util"
)

const maxLogValue = 200

var sensitiveHeaders = map[string]struct{}{
	"authorization":       {},
	"cookie":              {},
	"set-cookie":          {},
	"proxy-authorization": {},
	"api-key":             {},
	"x-api-key":           {},
	"x-auth-token":        {},
}

// SanitizeHeaders returns a copy of h that is safe to log: credential headers
// are redacted and other values are stripped of control characters and truncated.
func SanitizeHeaders(h http.Header) map[string][]string {
	if h == nil {
		return nil
	}
	out := make(map[string][]string, len(h))
	for k, vals := range h {
		if _, ok := sensitiveHeaders[strings.ToLower(k)]; ok {
			out[k] = []string{"<redacted>"}
			continue
		}
		clean := make([]string, 0, len(vals))
		for _, v := range vals {
			clean = append(clean, util.Truncate(util.SanitizeForLog(v), maxLogValue))
		}
		out[k] = clean
	}
	return out
}

// SanitizePath prepares a request path for safe logging. The query string is dropped.
func SanitizePath(p string) string {
	if i := strings.Index(p, "?"); i != -1 {
		p = p[:i]
	}
	return util.Truncate(util.SanitizeForLog(p), maxLogValue)
}
