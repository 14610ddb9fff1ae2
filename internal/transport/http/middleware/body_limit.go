package middleware

import (
	"net/http"
	"strings"
)

// BodyLimit caps request bodies of writes. Paths ending in one of the
// exempt suffixes enforce their own limit.
func BodyLimit(maxBytes int64, exemptSuffixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 && hasBody(r.Method) && !exempt(r.URL.Path, exemptSuffixes) {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func exempt(path string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(strings.TrimRight(path, "/"), suffix) {
			return true
		}
	}
	return false
}
