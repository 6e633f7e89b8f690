// Package device parses the officer app's User-Agent into a compact device
// description. Override and exception audit events record which device a
// field decision was taken from.
package device

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"vigil/pkg/requestcontext"
)

// Middleware parses the User-Agent header and stores a normalized device
// description in the context. Runs after metadata.ClientMetadata.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		desc := Describe(r.Header.Get("User-Agent"))
		ctx := requestcontext.WithDevice(r.Context(), desc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Describe converts a raw User-Agent into "OS / browser version" form.
// Returns "unknown" for empty or unparseable agents so audit events never
// carry an empty device field.
func Describe(rawUA string) string {
	if strings.TrimSpace(rawUA) == "" {
		return "unknown"
	}
	ua := useragent.New(rawUA)
	name, version := ua.Browser()

	parts := make([]string, 0, 2)
	if os := ua.OS(); os != "" {
		parts = append(parts, os)
	}
	if name != "" {
		if version != "" {
			parts = append(parts, name+" "+version)
		} else {
			parts = append(parts, name)
		}
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, " / ")
}
