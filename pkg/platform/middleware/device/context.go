// Package device classifies the client behind a request from its User-Agent.
package device

import (
	"context"
	"net/http"

	"github.com/mssola/useragent"
)

// Info is the coarse client classification used to tune scanner hints.
type Info struct {
	Mobile  bool   `json:"mobile"`
	Bot     bool   `json:"bot"`
	OS      string `json:"os,omitempty"`
	Browser string `json:"browser,omitempty"`
}

type contextKeyInfo struct{}

// Parse classifies a raw User-Agent string.
func Parse(userAgent string) Info {
	if userAgent == "" {
		return Info{}
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	return Info{
		Mobile:  ua.Mobile(),
		Bot:     ua.Bot(),
		OS:      ua.OS(),
		Browser: browser,
	}
}

// Detect stores the request's device classification in its context.
func Detect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithInfo(r.Context(), Parse(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext returns the classification stored by Detect. Without it the
// client is treated as a desktop.
func FromContext(ctx context.Context) Info {
	if info, ok := ctx.Value(contextKeyInfo{}).(Info); ok {
		return info
	}
	return Info{}
}

// WithInfo injects a device classification into a context.
// Useful for handler tests that don't run the full middleware chain.
func WithInfo(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, contextKeyInfo{}, info)
}
