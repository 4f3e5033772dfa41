package httpmiddleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

// LocaleLabeler returns a middleware that records the resolved request
// locale on the otelhttp labeler, so per-locale traffic shows up in HTTP
// metrics. Must run inside both the otelhttp handler and the Locale
// middleware.
func LocaleLabeler() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if locale := LocaleFromContext(r.Context()); locale != "" {
				labeler, _ := otelhttp.LabelerFromContext(r.Context())
				labeler.Add(attribute.String("request.locale", locale))
			}
			next.ServeHTTP(w, r)
		})
	}
}
