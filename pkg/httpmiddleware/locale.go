package httpmiddleware

import (
	"context"
	"net/http"
	"strings"
)

// localeKey is the context key for the request locale.
type localeKey struct{}

// LocaleFromContext extracts the request locale from the context. It returns
// an empty string when no locale middleware ran, which downstream resolvers
// treat as "use the fallback".
func LocaleFromContext(ctx context.Context) string {
	if l, ok := ctx.Value(localeKey{}).(string); ok {
		return l
	}
	return ""
}

// Locale returns a middleware that determines the request locale once, at the
// boundary, and stores it in the context. Precedence: the "locale" query
// parameter, then the first Accept-Language tag, then defaultLocale.
// Handlers pass the extracted value to the translation resolver explicitly;
// nothing deeper in the stack reads ambient state.
func Locale(defaultLocale string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := NormalizeLocale(r.URL.Query().Get("locale"))
			if locale == "" {
				locale = NormalizeLocale(firstAcceptLanguage(r.Header.Get("Accept-Language")))
			}
			if locale == "" {
				locale = defaultLocale
			}

			ctx := context.WithValue(r.Context(), localeKey{}, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// firstAcceptLanguage returns the first language tag from an Accept-Language
// header value, ignoring quality weights. Full negotiation is deliberately
// out: the resolver's fallback is one hop deep, so only the top preference
// matters.
func firstAcceptLanguage(header string) string {
	if header == "" {
		return ""
	}
	first, _, _ := strings.Cut(header, ",")
	tag, _, _ := strings.Cut(strings.TrimSpace(first), ";")
	return tag
}

// NormalizeLocale lowercases a locale tag and validates its shape: a 2-8
// letter primary subtag, optionally followed by one hyphenated subtag.
// Invalid input yields an empty string.
func NormalizeLocale(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" || tag == "*" {
		return ""
	}
	primary, rest, _ := strings.Cut(tag, "-")
	if !isAlpha(primary) || len(primary) < 2 || len(primary) > 8 {
		return ""
	}
	if rest == "" {
		return primary
	}
	if !isAlphaNum(rest) || len(rest) > 8 || strings.Contains(rest, "-") {
		return ""
	}
	return primary + "-" + rest
}

func isAlpha(s string) bool {
	for i := range len(s) {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return s != ""
}

func isAlphaNum(s string) bool {
	for i := range len(s) {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return s != ""
}
