package middleware

import "net/http"

// SecureHeaders allows images from the HR backend origin, where avatars live.
func SecureHeaders(isProd bool, imageOrigin string) func(http.Handler) http.Handler {
	imgSrc := "img-src 'self' data: blob:"
	if imageOrigin != "" {
		imgSrc += " " + imageOrigin
	}
	csp := "default-src 'self'; base-uri 'self'; form-action 'self'; frame-ancestors 'none'; object-src 'none'; " +
		imgSrc + "; style-src 'self' 'unsafe-inline'; script-src 'self'"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers := w.Header()
			headers.Set("X-Content-Type-Options", "nosniff")
			headers.Set("X-Frame-Options", "DENY")
			headers.Set("Referrer-Policy", "same-origin")
			headers.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			headers.Set("Content-Security-Policy", csp)
			headers.Set("Cross-Origin-Opener-Policy", "same-origin")
			if isProd {
				headers.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
