// Package api exposes the orchestrator's Submission API: agent lifecycle
// and mission distribution over HTTP, plus a WebSocket feed of delivery
// substrate events for live observers.
package api

import "net/http"

// MaxPayloadSize bounds request bodies to guard against oversized payloads.
const MaxPayloadSize = 1 * 1024 * 1024 // 1MB

func limitRequestSize(r *http.Request) {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxPayloadSize)
}

// SecurityHeadersMiddleware strips version-revealing headers and sets a
// generic Server header before any handler writes a response.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "orcakit")
		w.Header().Del("X-Powered-By")
		next.ServeHTTP(w, r)
	})
}
