package api

import (
	"net/http"

	"audio-proxy/internal/config"
)

func SetupRoutes(handler *Handler, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Per-route limits: search is the expensive path, proxy routes are
	// cheaper but bandwidth-heavy.
	searchLimiter := newIPRateLimiter(cfg.SearchRateLimit)
	proxyLimiter := newIPRateLimiter(cfg.ProxyRateLimit)

	mux.Handle("/search", RateLimitMiddleware(searchLimiter, http.HandlerFunc(handler.Search)))
	mux.Handle("/audio", RateLimitMiddleware(proxyLimiter, http.HandlerFunc(handler.Audio)))
	mux.Handle("/lyrics", RateLimitMiddleware(proxyLimiter, http.HandlerFunc(handler.Lyrics)))
	mux.Handle("/image", RateLimitMiddleware(proxyLimiter, http.HandlerFunc(handler.Image)))

	// Liveness/version descriptor
	mux.HandleFunc("/", handler.Home)

	// Apply middleware
	chain := LoggingMiddleware(mux)
	chain = RecoveryMiddleware(chain)
	chain = CORSMiddleware(chain)

	return chain
}
