package http

import (
	"net/http"

	"github.com/dreschagin/screenshot-mailer/internal/interfaces/http/handler"
	"github.com/dreschagin/screenshot-mailer/internal/interfaces/http/middleware"
	"github.com/dreschagin/screenshot-mailer/pkg/config"
	"github.com/dreschagin/screenshot-mailer/pkg/logger"
)

type Router struct {
	mux                  *http.ServeMux
	screenshotAPIHandler *handler.ScreenshotAPIHandler
	security             config.SecurityConfig
	logger               *logger.Logger
}

func NewRouter(
	screenshotAPIHandler *handler.ScreenshotAPIHandler,
	security config.SecurityConfig,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:                  http.NewServeMux(),
		screenshotAPIHandler: screenshotAPIHandler,
		security:             security,
		logger:               logger,
	}
}

func (rt *Router) Setup() http.Handler {
	// Health endpoints are intentionally unauthenticated for probes.
	rt.mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rt.mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	authMiddleware := middleware.Auth(middleware.AuthConfig{
		Enabled:     rt.security.AuthEnabled,
		BearerToken: rt.security.AuthToken,
	}, rt.logger)
	rateLimiter := middleware.RateLimit(middleware.NewIPRateLimiter(
		rt.security.RateLimitPerSecond,
		rt.security.RateLimitBurst,
	))

	rt.mux.Handle("/api/v1/screenshots",
		rateLimiter(authMiddleware(http.HandlerFunc(rt.screenshotAPIHandler.HandleScreenshots))))

	var h http.Handler = rt.mux
	h = middleware.Logger(rt.logger)(h)
	h = middleware.Recovery(rt.logger)(h)

	return h
}
