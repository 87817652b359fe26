package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"key-protection-service/config"
	"key-protection-service/internal/middleware"
)

// NewRouter はルーターを生成する。
func NewRouter(kh *KeyHandler, dh *DeviceHandler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// ミドルウェア
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RateLimit(cfg.RateLimitPerMinute))

	// ルート定義
	r.Get("/v1/protections", ListProtectionKinds)

	r.Route("/v1/tenants/{tenant_id}", func(r chi.Router) {
		r.Route("/keys", func(r chi.Router) {
			r.Post("/", kh.CreateKey)
			r.Get("/", kh.ListKeys)
			r.Get("/current", kh.GetCurrentKey)
			r.Get("/{generation}", kh.GetKeyByGeneration)
			r.Delete("/{generation}", kh.DisableKey)
			r.Post("/rotate", kh.RotateKey)
		})
		r.Route("/devices", func(r chi.Router) {
			r.Post("/", dh.RegisterDevice)
			r.Get("/", dh.ListDevices)
			r.Get("/{device_id}", dh.GetDevice)
			r.Get("/{device_id}/protections", dh.GetProtections)
		})
	})

	if cfg.OtelEnabled {
		return otelhttp.NewHandler(r, cfg.OtelServiceName)
	}
	return r
}
