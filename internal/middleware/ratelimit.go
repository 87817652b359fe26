package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"key-protection-service/pkg/httputil"
)

// RateLimit はクライアントIPごとに1分あたりのリクエスト数を制限する。
// perMinute が0以下の場合は何もしない。
func RateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httputil.Error(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
		}),
	)
}
