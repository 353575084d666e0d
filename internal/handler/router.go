package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/newswatcher/internal/metrics"
	"github.com/hitoshi/newswatcher/internal/middleware"
	"github.com/hitoshi/newswatcher/internal/notify"
	"github.com/prometheus/client_golang/prometheus"
)

// HealthChecker は依存先（NATS、Redis等）の疎通を確認するインターフェース。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Publisher   notify.Publisher
	Metrics     metrics.MetricsCollector
	RateLimiter *middleware.RateLimiter
	Logger      *slog.Logger

	// Gatherer が nil の場合は /metrics を公開しない
	Gatherer      prometheus.Gatherer
	// HealthChecker が nil の場合は常に正常を返す
	HealthChecker HealthChecker
}

// NewRouter はプッシュ受信・ヘルスチェック・メトリクスのルーティングを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Recovery → Logging → RateLimit（/push/* のみ）
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	r.Get("/health", healthHandler(deps.HealthChecker))

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	pushHandler := NewPushHandler(deps.Publisher, deps.Metrics, deps.Logger)

	r.Route("/push", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}
		r.Post("/high-importance", pushHandler.HighImportance)
		r.Post("/data-available", pushHandler.DataAvailable)
	})

	return r
}

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// healthHandler は依存先の疎通結果を返すハンドラーを生成する。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(healthResponse{Status: "unavailable", Error: err.Error()})
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(healthResponse{Status: "ok"})
	}
}
