package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nehaPandit96/dealership/internal/metrics"
	"github.com/nehaPandit96/dealership/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	IdentityResolver middleware.IdentityResolver
	RateLimiter      *middleware.RateLimiter
	CSRFConfig       middleware.CSRFConfig
	RequestTimeout   time.Duration
	Logger           *slog.Logger

	// メトリクス
	Metrics  metrics.MetricsCollector
	Gatherer prometheus.Gatherer

	// 車両
	CarService CarServiceInterface

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Metrics → Logging → Session → Timeout → CSRF → RateLimit(General)
//
// /health と /metrics はアプリケーションのミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	carHandler := NewCarHandler(deps.CarService, deps.Metrics)
	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.Metrics)

	// --- 運用エンドポイント（チェーン外） ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- アプリケーションルート ---

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRecoveryMiddleware())
		r.Use(middleware.NewSecurityHeadersMiddleware())
		if deps.Metrics != nil {
			r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
		}
		if deps.Logger != nil {
			r.Use(middleware.NewLoggingMiddleware(deps.Logger))
		}
		r.Use(middleware.NewSessionMiddleware(deps.IdentityResolver))
		if deps.RequestTimeout > 0 {
			r.Use(middleware.NewTimeoutMiddleware(deps.RequestTimeout))
		}
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		// 車両（閲覧系は公開、登録・変更系はハンドラー内でポリシー評価）
		r.Get("/", carHandler.ListCars)
		r.Get("/add", carHandler.ShowAddForm)
		r.Post("/add", carHandler.AddCar)
		r.Get("/cardetails/{id}", carHandler.CarDetails)
		r.Get("/update/{id}", carHandler.ShowUpdateForm)
		r.Post("/update/{id}", carHandler.UpdateCar)
		r.Post("/deleteCar/{id}", carHandler.DeleteCar)
		r.Post("/markPendingSale/{id}", carHandler.MarkPendingSale)
		r.Get("/search", carHandler.ShowSearchForm)
		r.Post("/search", carHandler.SearchCars)

		// 認証
		r.Get("/register", authHandler.ShowRegisterForm)
		r.Post("/register", authHandler.Register)
		r.Get("/login", authHandler.ShowLoginForm)
		if deps.RateLimiter != nil {
			// ログイン試行には総当たり対策の専用レート制限を追加
			r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		} else {
			r.Post("/login", authHandler.Login)
		}
		r.Get("/logout", authHandler.Logout)

		// CSRFトークン取得（フォーム埋め込み用）
		r.Handle("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))
	})

	return r
}
