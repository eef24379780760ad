package middleware

import (
	"context"
	"net/http"
	"time"
)

// NewTimeoutMiddleware はリクエストコンテキストに期限を設定するミドルウェアを返す。
// ストアへの問い合わせを含むハンドラー処理全体がこの期限に縛られ、
// 期限超過時はcontext経由でクエリがキャンセルされる。
func NewTimeoutMiddleware(timeout time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
