// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/nehaPandit96/dealership/internal/model"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに認証済みアイデンティティを格納するためのキー。
var identityContextKey = contextKey("identity")

// IdentityResolver はセッションIDから認証済みアイデンティティの解決に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type IdentityResolver interface {
	CurrentIdentity(ctx context.Context, sessionID string) (*model.Identity, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 認証済みアイデンティティをリクエストコンテキストに注入するミドルウェアを返す。
// Cookieが無い・セッションが無効・期限切れのリクエストは匿名として通過させる。
// 認可の判断は各ハンドラーのポリシー評価に委ねる。
func NewSessionMiddleware(resolver IdentityResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := resolver.CurrentIdentity(r.Context(), cookie.Value)
			if err != nil {
				// ストア障害時は匿名として扱い、閲覧系の可用性を保つ
				slog.Error("failed to resolve session identity",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if identity == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext はリクエストコンテキストから認証済みアイデンティティを取得する。
// 匿名リクエストでは(nil, false)を返す。
func IdentityFromContext(ctx context.Context) (*model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*model.Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

// ContextWithIdentity はコンテキストにアイデンティティを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
