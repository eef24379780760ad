// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nehaPandit96/dealership/internal/auth"
	"github.com/nehaPandit96/dealership/internal/middleware"
	"github.com/nehaPandit96/dealership/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register は新規ユーザーを登録し確認メールを送信する。
	Register(ctx context.Context, input auth.RegisterInput) (*model.User, error)
	// Login は認証に成功した場合に新しいセッションを返す。
	Login(ctx context.Context, email, password string) (*model.Session, error)
	// Logout はセッションを破棄する。
	Logout(ctx context.Context, sessionID string) error
}

// LoginMetricsRecorder はログイン結果メトリクスの記録に必要なインターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type LoginMetricsRecorder interface {
	RecordLoginSuccess()
	RecordLoginFailure()
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler は登録・ログイン・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
	metrics LoginMetricsRecorder
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, metrics LoginMetricsRecorder) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
		metrics: metrics,
	}
}

// ShowRegisterForm は登録フォームの表示を処理する。
// GET /register
func (h *AuthHandler) ShowRegisterForm(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// Register はユーザー登録を処理する。
// 確認メールの送信失敗は500として報告するが、ユーザー行は残る。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(map[string]string{
			"body": "フォームの解析に失敗しました",
		}))
		return
	}

	input := auth.RegisterInput{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Email:     r.PostFormValue("email"),
		Password:  r.PostFormValue("password"),
		Role:      r.PostFormValue("role"),
	}

	user, err := h.service.Register(r.Context(), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
	)

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "登録が完了しました。確認メールを送信しました。",
	})
}

// ShowLoginForm はログインフォームの表示を処理する。
// GET /login
func (h *AuthHandler) ShowLoginForm(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// Login はログインを処理する。
// 失敗原因によらず同一の401レスポンスを返す。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(map[string]string{
			"body": "フォームの解析に失敗しました",
		}))
		return
	}

	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	session, err := h.service.Login(r.Context(), email, password)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeInvalidCredentials {
			if h.metrics != nil {
				h.metrics.RecordLoginFailure()
			}
		}
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordLoginSuccess()
	}

	// セッションCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout はログアウトを処理する。
// セッションの有無に関わらずCookieを削除し、/loginへリダイレクトする。
// GET /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var sessionID string
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		sessionID = cookie.Value
	}

	if err := h.service.Logout(r.Context(), sessionID); err != nil {
		slog.Error("failed to destroy session", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	// セッションCookieを削除
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/login", http.StatusFound)
}
