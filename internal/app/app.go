// Package app はアプリケーションの起動と依存関係のワイヤリングを担う。
package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nehaPandit96/dealership/internal/auth"
	"github.com/nehaPandit96/dealership/internal/car"
	"github.com/nehaPandit96/dealership/internal/config"
	"github.com/nehaPandit96/dealership/internal/credential"
	"github.com/nehaPandit96/dealership/internal/database"
	"github.com/nehaPandit96/dealership/internal/handler"
	"github.com/nehaPandit96/dealership/internal/logger"
	"github.com/nehaPandit96/dealership/internal/mailer"
	"github.com/nehaPandit96/dealership/internal/metrics"
	"github.com/nehaPandit96/dealership/internal/middleware"
	"github.com/nehaPandit96/dealership/internal/repository"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandCreateAdmin:
		return runCreateAdmin(cfg, args[1:])
	default:
		return runServe(cfg)
	}
}

// runServe はWebサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// 期限切れセッションの定期パージをバックグラウンドで実行する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	carRepo := repository.NewPostgresCarRepo(db)

	// 3. メール送信の初期化
	// SMTP設定が無い環境（ローカル開発等）では送信をスキップする
	var sender mailer.Sender
	if cfg.MailEnabled() {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		slog.Warn("SMTP is not configured, registration confirmation mails are disabled")
		sender = mailer.NopSender{}
	}

	// 4. ドメインサービスの初期化
	hasher := credential.NewService(cfg.BcryptCost)
	authService := auth.NewService(
		userRepo, sessionRepo, hasher, sender,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
	carService := car.NewService(carRepo)

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitLogin),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		IdentityResolver: authService,
		RateLimiter:      rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RequestTimeout: cfg.StoreTimeout,
		Logger:         slog.Default(),

		Metrics:  collector,
		Gatherer: registry,

		CarService: carService,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
	}

	router := handler.NewRouter(deps)

	// 7. 期限切れセッションの定期パージ
	// セッションは参照時に遅延失効するため、パージは掃除であって正しさの要件ではない
	purgeCtx, cancelPurge := context.WithCancel(context.Background())
	defer cancelPurge()
	go purgeExpiredSessions(purgeCtx, sessionRepo)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// purgeExpiredSessions は期限切れセッション行を1時間ごとに削除する。
func purgeExpiredSessions(ctx context.Context, sessionRepo repository.SessionRepository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := sessionRepo.DeleteExpired(ctx)
			if err != nil {
				slog.Error("failed to purge expired sessions", slog.String("error", err.Error()))
				continue
			}
			if deleted > 0 {
				slog.Info("purged expired sessions", slog.Int64("count", deleted))
			}
		}
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runCreateAdmin は管理者アカウントを発行する。
// 公開の登録フォームは管理者ロールを受け付けないため、管理者はこの経路でのみ作成される。
func runCreateAdmin(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("createadmin", flag.ContinueOnError)
	firstName := fs.String("first-name", "", "管理者の名")
	lastName := fs.String("last-name", "", "管理者の姓")
	email := fs.String("email", "", "管理者のメールアドレス")
	password := fs.String("password", "", "管理者のパスワード（未指定時はADMIN_PASSWORD環境変数）")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse createadmin flags: %w", err)
	}

	// パスワードはシェル履歴に残さないよう環境変数でも渡せるようにする
	if *password == "" {
		*password = os.Getenv("ADMIN_PASSWORD")
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	hasher := credential.NewService(cfg.BcryptCost)
	authService := auth.NewService(
		userRepo, sessionRepo, hasher, mailer.NopSender{},
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	user, err := authService.CreateAdmin(context.Background(), *firstName, *lastName, *email, *password)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	slog.Info("admin account created",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
