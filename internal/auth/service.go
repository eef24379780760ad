// Package auth はユーザー登録、ログイン、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nehaPandit96/dealership/internal/mailer"
	"github.com/nehaPandit96/dealership/internal/model"
	"github.com/nehaPandit96/dealership/internal/repository"
)

// minPasswordLength は登録時に要求するパスワードの最小長。
const minPasswordLength = 8

// CredentialHasher はパスワードのハッシュ化と照合のインターフェース。
type CredentialHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
	// VerifyDummy はユーザー未検出時のタイミング攻撃対策として
	// ダミーダイジェストとの照合を行う。常にfalseを返す。
	VerifyDummy(plaintext string) bool
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      string // 空またはsalespersonのみ受理。adminは別経路で発行する。
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	hasher      CredentialHasher
	sender      mailer.Sender
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	hasher CredentialHasher,
	sender mailer.Sender,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		sender:      sender,
		config:      config,
	}
}

// Register は自己サービスのユーザー登録を処理する。
// メールアドレスの重複はストアのUNIQUE制約の違反として検出する
// （事前チェックとINSERTの分離による競合を避けるため）。
// ユーザー作成後に確認メールを送信し、送信失敗はエラーとして返す
// （ユーザーレコード自体は残る）。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	if err := validateRegisterInput(input); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		Role:         model.RoleSalesperson,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	if err := s.sender.SendRegistrationConfirmation(ctx, user.Email, user.FirstName+" "+user.LastName); err != nil {
		slog.Error("failed to send confirmation mail",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewMailFailedError()
	}

	return user, nil
}

// CreateAdmin は管理者アカウントを作成する。
// 公開登録フォームからは到達できず、createadminサブコマンドからのみ呼ばれる。
func (s *Service) CreateAdmin(ctx context.Context, firstName, lastName, email, password string) (*model.User, error) {
	if err := validateRegisterInput(RegisterInput{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  password,
	}); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("admin account created",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Login はメールアドレスとパスワードで認証し、セッションを発行する。
// ユーザー未検出とパスワード不一致は同一のエラーを返し、
// 未検出時もダミー照合を行ってタイミング差を抑える。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if user == nil {
		s.hasher.VerifyDummy(password)
		return nil, model.NewInvalidCredentialsError()
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
	)

	return session, nil
}

// Logout はセッションを破棄する。
// セッションストアの削除自体が失敗した場合のみエラーを返す。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// CurrentIdentity はセッションIDから現在のIdentityを解決する。
// セッションが存在しない・期限切れの場合は(nil, nil)を返す（匿名扱い）。
// ロールはセッションのコピーではなく、ストアから都度取得する。
func (s *Service) CurrentIdentity(ctx context.Context, sessionID string) (*model.Identity, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	return model.IdentityOf(user), nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// validateRegisterInput は登録入力を検証し、フィールド単位のエラーを返す。
func validateRegisterInput(input RegisterInput) error {
	fields := map[string]string{}

	if strings.TrimSpace(input.FirstName) == "" {
		fields["firstName"] = "名を入力してください。"
	}
	if strings.TrimSpace(input.LastName) == "" {
		fields["lastName"] = "姓を入力してください。"
	}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		fields["email"] = "メールアドレスを入力してください。"
	} else if _, err := mail.ParseAddress(email); err != nil {
		fields["email"] = "メールアドレスの形式が正しくありません。"
	}

	if len(input.Password) < minPasswordLength {
		fields["password"] = fmt.Sprintf("パスワードは%d文字以上で入力してください。", minPasswordLength)
	}

	// ロールの自己申告は受け付けない。公開登録で作成できるのはsalespersonのみで、
	// adminを指定した登録はバリデーションエラーとして拒否する。
	if input.Role != "" && input.Role != string(model.RoleSalesperson) {
		fields["role"] = "指定されたロールでは登録できません。"
	}

	if len(fields) > 0 {
		return model.NewValidationError(fields)
	}
	return nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
