// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// バリデーションエラーの場合はFieldsにフィールド単位のメッセージを持つ。
type APIError struct {
	Code     string            // エラーコード
	Message  string            // エラーメッセージ
	Category string            // カテゴリ: auth, validation, inventory, system
	Action   string            // ユーザー向け対処方法
	Fields   map[string]string // フィールド単位のバリデーションエラー（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeCarNotFound        = "CAR_NOT_FOUND"
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeMailFailed         = "MAIL_FAILED"
)

// NewValidationError はフィールド単位のバリデーションエラーを生成する。
// 永続化は行われず、400として報告される。
func NewValidationError(fields map[string]string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "入力内容に誤りがあります。",
		Category: "validation",
		Action:   "各フィールドのエラーを修正して再送信してください。",
		Fields:   fields,
	}
}

// NewForbiddenError は権限不足エラーを生成する。
// 拒否理由の詳細は意図的に含めない。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "必要な権限を持つアカウントでログインしてください。",
	}
}

// NewCarNotFoundError は車両未検出エラーを生成する。
// 権限不足（403）とは区別して404として報告する。
func NewCarNotFoundError(carID string) *APIError {
	return &APIError{
		Code:     ErrCodeCarNotFound,
		Message:  fmt.Sprintf("指定された車両が見つかりません: %s", carID),
		Category: "inventory",
		Action:   "車両IDを確認してください。",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// メールアドレス不明とパスワード不一致を呼び出し側が区別できないよう、
// 原因によらず同一のメッセージを返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewMailFailedError は確認メール送信失敗エラーを生成する。
func NewMailFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeMailFailed,
		Message:  "確認メールの送信に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
