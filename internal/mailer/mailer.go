// Package mailer は登録確認メールの送信を提供する。
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Sender は確認メール送信のインターフェース。
type Sender interface {
	// SendRegistrationConfirmation は登録完了の確認メールを送信する。
	SendRegistrationConfirmation(ctx context.Context, email, displayName string) error
}

// SMTPConfig はSMTP送信の設定。
// 認証情報はソースに埋め込まず、必ず設定経由で渡す。
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPSender はSMTP経由でメールを送信するSender実装。
type SMTPSender struct {
	config SMTPConfig
}

// NewSMTPSender はSMTPSenderを生成する。
func NewSMTPSender(config SMTPConfig) *SMTPSender {
	return &SMTPSender{config: config}
}

// SendRegistrationConfirmation は登録完了の確認メールを送信する。
func (s *SMTPSender) SendRegistrationConfirmation(ctx context.Context, email, displayName string) error {
	msg := buildConfirmationMessage(s.config.From, email, displayName)

	addr := s.config.Host + ":" + s.config.Port
	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	if err := smtp.SendMail(addr, auth, s.config.From, []string{email}, msg); err != nil {
		return fmt.Errorf("failed to send confirmation mail: %w", err)
	}

	slog.Info("registration confirmation sent",
		slog.String("email", email),
	)
	return nil
}

// buildConfirmationMessage はRFC 5322形式の確認メール本文を構築する。
func buildConfirmationMessage(from, to, displayName string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: Registration Confirmation\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(displayName + " 様\r\n\r\n")
	b.WriteString("ディーラー在庫管理システムへのご登録が完了しました。\r\n")
	return []byte(b.String())
}

// NopSender は何も送信しないSender実装。
// SMTP設定が未指定の環境（開発環境等）で使用する。
type NopSender struct{}

// SendRegistrationConfirmation は送信をスキップした旨をログに残す。
func (NopSender) SendRegistrationConfirmation(ctx context.Context, email, displayName string) error {
	slog.Info("mail delivery disabled, skipping confirmation",
		slog.String("email", email),
	)
	return nil
}

// compile-time interface checks
var _ Sender = (*SMTPSender)(nil)
var _ Sender = NopSender{}
