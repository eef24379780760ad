// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限ロールを表す。
// 認証済みユーザーはadminまたはsalespersonのいずれかを持つ。
// 未認証の訪問者はIdentity自体が存在しないことで表現する。
type Role string

const (
	// RoleAdmin は管理者を示す。
	RoleAdmin Role = "admin"
	// RoleSalesperson は販売担当者を示す。
	RoleSalesperson Role = "salesperson"
)

// ValidRole はrが定義済みのロールかどうかを返す。
func ValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleSalesperson
}

// User はサービス利用ユーザーを表す。
// PasswordHashはbcryptダイジェストのみ保持し、平文は永続化しない。
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity はセッションに紐付く認証済みプリンシパルを表す。
// セッションにユーザーレコード全体（ハッシュ含む）を複製せず、
// 認可判定に必要な最小限の情報のみを持つ値オブジェクト。
type Identity struct {
	UserID      string
	DisplayName string
	Role        Role
}

// IdentityOf はユーザーからIdentityを導出する。
func IdentityOf(u *User) *Identity {
	return &Identity{
		UserID:      u.ID,
		DisplayName: u.FirstName + " " + u.LastName,
		Role:        u.Role,
	}
}

// Session はユーザーのログインセッションを表す。
// 同一ユーザーが複数セッションを同時に保持できる（端末ごとに独立）。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
