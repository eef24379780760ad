// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/nehaPandit96/dealership/internal/model"
)

// CarRepository は車両データの永続化インターフェース。
type CarRepository interface {
	// Find はフィルタに合致する車両一覧を返す。
	// 全フィルタはAND結合で適用され、未指定の条件はクエリから完全に省かれる。
	Find(ctx context.Context, filter model.CarFilter) ([]*model.Car, error)

	// FindByID は指定IDの車両を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Car, error)

	// Create は車両を作成する。
	Create(ctx context.Context, car *model.Car) error

	// UpdateByID は指定IDの車両の全フィールドを上書き更新する。
	// バージョン検査のないlast-writer-winsであり、直列化保証はない。
	// 対象が存在しない場合はfalseを返す。
	UpdateByID(ctx context.Context, id string, car *model.Car) (bool, error)

	// UpdateStatus は指定IDの車両のステータスのみ更新する。
	// 対象が存在しない場合はfalseを返す。
	UpdateStatus(ctx context.Context, id string, status model.CarStatus) (bool, error)

	// DeleteByID は指定IDの車両を削除する。
	// 対象が既に存在しない場合もエラーとしない（冪等）。
	DeleteByID(ctx context.Context, id string) error
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスの一意性はストアのUNIQUE制約で保証され、
	// 重複時はmodel.ErrCodeDuplicateEmailのAPIErrorを返す。
	// 事前の存在チェックとINSERTの分離による競合は起こらない。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを一括削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
