// Package credential はパスワードのハッシュ化と照合を提供する。
package credential

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Service はbcryptによるパスワードハッシュ化サービス。
// コストパラメータは設定で調整可能（オフライン総当たりに耐える値を既定とする）。
type Service struct {
	cost int
}

// NewService はServiceを生成する。
// costが有効範囲外の場合はbcrypt.DefaultCostを使用する。
func NewService(cost int) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{cost: cost}
}

// Hash は平文パスワードからソルト付きの一方向ダイジェストを生成する。
func (s *Service) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify は平文パスワードとダイジェストを照合する。
// ダイジェスト同士の直接比較は行わず、bcrypt自身の検証を使用する。
func (s *Service) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// dummyDigest はタイミング攻撃対策のダミー照合に使用する固定ダイジェスト。
// 存在しないメールアドレスでのログイン試行でも照合コストを揃える。
var dummyDigest = func() string {
	d, err := bcrypt.GenerateFromPassword([]byte("dealership-dummy-password"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return string(d)
}()

// VerifyDummy はダミーダイジェストとの照合を行い、常にfalseを返す。
// ユーザーが見つからない場合でも成功時と同等の時間を消費させるために使用する。
func (s *Service) VerifyDummy(plaintext string) bool {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyDigest), []byte(plaintext))
	return false
}
