// Package authz はロールベースの認可ポリシーを提供する。
// ポリシーは(identity, action)のみから決まる純粋関数であり、
// 隠れた状態や副作用を持たない。
package authz

import "github.com/nehaPandit96/dealership/internal/model"

// Action は認可対象の操作を表す。
type Action string

const (
	// ActionViewListing は車両一覧の閲覧を示す。
	ActionViewListing Action = "view_listing"
	// ActionViewDetail は車両詳細の閲覧を示す。
	ActionViewDetail Action = "view_detail"
	// ActionSearch は車両検索を示す。
	ActionSearch Action = "search"
	// ActionAddCar は車両登録（フォーム表示と送信の両方）を示す。
	ActionAddCar Action = "add_car"
	// ActionUpdateCar は車両更新（フォーム表示と送信の両方）を示す。
	ActionUpdateCar Action = "update_car"
	// ActionDeleteCar は車両削除を示す。
	ActionDeleteCar Action = "delete_car"
	// ActionMarkPendingSale は商談中ステータスへの変更を示す。
	ActionMarkPendingSale Action = "mark_pending_sale"
	// ActionRegister はユーザー登録を示す。
	ActionRegister Action = "register"
	// ActionLogin はログインを示す。
	ActionLogin Action = "login"
	// ActionLogout はログアウトを示す。
	ActionLogout Action = "logout"
)

// Decision は認可判定の結果を表す。
type Decision int

const (
	// Deny は操作を拒否することを示す。
	Deny Decision = iota
	// Allow は操作を許可することを示す。
	Allow
)

// requiredRoles はアクションごとに許可されるロールの集合。
// エントリが存在しないアクションは公開操作（認証不要）。
var requiredRoles = map[Action]map[model.Role]bool{
	ActionAddCar:    {model.RoleAdmin: true},
	ActionDeleteCar: {model.RoleAdmin: true},
	ActionUpdateCar: {
		model.RoleAdmin:       true,
		model.RoleSalesperson: true,
	},
	ActionMarkPendingSale: {
		model.RoleAdmin:       true,
		model.RoleSalesperson: true,
	},
}

// Decide は現在のidentityがactionを実行できるかを判定する。
// identityがnil（匿名）で特権操作を要求した場合はDenyを返す。
// フォーム表示（GET）と送信（POST）の両方に同一のポリシーを適用すること。
func Decide(identity *model.Identity, action Action) Decision {
	roles, privileged := requiredRoles[action]
	if !privileged {
		return Allow
	}
	if identity == nil {
		return Deny
	}
	if roles[identity.Role] {
		return Allow
	}
	return Deny
}
