package actor

import "errors"

// Role は呼び出し元の権限
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleResident Role = "resident"
	RoleWorker   Role = "worker"
)

// ErrNotAuthorized は操作の権限が無い場合のエラー
var ErrNotAuthorized = errors.New("この操作を行う権限がありません")

// ErrActorRequired は呼び出し元が特定できない場合のエラー
var ErrActorRequired = errors.New("呼び出し元のユーザーIDは必須です")

// Actor は操作を行う呼び出し元
// 認証サービスから受け取った識別子と権限をそのまま表す
type Actor struct {
	ID   string
	Role Role
}

// New は Actor を作成する。不明な権限は resident として扱う
func New(id string, role Role) Actor {
	switch role {
	case RoleAdmin, RoleResident, RoleWorker:
	default:
		role = RoleResident
	}
	return Actor{ID: id, Role: role}
}

// Admin は管理者の Actor を作成する
func Admin(id string) Actor {
	return Actor{ID: id, Role: RoleAdmin}
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Owns は ownerID が自分自身かを返す
func (a Actor) Owns(ownerID string) bool {
	return a.ID != "" && a.ID == ownerID
}

// Validate は識別子が設定されているかを検証する
func (a Actor) Validate() error {
	if a.ID == "" {
		return ErrActorRequired
	}
	return nil
}

// RequireAdmin は管理者でなければ ErrNotAuthorized を返す
func (a Actor) RequireAdmin() error {
	if !a.IsAdmin() {
		return ErrNotAuthorized
	}
	return nil
}

// RequireOwnerOrAdmin は本人か管理者でなければ ErrNotAuthorized を返す
func (a Actor) RequireOwnerOrAdmin(ownerID string) error {
	if a.IsAdmin() || a.Owns(ownerID) {
		return nil
	}
	return ErrNotAuthorized
}
