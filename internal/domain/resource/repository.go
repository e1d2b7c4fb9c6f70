package resource

import (
	"context"

	"github.com/sanosuguru/go-community-reservation/internal/domain/transaction"
)

// ListFilter はリソース一覧の絞り込み条件
type ListFilter struct {
	ActiveOnly bool
	Kind       Kind
	Limit      int
	Offset     int
}

// Repository はリソースリポジトリのインターフェース
type Repository interface {
	// Create は新しいリソースを作成する
	Create(ctx context.Context, resource *Resource) error

	// GetByID はIDからリソースを取得する
	GetByID(ctx context.Context, id string) (*Resource, error)

	// GetForUpdate はリソース行をロックして取得する（トランザクション必須）
	// 同一リソースへの予約作成はこのロックで直列化される
	GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Resource, error)

	// List はリソース一覧を取得する
	List(ctx context.Context, filter ListFilter) ([]*Resource, error)

	// Update はリソースを更新する
	Update(ctx context.Context, resource *Resource) error
}
