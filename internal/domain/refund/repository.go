package refund

import (
	"context"

	"github.com/sanosuguru/go-community-reservation/internal/domain/transaction"
)

// Repository は返金申請リポジトリのインターフェース
type Repository interface {
	// Create は返金申請を作成する（トランザクション必須）
	// 同じ支払いに審査待ちの申請がある場合は ErrDuplicateRequest
	Create(ctx context.Context, tx transaction.Tx, request *Request) error

	// GetByID はIDから返金申請を取得する
	GetByID(ctx context.Context, id string) (*Request, error)

	// GetForUpdate は返金申請行をロックして取得する（トランザクション必須）
	GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Request, error)

	// Update は返金申請を更新する（トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, request *Request) error

	// List は返金申請を新しい順に取得する。status が空なら全件
	List(ctx context.Context, status Status, limit, offset int) ([]*Request, error)
}
