package payment

import (
	"context"

	"github.com/sanosuguru/go-community-reservation/internal/domain/transaction"
)

// Repository は支払いリポジトリのインターフェース
type Repository interface {
	// Create は支払いを記録する（トランザクション必須）
	// 同じ予約に有効な支払いが既にある場合は ErrAlreadyPaid
	Create(ctx context.Context, tx transaction.Tx, payment *Payment) error

	// GetByID はIDから支払いを取得する
	GetByID(ctx context.Context, id string) (*Payment, error)

	// GetForUpdate は支払い行をロックして取得する（トランザクション必須）
	GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Payment, error)

	// GetActiveByBooking は予約の返金済みでない支払いを取得する（トランザクション必須）
	// 無ければ ErrPaymentNotFound
	GetActiveByBooking(ctx context.Context, tx transaction.Tx, bookingID string) (*Payment, error)

	// UpdateRefundStatus は返金状態を更新する（トランザクション必須）
	UpdateRefundStatus(ctx context.Context, tx transaction.Tx, payment *Payment) error

	// ListByPayer は支払者の支払い一覧を取得する
	ListByPayer(ctx context.Context, payerID string, limit, offset int) ([]*Payment, error)

	// List は全支払いを新しい順に取得する
	List(ctx context.Context, limit, offset int) ([]*Payment, error)
}
