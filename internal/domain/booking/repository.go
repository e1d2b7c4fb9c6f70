package booking

import (
	"context"
	"time"

	"github.com/sanosuguru/go-community-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-community-reservation/internal/domain/transaction"
)

// ExpiredHold は期限切れにした仮押さえ
type ExpiredHold struct {
	BookingID   string
	ResourceID  string
	RequesterID string
}

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約を作成する（トランザクション必須）
	// 重複する有効な予約がある場合は ErrConflict、同一予約者の重複は ErrAlreadyBooked
	Create(ctx context.Context, tx transaction.Tx, booking *Booking) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Booking, error)

	// GetForUpdate は予約行をロックして取得する（トランザクション必須）
	GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Booking, error)

	// GetByIdempotencyKey は予約者と冪等性キーから予約を取得する
	GetByIdempotencyKey(ctx context.Context, requesterID, key string) (*Booking, error)

	// Update は予約を更新する（トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, booking *Booking) error

	// ListByRequester は予約者の予約一覧を取得する
	ListByRequester(ctx context.Context, requesterID string, limit, offset int) ([]*Booking, error)

	// ListByResource はリソースの予約一覧を取得する
	ListByResource(ctx context.Context, resourceID string, limit, offset int) ([]*Booking, error)

	// ListActive は now 時点で枠・定員を占有している予約を取得する
	// window が nil でなければ window と重なる予約に限る。tx が nil の場合はトランザクション外で読む
	ListActive(ctx context.Context, tx transaction.Tx, resourceID string, window *schedule.Interval, now time.Time) ([]*Booking, error)

	// ExpireHolds は resourceID の期限切れ仮押さえを EXPIRED にする（トランザクション必須）
	ExpireHolds(ctx context.Context, tx transaction.Tx, resourceID string, now time.Time) ([]ExpiredHold, error)

	// ExpireAllHolds は全リソースの期限切れ仮押さえを EXPIRED にする
	ExpireAllHolds(ctx context.Context, now time.Time) ([]ExpiredHold, error)
}
