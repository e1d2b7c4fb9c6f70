package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-community-reservation/internal/domain/refund"
	"github.com/sanosuguru/go-community-reservation/internal/domain/storage"
	"github.com/sanosuguru/go-community-reservation/internal/domain/transaction"
)

type refundRow struct {
	ID          string     `db:"id"`
	PaymentID   string     `db:"payment_id"`
	RequesterID string     `db:"requester_id"`
	Amount      int64      `db:"amount"`
	Reason      string     `db:"reason"`
	Status      string     `db:"status"`
	DecidedBy   *string    `db:"decided_by"`
	DecidedAt   *time.Time `db:"decided_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

const refundColumns = `id, payment_id, requester_id, amount, reason, status, decided_by, decided_at, created_at, updated_at`

type RefundRepository struct{ db *sqlx.DB }

func NewRefundRepository(db *sqlx.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

func (r *RefundRepository) Create(ctx context.Context, tx transaction.Tx, req *refund.Request) error {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	query := `INSERT INTO refund_requests (payment_id, requester_id, amount, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err = sqlxTx.QueryRowxContext(ctx, query,
		req.PaymentID, req.RequesterID, req.Amount, req.Reason, string(req.Status), req.CreatedAt, req.UpdatedAt,
	).Scan(&req.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return refund.ErrDuplicateRequest
		}
		return storage.Wrap("返金申請作成", err)
	}
	return nil
}

func (r *RefundRepository) GetByID(ctx context.Context, id string) (*refund.Request, error) {
	return r.get(ctx, r.db, `SELECT `+refundColumns+` FROM refund_requests WHERE id = $1`, id)
}

func (r *RefundRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*refund.Request, error) {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, sqlxTx, `SELECT `+refundColumns+` FROM refund_requests WHERE id = $1 FOR UPDATE`, id)
}

func (r *RefundRepository) get(ctx context.Context, q queryer, query string, args ...interface{}) (*refund.Request, error) {
	var row refundRow
	if err := q.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, refund.ErrRefundNotFound
		}
		return nil, storage.Wrap("返金申請取得", err)
	}
	return row.toEntity(), nil
}

func (r *RefundRepository) Update(ctx context.Context, tx transaction.Tx, req *refund.Request) error {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	result, err := sqlxTx.ExecContext(ctx,
		`UPDATE refund_requests SET status = $1, decided_by = $2, decided_at = $3, updated_at = $4 WHERE id = $5`,
		string(req.Status), req.DecidedBy, req.DecidedAt, req.UpdatedAt, req.ID)
	if err != nil {
		return storage.Wrap("返金申請更新", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return refund.ErrRefundNotFound
	}
	return nil
}

func (r *RefundRepository) List(ctx context.Context, status refund.Status, limit, offset int) ([]*refund.Request, error) {
	query := `SELECT ` + refundColumns + ` FROM refund_requests
		WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	var rows []refundRow
	if err := r.db.SelectContext(ctx, &rows, query, string(status), limit, offset); err != nil {
		return nil, storage.Wrap("返金申請一覧取得", err)
	}
	result := make([]*refund.Request, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

func (row *refundRow) toEntity() *refund.Request {
	return &refund.Request{
		ID:          row.ID,
		PaymentID:   row.PaymentID,
		RequesterID: row.RequesterID,
		Amount:      row.Amount,
		Reason:      row.Reason,
		Status:      refund.Status(row.Status),
		DecidedBy:   row.DecidedBy,
		DecidedAt:   row.DecidedAt,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

var _ refund.Repository = (*RefundRepository)(nil)
