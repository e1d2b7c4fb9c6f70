package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-community-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-community-reservation/internal/domain/storage"
	"github.com/sanosuguru/go-community-reservation/internal/domain/transaction"
)

type paymentRow struct {
	ID             string    `db:"id"`
	BookingID      string    `db:"booking_id"`
	PayerID        string    `db:"payer_id"`
	Amount         int64     `db:"amount"`
	Method         string    `db:"method"`
	TransactionRef string    `db:"transaction_ref"`
	RefundStatus   string    `db:"refund_status"`
	PaidAt         time.Time `db:"paid_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

const paymentColumns = `id, booking_id, payer_id, amount, method, transaction_ref, refund_status, paid_at, updated_at`

type PaymentRepository struct{ db *sqlx.DB }

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, tx transaction.Tx, p *payment.Payment) error {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	query := `INSERT INTO payments (booking_id, payer_id, amount, method, transaction_ref, refund_status, paid_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err = sqlxTx.QueryRowxContext(ctx, query,
		p.BookingID, p.PayerID, p.Amount, string(p.Method), p.TransactionRef,
		string(p.RefundStatus), p.PaidAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return payment.ErrAlreadyPaid
		}
		return storage.Wrap("支払い作成", err)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*payment.Payment, error) {
	return r.get(ctx, r.db, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

func (r *PaymentRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*payment.Payment, error) {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, sqlxTx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id)
}

func (r *PaymentRepository) GetActiveByBooking(ctx context.Context, tx transaction.Tx, bookingID string) (*payment.Payment, error) {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, sqlxTx,
		`SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1 AND refund_status <> 'refunded' FOR UPDATE`,
		bookingID)
}

func (r *PaymentRepository) get(ctx context.Context, q queryer, query string, args ...interface{}) (*payment.Payment, error) {
	var row paymentRow
	if err := q.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, payment.ErrPaymentNotFound
		}
		return nil, storage.Wrap("支払い取得", err)
	}
	return row.toEntity(), nil
}

func (r *PaymentRepository) UpdateRefundStatus(ctx context.Context, tx transaction.Tx, p *payment.Payment) error {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	result, err := sqlxTx.ExecContext(ctx,
		`UPDATE payments SET refund_status = $1, updated_at = $2 WHERE id = $3`,
		string(p.RefundStatus), p.UpdatedAt, p.ID)
	if err != nil {
		return storage.Wrap("返金状態更新", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return payment.ErrPaymentNotFound
	}
	return nil
}

func (r *PaymentRepository) ListByPayer(ctx context.Context, payerID string, limit, offset int) ([]*payment.Payment, error) {
	return r.list(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE payer_id = $1 ORDER BY paid_at DESC LIMIT $2 OFFSET $3`,
		payerID, limit, offset)
}

func (r *PaymentRepository) List(ctx context.Context, limit, offset int) ([]*payment.Payment, error) {
	return r.list(ctx,
		`SELECT `+paymentColumns+` FROM payments ORDER BY paid_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
}

func (r *PaymentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*payment.Payment, error) {
	var rows []paymentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, storage.Wrap("支払い一覧取得", err)
	}
	result := make([]*payment.Payment, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

func (row *paymentRow) toEntity() *payment.Payment {
	return &payment.Payment{
		ID:             row.ID,
		BookingID:      row.BookingID,
		PayerID:        row.PayerID,
		Amount:         row.Amount,
		Method:         payment.Method(row.Method),
		TransactionRef: row.TransactionRef,
		RefundStatus:   payment.RefundStatus(row.RefundStatus),
		PaidAt:         row.PaidAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

var _ payment.Repository = (*PaymentRepository)(nil)
