package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-community-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-community-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-community-reservation/internal/domain/storage"
	"github.com/sanosuguru/go-community-reservation/internal/domain/transaction"
)

type bookingRow struct {
	ID             string     `db:"id"`
	ResourceID     string     `db:"resource_id"`
	RequesterID    string     `db:"requester_id"`
	StartAt        *time.Time `db:"start_at"`
	EndAt          *time.Time `db:"end_at"`
	Quantity       int        `db:"quantity"`
	Status         string     `db:"status"`
	ExpiresAt      *time.Time `db:"expires_at"`
	PaymentID      *string    `db:"payment_id"`
	AssigneeID     *string    `db:"assignee_id"`
	IdempotencyKey *string    `db:"idempotency_key"`
	Note           string     `db:"note"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

type expiredRow struct {
	ID          string `db:"id"`
	ResourceID  string `db:"resource_id"`
	RequesterID string `db:"requester_id"`
}

const bookingColumns = `id, resource_id, requester_id, start_at, end_at, quantity, status, expires_at,
	payment_id, assignee_id, idempotency_key, note, created_at, updated_at`

// 枠・定員を占有している予約の条件。$2 は基準時刻
const activeBookingCondition = `(status IN ('requested', 'confirmed') OR (status = 'held' AND expires_at > $2))`

const (
	constraintNoOverlap        = "bookings_no_overlap"
	constraintOneActivePerUser = "bookings_one_active_per_requester"
	constraintIdempotencyKey   = "bookings_idempotency_key"
)

type BookingRepository struct{ db *sqlx.DB }

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	start, end := intervalColumns(b)
	query := `INSERT INTO bookings (resource_id, requester_id, start_at, end_at, quantity, status, expires_at,
		payment_id, assignee_id, idempotency_key, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	err = sqlxTx.QueryRowxContext(ctx, query,
		b.ResourceID, b.RequesterID, start, end, b.Quantity, string(b.Status), b.ExpiresAt,
		b.PaymentID, b.AssigneeID, b.IdempotencyKey, b.Note, b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		return mapBookingError("予約作成", err)
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	return r.get(ctx, r.db, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*booking.Booking, error) {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, sqlxTx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *BookingRepository) GetByIdempotencyKey(ctx context.Context, requesterID, key string) (*booking.Booking, error) {
	return r.get(ctx, r.db,
		`SELECT `+bookingColumns+` FROM bookings WHERE requester_id = $1 AND idempotency_key = $2`,
		requesterID, key)
}

func (r *BookingRepository) get(ctx context.Context, q queryer, query string, args ...interface{}) (*booking.Booking, error) {
	var row bookingRow
	if err := q.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, storage.Wrap("予約取得", err)
	}
	return row.toEntity(), nil
}

func (r *BookingRepository) Update(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	query := `UPDATE bookings SET status = $1, expires_at = $2, payment_id = $3, assignee_id = $4, note = $5,
		updated_at = $6 WHERE id = $7`
	result, err := sqlxTx.ExecContext(ctx, query,
		string(b.Status), b.ExpiresAt, b.PaymentID, b.AssigneeID, b.Note, b.UpdatedAt, b.ID)
	if err != nil {
		return mapBookingError("予約更新", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) ListByRequester(ctx context.Context, requesterID string, limit, offset int) ([]*booking.Booking, error) {
	return r.list(ctx, r.db,
		`SELECT `+bookingColumns+` FROM bookings WHERE requester_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		requesterID, limit, offset)
}

func (r *BookingRepository) ListByResource(ctx context.Context, resourceID string, limit, offset int) ([]*booking.Booking, error) {
	bookings, err := r.list(ctx, r.db,
		`SELECT `+bookingColumns+` FROM bookings WHERE resource_id = $1
		ORDER BY start_at NULLS LAST, created_at DESC LIMIT $2 OFFSET $3`,
		resourceID, limit, offset)
	if isNotFound(err) {
		return []*booking.Booking{}, nil
	}
	return bookings, err
}

func (r *BookingRepository) ListActive(ctx context.Context, tx transaction.Tx, resourceID string, window *schedule.Interval, now time.Time) ([]*booking.Booking, error) {
	q, err := runner(r.db, tx)
	if err != nil {
		return nil, err
	}
	var from, to *time.Time
	if window != nil {
		from, to = &window.Start, &window.End
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE resource_id = $1 AND ` + activeBookingCondition + `
		AND ($3::timestamptz IS NULL OR (start_at < $4 AND end_at > $3))
		ORDER BY start_at NULLS LAST, created_at`
	return r.list(ctx, q, query, resourceID, now, from, to)
}

func (r *BookingRepository) ExpireHolds(ctx context.Context, tx transaction.Tx, resourceID string, now time.Time) ([]booking.ExpiredHold, error) {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return nil, err
	}
	query := `UPDATE bookings SET status = 'expired', expires_at = NULL, updated_at = $2
		WHERE resource_id = $1 AND status = 'held' AND expires_at <= $2
		RETURNING id, resource_id, requester_id`
	return r.expire(ctx, sqlxTx, query, resourceID, now)
}

func (r *BookingRepository) ExpireAllHolds(ctx context.Context, now time.Time) ([]booking.ExpiredHold, error) {
	query := `UPDATE bookings SET status = 'expired', expires_at = NULL, updated_at = $1
		WHERE status = 'held' AND expires_at <= $1
		RETURNING id, resource_id, requester_id`
	return r.expire(ctx, r.db, query, now)
}

func (r *BookingRepository) expire(ctx context.Context, q queryer, query string, args ...interface{}) ([]booking.ExpiredHold, error) {
	var rows []expiredRow
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, storage.Wrap("期限切れ仮押さえの更新", err)
	}
	result := make([]booking.ExpiredHold, len(rows))
	for i, row := range rows {
		result[i] = booking.ExpiredHold{BookingID: row.ID, ResourceID: row.ResourceID, RequesterID: row.RequesterID}
	}
	return result, nil
}

func (r *BookingRepository) list(ctx context.Context, q queryer, query string, args ...interface{}) ([]*booking.Booking, error) {
	var rows []bookingRow
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, storage.Wrap("予約一覧取得", err)
	}
	result := make([]*booking.Booking, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

// mapBookingError は制約違反を業務エラーに変換する
func mapBookingError(op string, err error) error {
	code, constraint, ok := pqError(err)
	if ok {
		switch {
		case code == codeExclusionViolation && constraint == constraintNoOverlap:
			return booking.ErrConflict
		case code == codeUniqueViolation && constraint == constraintOneActivePerUser:
			return booking.ErrAlreadyBooked
		case code == codeUniqueViolation && constraint == constraintIdempotencyKey:
			return booking.ErrIdempotencyKeyExists
		case code == codeExclusionViolation:
			return booking.ErrConflict
		}
	}
	return storage.Wrap(op, err)
}

func intervalColumns(b *booking.Booking) (start, end *time.Time) {
	if b.Interval == nil {
		return nil, nil
	}
	return &b.Interval.Start, &b.Interval.End
}

func (row *bookingRow) toEntity() *booking.Booking {
	b := &booking.Booking{
		ID: row.ID, ResourceID: row.ResourceID, RequesterID: row.RequesterID,
		Quantity: row.Quantity, Status: booking.Status(row.Status), ExpiresAt: row.ExpiresAt,
		PaymentID: row.PaymentID, AssigneeID: row.AssigneeID, IdempotencyKey: row.IdempotencyKey,
		Note: row.Note, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
	if row.StartAt != nil && row.EndAt != nil {
		b.Interval = &schedule.Interval{Start: *row.StartAt, End: *row.EndAt}
	}
	return b
}

var _ booking.Repository = (*BookingRepository)(nil)
