package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-community-reservation/internal/domain/resource"
	"github.com/sanosuguru/go-community-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-community-reservation/internal/domain/storage"
	"github.com/sanosuguru/go-community-reservation/internal/domain/transaction"
)

type resourceRow struct {
	ID               string     `db:"id"`
	Name             string     `db:"name"`
	Description      string     `db:"description"`
	Category         string     `db:"category"`
	Kind             string     `db:"kind"`
	OpenTime         *string    `db:"open_time"`
	CloseTime        *string    `db:"close_time"`
	SlotMinutes      int        `db:"slot_minutes"`
	Location         string     `db:"location"`
	StartsAt         *time.Time `db:"starts_at"`
	Capacity         int        `db:"capacity"`
	Fee              *int64     `db:"fee"`
	PaymentRequired  bool       `db:"payment_required"`
	ApprovalRequired bool       `db:"approval_required"`
	IsActive         bool       `db:"is_active"`
	CreatedBy        string     `db:"created_by"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

const resourceColumns = `id, name, description, category, kind, open_time, close_time, slot_minutes, location,
	starts_at, capacity, fee, payment_required, approval_required, is_active, created_by, created_at, updated_at`

type ResourceRepository struct{ db *sqlx.DB }

func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

func (r *ResourceRepository) Create(ctx context.Context, res *resource.Resource) error {
	openAt, closeAt := clockColumns(res)
	query := `INSERT INTO resources (name, description, category, kind, open_time, close_time, slot_minutes, location,
		starts_at, capacity, fee, payment_required, approval_required, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query,
		res.Name, res.Description, string(res.Category), string(res.Kind), openAt, closeAt, res.SlotMinutes, res.Location,
		res.StartsAt, res.Capacity, res.Fee, res.PaymentRequired, res.ApprovalRequired, res.Active, res.CreatedBy,
		res.CreatedAt, res.UpdatedAt,
	).Scan(&res.ID)
	if err != nil {
		return storage.Wrap("リソース作成", err)
	}
	return nil
}

func (r *ResourceRepository) GetByID(ctx context.Context, id string) (*resource.Resource, error) {
	return r.get(ctx, r.db, `SELECT `+resourceColumns+` FROM resources WHERE id = $1`, id)
}

func (r *ResourceRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*resource.Resource, error) {
	sqlxTx, err := UnwrapTx(tx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, sqlxTx, `SELECT `+resourceColumns+` FROM resources WHERE id = $1 FOR UPDATE`, id)
}

func (r *ResourceRepository) get(ctx context.Context, q queryer, query, id string) (*resource.Resource, error) {
	var row resourceRow
	if err := q.GetContext(ctx, &row, query, id); err != nil {
		if isNotFound(err) {
			return nil, resource.ErrResourceNotFound
		}
		return nil, storage.Wrap("リソース取得", err)
	}
	return row.toEntity()
}

func (r *ResourceRepository) List(ctx context.Context, filter resource.ListFilter) ([]*resource.Resource, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	query := `SELECT ` + resourceColumns + ` FROM resources
		WHERE ($1 = FALSE OR is_active) AND ($2 = '' OR kind = $2)
		ORDER BY name, created_at LIMIT $3 OFFSET $4`

	var rows []resourceRow
	if err := r.db.SelectContext(ctx, &rows, query, filter.ActiveOnly, string(filter.Kind), filter.Limit, filter.Offset); err != nil {
		return nil, storage.Wrap("リソース一覧取得", err)
	}
	result := make([]*resource.Resource, 0, len(rows))
	for i := range rows {
		res, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		result = append(result, res)
	}
	return result, nil
}

func (r *ResourceRepository) Update(ctx context.Context, res *resource.Resource) error {
	openAt, closeAt := clockColumns(res)
	query := `UPDATE resources SET name = $1, description = $2, category = $3, open_time = $4, close_time = $5,
		slot_minutes = $6, location = $7, starts_at = $8, capacity = $9, fee = $10, payment_required = $11,
		approval_required = $12, is_active = $13, updated_at = $14 WHERE id = $15`
	result, err := r.db.ExecContext(ctx, query,
		res.Name, res.Description, string(res.Category), openAt, closeAt, res.SlotMinutes, res.Location, res.StartsAt,
		res.Capacity, res.Fee, res.PaymentRequired, res.ApprovalRequired, res.Active, res.UpdatedAt, res.ID,
	)
	if err != nil {
		return storage.Wrap("リソース更新", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return resource.ErrResourceNotFound
	}
	return nil
}

func clockColumns(res *resource.Resource) (openAt, closeAt *string) {
	if !res.IsInterval() {
		return nil, nil
	}
	o, c := res.OpenTime.String(), res.CloseTime.String()
	return &o, &c
}

func (row *resourceRow) toEntity() (*resource.Resource, error) {
	res := &resource.Resource{
		ID: row.ID, Name: row.Name, Description: row.Description,
		Category: resource.Category(row.Category), Kind: resource.Kind(row.Kind),
		SlotMinutes: row.SlotMinutes, Location: row.Location, StartsAt: row.StartsAt,
		Capacity: row.Capacity, Fee: row.Fee, PaymentRequired: row.PaymentRequired,
		ApprovalRequired: row.ApprovalRequired, Active: row.IsActive, CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
	if row.OpenTime != nil && row.CloseTime != nil {
		openAt, err := schedule.ParseClock(*row.OpenTime)
		if err != nil {
			return nil, storage.Wrap("営業時間の読み込み", fmt.Errorf("resource %s: %w", row.ID, err))
		}
		closeAt, err := schedule.ParseClock(*row.CloseTime)
		if err != nil {
			return nil, storage.Wrap("営業時間の読み込み", fmt.Errorf("resource %s: %w", row.ID, err))
		}
		res.OpenTime, res.CloseTime = openAt, closeAt
	}
	return res, nil
}

var _ resource.Repository = (*ResourceRepository)(nil)
