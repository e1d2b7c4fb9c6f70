package resource

import (
	"iter"
	"time"

	"github.com/sanosuguru/go-community-reservation/internal/domain/schedule"
)

// Kind は予約の単位
type Kind string

const (
	// KindInterval は時間枠で予約するリソース（施設など）
	KindInterval Kind = "interval"
	// KindCapacity は人数で予約するリソース（イベント、作業依頼など）
	KindCapacity Kind = "capacity"
)

// Category はリソースの区分。取引番号の接頭辞に使う
type Category string

const (
	CategoryFacility      Category = "facility"
	CategoryEvent         Category = "event"
	CategoryWorkerService Category = "worker_service"
)

// DefaultSlotMinutes は枠の長さの既定値
const DefaultSlotMinutes = 60

// Resource は予約可能なリソースを表す
type Resource struct {
	ID          string
	Name        string
	Description string
	Category    Category
	Kind        Kind

	// KindInterval のみ
	OpenTime    schedule.ClockTime
	CloseTime   schedule.ClockTime
	SlotMinutes int

	// IANA タイムゾーン名。営業時間の解釈に使う
	Location string

	// KindCapacity のみ。開始日時が過ぎた後は予約もキャンセルもできない
	StartsAt *time.Time
	Capacity int

	// nil または 0 は無料
	Fee              *int64
	PaymentRequired  bool
	ApprovalRequired bool
	Active           bool

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewIntervalResource は時間枠制のリソースを作成する
func NewIntervalResource(name string, category Category, opens, closes schedule.ClockTime, slotMinutes int) *Resource {
	if slotMinutes == 0 {
		slotMinutes = DefaultSlotMinutes
	}
	now := time.Now()
	return &Resource{
		Name:        name,
		Category:    category,
		Kind:        KindInterval,
		OpenTime:    opens,
		CloseTime:   closes,
		SlotMinutes: slotMinutes,
		Location:    "UTC",
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewCapacityResource は定員制のリソースを作成する
func NewCapacityResource(name string, category Category, capacity int, startsAt *time.Time) *Resource {
	now := time.Now()
	return &Resource{
		Name:      name,
		Category:  category,
		Kind:      KindCapacity,
		Capacity:  capacity,
		StartsAt:  startsAt,
		Location:  "UTC",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithFee は有料リソースとして料金を設定する
func (r *Resource) WithFee(fee int64) *Resource {
	r.Fee = &fee
	r.PaymentRequired = fee > 0
	return r
}

func (r *Resource) IsInterval() bool { return r.Kind == KindInterval }
func (r *Resource) IsCapacity() bool { return r.Kind == KindCapacity }

// RequiresPayment は予約に支払いが必要かを返す
func (r *Resource) RequiresPayment() bool {
	return r.PaymentRequired && r.UnitPrice() > 0
}

// UnitPrice は1件（定員制では1人）あたりの料金を返す
func (r *Resource) UnitPrice() int64 {
	if r.Fee == nil {
		return 0
	}
	return *r.Fee
}

// SlotLength は枠の長さを返す
func (r *Resource) SlotLength() time.Duration {
	return time.Duration(r.SlotMinutes) * time.Minute
}

// TimeZone は営業時間を解釈するタイムゾーンを返す
func (r *Resource) TimeZone() (*time.Location, error) {
	if r.Location == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(r.Location)
	if err != nil {
		return nil, ErrInvalidLocation
	}
	return loc, nil
}

// Window は date の営業時間を返す
func (r *Resource) Window(date time.Time) (schedule.Interval, error) {
	if !r.IsInterval() {
		return schedule.Interval{}, ErrNotIntervalResource
	}
	loc, err := r.TimeZone()
	if err != nil {
		return schedule.Interval{}, err
	}
	return schedule.Interval{Start: r.OpenTime.On(date, loc), End: r.CloseTime.On(date, loc)}, nil
}

// Slots は date の予約枠を返す
func (r *Resource) Slots(date time.Time) (iter.Seq[schedule.Interval], error) {
	if !r.IsInterval() {
		return nil, ErrNotIntervalResource
	}
	loc, err := r.TimeZone()
	if err != nil {
		return nil, err
	}
	return schedule.Slots(r.OpenTime, r.CloseTime, r.SlotLength(), date, loc), nil
}

// AcceptsInterval は iv が開始日の営業時間内に収まるかを検証する
// 枠の境界に揃っている必要はない
func (r *Resource) AcceptsInterval(iv schedule.Interval) error {
	if !r.IsInterval() {
		return ErrNotIntervalResource
	}
	loc, err := r.TimeZone()
	if err != nil {
		return err
	}
	window, err := r.Window(iv.Start.In(loc))
	if err != nil {
		return err
	}
	if !window.Contains(iv) {
		return ErrIntervalOutsideWindow
	}
	return nil
}

// CanBook は新規予約を受け付けられるかを返す
func (r *Resource) CanBook() error {
	if !r.Active {
		return ErrResourceInactive
	}
	return nil
}

// Deactivate は新規予約の受付を停止する。既存の予約には影響しない
func (r *Resource) Deactivate() {
	r.Active = false
	r.UpdatedAt = time.Now()
}

// TransactionPrefix は取引番号の接頭辞を返す
func (r *Resource) TransactionPrefix() string {
	switch r.Category {
	case CategoryEvent:
		return "EVT"
	case CategoryWorkerService:
		return "WRK"
	default:
		return "FAC"
	}
}

// Validate はリソースの検証を行う
func (r *Resource) Validate() error {
	if r.Name == "" {
		return ErrNameRequired
	}
	switch r.Category {
	case CategoryFacility, CategoryEvent, CategoryWorkerService:
	default:
		return ErrInvalidCategory
	}
	if _, err := r.TimeZone(); err != nil {
		return err
	}
	if r.Fee != nil && *r.Fee < 0 {
		return ErrInvalidFee
	}
	if r.PaymentRequired && r.UnitPrice() == 0 {
		return ErrFeeRequired
	}

	switch r.Kind {
	case KindInterval:
		if r.CloseTime <= r.OpenTime {
			return ErrInvalidOperatingWindow
		}
		if r.SlotMinutes <= 0 {
			return ErrInvalidSlotLength
		}
		if r.ApprovalRequired {
			return ErrApprovalRequiresCapacity
		}
	case KindCapacity:
		if r.Capacity < 1 {
			return ErrInvalidCapacity
		}
	default:
		return ErrInvalidKind
	}
	return nil
}
