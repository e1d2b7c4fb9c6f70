package booking

import (
	"time"

	"github.com/sanosuguru/go-community-reservation/internal/domain/schedule"
)

// Status は予約の状態を表す
type Status string

const (
	// StatusRequested は承認待ち（承認制の定員制リソースのみ）
	StatusRequested Status = "requested"
	// StatusHeld は支払い待ちの仮押さえ。ExpiresAt を必ず持つ
	StatusHeld      Status = "held"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
	StatusRejected  Status = "rejected"
)

// DefaultHoldTTL は仮押さえの有効期限（デフォルト15分）
const DefaultHoldTTL = 15 * time.Minute

// Policy は作成・承認時の遷移先を決めるリソース側の条件
type Policy struct {
	RequiresApproval bool
	RequiresPayment  bool
	HoldTTL          time.Duration
}

func (p Policy) holdTTL() time.Duration {
	if p.HoldTTL <= 0 {
		return DefaultHoldTTL
	}
	return p.HoldTTL
}

// Booking は予約エンティティを表す
// 施設の時間枠予約・イベント参加・作業依頼を共通で扱う
type Booking struct {
	ID          string
	ResourceID  string
	RequesterID string

	// 時間枠制リソースのみ。定員制では nil
	Interval *schedule.Interval
	// 定員制では人数、時間枠制では常に 1
	Quantity int

	Status         Status
	ExpiresAt      *time.Time
	PaymentID      *string
	AssigneeID     *string
	IdempotencyKey *string
	Note           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewIntervalBooking は時間枠の予約を作成する
func NewIntervalBooking(resourceID, requesterID string, iv schedule.Interval) *Booking {
	return &Booking{
		ResourceID:  resourceID,
		RequesterID: requesterID,
		Interval:    &iv,
		Quantity:    1,
	}
}

// NewCapacityBooking は人数指定の予約を作成する
func NewCapacityBooking(resourceID, requesterID string, quantity int) *Booking {
	return &Booking{
		ResourceID:  resourceID,
		RequesterID: requesterID,
		Quantity:    quantity,
	}
}

// Place は作成時の状態を決める
func (b *Booking) Place(p Policy, now time.Time) {
	b.CreatedAt = now
	b.UpdatedAt = now
	switch {
	case p.RequiresApproval:
		b.Status = StatusRequested
		b.ExpiresAt = nil
	case p.RequiresPayment:
		b.hold(p, now)
	default:
		b.Status = StatusConfirmed
		b.ExpiresAt = nil
	}
}

func (b *Booking) hold(p Policy, now time.Time) {
	expiresAt := now.Add(p.holdTTL())
	b.Status = StatusHeld
	b.ExpiresAt = &expiresAt
}

// HoldElapsed は仮押さえの期限が now 以前に到来しているかを返す
func (b *Booking) HoldElapsed(now time.Time) bool {
	return b.Status == StatusHeld && b.ExpiresAt != nil && !now.Before(*b.ExpiresAt)
}

// Blocks はこの予約が枠・定員を占有しているかを返す
func (b *Booking) Blocks(now time.Time) bool {
	switch b.Status {
	case StatusRequested, StatusConfirmed:
		return true
	case StatusHeld:
		return !b.HoldElapsed(now)
	default:
		return false
	}
}

// IsTerminal は以後遷移しない状態かを返す
func (b *Booking) IsTerminal() bool {
	switch b.Status {
	case StatusCancelled, StatusExpired, StatusRejected:
		return true
	}
	return false
}

// Expire は期限切れの仮押さえを EXPIRED にする。遷移した場合 true を返す
func (b *Booking) Expire(now time.Time) bool {
	if !b.HoldElapsed(now) {
		return false
	}
	b.Status = StatusExpired
	b.ExpiresAt = nil
	b.UpdatedAt = now
	return true
}

// Confirm は支払い済みとして予約を確定する
func (b *Booking) Confirm(now time.Time, paymentID string) error {
	if err := b.CheckPayable(now); err != nil {
		return err
	}
	b.Status = StatusConfirmed
	b.ExpiresAt = nil
	b.PaymentID = &paymentID
	b.UpdatedAt = now
	return nil
}

// CheckPayable は支払い可能かを検証する
func (b *Booking) CheckPayable(now time.Time) error {
	switch {
	case b.Status == StatusExpired, b.HoldElapsed(now):
		return ErrReservationExpired
	case b.Status != StatusHeld:
		return ErrNotPayable
	}
	return nil
}

// Approve は承認待ちの予約を承認する
func (b *Booking) Approve(p Policy, now time.Time, assigneeID *string) error {
	if b.Status != StatusRequested {
		return ErrNotRequested
	}
	if p.RequiresPayment {
		b.hold(p, now)
	} else {
		b.Status = StatusConfirmed
	}
	if assigneeID != nil && *assigneeID != "" {
		b.AssigneeID = assigneeID
	}
	b.UpdatedAt = now
	return nil
}

// Reject は承認待ちの予約を却下する
func (b *Booking) Reject(now time.Time) error {
	if b.Status != StatusRequested {
		return ErrNotRequested
	}
	b.Status = StatusRejected
	b.UpdatedAt = now
	return nil
}

// Cancel は予約をキャンセルする
// resourceStartsAt は定員制リソースの開始日時（時間枠制では無視される）
func (b *Booking) Cancel(now time.Time, resourceStartsAt *time.Time) error {
	if !b.Blocks(now) {
		if b.HoldElapsed(now) {
			return ErrReservationExpired
		}
		return ErrNotCancellable
	}
	if start := b.StartsAt(resourceStartsAt); start != nil && !now.Before(*start) {
		return ErrAlreadyPast
	}
	b.cancel(now)
	return nil
}

// ForceCancel は所有者・開始時刻に関係なくキャンセルする（返金確定時）
func (b *Booking) ForceCancel(now time.Time) {
	if b.Status == StatusCancelled {
		return
	}
	b.cancel(now)
}

func (b *Booking) cancel(now time.Time) {
	b.Status = StatusCancelled
	b.ExpiresAt = nil
	b.UpdatedAt = now
}

// StartsAt は予約の開始日時を返す
func (b *Booking) StartsAt(resourceStartsAt *time.Time) *time.Time {
	if b.Interval != nil {
		start := b.Interval.Start
		return &start
	}
	return resourceStartsAt
}

// Validate は予約の検証を行う
func (b *Booking) Validate() error {
	if b.ResourceID == "" {
		return ErrResourceIDRequired
	}
	if b.RequesterID == "" {
		return ErrRequesterIDRequired
	}
	if b.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if b.Interval != nil && !b.Interval.End.After(b.Interval.Start) {
		return schedule.ErrInvalidInterval
	}
	return nil
}
