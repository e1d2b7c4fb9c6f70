package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-community-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-community-reservation/internal/domain/refund"
	"github.com/sanosuguru/go-community-reservation/internal/pkg/logger"
)

// ドメインイベントの routing key
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingRejected  = "booking.rejected"
	EventBookingExpired   = "booking.expired"
	EventRefundRequested  = "refund.requested"
	EventRefundResolved   = "refund.resolved"
)

// EventPublisher はコミット後のドメインイベントを外部へ通知する
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// BookingEvent は予約の状態変化の通知内容
type BookingEvent struct {
	BookingID   string    `json:"booking_id"`
	ResourceID  string    `json:"resource_id"`
	RequesterID string    `json:"requester_id"`
	Status      string    `json:"status"`
	PaymentID   *string   `json:"payment_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func newBookingEvent(b *booking.Booking, now time.Time) BookingEvent {
	return BookingEvent{
		BookingID:   b.ID,
		ResourceID:  b.ResourceID,
		RequesterID: b.RequesterID,
		Status:      string(b.Status),
		PaymentID:   b.PaymentID,
		OccurredAt:  now,
	}
}

// RefundEvent は返金申請の通知内容
type RefundEvent struct {
	RefundID    string    `json:"refund_id"`
	PaymentID   string    `json:"payment_id"`
	RequesterID string    `json:"requester_id"`
	Amount      int64     `json:"amount"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func newRefundEvent(r *refund.Request, now time.Time) RefundEvent {
	return RefundEvent{
		RefundID:    r.ID,
		PaymentID:   r.PaymentID,
		RequesterID: r.RequesterID,
		Amount:      r.Amount,
		Status:      string(r.Status),
		OccurredAt:  now,
	}
}

// publish は通知に失敗しても呼び出し元の処理を失敗させない
func (o *serviceOptions) publish(ctx context.Context, key string, v any) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.PublishJSON(ctx, key, v); err != nil {
		logger.FromContext(ctx).Warn("イベント通知に失敗",
			zap.String("routing_key", key),
			zap.Error(err),
		)
	}
}

// invalidate は占有状況キャッシュを破棄する。失敗は TTL に任せる
func (o *serviceOptions) invalidate(ctx context.Context, resourceID string) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Invalidate(ctx, resourceID); err != nil {
		logger.FromContext(ctx).Warn("キャッシュ破棄に失敗",
			zap.String("resource_id", resourceID),
			zap.Error(err),
		)
	}
}
