package application

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-community-reservation/internal/domain/actor"
	"github.com/sanosuguru/go-community-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-community-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-community-reservation/internal/domain/refund"
	"github.com/sanosuguru/go-community-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-community-reservation/internal/pkg/logger"
)

// RefundService は返金申請と審査を扱う
type RefundService struct {
	txManager   transaction.Manager
	refundRepo  refund.Repository
	paymentRepo payment.Repository
	bookingRepo booking.Repository
	serviceOptions
}

func NewRefundService(tm transaction.Manager, rr refund.Repository, pr payment.Repository, br booking.Repository, opts ...Option) *RefundService {
	return &RefundService{
		txManager:      tm,
		refundRepo:     rr,
		paymentRepo:    pr,
		bookingRepo:    br,
		serviceOptions: newServiceOptions(opts),
	}
}

// RequestRefund は支払いに対する全額返金を申請する。支払者本人か管理者のみ
func (s *RefundService) RequestRefund(ctx context.Context, a actor.Actor, paymentID, reason string) (r *refund.Request, err error) {
	ctx, span := startSpan(ctx, "RefundService.RequestRefund", attribute.String("payment.id", paymentID))
	defer func() { finishSpan(span, err) }()

	err = transaction.WithTx(ctx, s.txManager, func(tx transaction.Tx) error {
		p, err := s.paymentRepo.GetForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if err := a.RequireOwnerOrAdmin(p.PayerID); err != nil {
			return err
		}
		r, err = refund.Open(p, a.ID, reason, s.now())
		if err != nil {
			return err
		}
		if err := s.paymentRepo.UpdateRefundStatus(ctx, tx, p); err != nil {
			return err
		}
		return s.refundRepo.Create(ctx, tx, r)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveRefund("requested")
	s.publish(ctx, EventRefundRequested, newRefundEvent(r, r.CreatedAt))
	logger.FromContext(ctx).Info("返金を申請",
		zap.String("refund_id", r.ID),
		zap.String("payment_id", r.PaymentID),
		zap.Int64("amount", r.Amount),
	)
	return r, nil
}

// ResolveRefund は返金申請を審査する（管理者のみ）
// 承認時は支払いを REFUNDED、予約を CANCELLED にする。却下時は予約に触れない
func (s *RefundService) ResolveRefund(ctx context.Context, a actor.Actor, refundID string, decision refund.Decision) (r *refund.Request, err error) {
	ctx, span := startSpan(ctx, "RefundService.ResolveRefund",
		attribute.String("refund.id", refundID),
		attribute.String("refund.decision", string(decision)),
	)
	defer func() { finishSpan(span, err) }()

	if err := a.RequireAdmin(); err != nil {
		return nil, err
	}
	if decision != refund.DecisionApprove && decision != refund.DecisionReject {
		return nil, refund.ErrInvalidDecision
	}

	var cancelled *booking.Booking
	err = transaction.WithTx(ctx, s.txManager, func(tx transaction.Tx) error {
		now := s.now()

		var err error
		r, err = s.refundRepo.GetForUpdate(ctx, tx, refundID)
		if err != nil {
			return err
		}
		p, err := s.paymentRepo.GetForUpdate(ctx, tx, r.PaymentID)
		if err != nil {
			return err
		}
		if err := r.Resolve(p, decision, a.ID, now); err != nil {
			return err
		}
		if err := s.paymentRepo.UpdateRefundStatus(ctx, tx, p); err != nil {
			return err
		}
		if err := s.refundRepo.Update(ctx, tx, r); err != nil {
			return err
		}
		if decision != refund.DecisionApprove {
			return nil
		}

		b, err := s.bookingRepo.GetForUpdate(ctx, tx, p.BookingID)
		if err != nil {
			return err
		}
		b.ForceCancel(now)
		if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
			return err
		}
		cancelled = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if decision == refund.DecisionApprove {
		s.metrics.ObserveRefund("approved")
	} else {
		s.metrics.ObserveRefund("rejected")
	}
	s.publish(ctx, EventRefundResolved, newRefundEvent(r, *r.DecidedAt))
	if cancelled != nil {
		s.invalidate(ctx, cancelled.ResourceID)
		s.publish(ctx, EventBookingCancelled, newBookingEvent(cancelled, cancelled.UpdatedAt))
	}

	logger.FromContext(ctx).Info("返金申請を審査",
		zap.String("refund_id", r.ID),
		zap.String("status", string(r.Status)),
		zap.String("admin_id", a.ID),
	)
	return r, nil
}

// GetRefund は返金申請を返す。申請者本人か管理者のみ
func (s *RefundService) GetRefund(ctx context.Context, a actor.Actor, id string) (*refund.Request, error) {
	r, err := s.refundRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.RequireOwnerOrAdmin(r.RequesterID); err != nil {
		return nil, err
	}
	return r, nil
}

// ListRefunds は返金申請を状態で絞り込んで返す（管理者のみ）
func (s *RefundService) ListRefunds(ctx context.Context, a actor.Actor, status refund.Status, limit, offset int) ([]*refund.Request, error) {
	if err := a.RequireAdmin(); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)
	return s.refundRepo.List(ctx, status, limit, offset)
}
