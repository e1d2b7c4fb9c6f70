package application

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sanosuguru/go-community-reservation/internal/domain/actor"
	"github.com/sanosuguru/go-community-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-community-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-community-reservation/internal/domain/resource"
	"github.com/sanosuguru/go-community-reservation/internal/domain/transaction"
)

// PaymentLedger は予約に対する支払いを記録する
type PaymentLedger struct {
	paymentRepo payment.Repository
	gateway     payment.Gateway
	serviceOptions
}

func NewPaymentLedger(pr payment.Repository, gw payment.Gateway, opts ...Option) *PaymentLedger {
	return &PaymentLedger{paymentRepo: pr, gateway: gw, serviceOptions: newServiceOptions(opts)}
}

// RecordPayment は tx 内で支払いを記録する
// 呼び出し側は予約行をロック済みであること。有効な支払いが既にあれば ErrNotPayable
func (l *PaymentLedger) RecordPayment(ctx context.Context, tx transaction.Tx, b *booking.Booking, res *resource.Resource, method payment.Method) (p *payment.Payment, err error) {
	ctx, span := startSpan(ctx, "PaymentLedger.RecordPayment",
		attribute.String("booking.id", b.ID),
		attribute.String("payment.method", string(method)),
	)
	defer func() { finishSpan(span, err) }()

	if _, err := l.paymentRepo.GetActiveByBooking(ctx, tx, b.ID); err == nil {
		return nil, fmt.Errorf("%w: %w", booking.ErrNotPayable, payment.ErrAlreadyPaid)
	} else if !errors.Is(err, payment.ErrPaymentNotFound) {
		return nil, err
	}

	amount := res.UnitPrice() * int64(b.Quantity)
	p = payment.NewPayment(b.ID, b.RequesterID, amount, method, payment.NewTransactionRef(res.TransactionPrefix()), l.now())
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := l.gateway.Charge(ctx, payment.ChargeRequest{
		BookingID: b.ID,
		PayerID:   p.PayerID,
		Amount:    p.Amount,
		Method:    p.Method,
		Reference: p.TransactionRef,
	}); err != nil {
		return nil, fmt.Errorf("決済に失敗: %w", err)
	}

	if err := l.paymentRepo.Create(ctx, tx, p); err != nil {
		if errors.Is(err, payment.ErrAlreadyPaid) {
			return nil, fmt.Errorf("%w: %w", booking.ErrNotPayable, err)
		}
		return nil, err
	}
	return p, nil
}

// GetPayment は支払いの領収情報を返す。本人か管理者のみ
func (l *PaymentLedger) GetPayment(ctx context.Context, a actor.Actor, id string) (*payment.Payment, error) {
	p, err := l.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.RequireOwnerOrAdmin(p.PayerID); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPayments は管理者には全件、それ以外には本人の支払いを返す
func (l *PaymentLedger) ListPayments(ctx context.Context, a actor.Actor, limit, offset int) ([]*payment.Payment, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)
	if a.IsAdmin() {
		return l.paymentRepo.List(ctx, limit, offset)
	}
	return l.paymentRepo.ListByPayer(ctx, a.ID, limit, offset)
}

// normalizePage はページングの範囲を補正する
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
