package gateway

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-community-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-community-reservation/internal/pkg/logger"
)

// Instant は外部の決済代行を呼ばずに即時承認する決済代行
// 現金・振込は窓口で受領済みとして扱う
type Instant struct {
	declined map[payment.Method]struct{}
}

type Option func(*Instant)

// WithDeclinedMethods は指定した支払い方法を常に拒否させる
func WithDeclinedMethods(methods ...payment.Method) Option {
	return func(g *Instant) {
		for _, m := range methods {
			g.declined[m] = struct{}{}
		}
	}
}

func NewInstant(opts ...Option) *Instant {
	g := &Instant{declined: make(map[payment.Method]struct{})}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Instant) Charge(ctx context.Context, req payment.ChargeRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req.Amount <= 0 {
		return payment.ErrInvalidAmount
	}
	if _, err := payment.ParseMethod(string(req.Method)); err != nil {
		return err
	}
	if _, ok := g.declined[req.Method]; ok {
		return fmt.Errorf("%w: %s", payment.ErrDeclined, req.Method)
	}

	logger.FromContext(ctx).Debug("決済承認",
		zap.String("booking_id", req.BookingID),
		zap.String("reference", req.Reference),
		zap.Int64("amount", req.Amount),
		zap.String("method", string(req.Method)),
	)
	return nil
}

var _ payment.Gateway = (*Instant)(nil)
