package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-community-reservation/internal/domain/actor"
	"github.com/sanosuguru/go-community-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-community-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-community-reservation/internal/domain/resource"
	"github.com/sanosuguru/go-community-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-community-reservation/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-community-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-community-reservation/internal/pkg/logger"
)

// BookingService は予約のライフサイクルを管理する
type BookingService struct {
	txManager    transaction.Manager
	resourceRepo resource.Repository
	bookingRepo  booking.Repository
	ledger       *PaymentLedger
	serviceOptions
}

func NewBookingService(tm transaction.Manager, rr resource.Repository, br booking.Repository, ledger *PaymentLedger, opts ...Option) *BookingService {
	return &BookingService{
		txManager:      tm,
		resourceRepo:   rr,
		bookingRepo:    br,
		ledger:         ledger,
		serviceOptions: newServiceOptions(opts),
	}
}

type CreateBookingInput struct {
	ResourceID string
	Actor      actor.Actor
	// 時間枠制リソースでは必須、定員制リソースでは指定不可
	Interval *schedule.Interval
	// 定員制リソースの人数。0 は 1 人として扱う
	Quantity       int
	IdempotencyKey string
	Note           string
}

// CreateBooking は予約を作成する
// 期限切れの仮押さえの失効、重複・定員の確認、登録を1トランザクションで行う
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (b *booking.Booking, err error) {
	ctx, span := startSpan(ctx, "BookingService.CreateBooking",
		attribute.String("resource.id", input.ResourceID),
		attribute.String("actor.id", input.Actor.ID),
	)
	defer func() { finishSpan(span, err) }()

	if err := input.Actor.Validate(); err != nil {
		return nil, err
	}

	// 冪等性チェック
	if input.IdempotencyKey != "" {
		existing, err := s.bookingRepo.GetByIdempotencyKey(ctx, input.Actor.ID, input.IdempotencyKey)
		if err == nil {
			return s.replay(existing, input)
		}
		if !errors.Is(err, booking.ErrBookingNotFound) {
			return nil, fmt.Errorf("冪等性チェックに失敗: %w", err)
		}
	}

	if s.lockManager != nil {
		lock, err := s.acquireResourceLock(ctx, input.ResourceID)
		if err != nil {
			return nil, err
		}
		defer func() {
			started := time.Now()
			if err := lock.Release(ctx); err != nil {
				s.metrics.ObserveLock("release", "failed", started)
				logger.FromContext(ctx).Warn("ロック解放に失敗", zap.String("resource_id", input.ResourceID), zap.Error(err))
				return
			}
			s.metrics.ObserveLock("release", "success", started)
		}()
	}

	var (
		res     *resource.Resource
		expired []booking.ExpiredHold
	)
	err = transaction.WithTx(ctx, s.txManager, func(tx transaction.Tx) error {
		now := s.now()

		var err error
		res, err = s.resourceRepo.GetForUpdate(ctx, tx, input.ResourceID)
		if err != nil {
			return err
		}
		if err := res.CanBook(); err != nil {
			return err
		}

		candidate, window, err := s.buildCandidate(res, input, now)
		if err != nil {
			return err
		}

		expired, err = s.bookingRepo.ExpireHolds(ctx, tx, res.ID, now)
		if err != nil {
			return err
		}
		active, err := s.bookingRepo.ListActive(ctx, tx, res.ID, window, now)
		if err != nil {
			return err
		}

		if res.IsInterval() {
			if booking.FindConflict(*candidate.Interval, active, now) != nil {
				return booking.ErrConflict
			}
		} else {
			if booking.HasActiveFor(candidate.RequesterID, active, now) {
				return booking.ErrAlreadyBooked
			}
			if booking.SeatsTaken(active, now)+candidate.Quantity > res.Capacity {
				return booking.ErrCapacityExceeded
			}
		}

		candidate.Place(s.policyFor(res), now)
		if input.IdempotencyKey != "" {
			key := input.IdempotencyKey
			candidate.IdempotencyKey = &key
		}
		candidate.Note = input.Note

		if err := s.bookingRepo.Create(ctx, tx, candidate); err != nil {
			return err
		}
		b = candidate
		return nil
	})

	kind := "unknown"
	if res != nil {
		kind = string(res.Kind)
	}
	if err != nil {
		s.metrics.ObserveBooking(kind, bookingResult(err))
		// 同じキーの同時リクエストに負けた場合は先行した予約を返す
		if errors.Is(err, booking.ErrIdempotencyKeyExists) {
			if existing, getErr := s.bookingRepo.GetByIdempotencyKey(ctx, input.Actor.ID, input.IdempotencyKey); getErr == nil {
				return s.replay(existing, input)
			}
		}
		return nil, err
	}

	s.metrics.ObserveBooking(kind, string(b.Status))
	s.afterExpire(ctx, "lazy", expired)
	s.invalidate(ctx, b.ResourceID)
	s.publish(ctx, EventBookingCreated, newBookingEvent(b, b.CreatedAt))

	logger.FromContext(ctx).Info("予約を作成",
		zap.String("booking_id", b.ID),
		zap.String("resource_id", b.ResourceID),
		zap.String("status", string(b.Status)),
	)
	return b, nil
}

// replay は冪等性キーで見つかった予約を返す
// 同じキーで別の内容を予約しようとした場合は ErrIdempotencyKeyExists
func (s *BookingService) replay(existing *booking.Booking, input CreateBookingInput) (*booking.Booking, error) {
	if !sameRequest(existing, input) {
		return nil, booking.ErrIdempotencyKeyExists
	}
	existing.Expire(s.now())
	return existing, nil
}

func sameRequest(b *booking.Booking, input CreateBookingInput) bool {
	if b.ResourceID != input.ResourceID {
		return false
	}
	if b.Interval != nil {
		return input.Interval != nil &&
			b.Interval.Start.Equal(input.Interval.Start) &&
			b.Interval.End.Equal(input.Interval.End)
	}
	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}
	return input.Interval == nil && b.Quantity == quantity
}

func (s *BookingService) acquireResourceLock(ctx context.Context, resourceID string) (redisinfra.Lock, error) {
	started := time.Now()
	lock, err := s.lockManager.AcquireLockWithRetry(ctx, redisinfra.ResourceLockKey(resourceID), s.lockTTL, s.lockRetries, s.lockRetryDelay)
	if err != nil {
		s.metrics.ObserveLock("acquire", "failed", started)
		if errors.Is(err, redisinfra.ErrLockNotAcquired) {
			return nil, booking.ErrResourceBusy
		}
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	s.metrics.ObserveLock("acquire", "success", started)
	return lock, nil
}

// buildCandidate はリソースの種別に応じた予約と、重複確認に使う範囲を組み立てる
func (s *BookingService) buildCandidate(res *resource.Resource, input CreateBookingInput, now time.Time) (*booking.Booking, *schedule.Interval, error) {
	var b *booking.Booking
	var window *schedule.Interval

	switch res.Kind {
	case resource.KindInterval:
		if input.Interval == nil {
			return nil, nil, booking.ErrIntervalRequired
		}
		iv, err := schedule.NewInterval(input.Interval.Start, input.Interval.End)
		if err != nil {
			return nil, nil, err
		}
		if err := res.AcceptsInterval(iv); err != nil {
			return nil, nil, err
		}
		if !now.Before(iv.Start) {
			return nil, nil, booking.ErrAlreadyPast
		}
		b = booking.NewIntervalBooking(res.ID, input.Actor.ID, iv)
		window = &iv
	case resource.KindCapacity:
		if input.Interval != nil {
			return nil, nil, booking.ErrIntervalNotAllowed
		}
		quantity := input.Quantity
		if quantity == 0 {
			quantity = 1
		}
		if res.StartsAt != nil && !now.Before(*res.StartsAt) {
			return nil, nil, booking.ErrAlreadyPast
		}
		b = booking.NewCapacityBooking(res.ID, input.Actor.ID, quantity)
	default:
		return nil, nil, resource.ErrInvalidKind
	}

	if err := b.Validate(); err != nil {
		return nil, nil, err
	}
	return b, window, nil
}

func (s *BookingService) policyFor(res *resource.Resource) booking.Policy {
	return booking.Policy{
		RequiresApproval: res.IsCapacity() && res.ApprovalRequired,
		RequiresPayment:  res.RequiresPayment(),
		HoldTTL:          s.holdTTL,
	}
}

// PayResult は支払い結果
type PayResult struct {
	Booking *booking.Booking
	Payment *payment.Payment
}

// PayBooking は仮押さえ中の予約を支払い、確定する
// 期限切れの場合は予約を EXPIRED にしたうえで ErrReservationExpired を返す
func (s *BookingService) PayBooking(ctx context.Context, a actor.Actor, bookingID string, method payment.Method) (result *PayResult, err error) {
	ctx, span := startSpan(ctx, "BookingService.PayBooking",
		attribute.String("booking.id", bookingID),
		attribute.String("payment.method", string(method)),
	)
	defer func() { finishSpan(span, err) }()

	method, err = payment.ParseMethod(string(method))
	if err != nil {
		return nil, err
	}

	var lapsed *booking.Booking
	err = transaction.WithTx(ctx, s.txManager, func(tx transaction.Tx) error {
		now := s.now()

		b, err := s.bookingRepo.GetForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if err := a.RequireOwnerOrAdmin(b.RequesterID); err != nil {
			return err
		}
		if b.Expire(now) {
			lapsed = b
			return s.bookingRepo.Update(ctx, tx, b)
		}
		if err := b.CheckPayable(now); err != nil {
			return err
		}

		res, err := s.resourceRepo.GetByID(ctx, b.ResourceID)
		if err != nil {
			return err
		}
		p, err := s.ledger.RecordPayment(ctx, tx, b, res, method)
		if err != nil {
			return err
		}
		if err := b.Confirm(now, p.ID); err != nil {
			return err
		}
		if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
			return err
		}
		result = &PayResult{Booking: b, Payment: p}
		return nil
	})
	if err != nil {
		s.metrics.ObservePayment(paymentResult(err))
		return nil, err
	}
	if lapsed != nil {
		s.metrics.ObservePayment("expired")
		s.afterExpire(ctx, "lazy", []booking.ExpiredHold{expiredHoldOf(lapsed)})
		return nil, booking.ErrReservationExpired
	}

	s.metrics.ObservePayment("success")
	s.invalidate(ctx, result.Booking.ResourceID)
	s.publish(ctx, EventBookingConfirmed, newBookingEvent(result.Booking, result.Payment.PaidAt))

	logger.FromContext(ctx).Info("支払いを記録",
		zap.String("booking_id", result.Booking.ID),
		zap.String("payment_id", result.Payment.ID),
		zap.String("transaction_ref", result.Payment.TransactionRef),
		zap.Int64("amount", result.Payment.Amount),
	)
	return result, nil
}

// CancelBooking は予約者本人か管理者が予約をキャンセルする
func (s *BookingService) CancelBooking(ctx context.Context, a actor.Actor, bookingID string) (b *booking.Booking, err error) {
	ctx, span := startSpan(ctx, "BookingService.CancelBooking", attribute.String("booking.id", bookingID))
	defer func() { finishSpan(span, err) }()

	var lapsed bool
	err = transaction.WithTx(ctx, s.txManager, func(tx transaction.Tx) error {
		now := s.now()

		var err error
		b, err = s.bookingRepo.GetForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if err := a.RequireOwnerOrAdmin(b.RequesterID); err != nil {
			return err
		}
		if b.Expire(now) {
			lapsed = true
			return s.bookingRepo.Update(ctx, tx, b)
		}

		res, err := s.resourceRepo.GetByID(ctx, b.ResourceID)
		if err != nil {
			return err
		}
		if err := b.Cancel(now, res.StartsAt); err != nil {
			return err
		}
		return s.bookingRepo.Update(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}
	if lapsed {
		s.afterExpire(ctx, "lazy", []booking.ExpiredHold{expiredHoldOf(b)})
		return nil, booking.ErrReservationExpired
	}

	s.invalidate(ctx, b.ResourceID)
	s.publish(ctx, EventBookingCancelled, newBookingEvent(b, b.UpdatedAt))
	logger.FromContext(ctx).Info("予約をキャンセル",
		zap.String("booking_id", b.ID),
		zap.String("actor_id", a.ID),
	)
	return b, nil
}

// ApproveBooking は承認待ちの予約を承認する（管理者のみ）
// assigneeID は作業依頼の担当者。空なら設定しない
func (s *BookingService) ApproveBooking(ctx context.Context, a actor.Actor, bookingID, assigneeID string) (b *booking.Booking, err error) {
	ctx, span := startSpan(ctx, "BookingService.ApproveBooking", attribute.String("booking.id", bookingID))
	defer func() { finishSpan(span, err) }()

	if err := a.RequireAdmin(); err != nil {
		return nil, err
	}

	err = transaction.WithTx(ctx, s.txManager, func(tx transaction.Tx) error {
		var err error
		b, err = s.bookingRepo.GetForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		res, err := s.resourceRepo.GetByID(ctx, b.ResourceID)
		if err != nil {
			return err
		}
		var assignee *string
		if assigneeID != "" {
			assignee = &assigneeID
		}
		if err := b.Approve(s.policyFor(res), s.now(), assignee); err != nil {
			return err
		}
		return s.bookingRepo.Update(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, b.ResourceID)
	if b.Status == booking.StatusConfirmed {
		s.publish(ctx, EventBookingConfirmed, newBookingEvent(b, b.UpdatedAt))
	}
	logger.FromContext(ctx).Info("予約を承認",
		zap.String("booking_id", b.ID),
		zap.String("status", string(b.Status)),
	)
	return b, nil
}

// RejectBooking は承認待ちの予約を却下する（管理者のみ）
func (s *BookingService) RejectBooking(ctx context.Context, a actor.Actor, bookingID string) (b *booking.Booking, err error) {
	ctx, span := startSpan(ctx, "BookingService.RejectBooking", attribute.String("booking.id", bookingID))
	defer func() { finishSpan(span, err) }()

	if err := a.RequireAdmin(); err != nil {
		return nil, err
	}

	err = transaction.WithTx(ctx, s.txManager, func(tx transaction.Tx) error {
		var err error
		b, err = s.bookingRepo.GetForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if err := b.Reject(s.now()); err != nil {
			return err
		}
		return s.bookingRepo.Update(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, b.ResourceID)
	s.publish(ctx, EventBookingRejected, newBookingEvent(b, b.UpdatedAt))
	return b, nil
}

// GetBooking は予約を返す。本人か管理者のみ
// 期限切れの仮押さえは EXPIRED として返す
func (s *BookingService) GetBooking(ctx context.Context, a actor.Actor, id string) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.RequireOwnerOrAdmin(b.RequesterID); err != nil {
		return nil, err
	}
	b.Expire(s.now())
	return b, nil
}

// ListMyBookings は呼び出し元の予約一覧を返す
func (s *BookingService) ListMyBookings(ctx context.Context, a actor.Actor, limit, offset int) ([]*booking.Booking, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)
	bookings, err := s.bookingRepo.ListByRequester(ctx, a.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.settle(bookings), nil
}

// ListResourceBookings はリソースの予約一覧を返す（管理者のみ）
func (s *BookingService) ListResourceBookings(ctx context.Context, a actor.Actor, resourceID string, limit, offset int) ([]*booking.Booking, error) {
	if err := a.RequireAdmin(); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)
	bookings, err := s.bookingRepo.ListByResource(ctx, resourceID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.settle(bookings), nil
}

// settle は読み取り結果の期限切れ仮押さえを EXPIRED として見せる
func (s *BookingService) settle(bookings []*booking.Booking) []*booking.Booking {
	now := s.now()
	for _, b := range bookings {
		b.Expire(now)
	}
	return bookings
}

// ExpireStaleHolds は期限切れの仮押さえをまとめて EXPIRED にする
func (s *BookingService) ExpireStaleHolds(ctx context.Context) (n int, err error) {
	ctx, span := startSpan(ctx, "BookingService.ExpireStaleHolds")
	defer func() { finishSpan(span, err) }()

	expired, err := s.bookingRepo.ExpireAllHolds(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.afterExpire(ctx, "sweeper", expired)
	return len(expired), nil
}

// afterExpire は失効した仮押さえの後処理を行う
func (s *BookingService) afterExpire(ctx context.Context, source string, expired []booking.ExpiredHold) {
	if len(expired) == 0 {
		return
	}
	s.metrics.ObserveExpired(source, len(expired))

	now := s.now()
	seen := make(map[string]struct{}, len(expired))
	for _, h := range expired {
		if _, ok := seen[h.ResourceID]; !ok {
			seen[h.ResourceID] = struct{}{}
			s.invalidate(ctx, h.ResourceID)
		}
		s.publish(ctx, EventBookingExpired, BookingEvent{
			BookingID:   h.BookingID,
			ResourceID:  h.ResourceID,
			RequesterID: h.RequesterID,
			Status:      string(booking.StatusExpired),
			OccurredAt:  now,
		})
	}
	logger.FromContext(ctx).Debug("仮押さえを失効",
		zap.String("source", source),
		zap.Int("count", len(expired)),
	)
}

func expiredHoldOf(b *booking.Booking) booking.ExpiredHold {
	return booking.ExpiredHold{BookingID: b.ID, ResourceID: b.ResourceID, RequesterID: b.RequesterID}
}

// bookingResult はメトリクスのラベルに使う失敗理由
func bookingResult(err error) string {
	switch {
	case errors.Is(err, booking.ErrConflict):
		return "conflict"
	case errors.Is(err, booking.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, booking.ErrAlreadyBooked):
		return "already_booked"
	case errors.Is(err, resource.ErrResourceInactive):
		return "inactive"
	case errors.Is(err, booking.ErrResourceBusy):
		return "busy"
	default:
		return "error"
	}
}

func paymentResult(err error) string {
	switch {
	case errors.Is(err, booking.ErrReservationExpired):
		return "expired"
	case errors.Is(err, booking.ErrNotPayable):
		return "not_payable"
	case errors.Is(err, payment.ErrDeclined):
		return "declined"
	default:
		return "error"
	}
}
