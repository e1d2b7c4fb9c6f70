package application

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-community-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-community-reservation/internal/domain/resource"
	redisinfra "github.com/sanosuguru/go-community-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-community-reservation/internal/pkg/logger"
)

// AvailabilityService は空き状況の参照を提供する
// 期限切れの仮押さえは読み取り時に除外するため、スイーパーの実行を待たない
type AvailabilityService struct {
	resourceRepo resource.Repository
	bookingRepo  booking.Repository
	serviceOptions
}

func NewAvailabilityService(rr resource.Repository, br booking.Repository, opts ...Option) *AvailabilityService {
	return &AvailabilityService{resourceRepo: rr, bookingRepo: br, serviceOptions: newServiceOptions(opts)}
}

// Availability は1日分の枠の空き状況
type Availability struct {
	Resource *resource.Resource
	Date     time.Time
	Slots    []booking.SlotAvailability
}

// ListAvailability は date の各枠が予約済みかを返す
func (s *AvailabilityService) ListAvailability(ctx context.Context, resourceID string, date time.Time) (out *Availability, err error) {
	ctx, span := startSpan(ctx, "AvailabilityService.ListAvailability",
		attribute.String("resource.id", resourceID),
		attribute.String("date", date.Format(time.DateOnly)),
	)
	defer func() { finishSpan(span, err) }()

	res, err := s.resourceRepo.GetByID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	seq, err := res.Slots(date)
	if err != nil {
		return nil, err
	}
	window, err := res.Window(date)
	if err != nil {
		return nil, err
	}

	now := s.now()
	active, err := s.bookingRepo.ListActive(ctx, nil, res.ID, &window, now)
	if err != nil {
		return nil, err
	}
	return &Availability{
		Resource: res,
		Date:     date,
		Slots:    booking.MarkSlots(slices.Collect(seq), active, now),
	}, nil
}

// CapacityStatus は定員制リソースの占有状況
type CapacityStatus struct {
	ResourceID string
	Capacity   int
	Taken      int
	Remaining  int
}

// GetCapacityStatus は定員・占有人数・残り人数を返す
// キャッシュがあればそれを使い、無ければ集計してキャッシュする
func (s *AvailabilityService) GetCapacityStatus(ctx context.Context, resourceID string) (status *CapacityStatus, err error) {
	ctx, span := startSpan(ctx, "AvailabilityService.GetCapacityStatus", attribute.String("resource.id", resourceID))
	defer func() { finishSpan(span, err) }()

	res, err := s.resourceRepo.GetByID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if !res.IsCapacity() {
		return nil, resource.ErrNotCapacityResource
	}

	if s.cache != nil {
		snap, err := s.cache.GetCapacity(ctx, res.ID)
		if err == nil && snap.Capacity == res.Capacity {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return newCapacityStatus(res.ID, snap), nil
		}
		if err != nil && !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.FromContext(ctx).Warn("キャッシュ取得に失敗", zap.String("resource_id", res.ID), zap.Error(err))
		}
	}

	now := s.now()
	active, err := s.bookingRepo.ListActive(ctx, nil, res.ID, nil, now)
	if err != nil {
		return nil, err
	}
	snap := redisinfra.CapacitySnapshot{Capacity: res.Capacity, Taken: booking.SeatsTaken(active, now)}

	if s.cache != nil {
		if ttl := s.snapshotTTL(active, now); ttl > 0 {
			if err := s.cache.SetCapacity(ctx, res.ID, snap, ttl); err != nil {
				logger.FromContext(ctx).Warn("キャッシュ保存に失敗", zap.String("resource_id", res.ID), zap.Error(err))
			}
		}
	}
	return newCapacityStatus(res.ID, snap), nil
}

// snapshotTTL は最も早く失効する仮押さえより長くキャッシュしない
func (s *AvailabilityService) snapshotTTL(active []*booking.Booking, now time.Time) time.Duration {
	ttl := s.cacheTTL
	for _, b := range active {
		if b.Status != booking.StatusHeld || b.ExpiresAt == nil {
			continue
		}
		if until := b.ExpiresAt.Sub(now); until < ttl {
			ttl = until
		}
	}
	return ttl
}

func newCapacityStatus(resourceID string, snap redisinfra.CapacitySnapshot) *CapacityStatus {
	return &CapacityStatus{
		ResourceID: resourceID,
		Capacity:   snap.Capacity,
		Taken:      snap.Taken,
		Remaining:  snap.Remaining(),
	}
}
