package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-community-reservation/internal/domain/actor"
	"github.com/sanosuguru/go-community-reservation/internal/domain/resource"
	"github.com/sanosuguru/go-community-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-community-reservation/internal/pkg/logger"
)

// ResourceService はリソースカタログを管理する
type ResourceService struct {
	resourceRepo resource.Repository
	serviceOptions
}

func NewResourceService(rr resource.Repository, opts ...Option) *ResourceService {
	return &ResourceService{resourceRepo: rr, serviceOptions: newServiceOptions(opts)}
}

// ResourceInput はリソースの作成・更新内容
type ResourceInput struct {
	Name        string
	Description string
	Category    resource.Category
	Kind        resource.Kind
	// 時間枠制のみ。"HH:MM"
	OpenTime    string
	CloseTime   string
	SlotMinutes int
	Location    string
	// 定員制のみ
	Capacity int
	StartsAt *time.Time
	Fee      *int64
	// nil の場合は料金が 1 以上なら支払い必須
	PaymentRequired  *bool
	ApprovalRequired bool
}

// CreateResource はリソースを登録する（管理者のみ）
func (s *ResourceService) CreateResource(ctx context.Context, a actor.Actor, input ResourceInput) (*resource.Resource, error) {
	if err := a.RequireAdmin(); err != nil {
		return nil, err
	}

	now := s.now()
	res := &resource.Resource{Kind: input.Kind, Active: true, CreatedBy: a.ID, CreatedAt: now}
	if err := applyResourceInput(res, input, now); err != nil {
		return nil, err
	}
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}
	if err := s.resourceRepo.Create(ctx, res); err != nil {
		return nil, fmt.Errorf("リソース作成に失敗しました: %w", err)
	}

	logger.FromContext(ctx).Info("リソースを登録",
		zap.String("resource_id", res.ID),
		zap.String("kind", string(res.Kind)),
	)
	return res, nil
}

// UpdateResource はリソースを更新する（管理者のみ）。種別は変更できない
func (s *ResourceService) UpdateResource(ctx context.Context, a actor.Actor, id string, input ResourceInput) (*resource.Resource, error) {
	if err := a.RequireAdmin(); err != nil {
		return nil, err
	}
	res, err := s.resourceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Kind != "" && input.Kind != res.Kind {
		return nil, fmt.Errorf("バリデーションエラー: %w", resource.ErrInvalidKind)
	}
	if err := applyResourceInput(res, input, s.now()); err != nil {
		return nil, err
	}
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}
	if err := s.resourceRepo.Update(ctx, res); err != nil {
		return nil, fmt.Errorf("リソース更新に失敗しました: %w", err)
	}
	s.invalidate(ctx, res.ID)
	return res, nil
}

// DeactivateResource は新規予約の受付を停止する（管理者のみ）
func (s *ResourceService) DeactivateResource(ctx context.Context, a actor.Actor, id string) (*resource.Resource, error) {
	if err := a.RequireAdmin(); err != nil {
		return nil, err
	}
	res, err := s.resourceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res.Deactivate()
	if err := s.resourceRepo.Update(ctx, res); err != nil {
		return nil, fmt.Errorf("リソース更新に失敗しました: %w", err)
	}
	logger.FromContext(ctx).Info("リソースの受付を停止", zap.String("resource_id", res.ID))
	return res, nil
}

// GetResource はリソースを返す。停止中のリソースは管理者にのみ見える
func (s *ResourceService) GetResource(ctx context.Context, a actor.Actor, id string) (*resource.Resource, error) {
	res, err := s.resourceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.Active && !a.IsAdmin() {
		return nil, resource.ErrResourceNotFound
	}
	return res, nil
}

// ListResources はリソース一覧を返す。管理者以外には受付中のものだけを返す
func (s *ResourceService) ListResources(ctx context.Context, a actor.Actor, kind resource.Kind, limit, offset int) ([]*resource.Resource, error) {
	limit, offset = normalizePage(limit, offset)
	return s.resourceRepo.List(ctx, resource.ListFilter{
		ActiveOnly: !a.IsAdmin(),
		Kind:       kind,
		Limit:      limit,
		Offset:     offset,
	})
}

func applyResourceInput(res *resource.Resource, input ResourceInput, now time.Time) error {
	res.Name = input.Name
	res.Description = input.Description
	res.Category = input.Category
	res.Location = input.Location
	if res.Location == "" {
		res.Location = "UTC"
	}
	res.Fee = input.Fee
	if input.PaymentRequired != nil {
		res.PaymentRequired = *input.PaymentRequired
	} else {
		res.PaymentRequired = res.UnitPrice() > 0
	}
	res.ApprovalRequired = input.ApprovalRequired
	res.UpdatedAt = now

	switch res.Kind {
	case resource.KindInterval:
		opens, err := schedule.ParseClock(input.OpenTime)
		if err != nil {
			return fmt.Errorf("バリデーションエラー: %w", err)
		}
		closes, err := schedule.ParseClock(input.CloseTime)
		if err != nil {
			return fmt.Errorf("バリデーションエラー: %w", err)
		}
		res.OpenTime, res.CloseTime = opens, closes
		res.SlotMinutes = input.SlotMinutes
		if res.SlotMinutes == 0 {
			res.SlotMinutes = resource.DefaultSlotMinutes
		}
	case resource.KindCapacity:
		res.Capacity = input.Capacity
		res.StartsAt = input.StartsAt
	}
	return nil
}
