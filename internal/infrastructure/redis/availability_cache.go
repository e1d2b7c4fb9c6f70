package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// CapacitySnapshot は定員制リソースの占有状況
type CapacitySnapshot struct {
	Capacity int `json:"capacity"`
	Taken    int `json:"taken"`
}

// Remaining は残り人数を返す
func (s CapacitySnapshot) Remaining() int {
	if r := s.Capacity - s.Taken; r > 0 {
		return r
	}
	return 0
}

// AvailabilityCacheInterface はアプリケーション層から使うキャッシュの抽象
type AvailabilityCacheInterface interface {
	GetCapacity(ctx context.Context, resourceID string) (CapacitySnapshot, error)
	SetCapacity(ctx context.Context, resourceID string, snap CapacitySnapshot, ttl time.Duration) error
	Invalidate(ctx context.Context, resourceID string) error
}

// AvailabilityCache は定員制リソースの占有状況をキャッシュする
// 予約の状態が変わるたびに Invalidate される前提で、TTL は保険
type AvailabilityCache struct {
	client *redis.Client
}

var _ AvailabilityCacheInterface = (*AvailabilityCache)(nil)

func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

// GetCapacity はキャッシュから占有状況を取得する
func (c *AvailabilityCache) GetCapacity(ctx context.Context, resourceID string) (CapacitySnapshot, error) {
	vals, err := c.client.HGetAll(ctx, capacityKey(resourceID)).Result()
	if err != nil {
		return CapacitySnapshot{}, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	if len(vals) == 0 {
		return CapacitySnapshot{}, ErrCacheMiss
	}

	capacity, err1 := strconv.Atoi(vals["capacity"])
	taken, err2 := strconv.Atoi(vals["taken"])
	if err1 != nil || err2 != nil {
		// 壊れたエントリはミス扱い
		return CapacitySnapshot{}, ErrCacheMiss
	}
	return CapacitySnapshot{Capacity: capacity, Taken: taken}, nil
}

// SetCapacity は占有状況を保存する
func (c *AvailabilityCache) SetCapacity(ctx context.Context, resourceID string, snap CapacitySnapshot, ttl time.Duration) error {
	key := capacityKey(resourceID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "capacity", snap.Capacity, "taken", snap.Taken)
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate はリソースのキャッシュを無効化する
func (c *AvailabilityCache) Invalidate(ctx context.Context, resourceID string) error {
	if err := c.client.Del(ctx, capacityKey(resourceID)).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func capacityKey(resourceID string) string {
	return "availability:capacity:" + resourceID
}
