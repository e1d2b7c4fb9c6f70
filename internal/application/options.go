package application

import (
	"time"

	"github.com/sanosuguru/go-community-reservation/internal/domain/booking"
	redisinfra "github.com/sanosuguru/go-community-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-community-reservation/internal/pkg/metrics"
)

// 分散ロック・キャッシュの既定値
const (
	defaultLockTTL        = 10 * time.Second
	defaultLockRetries    = 3
	defaultLockRetryDelay = 100 * time.Millisecond
	defaultCacheTTL       = 30 * time.Second
)

// serviceOptions は各サービスが共有する任意の依存
// nil の依存はその機能を使わないことを表す
type serviceOptions struct {
	lockManager    redisinfra.LockManagerInterface
	cache          redisinfra.AvailabilityCacheInterface
	publisher      EventPublisher
	metrics        *metrics.Metrics
	holdTTL        time.Duration
	lockTTL        time.Duration
	lockRetries    int
	lockRetryDelay time.Duration
	cacheTTL       time.Duration
	now            func() time.Time
}

// Option はサービスの任意設定
type Option func(*serviceOptions)

func newServiceOptions(opts []Option) serviceOptions {
	o := serviceOptions{
		holdTTL:        booking.DefaultHoldTTL,
		lockTTL:        defaultLockTTL,
		lockRetries:    defaultLockRetries,
		lockRetryDelay: defaultLockRetryDelay,
		cacheTTL:       defaultCacheTTL,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLockManager はリソース単位の分散ロックを有効にする
func WithLockManager(lm redisinfra.LockManagerInterface) Option {
	return func(o *serviceOptions) { o.lockManager = lm }
}

// WithLockSettings は分散ロックのTTLとリトライを設定する
func WithLockSettings(ttl time.Duration, retries int, delay time.Duration) Option {
	return func(o *serviceOptions) {
		if ttl > 0 {
			o.lockTTL = ttl
		}
		if retries > 0 {
			o.lockRetries = retries
		}
		if delay > 0 {
			o.lockRetryDelay = delay
		}
	}
}

// WithAvailabilityCache は定員の占有状況キャッシュを有効にする
func WithAvailabilityCache(c redisinfra.AvailabilityCacheInterface, ttl time.Duration) Option {
	return func(o *serviceOptions) {
		o.cache = c
		if ttl > 0 {
			o.cacheTTL = ttl
		}
	}
}

// WithPublisher はドメインイベントの発行先を設定する
func WithPublisher(p EventPublisher) Option {
	return func(o *serviceOptions) { o.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *serviceOptions) { o.metrics = m }
}

// WithHoldTTL は仮押さえの有効期限を設定する
func WithHoldTTL(ttl time.Duration) Option {
	return func(o *serviceOptions) {
		if ttl > 0 {
			o.holdTTL = ttl
		}
	}
}

// WithClock は現在時刻の取得元を差し替える
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) {
		if now != nil {
			o.now = now
		}
	}
}
