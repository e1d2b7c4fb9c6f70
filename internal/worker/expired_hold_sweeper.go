package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-community-reservation/internal/pkg/logger"
)

// HoldExpirer は期限を過ぎた仮押さえを EXPIRED に遷移させるインターフェース
type HoldExpirer interface {
	ExpireStaleHolds(ctx context.Context) (int, error)
}

// ExpiredHoldSweeper は期限切れの仮押さえを定期的に確定させるワーカー
// 参照時の遅延判定とは別に、放置された仮押さえを永続化された状態でも解放する
type ExpiredHoldSweeper struct {
	expirer  HoldExpirer
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// DefaultSweepInterval は interval に 0 以下が渡された場合の実行間隔
const DefaultSweepInterval = time.Minute

// NewExpiredHoldSweeper は新しいスイーパーを作成
func NewExpiredHoldSweeper(expirer HoldExpirer, interval time.Duration) *ExpiredHoldSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &ExpiredHoldSweeper{
		expirer:  expirer,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はスイーパーを開始する。起動直後に1回実行し、以降は interval ごとに実行する
func (s *ExpiredHoldSweeper) Start(ctx context.Context) {
	logger.Info("仮押さえスイーパー開始", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("仮押さえスイーパー停止（コンテキストキャンセル）")
			return
		case <-s.stopCh:
			logger.Info("仮押さえスイーパー停止（シグナル受信）")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop はスイーパーを停止し、実行中の処理が終わるまで待つ
func (s *ExpiredHoldSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}

func (s *ExpiredHoldSweeper) sweep(ctx context.Context) {
	log := logger.Get()

	count, err := s.expirer.ExpireStaleHolds(ctx)
	if err != nil {
		log.Error("期限切れ仮押さえの処理失敗", zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("期限切れの仮押さえを解放", zap.Int("count", count))
	} else {
		log.Debug("期限切れの仮押さえなし")
	}
}
