package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-community-reservation/internal/domain/actor"
	"github.com/sanosuguru/go-community-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-community-reservation/internal/domain/schedule"
)

// slotFor は n 番目の利用者に割り当てる重ならない1時間枠を返す（1日9枠）
func slotFor(n int) *schedule.Interval {
	day := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC).AddDate(0, 0, n/9)
	start := day.Add(time.Duration(n%9) * time.Hour)
	return &schedule.Interval{Start: start, End: start.Add(time.Hour)}
}

// TestBenchmark_BookingThroughput は1つのリソースに予約が集中したときの処理性能を計測する
func TestBenchmark_BookingThroughput(t *testing.T) {
	// 全員が同じリソースロックを待つので再試行を十分に取る
	env := setupScenarioEnv(t, WithLockSettings(10*time.Second, 1000, 10*time.Millisecond))
	ctx := context.Background()
	court := env.createCourt(t)

	t.Run("異なる枠への同時予約", func(t *testing.T) {
		const concurrentUsers = 200
		var success, failed int32
		var wg sync.WaitGroup

		started := time.Now()
		for i := range concurrentUsers {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, err := env.bookings.CreateBooking(ctx, CreateBookingInput{
					ResourceID: court.ID,
					Actor:      actor.New(fmt.Sprintf("user-%05d", n), actor.RoleResident),
					Interval:   slotFor(n),
				})
				if err != nil {
					atomic.AddInt32(&failed, 1)
					return
				}
				atomic.AddInt32(&success, 1)
			}(i)
		}
		wg.Wait()
		elapsed := time.Since(started)

		t.Logf("同時予約 (%d人): %v (%.0f 予約/秒)", concurrentUsers, elapsed, float64(success)/elapsed.Seconds())
		t.Logf("  成功: %d, 失敗: %d", success, failed)
		require.Equal(t, int32(concurrentUsers), success)
	})

	t.Run("同じ枠への競合予約", func(t *testing.T) {
		const competingUsers = 100
		target := slotFor(1000)
		var success, rejected int32
		var wg sync.WaitGroup

		started := time.Now()
		for i := range competingUsers {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, err := env.bookings.CreateBooking(ctx, CreateBookingInput{
					ResourceID: court.ID,
					Actor:      actor.New(fmt.Sprintf("compete-%03d", n), actor.RoleResident),
					Interval:   target,
				})
				switch {
				case err == nil:
					atomic.AddInt32(&success, 1)
				case errors.Is(err, booking.ErrConflict):
					atomic.AddInt32(&rejected, 1)
				}
			}(i)
		}
		wg.Wait()

		t.Logf("競合予約 (%d人→1人成功): %v", competingUsers, time.Since(started))
		require.Equal(t, int32(1), success, "競合予約では1人だけ成功するべき")
		require.Equal(t, int32(competingUsers-1), rejected, "残りは全て重複で失敗するべき")
	})
}

// BenchmarkAvailabilityQueries は空き状況の参照を計測する
func BenchmarkAvailabilityQueries(b *testing.B) {
	env := setupScenarioEnv(b)
	ctx := context.Background()
	court := env.createCourt(b)
	event := env.createEvent(b, 500, 0)

	for n := range 90 {
		_, err := env.bookings.CreateBooking(ctx, CreateBookingInput{
			ResourceID: court.ID,
			Actor:      actor.New(fmt.Sprintf("bench-%03d", n), actor.RoleResident),
			Interval:   slotFor(n),
		})
		require.NoError(b, err)
		_, err = env.bookings.CreateBooking(ctx, CreateBookingInput{
			ResourceID: event.ID,
			Actor:      actor.New(fmt.Sprintf("bench-%03d", n), actor.RoleResident),
		})
		require.NoError(b, err)
	}
	day := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	b.Run("ListAvailability", func(b *testing.B) {
		for b.Loop() {
			_, _ = env.availability.ListAvailability(ctx, court.ID, day)
		}
	})

	b.Run("GetCapacityStatus", func(b *testing.B) {
		for b.Loop() {
			_, _ = env.availability.GetCapacityStatus(ctx, event.ID)
		}
	})
}
