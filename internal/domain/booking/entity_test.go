package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-community-reservation/internal/domain/schedule"
)

var baseTime = time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC)

func slot(startHour, startMin, endHour, endMin int) schedule.Interval {
	return schedule.Interval{
		Start: time.Date(2026, 10, 20, startHour, startMin, 0, 0, time.UTC),
		End:   time.Date(2026, 10, 20, endHour, endMin, 0, 0, time.UTC),
	}
}

var paidPolicy = Policy{RequiresPayment: true, HoldTTL: 15 * time.Minute}

func createHeldBooking(t *testing.T) *Booking {
	t.Helper()
	b := NewIntervalBooking("res-1", "user-1", slot(10, 0, 11, 0))
	b.ID = "booking-1"
	b.Place(paidPolicy, baseTime)
	require.Equal(t, StatusHeld, b.Status)
	return b
}

func TestBooking_Validate(t *testing.T) {
	tests := []struct {
		name    string
		booking *Booking
		wantErr error
	}{
		{name: "時間枠予約", booking: NewIntervalBooking("res-1", "user-1", slot(10, 0, 11, 0))},
		{name: "人数予約", booking: NewCapacityBooking("res-1", "user-1", 2)},
		{name: "リソースID未指定", booking: NewCapacityBooking("", "user-1", 1), wantErr: ErrResourceIDRequired},
		{name: "予約者未指定", booking: NewCapacityBooking("res-1", "", 1), wantErr: ErrRequesterIDRequired},
		{name: "人数0", booking: NewCapacityBooking("res-1", "user-1", 0), wantErr: ErrInvalidQuantity},
		{name: "逆転した時間枠", booking: NewIntervalBooking("res-1", "user-1", slot(11, 0, 10, 0)), wantErr: schedule.ErrInvalidInterval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.booking.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBooking_Place(t *testing.T) {
	t.Run("支払いが必要なら仮押さえ", func(t *testing.T) {
		b := NewIntervalBooking("res-1", "user-1", slot(10, 0, 11, 0))
		b.Place(paidPolicy, baseTime)

		assert.Equal(t, StatusHeld, b.Status)
		require.NotNil(t, b.ExpiresAt)
		assert.Equal(t, baseTime.Add(15*time.Minute), *b.ExpiresAt)
	})

	t.Run("無料なら即確定", func(t *testing.T) {
		b := NewIntervalBooking("res-1", "user-1", slot(10, 0, 11, 0))
		b.Place(Policy{}, baseTime)

		assert.Equal(t, StatusConfirmed, b.Status)
		assert.Nil(t, b.ExpiresAt)
	})

	t.Run("承認制なら承認待ち", func(t *testing.T) {
		b := NewCapacityBooking("res-1", "user-1", 1)
		b.Place(Policy{RequiresApproval: true, RequiresPayment: true}, baseTime)

		assert.Equal(t, StatusRequested, b.Status)
		assert.Nil(t, b.ExpiresAt)
	})

	t.Run("有効期限未指定なら既定値", func(t *testing.T) {
		b := NewIntervalBooking("res-1", "user-1", slot(10, 0, 11, 0))
		b.Place(Policy{RequiresPayment: true}, baseTime)

		assert.Equal(t, baseTime.Add(DefaultHoldTTL), *b.ExpiresAt)
	})
}

func TestBooking_Expire(t *testing.T) {
	b := createHeldBooking(t)

	assert.False(t, b.Expire(baseTime.Add(14*time.Minute)), "期限前は遷移しない")
	assert.Equal(t, StatusHeld, b.Status)

	// 期限ちょうどで期限切れ
	assert.True(t, b.Expire(baseTime.Add(15*time.Minute)))
	assert.Equal(t, StatusExpired, b.Status)
	assert.Nil(t, b.ExpiresAt)

	assert.False(t, b.Expire(baseTime.Add(time.Hour)), "二度目は遷移しない")
}

func TestBooking_Confirm(t *testing.T) {
	t.Run("期限内なら確定できる", func(t *testing.T) {
		b := createHeldBooking(t)
		require.NoError(t, b.Confirm(baseTime.Add(5*time.Minute), "pay-1"))

		assert.Equal(t, StatusConfirmed, b.Status)
		assert.Nil(t, b.ExpiresAt)
		require.NotNil(t, b.PaymentID)
		assert.Equal(t, "pay-1", *b.PaymentID)
	})

	t.Run("期限切れなら失敗", func(t *testing.T) {
		b := createHeldBooking(t)
		err := b.Confirm(baseTime.Add(16*time.Minute), "pay-1")

		assert.ErrorIs(t, err, ErrReservationExpired)
		assert.Equal(t, StatusHeld, b.Status)
	})

	t.Run("掃除済みの期限切れも失敗", func(t *testing.T) {
		b := createHeldBooking(t)
		b.Expire(baseTime.Add(20 * time.Minute))

		assert.ErrorIs(t, b.Confirm(baseTime.Add(21*time.Minute), "pay-1"), ErrReservationExpired)
	})

	t.Run("確定済みは支払い不可", func(t *testing.T) {
		b := createHeldBooking(t)
		require.NoError(t, b.Confirm(baseTime.Add(time.Minute), "pay-1"))

		assert.ErrorIs(t, b.Confirm(baseTime.Add(2*time.Minute), "pay-2"), ErrNotPayable)
	})

	t.Run("キャンセル済みは支払い不可", func(t *testing.T) {
		b := createHeldBooking(t)
		b.Status = StatusCancelled
		b.ExpiresAt = nil

		assert.ErrorIs(t, b.Confirm(baseTime, "pay-1"), ErrNotPayable)
	})
}

func TestBooking_Cancel(t *testing.T) {
	t.Run("仮押さえをキャンセル", func(t *testing.T) {
		b := createHeldBooking(t)
		require.NoError(t, b.Cancel(baseTime.Add(time.Minute), nil))

		assert.Equal(t, StatusCancelled, b.Status)
		assert.Nil(t, b.ExpiresAt)
	})

	t.Run("開始後はキャンセル不可", func(t *testing.T) {
		b := NewIntervalBooking("res-1", "user-1", slot(10, 0, 11, 0))
		b.Place(Policy{}, baseTime)

		err := b.Cancel(time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC), nil)
		assert.ErrorIs(t, err, ErrAlreadyPast)
		assert.Equal(t, StatusConfirmed, b.Status)
	})

	t.Run("定員制はリソースの開始日時で判定", func(t *testing.T) {
		b := NewCapacityBooking("res-1", "user-1", 1)
		b.Place(Policy{}, baseTime)
		startsAt := baseTime.Add(time.Hour)

		assert.ErrorIs(t, b.Cancel(baseTime.Add(2*time.Hour), &startsAt), ErrAlreadyPast)
		assert.NoError(t, b.Cancel(baseTime.Add(30*time.Minute), &startsAt))
	})

	t.Run("承認待ちもキャンセルできる", func(t *testing.T) {
		b := NewCapacityBooking("res-1", "user-1", 1)
		b.Place(Policy{RequiresApproval: true}, baseTime)

		assert.NoError(t, b.Cancel(baseTime, nil))
	})

	t.Run("終了状態はキャンセル不可", func(t *testing.T) {
		for _, s := range []Status{StatusCancelled, StatusExpired, StatusRejected} {
			b := NewCapacityBooking("res-1", "user-1", 1)
			b.Status = s
			assert.ErrorIs(t, b.Cancel(baseTime, nil), ErrNotCancellable, string(s))
		}
	})

	t.Run("期限切れの仮押さえ", func(t *testing.T) {
		b := createHeldBooking(t)
		assert.ErrorIs(t, b.Cancel(baseTime.Add(time.Hour), nil), ErrReservationExpired)
	})
}

func TestBooking_ForceCancel(t *testing.T) {
	b := NewIntervalBooking("res-1", "user-1", slot(10, 0, 11, 0))
	b.Place(Policy{}, baseTime)

	// 開始後でもキャンセルできる
	b.ForceCancel(time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, StatusCancelled, b.Status)
}

func TestBooking_ApproveReject(t *testing.T) {
	newRequested := func() *Booking {
		b := NewCapacityBooking("res-1", "user-1", 1)
		b.Place(Policy{RequiresApproval: true}, baseTime)
		return b
	}

	t.Run("有料なら承認で仮押さえ", func(t *testing.T) {
		b := newRequested()
		worker := "worker-1"
		require.NoError(t, b.Approve(paidPolicy, baseTime, &worker))

		assert.Equal(t, StatusHeld, b.Status)
		assert.NotNil(t, b.ExpiresAt)
		assert.Equal(t, "worker-1", *b.AssigneeID)
	})

	t.Run("無料なら承認で確定", func(t *testing.T) {
		b := newRequested()
		require.NoError(t, b.Approve(Policy{}, baseTime, nil))

		assert.Equal(t, StatusConfirmed, b.Status)
		assert.Nil(t, b.AssigneeID)
	})

	t.Run("却下", func(t *testing.T) {
		b := newRequested()
		require.NoError(t, b.Reject(baseTime))
		assert.Equal(t, StatusRejected, b.Status)
		assert.True(t, b.IsTerminal())

		assert.ErrorIs(t, b.Approve(Policy{}, baseTime, nil), ErrNotRequested)
		assert.ErrorIs(t, b.Reject(baseTime), ErrNotRequested)
	})
}

func TestBooking_HeldAlwaysCarriesExpiry(t *testing.T) {
	b := createHeldBooking(t)
	check := func() {
		if b.Status == StatusHeld {
			assert.NotNil(t, b.ExpiresAt)
		} else {
			assert.Nil(t, b.ExpiresAt)
		}
	}

	check()
	require.NoError(t, b.Confirm(baseTime.Add(time.Minute), "pay-1"))
	check()
	require.NoError(t, b.Cancel(baseTime.Add(2*time.Minute), nil))
	check()
}
