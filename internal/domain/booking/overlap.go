package booking

import (
	"time"

	"github.com/sanosuguru/go-community-reservation/internal/domain/schedule"
)

// FindConflict は candidate と重なる有効な予約を返す。無ければ nil
// 期限切れの仮押さえ・キャンセル・却下済みの予約は対象外
func FindConflict(candidate schedule.Interval, existing []*Booking, now time.Time) *Booking {
	for _, b := range existing {
		if b.Interval == nil || !b.Blocks(now) {
			continue
		}
		if candidate.Overlaps(*b.Interval) {
			return b
		}
	}
	return nil
}

// SeatsTaken は有効な予約が占有している人数を返す
func SeatsTaken(existing []*Booking, now time.Time) int {
	var n int
	for _, b := range existing {
		if b.Blocks(now) {
			n += b.Quantity
		}
	}
	return n
}

// HasActiveFor は requesterID の有効な予約があるかを返す
func HasActiveFor(requesterID string, existing []*Booking, now time.Time) bool {
	for _, b := range existing {
		if b.RequesterID == requesterID && b.Blocks(now) {
			return true
		}
	}
	return false
}

// SlotAvailability は予約枠とその空き状況
type SlotAvailability struct {
	Interval schedule.Interval
	Booked   bool
}

// MarkSlots は各枠に有効な予約が重なっているかを判定する
func MarkSlots(slots []schedule.Interval, existing []*Booking, now time.Time) []SlotAvailability {
	out := make([]SlotAvailability, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotAvailability{
			Interval: s,
			Booked:   FindConflict(s, existing, now) != nil,
		})
	}
	return out
}
