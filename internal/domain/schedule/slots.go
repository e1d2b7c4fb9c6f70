package schedule

import (
	"iter"
	"time"
)

// Slots は date の営業時間 [opens, closes) を length ごとに区切った枠を順に返す
//
// date は年月日のみを使用し、時刻は loc で解釈する。closes を超える末尾の端数は
// 含めない。closes <= opens または length <= 0 の場合は空のシーケンスになる。
// 返すシーケンスは何度でも最初から走査できる。
func Slots(opens, closes ClockTime, length time.Duration, date time.Time, loc *time.Location) iter.Seq[Interval] {
	return func(yield func(Interval) bool) {
		if closes <= opens || length <= 0 {
			return
		}
		if loc == nil {
			loc = time.UTC
		}
		end := closes.On(date, loc)
		for cur := opens.On(date, loc); ; {
			next := cur.Add(length)
			if next.After(end) {
				return
			}
			if !yield(Interval{Start: cur, End: next}) {
				return
			}
			cur = next
		}
	}
}
