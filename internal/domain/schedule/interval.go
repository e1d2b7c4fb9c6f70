package schedule

import (
	"errors"
	"time"
)

// ErrInvalidInterval は終了が開始以前の区間のエラー
var ErrInvalidInterval = errors.New("終了時刻は開始時刻より後である必要があります")

// Interval は半開区間 [Start, End)
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewInterval は区間を作成する
func NewInterval(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, ErrInvalidInterval
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps は二つの区間が重なるかを返す。境界が一致するだけの区間は重ならない
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && i.End.After(o.Start)
}

// Contains は o が i に収まるかを返す
func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}
