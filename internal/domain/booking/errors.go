package booking

import "errors"

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound      = errors.New("予約が見つかりません")
	ErrConflict             = errors.New("指定の時間帯は既に予約されています")
	ErrCapacityExceeded     = errors.New("定員に達しています")
	ErrAlreadyBooked        = errors.New("このリソースには既に有効な予約があります")
	ErrNotPayable           = errors.New("この予約は支払いできる状態ではありません")
	ErrReservationExpired   = errors.New("仮押さえの有効期限が切れています。最初から予約し直してください")
	ErrAlreadyPast          = errors.New("開始時刻を過ぎた予約は操作できません")
	ErrNotCancellable       = errors.New("この予約はキャンセルできる状態ではありません")
	ErrNotRequested         = errors.New("この予約は承認待ちではありません")
	ErrResourceBusy         = errors.New("他のユーザーが処理中です。しばらくしてから再試行してください")
	ErrResourceIDRequired   = errors.New("リソースIDは必須です")
	ErrRequesterIDRequired  = errors.New("予約者IDは必須です")
	ErrInvalidQuantity      = errors.New("人数は1以上である必要があります")
	ErrIntervalRequired     = errors.New("時間枠制のリソースには開始・終了時刻が必要です")
	ErrIntervalNotAllowed   = errors.New("定員制のリソースには開始・終了時刻を指定できません")
	ErrIdempotencyKeyExists = errors.New("同じ冪等性キーの予約が既に存在します")
)
