package resource

import "errors"

// Resource ドメインのエラー定義
var (
	ErrResourceNotFound         = errors.New("リソースが見つかりません")
	ErrResourceInactive         = errors.New("リソースは現在予約を受け付けていません")
	ErrNameRequired             = errors.New("リソース名は必須です")
	ErrInvalidKind              = errors.New("リソース種別が不正です")
	ErrInvalidCategory          = errors.New("リソース区分が不正です")
	ErrInvalidOperatingWindow   = errors.New("閉店時刻は開店時刻より後である必要があります")
	ErrInvalidSlotLength        = errors.New("枠の長さは1分以上である必要があります")
	ErrInvalidCapacity          = errors.New("定員は1以上である必要があります")
	ErrInvalidFee               = errors.New("料金は0以上である必要があります")
	ErrFeeRequired              = errors.New("支払いが必要なリソースには料金の設定が必要です")
	ErrApprovalRequiresCapacity = errors.New("承認制は定員制リソースでのみ使用できます")
	ErrInvalidLocation          = errors.New("タイムゾーンが不正です")
	ErrIntervalOutsideWindow    = errors.New("予約時間が営業時間外です")
	ErrNotIntervalResource      = errors.New("時間枠制のリソースではありません")
	ErrNotCapacityResource      = errors.New("定員制のリソースではありません")
)
