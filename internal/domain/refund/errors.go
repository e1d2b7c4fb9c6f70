package refund

import "errors"

// Refund ドメインのエラー定義
var (
	ErrRefundNotFound   = errors.New("返金申請が見つかりません")
	ErrDuplicateRequest = errors.New("この支払いには既に返金申請があるか、返金済みです")
	ErrNotPending       = errors.New("返金申請は審査待ちではありません")
	ErrReasonRequired   = errors.New("返金理由は必須です")
	ErrInvalidDecision  = errors.New("審査結果が不正です")
	ErrInvalidStatus    = errors.New("返金申請の状態が不正です")
)
