package payment

import "errors"

// Payment ドメインのエラー定義
var (
	ErrPaymentNotFound   = errors.New("支払いが見つかりません")
	ErrAlreadyPaid       = errors.New("この予約には既に有効な支払いがあります")
	ErrInvalidMethod     = errors.New("支払い方法が不正です")
	ErrInvalidAmount     = errors.New("支払い金額は1以上である必要があります")
	ErrDeclined          = errors.New("決済が承認されませんでした")
	ErrInvalidTransition = errors.New("返金状態を変更できません")
)
