package payment

import "context"

// ChargeRequest は決済代行への請求内容
type ChargeRequest struct {
	BookingID string
	PayerID   string
	Amount    int64
	Method    Method
	// Reference は台帳側で採番した取引番号。代行側の冪等キーとして渡す
	Reference string
}

// Gateway は与信・売上確定を行う決済代行
// 失敗時は ErrDeclined を含むエラーを返す
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) error
}
