package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Method は支払い方法
type Method string

const (
	MethodMockCard     Method = "MOCK_CARD"
	MethodMockUPI      Method = "MOCK_UPI"
	MethodCash         Method = "CASH"
	MethodBankTransfer Method = "BANK_TRANSFER"
)

// Methods は受け付ける支払い方法
var Methods = []Method{MethodMockCard, MethodMockUPI, MethodCash, MethodBankTransfer}

// ParseMethod は支払い方法を検証する。大文字小文字は区別しない
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, allowed := range Methods {
		if m == allowed {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMethod, s)
}

// RefundStatus は支払いの返金状態
type RefundStatus string

const (
	RefundNone      RefundStatus = "none"
	RefundRequested RefundStatus = "requested"
	RefundRefunded  RefundStatus = "refunded"
)

// Payment は支払いエンティティを表す
// 支払い済みの予約1件につき1件だけ作成される
type Payment struct {
	ID             string
	BookingID      string
	PayerID        string
	Amount         int64
	Method         Method
	TransactionRef string
	RefundStatus   RefundStatus
	PaidAt         time.Time
	UpdatedAt      time.Time
}

// NewPayment は新しい支払いを作成する
func NewPayment(bookingID, payerID string, amount int64, method Method, ref string, now time.Time) *Payment {
	return &Payment{
		BookingID:      bookingID,
		PayerID:        payerID,
		Amount:         amount,
		Method:         method,
		TransactionRef: ref,
		RefundStatus:   RefundNone,
		PaidAt:         now,
		UpdatedAt:      now,
	}
}

// NewTransactionRef は "<PREFIX>-<32桁の16進>" 形式の取引番号を生成する
func NewTransactionRef(prefix string) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return prefix + "-" + id
}

// IsActive は返金済みでないかを返す
func (p *Payment) IsActive() bool {
	return p.RefundStatus != RefundRefunded
}

// MarkRefundRequested は NONE → REQUESTED
func (p *Payment) MarkRefundRequested(now time.Time) error {
	return p.transition(RefundNone, RefundRequested, now)
}

// MarkRefunded は REQUESTED → REFUNDED
func (p *Payment) MarkRefunded(now time.Time) error {
	return p.transition(RefundRequested, RefundRefunded, now)
}

// ClearRefundRequest は REQUESTED → NONE（返金却下時）
func (p *Payment) ClearRefundRequest(now time.Time) error {
	return p.transition(RefundRequested, RefundNone, now)
}

func (p *Payment) transition(from, to RefundStatus, now time.Time) error {
	if p.RefundStatus != from {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, p.RefundStatus, to)
	}
	p.RefundStatus = to
	p.UpdatedAt = now
	return nil
}

// Validate は支払いの検証を行う
func (p *Payment) Validate() error {
	if p.Amount <= 0 {
		return ErrInvalidAmount
	}
	if _, err := ParseMethod(string(p.Method)); err != nil {
		return err
	}
	return nil
}
