package refund

import (
	"errors"
	"strings"
	"time"

	"github.com/sanosuguru/go-community-reservation/internal/domain/payment"
)

// Status は返金申請の状態
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// ParseStatus は一覧の絞り込み用に状態を検証する。空文字は全件を表す
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(s))
	switch st {
	case "", StatusPending, StatusCompleted, StatusRejected:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// Decision は管理者の審査結果
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Request は返金申請エンティティを表す
type Request struct {
	ID          string
	PaymentID   string
	RequesterID string
	// 全額返金のみ扱うため支払い金額と同じ
	Amount    int64
	Reason    string
	Status    Status
	DecidedBy *string
	DecidedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Open は支払いに対する返金申請を作成し、支払いを REQUESTED にする
// 支払いの返金状態が NONE 以外の場合は ErrDuplicateRequest
func Open(p *payment.Payment, requesterID, reason string, now time.Time) (*Request, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	if err := p.MarkRefundRequested(now); err != nil {
		if errors.Is(err, payment.ErrInvalidTransition) {
			return nil, ErrDuplicateRequest
		}
		return nil, err
	}
	return &Request{
		PaymentID:   p.ID,
		RequesterID: requesterID,
		Amount:      p.Amount,
		Reason:      reason,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Resolve は審査結果を申請と支払いに反映する
// 予約のキャンセルは呼び出し側が同じトランザクションで行う
func (r *Request) Resolve(p *payment.Payment, decision Decision, adminID string, now time.Time) error {
	if r.Status != StatusPending {
		return ErrNotPending
	}
	if p.ID != r.PaymentID {
		return payment.ErrPaymentNotFound
	}

	var err error
	switch decision {
	case DecisionApprove:
		err = p.MarkRefunded(now)
		r.Status = StatusCompleted
	case DecisionReject:
		err = p.ClearRefundRequest(now)
		r.Status = StatusRejected
	default:
		return ErrInvalidDecision
	}
	if err != nil {
		r.Status = StatusPending
		return err
	}

	r.DecidedBy = &adminID
	r.DecidedAt = &now
	r.UpdatedAt = now
	return nil
}

func (r *Request) IsPending() bool {
	return r.Status == StatusPending
}
