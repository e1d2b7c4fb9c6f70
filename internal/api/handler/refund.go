package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-community-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-community-reservation/internal/domain/refund"
)

type RefundHandler struct {
	refundService RefundServiceInterface
}

func NewRefundHandler(refundService RefundServiceInterface) *RefundHandler {
	return &RefundHandler{refundService: refundService}
}

type RefundResponse struct {
	ID          string  `json:"id"`
	PaymentID   string  `json:"payment_id"`
	RequesterID string  `json:"requester_id" example:"user-123"`
	Amount      int64   `json:"amount" example:"500"`
	Reason      string  `json:"reason"`
	Status      string  `json:"status" example:"pending"`
	DecidedBy   *string `json:"decided_by,omitempty"`
	DecidedAt   *string `json:"decided_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func toRefundResponse(r *refund.Request) *RefundResponse {
	return &RefundResponse{
		ID:          r.ID,
		PaymentID:   r.PaymentID,
		RequesterID: r.RequesterID,
		Amount:      r.Amount,
		Reason:      r.Reason,
		Status:      string(r.Status),
		DecidedBy:   r.DecidedBy,
		DecidedAt:   formatTime(r.DecidedAt),
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}

// GetByID godoc
// @Summary 返金申請を取得
// @Tags refunds
// @Produce json
// @Param id path string true "返金申請ID"
// @Success 200 {object} RefundResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /refunds/{id} [get]
func (h *RefundHandler) GetByID(c echo.Context) error {
	r, err := h.refundService.GetRefund(c.Request().Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toRefundResponse(r))
}

// List godoc
// @Summary 返金申請一覧を取得（管理者のみ）
// @Tags refunds
// @Produce json
// @Param status query string false "pending / completed / rejected"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} RefundResponse
// @Router /refunds [get]
func (h *RefundHandler) List(c echo.Context) error {
	status, err := refund.ParseStatus(c.QueryParam("status"))
	if err != nil {
		return toHTTPError(err)
	}
	limit, offset := pagination(c)

	rs, err := h.refundService.ListRefunds(c.Request().Context(), middleware.ActorFrom(c), status, limit, offset)
	if err != nil {
		return toHTTPError(err)
	}
	resp := make([]*RefundResponse, len(rs))
	for i, r := range rs {
		resp[i] = toRefundResponse(r)
	}
	return c.JSON(http.StatusOK, resp)
}

// Approve godoc
// @Summary 返金申請を承認（管理者のみ）
// @Description 支払いを返金済みにし、予約をキャンセルして枠を解放します
// @Tags refunds
// @Produce json
// @Param id path string true "返金申請ID"
// @Success 200 {object} RefundResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /refunds/{id}/approve [post]
func (h *RefundHandler) Approve(c echo.Context) error {
	return h.resolve(c, refund.DecisionApprove)
}

// Reject godoc
// @Summary 返金申請を却下（管理者のみ）
// @Tags refunds
// @Produce json
// @Param id path string true "返金申請ID"
// @Success 200 {object} RefundResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /refunds/{id}/reject [post]
func (h *RefundHandler) Reject(c echo.Context) error {
	return h.resolve(c, refund.DecisionReject)
}

func (h *RefundHandler) resolve(c echo.Context, decision refund.Decision) error {
	r, err := h.refundService.ResolveRefund(c.Request().Context(), middleware.ActorFrom(c), c.Param("id"), decision)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toRefundResponse(r))
}
