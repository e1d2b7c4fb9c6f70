package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-community-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-community-reservation/internal/domain/payment"
)

type PaymentHandler struct {
	paymentService PaymentServiceInterface
	refundService  RefundServiceInterface
}

func NewPaymentHandler(paymentService PaymentServiceInterface, refundService RefundServiceInterface) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, refundService: refundService}
}

// PaymentResponse は支払いの領収情報
type PaymentResponse struct {
	ID             string `json:"id"`
	BookingID      string `json:"booking_id"`
	PayerID        string `json:"payer_id" example:"user-123"`
	Amount         int64  `json:"amount" example:"500"`
	Method         string `json:"method" example:"MOCK_CARD"`
	TransactionRef string `json:"transaction_ref" example:"FAC-9F86D081884C7D659A2FEAA0C55AD015"`
	RefundStatus   string `json:"refund_status" example:"none"`
	PaidAt         string `json:"paid_at"`
}

func toPaymentResponse(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:             p.ID,
		BookingID:      p.BookingID,
		PayerID:        p.PayerID,
		Amount:         p.Amount,
		Method:         string(p.Method),
		TransactionRef: p.TransactionRef,
		RefundStatus:   string(p.RefundStatus),
		PaidAt:         p.PaidAt.Format(time.RFC3339),
	}
}

type RequestRefundRequest struct {
	Reason string `json:"reason" validate:"required,max=1000" example:"雨天のため利用できなかった"`
}

// GetByID godoc
// @Summary 領収情報を取得
// @Tags payments
// @Produce json
// @Param id path string true "支払いID"
// @Success 200 {object} PaymentResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /payments/{id} [get]
func (h *PaymentHandler) GetByID(c echo.Context) error {
	p, err := h.paymentService.GetPayment(c.Request().Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toPaymentResponse(p))
}

// List godoc
// @Summary 支払い一覧を取得
// @Description 自分の支払いを返します。管理者は全件を返します
// @Tags payments
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} PaymentResponse
// @Router /payments [get]
func (h *PaymentHandler) List(c echo.Context) error {
	limit, offset := pagination(c)
	ps, err := h.paymentService.ListPayments(c.Request().Context(), middleware.ActorFrom(c), limit, offset)
	if err != nil {
		return toHTTPError(err)
	}
	resp := make([]*PaymentResponse, len(ps))
	for i, p := range ps {
		resp[i] = toPaymentResponse(p)
	}
	return c.JSON(http.StatusOK, resp)
}

// RequestRefund godoc
// @Summary 返金を申請
// @Tags payments
// @Accept json
// @Produce json
// @Param id path string true "支払いID"
// @Param request body RequestRefundRequest true "返金理由"
// @Success 201 {object} RefundResponse
// @Failure 409 {object} api.ErrorResponse "申請済み・返金済み"
// @Router /payments/{id}/refunds [post]
func (h *PaymentHandler) RequestRefund(c echo.Context) error {
	var req RequestRefundRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("リクエストの形式が不正です", err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	r, err := h.refundService.RequestRefund(c.Request().Context(), middleware.ActorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, toRefundResponse(r))
}
