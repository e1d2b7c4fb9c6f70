package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-community-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-community-reservation/internal/application"
	"github.com/sanosuguru/go-community-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-community-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-community-reservation/internal/domain/schedule"
)

type BookingHandler struct {
	bookingService BookingServiceInterface
}

func NewBookingHandler(bookingService BookingServiceInterface) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// CreateBookingRequest は予約作成のリクエスト
// 時間枠制では start_at / end_at、定員制では quantity を指定する
type CreateBookingRequest struct {
	StartAt        *time.Time `json:"start_at" example:"2026-10-16T10:00:00+09:00"`
	EndAt          *time.Time `json:"end_at" example:"2026-10-16T11:00:00+09:00"`
	Quantity       int        `json:"quantity" validate:"omitempty,gte=1,lte=100" example:"2"`
	IdempotencyKey string     `json:"idempotency_key" validate:"max=255" example:"order-2026-001"`
	Note           string     `json:"note" validate:"max=1000"`
}

type PayBookingRequest struct {
	Method string `json:"method" validate:"required" example:"MOCK_CARD"`
}

type ApproveBookingRequest struct {
	AssigneeID string `json:"assignee_id" validate:"max=255" example:"worker-42"`
}

type BookingResponse struct {
	ID          string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	ResourceID  string  `json:"resource_id"`
	RequesterID string  `json:"requester_id" example:"user-123"`
	StartAt     *string `json:"start_at,omitempty"`
	EndAt       *string `json:"end_at,omitempty"`
	Quantity    int     `json:"quantity" example:"1"`
	Status      string  `json:"status" example:"held"`
	ExpiresAt   *string `json:"expires_at,omitempty"`
	PaymentID   *string `json:"payment_id,omitempty"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
	Note        string  `json:"note,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toBookingResponse(b *booking.Booking) *BookingResponse {
	resp := &BookingResponse{
		ID:          b.ID,
		ResourceID:  b.ResourceID,
		RequesterID: b.RequesterID,
		Quantity:    b.Quantity,
		Status:      string(b.Status),
		ExpiresAt:   formatTime(b.ExpiresAt),
		PaymentID:   b.PaymentID,
		AssigneeID:  b.AssigneeID,
		Note:        b.Note,
		CreatedAt:   b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   b.UpdatedAt.Format(time.RFC3339),
	}
	if b.Interval != nil {
		resp.StartAt = formatTime(&b.Interval.Start)
		resp.EndAt = formatTime(&b.Interval.End)
	}
	return resp
}

func toBookingResponses(bs []*booking.Booking) []*BookingResponse {
	resp := make([]*BookingResponse, len(bs))
	for i, b := range bs {
		resp[i] = toBookingResponse(b)
	}
	return resp
}

type PayBookingResponse struct {
	Booking *BookingResponse `json:"booking"`
	Payment *PaymentResponse `json:"payment"`
}

// Create godoc
// @Summary 予約を作成
// @Description 有料リソースは仮押さえ（既定15分）、無料リソースは即時確定、承認制は承認待ちになります
// @Tags bookings
// @Accept json
// @Produce json
// @Param id path string true "リソースID"
// @Param Idempotency-Key header string false "冪等性キー"
// @Param request body CreateBookingRequest true "予約情報"
// @Success 201 {object} BookingResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "時間帯の重複・定員超過・処理中"
// @Failure 422 {object} api.ErrorResponse "営業時間外・開始済み"
// @Router /resources/{id}/bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("リクエストの形式が不正です", err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	input := application.CreateBookingInput{
		ResourceID:     c.Param("id"),
		Actor:          middleware.ActorFrom(c),
		Quantity:       req.Quantity,
		IdempotencyKey: req.IdempotencyKey,
		Note:           req.Note,
	}
	if key := strings.TrimSpace(c.Request().Header.Get(middleware.HeaderIdempotencyKey)); key != "" {
		input.IdempotencyKey = key
	}
	switch {
	case req.StartAt != nil && req.EndAt != nil:
		input.Interval = &schedule.Interval{Start: *req.StartAt, End: *req.EndAt}
	case req.StartAt != nil || req.EndAt != nil:
		return badRequest("start_at と end_at は両方指定してください", nil)
	}

	b, err := h.bookingService.CreateBooking(c.Request().Context(), input)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, toBookingResponse(b))
}

// GetByID godoc
// @Summary 予約を取得
// @Description 期限を過ぎた仮押さえは expired として返します
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetByID(c echo.Context) error {
	b, err := h.bookingService.GetBooking(c.Request().Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// ListMine godoc
// @Summary 自分の予約一覧を取得
// @Tags bookings
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} BookingResponse
// @Router /bookings [get]
func (h *BookingHandler) ListMine(c echo.Context) error {
	limit, offset := pagination(c)
	bs, err := h.bookingService.ListMyBookings(c.Request().Context(), middleware.ActorFrom(c), limit, offset)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toBookingResponses(bs))
}

// ListByResource godoc
// @Summary リソースの予約一覧を取得（管理者のみ）
// @Tags bookings
// @Produce json
// @Param id path string true "リソースID"
// @Success 200 {array} BookingResponse
// @Router /resources/{id}/bookings [get]
func (h *BookingHandler) ListByResource(c echo.Context) error {
	limit, offset := pagination(c)
	bs, err := h.bookingService.ListResourceBookings(c.Request().Context(), middleware.ActorFrom(c), c.Param("id"), limit, offset)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toBookingResponses(bs))
}

// Pay godoc
// @Summary 仮押さえ中の予約を支払う
// @Description 支払いを記録して予約を確定します。期限切れの場合は 410 を返します
// @Tags bookings
// @Accept json
// @Produce json
// @Param id path string true "予約ID"
// @Param request body PayBookingRequest true "支払い方法"
// @Success 200 {object} PayBookingResponse
// @Failure 402 {object} api.ErrorResponse "決済拒否"
// @Failure 409 {object} api.ErrorResponse "支払い不可の状態"
// @Failure 410 {object} api.ErrorResponse "仮押さえの期限切れ"
// @Router /bookings/{id}/pay [post]
func (h *BookingHandler) Pay(c echo.Context) error {
	var req PayBookingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("リクエストの形式が不正です", err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	method, err := payment.ParseMethod(req.Method)
	if err != nil {
		return toHTTPError(err)
	}

	result, err := h.bookingService.PayBooking(c.Request().Context(), middleware.ActorFrom(c), c.Param("id"), method)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, PayBookingResponse{
		Booking: toBookingResponse(result.Booking),
		Payment: toPaymentResponse(result.Payment),
	})
}

// Cancel godoc
// @Summary 予約をキャンセル
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 409 {object} api.ErrorResponse
// @Failure 410 {object} api.ErrorResponse
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c echo.Context) error {
	b, err := h.bookingService.CancelBooking(c.Request().Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// Approve godoc
// @Summary 承認待ちの予約を承認（管理者のみ）
// @Tags bookings
// @Accept json
// @Produce json
// @Param id path string true "予約ID"
// @Param request body ApproveBookingRequest false "担当者"
// @Success 200 {object} BookingResponse
// @Router /bookings/{id}/approve [post]
func (h *BookingHandler) Approve(c echo.Context) error {
	var req ApproveBookingRequest
	if err := c.Bind(&req); err != nil && !errors.Is(err, echo.ErrUnsupportedMediaType) {
		return badRequest("リクエストの形式が不正です", err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	b, err := h.bookingService.ApproveBooking(c.Request().Context(), middleware.ActorFrom(c), c.Param("id"), req.AssigneeID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// Reject godoc
// @Summary 承認待ちの予約を却下（管理者のみ）
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Router /bookings/{id}/reject [post]
func (h *BookingHandler) Reject(c echo.Context) error {
	b, err := h.bookingService.RejectBooking(c.Request().Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}
