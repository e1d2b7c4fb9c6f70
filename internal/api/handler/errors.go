package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-community-reservation/internal/domain/actor"
	"github.com/sanosuguru/go-community-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-community-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-community-reservation/internal/domain/refund"
	"github.com/sanosuguru/go-community-reservation/internal/domain/resource"
	"github.com/sanosuguru/go-community-reservation/internal/domain/schedule"
)

// statusByError はドメインエラーとHTTPステータスの対応
// 先に一致したものを使う
var statusByError = []struct {
	err  error
	code int
}{
	{actor.ErrActorRequired, http.StatusUnauthorized},
	{actor.ErrNotAuthorized, http.StatusForbidden},

	{resource.ErrResourceNotFound, http.StatusNotFound},
	{booking.ErrBookingNotFound, http.StatusNotFound},
	{payment.ErrPaymentNotFound, http.StatusNotFound},
	{refund.ErrRefundNotFound, http.StatusNotFound},

	{booking.ErrReservationExpired, http.StatusGone},
	{payment.ErrDeclined, http.StatusPaymentRequired},

	{booking.ErrConflict, http.StatusConflict},
	{booking.ErrCapacityExceeded, http.StatusConflict},
	{booking.ErrAlreadyBooked, http.StatusConflict},
	{booking.ErrResourceBusy, http.StatusConflict},
	{booking.ErrIdempotencyKeyExists, http.StatusConflict},
	{booking.ErrNotPayable, http.StatusConflict},
	{booking.ErrNotCancellable, http.StatusConflict},
	{booking.ErrNotRequested, http.StatusConflict},
	{payment.ErrAlreadyPaid, http.StatusConflict},
	{payment.ErrInvalidTransition, http.StatusConflict},
	{refund.ErrDuplicateRequest, http.StatusConflict},
	{refund.ErrNotPending, http.StatusConflict},
	{resource.ErrResourceInactive, http.StatusConflict},

	{booking.ErrAlreadyPast, http.StatusUnprocessableEntity},
	{resource.ErrIntervalOutsideWindow, http.StatusUnprocessableEntity},
	{booking.ErrIntervalRequired, http.StatusUnprocessableEntity},
	{booking.ErrIntervalNotAllowed, http.StatusUnprocessableEntity},
	{resource.ErrNotIntervalResource, http.StatusUnprocessableEntity},
	{resource.ErrNotCapacityResource, http.StatusUnprocessableEntity},

	{booking.ErrInvalidQuantity, http.StatusBadRequest},
	{booking.ErrResourceIDRequired, http.StatusBadRequest},
	{booking.ErrRequesterIDRequired, http.StatusBadRequest},
	{payment.ErrInvalidMethod, http.StatusBadRequest},
	{payment.ErrInvalidAmount, http.StatusBadRequest},
	{refund.ErrReasonRequired, http.StatusBadRequest},
	{refund.ErrInvalidDecision, http.StatusBadRequest},
	{refund.ErrInvalidStatus, http.StatusBadRequest},
	{resource.ErrNameRequired, http.StatusBadRequest},
	{resource.ErrInvalidKind, http.StatusBadRequest},
	{resource.ErrInvalidCategory, http.StatusBadRequest},
	{resource.ErrInvalidOperatingWindow, http.StatusBadRequest},
	{resource.ErrInvalidSlotLength, http.StatusBadRequest},
	{resource.ErrInvalidCapacity, http.StatusBadRequest},
	{resource.ErrInvalidFee, http.StatusBadRequest},
	{resource.ErrFeeRequired, http.StatusBadRequest},
	{resource.ErrApprovalRequiresCapacity, http.StatusBadRequest},
	{resource.ErrInvalidLocation, http.StatusBadRequest},
	{schedule.ErrInvalidClockTime, http.StatusBadRequest},
	{schedule.ErrInvalidInterval, http.StatusBadRequest},
}

// toHTTPError はサービスのエラーを echo.HTTPError に変換する
// 対応の無いエラーは内部エラーとして扱い、メッセージを外に出さない
func toHTTPError(err error) error {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return echo.NewHTTPError(m.code, m.err.Error()).SetInternal(err)
		}
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "内部サーバーエラー").SetInternal(err)
}

func badRequest(message string, err error) error {
	he := echo.NewHTTPError(http.StatusBadRequest, message)
	if err != nil {
		he.Internal = err
	}
	return he
}

// pagination は limit / offset を読み取る。不正な値は 0 として扱い、サービス側の既定値に任せる
func pagination(c echo.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	offset, _ = strconv.Atoi(c.QueryParam("offset"))
	return limit, offset
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
