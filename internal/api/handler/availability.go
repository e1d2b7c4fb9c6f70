package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type AvailabilityHandler struct {
	availabilityService AvailabilityServiceInterface
}

func NewAvailabilityHandler(availabilityService AvailabilityServiceInterface) *AvailabilityHandler {
	return &AvailabilityHandler{availabilityService: availabilityService}
}

type SlotResponse struct {
	StartAt   string `json:"start_at" example:"2026-10-16T09:00:00+09:00"`
	EndAt     string `json:"end_at" example:"2026-10-16T10:00:00+09:00"`
	Available bool   `json:"available"`
}

type AvailabilityResponse struct {
	ResourceID string         `json:"resource_id"`
	Date       string         `json:"date" example:"2026-10-16"`
	Slots      []SlotResponse `json:"slots"`
}

type CapacityResponse struct {
	ResourceID string `json:"resource_id"`
	Capacity   int    `json:"capacity" example:"50"`
	Taken      int    `json:"taken" example:"12"`
	Remaining  int    `json:"remaining" example:"38"`
}

// Slots godoc
// @Summary 日付ごとの空き枠を取得
// @Description 時間枠制リソースの営業時間を枠に区切り、予約済みかを返します。期限切れの仮押さえは空きとして扱います
// @Tags availability
// @Produce json
// @Param id path string true "リソースID"
// @Param date query string true "日付 (YYYY-MM-DD)"
// @Success 200 {object} AvailabilityResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /resources/{id}/availability [get]
func (h *AvailabilityHandler) Slots(c echo.Context) error {
	date, err := time.Parse(time.DateOnly, c.QueryParam("date"))
	if err != nil {
		return badRequest("date は YYYY-MM-DD 形式で指定してください", err)
	}

	avail, err := h.availabilityService.ListAvailability(c.Request().Context(), c.Param("id"), date)
	if err != nil {
		return toHTTPError(err)
	}

	slots := make([]SlotResponse, len(avail.Slots))
	for i, s := range avail.Slots {
		slots[i] = SlotResponse{
			StartAt:   s.Interval.Start.Format(time.RFC3339),
			EndAt:     s.Interval.End.Format(time.RFC3339),
			Available: !s.Booked,
		}
	}
	return c.JSON(http.StatusOK, AvailabilityResponse{
		ResourceID: avail.Resource.ID,
		Date:       date.Format(time.DateOnly),
		Slots:      slots,
	})
}

// Capacity godoc
// @Summary 定員制リソースの残り枠を取得
// @Tags availability
// @Produce json
// @Param id path string true "リソースID"
// @Success 200 {object} CapacityResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 422 {object} api.ErrorResponse
// @Router /resources/{id}/capacity [get]
func (h *AvailabilityHandler) Capacity(c echo.Context) error {
	status, err := h.availabilityService.GetCapacityStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, CapacityResponse{
		ResourceID: status.ResourceID,
		Capacity:   status.Capacity,
		Taken:      status.Taken,
		Remaining:  status.Remaining,
	})
}
