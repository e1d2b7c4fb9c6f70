package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-community-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-community-reservation/internal/application"
	"github.com/sanosuguru/go-community-reservation/internal/domain/resource"
)

type ResourceHandler struct {
	resourceService ResourceServiceInterface
}

func NewResourceHandler(resourceService ResourceServiceInterface) *ResourceHandler {
	return &ResourceHandler{resourceService: resourceService}
}

type ResourceRequest struct {
	Name        string `json:"name" validate:"required,max=255" example:"市民テニスコートA"`
	Description string `json:"description" example:"夜間照明あり"`
	Category    string `json:"category" validate:"required,oneof=facility event worker_service" example:"facility"`
	Kind        string `json:"kind" validate:"required,oneof=interval capacity" example:"interval"`

	OpenTime    string `json:"open_time" validate:"omitempty,hhmm" example:"09:00"`
	CloseTime   string `json:"close_time" validate:"omitempty,hhmm" example:"18:00"`
	SlotMinutes int    `json:"slot_minutes" validate:"omitempty,gt=0" example:"60"`
	Location    string `json:"location" example:"Asia/Tokyo"`

	Capacity int        `json:"capacity" validate:"omitempty,gt=0" example:"50"`
	StartsAt *time.Time `json:"starts_at" example:"2026-11-03T10:00:00+09:00"`

	Fee              *int64 `json:"fee" validate:"omitempty,gte=0" example:"500"`
	PaymentRequired  *bool  `json:"payment_required"`
	ApprovalRequired bool   `json:"approval_required"`
}

func (r ResourceRequest) toInput() application.ResourceInput {
	return application.ResourceInput{
		Name:             r.Name,
		Description:      r.Description,
		Category:         resource.Category(r.Category),
		Kind:             resource.Kind(r.Kind),
		OpenTime:         r.OpenTime,
		CloseTime:        r.CloseTime,
		SlotMinutes:      r.SlotMinutes,
		Location:         r.Location,
		Capacity:         r.Capacity,
		StartsAt:         r.StartsAt,
		Fee:              r.Fee,
		PaymentRequired:  r.PaymentRequired,
		ApprovalRequired: r.ApprovalRequired,
	}
}

type ResourceResponse struct {
	ID               string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name             string  `json:"name" example:"市民テニスコートA"`
	Description      string  `json:"description"`
	Category         string  `json:"category" example:"facility"`
	Kind             string  `json:"kind" example:"interval"`
	OpenTime         string  `json:"open_time,omitempty" example:"09:00"`
	CloseTime        string  `json:"close_time,omitempty" example:"18:00"`
	SlotMinutes      int     `json:"slot_minutes,omitempty" example:"60"`
	Location         string  `json:"location" example:"Asia/Tokyo"`
	Capacity         int     `json:"capacity,omitempty" example:"50"`
	StartsAt         *string `json:"starts_at,omitempty"`
	Fee              *int64  `json:"fee,omitempty" example:"500"`
	PaymentRequired  bool    `json:"payment_required"`
	ApprovalRequired bool    `json:"approval_required"`
	Active           bool    `json:"active"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

func toResourceResponse(r *resource.Resource) *ResourceResponse {
	resp := &ResourceResponse{
		ID:               r.ID,
		Name:             r.Name,
		Description:      r.Description,
		Category:         string(r.Category),
		Kind:             string(r.Kind),
		Location:         r.Location,
		Fee:              r.Fee,
		PaymentRequired:  r.PaymentRequired,
		ApprovalRequired: r.ApprovalRequired,
		Active:           r.Active,
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        r.UpdatedAt.Format(time.RFC3339),
	}
	if r.IsInterval() {
		resp.OpenTime = r.OpenTime.String()
		resp.CloseTime = r.CloseTime.String()
		resp.SlotMinutes = r.SlotMinutes
	} else {
		resp.Capacity = r.Capacity
		resp.StartsAt = formatTime(r.StartsAt)
	}
	return resp
}

func toResourceResponses(rs []*resource.Resource) []*ResourceResponse {
	resp := make([]*ResourceResponse, len(rs))
	for i, r := range rs {
		resp[i] = toResourceResponse(r)
	}
	return resp
}

// Create godoc
// @Summary リソースを登録
// @Description 施設・イベント・作業枠などの予約対象を登録します（管理者のみ）
// @Tags resources
// @Accept json
// @Produce json
// @Param request body ResourceRequest true "リソース情報"
// @Success 201 {object} ResourceResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 403 {object} api.ErrorResponse
// @Router /resources [post]
func (h *ResourceHandler) Create(c echo.Context) error {
	var req ResourceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("リクエストの形式が不正です", err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.resourceService.CreateResource(c.Request().Context(), middleware.ActorFrom(c), req.toInput())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, toResourceResponse(res))
}

// Update godoc
// @Summary リソースを更新
// @Description 種別以外の属性を更新します（管理者のみ）
// @Tags resources
// @Accept json
// @Produce json
// @Param id path string true "リソースID"
// @Param request body ResourceRequest true "リソース情報"
// @Success 200 {object} ResourceResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /resources/{id} [put]
func (h *ResourceHandler) Update(c echo.Context) error {
	var req ResourceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("リクエストの形式が不正です", err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.resourceService.UpdateResource(c.Request().Context(), middleware.ActorFrom(c), c.Param("id"), req.toInput())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toResourceResponse(res))
}

// Deactivate godoc
// @Summary リソースを受付停止にする
// @Tags resources
// @Produce json
// @Param id path string true "リソースID"
// @Success 200 {object} ResourceResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /resources/{id}/deactivate [post]
func (h *ResourceHandler) Deactivate(c echo.Context) error {
	res, err := h.resourceService.DeactivateResource(c.Request().Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toResourceResponse(res))
}

// GetByID godoc
// @Summary リソースを取得
// @Tags resources
// @Produce json
// @Param id path string true "リソースID"
// @Success 200 {object} ResourceResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /resources/{id} [get]
func (h *ResourceHandler) GetByID(c echo.Context) error {
	res, err := h.resourceService.GetResource(c.Request().Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toResourceResponse(res))
}

// List godoc
// @Summary リソース一覧を取得
// @Description 管理者以外には受付中のリソースのみ返します
// @Tags resources
// @Produce json
// @Param kind query string false "interval または capacity"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} ResourceResponse
// @Router /resources [get]
func (h *ResourceHandler) List(c echo.Context) error {
	kind := resource.Kind(c.QueryParam("kind"))
	if kind != "" && kind != resource.KindInterval && kind != resource.KindCapacity {
		return toHTTPError(resource.ErrInvalidKind)
	}
	limit, offset := pagination(c)

	rs, err := h.resourceService.ListResources(c.Request().Context(), middleware.ActorFrom(c), kind, limit, offset)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toResourceResponses(rs))
}
