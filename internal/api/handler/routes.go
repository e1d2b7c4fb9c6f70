package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-community-reservation/internal/api/middleware"
)

// Handlers はルーティング対象のハンドラー一式
type Handlers struct {
	Health       *HealthHandler
	Resource     *ResourceHandler
	Availability *AvailabilityHandler
	Booking      *BookingHandler
	Payment      *PaymentHandler
	Refund       *RefundHandler
}

// RegisterRoutes は /health と /api/v1 配下のルートを登録する
// /api/v1 配下は呼び出し元の識別が必須
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/health", h.Health.Check)

	v1 := e.Group("/api/v1", middleware.RequireActor())
	admin := middleware.RequireAdmin()

	resources := v1.Group("/resources")
	resources.POST("", h.Resource.Create, admin)
	resources.GET("", h.Resource.List)
	resources.GET("/:id", h.Resource.GetByID)
	resources.PUT("/:id", h.Resource.Update, admin)
	resources.POST("/:id/deactivate", h.Resource.Deactivate, admin)
	resources.GET("/:id/availability", h.Availability.Slots)
	resources.GET("/:id/capacity", h.Availability.Capacity)
	resources.GET("/:id/bookings", h.Booking.ListByResource, admin)
	resources.POST("/:id/bookings", h.Booking.Create)

	bookings := v1.Group("/bookings")
	bookings.GET("", h.Booking.ListMine)
	bookings.GET("/:id", h.Booking.GetByID)
	bookings.POST("/:id/pay", h.Booking.Pay)
	bookings.POST("/:id/cancel", h.Booking.Cancel)
	bookings.POST("/:id/approve", h.Booking.Approve, admin)
	bookings.POST("/:id/reject", h.Booking.Reject, admin)

	payments := v1.Group("/payments")
	payments.GET("", h.Payment.List)
	payments.GET("/:id", h.Payment.GetByID)
	payments.POST("/:id/refunds", h.Payment.RequestRefund)

	refunds := v1.Group("/refunds")
	refunds.GET("", h.Refund.List, admin)
	refunds.GET("/:id", h.Refund.GetByID)
	refunds.POST("/:id/approve", h.Refund.Approve, admin)
	refunds.POST("/:id/reject", h.Refund.Reject, admin)
}
