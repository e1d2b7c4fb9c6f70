package handler

import (
	"context"
	"time"

	"github.com/sanosuguru/go-community-reservation/internal/application"
	"github.com/sanosuguru/go-community-reservation/internal/domain/actor"
	"github.com/sanosuguru/go-community-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-community-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-community-reservation/internal/domain/refund"
	"github.com/sanosuguru/go-community-reservation/internal/domain/resource"
)

// ResourceServiceInterface はリソースサービスのインターフェース
type ResourceServiceInterface interface {
	CreateResource(ctx context.Context, a actor.Actor, input application.ResourceInput) (*resource.Resource, error)
	UpdateResource(ctx context.Context, a actor.Actor, id string, input application.ResourceInput) (*resource.Resource, error)
	DeactivateResource(ctx context.Context, a actor.Actor, id string) (*resource.Resource, error)
	GetResource(ctx context.Context, a actor.Actor, id string) (*resource.Resource, error)
	ListResources(ctx context.Context, a actor.Actor, kind resource.Kind, limit, offset int) ([]*resource.Resource, error)
}

// AvailabilityServiceInterface は空き状況サービスのインターフェース
type AvailabilityServiceInterface interface {
	ListAvailability(ctx context.Context, resourceID string, date time.Time) (*application.Availability, error)
	GetCapacityStatus(ctx context.Context, resourceID string) (*application.CapacityStatus, error)
}

// BookingServiceInterface は予約サービスのインターフェース
type BookingServiceInterface interface {
	CreateBooking(ctx context.Context, input application.CreateBookingInput) (*booking.Booking, error)
	PayBooking(ctx context.Context, a actor.Actor, bookingID string, method payment.Method) (*application.PayResult, error)
	CancelBooking(ctx context.Context, a actor.Actor, bookingID string) (*booking.Booking, error)
	ApproveBooking(ctx context.Context, a actor.Actor, bookingID, assigneeID string) (*booking.Booking, error)
	RejectBooking(ctx context.Context, a actor.Actor, bookingID string) (*booking.Booking, error)
	GetBooking(ctx context.Context, a actor.Actor, id string) (*booking.Booking, error)
	ListMyBookings(ctx context.Context, a actor.Actor, limit, offset int) ([]*booking.Booking, error)
	ListResourceBookings(ctx context.Context, a actor.Actor, resourceID string, limit, offset int) ([]*booking.Booking, error)
}

// PaymentServiceInterface は支払い記録の参照インターフェース
type PaymentServiceInterface interface {
	GetPayment(ctx context.Context, a actor.Actor, id string) (*payment.Payment, error)
	ListPayments(ctx context.Context, a actor.Actor, limit, offset int) ([]*payment.Payment, error)
}

// RefundServiceInterface は返金サービスのインターフェース
type RefundServiceInterface interface {
	RequestRefund(ctx context.Context, a actor.Actor, paymentID, reason string) (*refund.Request, error)
	ResolveRefund(ctx context.Context, a actor.Actor, refundID string, decision refund.Decision) (*refund.Request, error)
	GetRefund(ctx context.Context, a actor.Actor, id string) (*refund.Request, error)
	ListRefunds(ctx context.Context, a actor.Actor, status refund.Status, limit, offset int) ([]*refund.Request, error)
}
