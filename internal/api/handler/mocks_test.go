package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-community-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-community-reservation/internal/application"
	"github.com/sanosuguru/go-community-reservation/internal/config"
	"github.com/sanosuguru/go-community-reservation/internal/domain/actor"
	"github.com/sanosuguru/go-community-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-community-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-community-reservation/internal/domain/refund"
	"github.com/sanosuguru/go-community-reservation/internal/domain/resource"
	"github.com/sanosuguru/go-community-reservation/internal/domain/schedule"
)

// MockResourceService はResourceServiceInterfaceのモック
type MockResourceService struct {
	mock.Mock
}

func (m *MockResourceService) CreateResource(ctx context.Context, a actor.Actor, input application.ResourceInput) (*resource.Resource, error) {
	args := m.Called(ctx, a, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resource.Resource), args.Error(1)
}

func (m *MockResourceService) UpdateResource(ctx context.Context, a actor.Actor, id string, input application.ResourceInput) (*resource.Resource, error) {
	args := m.Called(ctx, a, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resource.Resource), args.Error(1)
}

func (m *MockResourceService) DeactivateResource(ctx context.Context, a actor.Actor, id string) (*resource.Resource, error) {
	args := m.Called(ctx, a, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resource.Resource), args.Error(1)
}

func (m *MockResourceService) GetResource(ctx context.Context, a actor.Actor, id string) (*resource.Resource, error) {
	args := m.Called(ctx, a, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resource.Resource), args.Error(1)
}

func (m *MockResourceService) ListResources(ctx context.Context, a actor.Actor, kind resource.Kind, limit, offset int) ([]*resource.Resource, error) {
	args := m.Called(ctx, a, kind, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*resource.Resource), args.Error(1)
}

// MockAvailabilityService はAvailabilityServiceInterfaceのモック
type MockAvailabilityService struct {
	mock.Mock
}

func (m *MockAvailabilityService) ListAvailability(ctx context.Context, resourceID string, date time.Time) (*application.Availability, error) {
	args := m.Called(ctx, resourceID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.Availability), args.Error(1)
}

func (m *MockAvailabilityService) GetCapacityStatus(ctx context.Context, resourceID string) (*application.CapacityStatus, error) {
	args := m.Called(ctx, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.CapacityStatus), args.Error(1)
}

// MockBookingService はBookingServiceInterfaceのモック
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) CreateBooking(ctx context.Context, input application.CreateBookingInput) (*booking.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) PayBooking(ctx context.Context, a actor.Actor, bookingID string, method payment.Method) (*application.PayResult, error) {
	args := m.Called(ctx, a, bookingID, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.PayResult), args.Error(1)
}

func (m *MockBookingService) CancelBooking(ctx context.Context, a actor.Actor, bookingID string) (*booking.Booking, error) {
	return m.bookingResult(m.Called(ctx, a, bookingID))
}

func (m *MockBookingService) ApproveBooking(ctx context.Context, a actor.Actor, bookingID, assigneeID string) (*booking.Booking, error) {
	return m.bookingResult(m.Called(ctx, a, bookingID, assigneeID))
}

func (m *MockBookingService) RejectBooking(ctx context.Context, a actor.Actor, bookingID string) (*booking.Booking, error) {
	return m.bookingResult(m.Called(ctx, a, bookingID))
}

func (m *MockBookingService) GetBooking(ctx context.Context, a actor.Actor, id string) (*booking.Booking, error) {
	return m.bookingResult(m.Called(ctx, a, id))
}

func (m *MockBookingService) ListMyBookings(ctx context.Context, a actor.Actor, limit, offset int) ([]*booking.Booking, error) {
	args := m.Called(ctx, a, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingService) ListResourceBookings(ctx context.Context, a actor.Actor, resourceID string, limit, offset int) ([]*booking.Booking, error) {
	args := m.Called(ctx, a, resourceID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingService) bookingResult(args mock.Arguments) (*booking.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

// MockPaymentService はPaymentServiceInterfaceのモック
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) GetPayment(ctx context.Context, a actor.Actor, id string) (*payment.Payment, error) {
	args := m.Called(ctx, a, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentService) ListPayments(ctx context.Context, a actor.Actor, limit, offset int) ([]*payment.Payment, error) {
	args := m.Called(ctx, a, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.Payment), args.Error(1)
}

// MockRefundService はRefundServiceInterfaceのモック
type MockRefundService struct {
	mock.Mock
}

func (m *MockRefundService) RequestRefund(ctx context.Context, a actor.Actor, paymentID, reason string) (*refund.Request, error) {
	args := m.Called(ctx, a, paymentID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*refund.Request), args.Error(1)
}

func (m *MockRefundService) ResolveRefund(ctx context.Context, a actor.Actor, refundID string, decision refund.Decision) (*refund.Request, error) {
	args := m.Called(ctx, a, refundID, decision)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*refund.Request), args.Error(1)
}

func (m *MockRefundService) GetRefund(ctx context.Context, a actor.Actor, id string) (*refund.Request, error) {
	args := m.Called(ctx, a, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*refund.Request), args.Error(1)
}

func (m *MockRefundService) ListRefunds(ctx context.Context, a actor.Actor, status refund.Status, limit, offset int) ([]*refund.Request, error) {
	args := m.Called(ctx, a, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*refund.Request), args.Error(1)
}

// testServer はモックのサービスでルーティングまで通すテスト用サーバー
type testServer struct {
	e            *echo.Echo
	resources    *MockResourceService
	availability *MockAvailabilityService
	bookings     *MockBookingService
	payments     *MockPaymentService
	refunds      *MockRefundService
}

func newTestServer() *testServer {
	s := &testServer{
		e:            NewTestEcho(),
		resources:    new(MockResourceService),
		availability: new(MockAvailabilityService),
		bookings:     new(MockBookingService),
		payments:     new(MockPaymentService),
		refunds:      new(MockRefundService),
	}
	s.e.Use(middleware.Identity(&config.AuthConfig{}))
	RegisterRoutes(s.e, Handlers{
		Health:       NewHealthHandler(nil),
		Resource:     NewResourceHandler(s.resources),
		Availability: NewAvailabilityHandler(s.availability),
		Booking:      NewBookingHandler(s.bookings),
		Payment:      NewPaymentHandler(s.payments, s.refunds),
		Refund:       NewRefundHandler(s.refunds),
	})
	return s
}

// do は a の識別ヘッダーを付けてリクエストを送る。a.ID が空なら付けない
func (s *testServer) do(method, path, body string, a actor.Actor) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if a.ID != "" {
		req.Header.Set(middleware.HeaderUserID, a.ID)
		req.Header.Set(middleware.HeaderUserRole, string(a.Role))
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

var (
	alice = actor.New("user-alice", actor.RoleResident)
	admin = actor.Admin("admin-1")

	fixedNow = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
)

func sampleCourt() *resource.Resource {
	res := resource.NewIntervalResource("テニスコート", resource.CategoryFacility,
		schedule.MustClock("09:00"), schedule.MustClock("18:00"), 60).WithFee(500)
	res.ID = "res-court"
	res.CreatedAt = fixedNow
	res.UpdatedAt = fixedNow
	return res
}

func sampleHeld() *booking.Booking {
	start := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	expires := fixedNow.Add(15 * time.Minute)
	return &booking.Booking{
		ID:          "bk-1",
		ResourceID:  "res-court",
		RequesterID: alice.ID,
		Interval:    &schedule.Interval{Start: start, End: start.Add(time.Hour)},
		Quantity:    1,
		Status:      booking.StatusHeld,
		ExpiresAt:   &expires,
		CreatedAt:   fixedNow,
		UpdatedAt:   fixedNow,
	}
}

func samplePayment() *payment.Payment {
	p := payment.NewPayment("bk-1", alice.ID, 500, payment.MethodMockCard, "FAC-0123456789ABCDEF0123456789ABCDEF", fixedNow)
	p.ID = "pay-1"
	return p
}

func sampleRefund() *refund.Request {
	return &refund.Request{
		ID:          "rf-1",
		PaymentID:   "pay-1",
		RequesterID: alice.ID,
		Amount:      500,
		Reason:      "雨天のため",
		Status:      refund.StatusPending,
		CreatedAt:   fixedNow,
		UpdatedAt:   fixedNow,
	}
}

// doWithHeader は追加のヘッダーを1つ付けて do と同じリクエストを送る
func (s *testServer) doWithHeader(method, path, body string, a actor.Actor, key, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(middleware.HeaderUserID, a.ID)
	req.Header.Set(middleware.HeaderUserRole, string(a.Role))
	req.Header.Set(key, value)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}
