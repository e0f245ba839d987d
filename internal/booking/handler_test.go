package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Create(ctx context.Context, customerID int, req CreateBookingRequest) (*Booking, error) {
	args := m.Called(ctx, customerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *mockService) Update(ctx context.Context, customerID, bookingID int, req UpdateBookingRequest) (*Booking, error) {
	args := m.Called(ctx, customerID, bookingID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *mockService) Confirm(ctx context.Context, cosplayerID, bookingID int) (*Booking, error) {
	args := m.Called(ctx, cosplayerID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *mockService) Complete(ctx context.Context, userID, bookingID int) (*Booking, error) {
	args := m.Called(ctx, userID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *mockService) Cancel(ctx context.Context, userID, bookingID int, reason string) (*Booking, int64, error) {
	args := m.Called(ctx, userID, bookingID, reason)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).(*Booking), args.Get(1).(int64), args.Error(2)
}

func (m *mockService) GetByID(ctx context.Context, id int) (*Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *mockService) GetCustomerBookings(ctx context.Context, customerID int) ([]BookingWithDetails, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).([]BookingWithDetails), args.Error(1)
}

func (m *mockService) GetCosplayerBookings(ctx context.Context, cosplayerID int) ([]BookingWithDetails, error) {
	args := m.Called(ctx, cosplayerID)
	return args.Get(0).([]BookingWithDetails), args.Error(1)
}

func setupHandlerRouter(svc Service, userID int, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("user_role", role)
		c.Next()
	})

	h := NewHandler(svc)
	router.POST("/bookings", h.Create)
	router.GET("/bookings", h.ListMyBookings)
	router.GET("/bookings/:bookingID", h.GetBooking)
	router.POST("/bookings/:bookingID/confirm", h.Confirm)
	router.POST("/bookings/:bookingID/complete", h.Complete)
	router.POST("/bookings/:bookingID/cancel", h.Cancel)

	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandlerCreate_Success(t *testing.T) {
	svc := new(mockService)
	router := setupHandlerRouter(svc, 1, "customer")

	req := CreateBookingRequest{
		CosplayerID: 2,
		Date:        "2026-09-20",
		StartTime:   "10:00",
		EndTime:     "12:00",
	}
	svc.On("Create", mock.Anything, 1, req).Return(&Booking{ID: 42, Code: "BK-abc"}, nil)

	w := doJSON(router, http.MethodPost, "/bookings", req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "booking created")

	svc.AssertExpectations(t)
}

func TestHandlerCreate_MissingFields(t *testing.T) {
	svc := new(mockService)
	router := setupHandlerRouter(svc, 1, "customer")

	w := doJSON(router, http.MethodPost, "/bookings", gin.H{"cosplayer_id": 2})
	require.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlerCreate_InsufficientFunds(t *testing.T) {
	svc := new(mockService)
	router := setupHandlerRouter(svc, 1, "customer")

	svc.On("Create", mock.Anything, 1, mock.Anything).Return(nil, ErrInsufficientFunds)

	w := doJSON(router, http.MethodPost, "/bookings", CreateBookingRequest{
		CosplayerID: 2,
		Date:        "2026-09-20",
		StartTime:   "10:00",
		EndTime:     "12:00",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient wallet balance")
}

func TestHandlerCreate_ValidationReason(t *testing.T) {
	svc := new(mockService)
	router := setupHandlerRouter(svc, 1, "customer")

	svc.On("Create", mock.Anything, 1, mock.Anything).
		Return(nil, &ValidationError{Reason: "this cosplayer is not currently accepting bookings"})

	w := doJSON(router, http.MethodPost, "/bookings", CreateBookingRequest{
		CosplayerID: 2,
		Date:        "2026-09-20",
		StartTime:   "10:00",
		EndTime:     "12:00",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not currently accepting bookings")
}

func TestHandlerComplete_ReplayReturnsOK(t *testing.T) {
	svc := new(mockService)
	router := setupHandlerRouter(svc, 1, "customer")

	svc.On("Complete", mock.Anything, 1, 42).Return(nil, ErrAlreadyResolved)

	w := doJSON(router, http.MethodPost, "/bookings/42/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "already processed")
}

func TestHandlerConfirm_WrongUser(t *testing.T) {
	svc := new(mockService)
	router := setupHandlerRouter(svc, 3, "cosplayer")

	svc.On("Confirm", mock.Anything, 3, 42).Return(nil, ErrNotCosplayer)

	w := doJSON(router, http.MethodPost, "/bookings/42/confirm", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandlerCancel_ReturnsRefund(t *testing.T) {
	svc := new(mockService)
	router := setupHandlerRouter(svc, 1, "customer")

	svc.On("Cancel", mock.Anything, 1, 42, "change of plans").
		Return(&Booking{ID: 42, Status: StatusCancelled}, int64(750), nil)

	w := doJSON(router, http.MethodPost, "/bookings/42/cancel", gin.H{"reason": "change of plans"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"refunded_amount":750`)
}

func TestHandlerCancel_ReasonRequired(t *testing.T) {
	svc := new(mockService)
	router := setupHandlerRouter(svc, 1, "customer")

	w := doJSON(router, http.MethodPost, "/bookings/42/cancel", gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlerGetBooking_OnlyParticipants(t *testing.T) {
	svc := new(mockService)
	router := setupHandlerRouter(svc, 9, "customer")

	svc.On("GetByID", mock.Anything, 42).Return(&Booking{ID: 42, CustomerID: 1, CosplayerID: 2}, nil)

	w := doJSON(router, http.MethodGet, "/bookings/42", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandlerList_RoutesByRole(t *testing.T) {
	svc := new(mockService)
	router := setupHandlerRouter(svc, 2, "cosplayer")

	svc.On("GetCosplayerBookings", mock.Anything, 2).Return([]BookingWithDetails{}, nil)

	w := doJSON(router, http.MethodGet, "/bookings", nil)
	require.Equal(t, http.StatusOK, w.Code)

	svc.AssertNotCalled(t, "GetCustomerBookings", mock.Anything, mock.Anything)
}

func TestHandlerBadBookingID(t *testing.T) {
	svc := new(mockService)
	router := setupHandlerRouter(svc, 1, "customer")

	w := doJSON(router, http.MethodPost, "/bookings/abc/confirm", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid booking ID")
}
