package booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/LocDang637/CosplayDate-sub001/internal/api"
	"github.com/LocDang637/CosplayDate-sub001/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func bookingIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.Fail("invalid booking ID"))
		return 0, false
	}
	return id, true
}

// respondError maps service errors onto the response envelope. Benign
// replays come back as success so retrying callers stop retrying.
func respondError(c *gin.Context, err error) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, api.Fail(vErr.Reason))
	case errors.Is(err, ErrInsufficientFunds):
		c.JSON(http.StatusBadRequest, api.Fail("insufficient wallet balance"))
	case errors.Is(err, ErrBookingNotFound):
		c.JSON(http.StatusNotFound, api.Fail("booking not found"))
	case errors.Is(err, ErrNotBookingOwner), errors.Is(err, ErrNotParticipant), errors.Is(err, ErrNotCosplayer):
		c.JSON(http.StatusForbidden, api.Fail(err.Error()))
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotYetEnded):
		c.JSON(http.StatusConflict, api.Fail(err.Error()))
	case errors.Is(err, ErrAlreadyResolved):
		c.JSON(http.StatusOK, api.OK("already processed", nil))
	default:
		c.JSON(http.StatusInternalServerError, api.Fail("internal error"))
	}
}

// Create godoc
// @Summary      Create booking
// @Description  Validates the request, creates a booking, and holds the price in escrow.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateBookingRequest  true  "Booking request"
// @Success      201      {object}  api.Result
// @Failure      400      {object}  api.Result
// @Router       /bookings [post]
func (h *Handler) Create(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.Fail("user not authenticated"))
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.Fail(api.BindingErrorMessage(err)))
		return
	}

	b, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, api.OK("booking created", b))
}

// Update godoc
// @Summary      Update pending booking
// @Description  Reschedules or edits a pending booking; price deltas are settled against the wallet.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      int                   true  "Booking ID"
// @Param        request    body      UpdateBookingRequest  true  "Fields to change"
// @Success      200        {object}  api.Result
// @Router       /bookings/{bookingID} [patch]
func (h *Handler) Update(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.Fail("user not authenticated"))
		return
	}

	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	var req UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.Fail(api.BindingErrorMessage(err)))
		return
	}

	b, err := h.service.Update(c.Request.Context(), userID, bookingID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.OK("booking updated", b))
}

// Confirm godoc
// @Summary      Confirm booking
// @Description  Cosplayer accepts a pending booking. No funds move.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  api.Result
// @Router       /bookings/{bookingID}/confirm [post]
func (h *Handler) Confirm(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.Fail("user not authenticated"))
		return
	}

	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	b, err := h.service.Confirm(c.Request.Context(), userID, bookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.OK("booking confirmed", b))
}

// Complete godoc
// @Summary      Complete booking
// @Description  Releases the escrow to the cosplayer once the booking has ended.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  api.Result
// @Router       /bookings/{bookingID}/complete [post]
func (h *Handler) Complete(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.Fail("user not authenticated"))
		return
	}

	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	b, err := h.service.Complete(c.Request.Context(), userID, bookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.OK("booking completed", b))
}

// Cancel godoc
// @Summary      Cancel booking
// @Description  Cancels a pending or confirmed booking and refunds per the time-banded policy.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      int                   true  "Booking ID"
// @Param        request    body      CancelBookingRequest  true  "Cancellation reason"
// @Success      200        {object}  api.Result
// @Router       /bookings/{bookingID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.Fail("user not authenticated"))
		return
	}

	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	var req CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.Fail("reason is required"))
		return
	}

	b, refund, err := h.service.Cancel(c.Request.Context(), userID, bookingID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.OK("booking cancelled", gin.H{
		"booking":         b,
		"refunded_amount": refund,
	}))
}

// ListMyBookings godoc
// @Summary      List my bookings
// @Description  Returns bookings where the authenticated user is the customer or, for cosplayers, the payee.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  BookingWithDetails
// @Router       /bookings [get]
func (h *Handler) ListMyBookings(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.Fail("user not authenticated"))
		return
	}

	role, _ := auth.GetUserRole(c)

	var (
		bookings []BookingWithDetails
		err      error
	)
	if role == "cosplayer" {
		bookings, err = h.service.GetCosplayerBookings(c.Request.Context(), userID)
	} else {
		bookings, err = h.service.GetCustomerBookings(c.Request.Context(), userID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.Fail("failed to fetch bookings"))
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// GetBooking godoc
// @Summary      Get booking by ID
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Booking
// @Router       /bookings/{bookingID} [get]
func (h *Handler) GetBooking(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.Fail("user not authenticated"))
		return
	}

	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), bookingID)
	if err != nil {
		c.JSON(http.StatusNotFound, api.Fail("booking not found"))
		return
	}

	if userID != b.CustomerID && userID != b.CosplayerID {
		c.JSON(http.StatusForbidden, api.Fail("not your booking"))
		return
	}

	c.JSON(http.StatusOK, b)
}
