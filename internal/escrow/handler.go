package escrow

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/LocDang637/CosplayDate-sub001/internal/api"

	"github.com/gin-gonic/gin"
)

// Handler exposes the admin escrow endpoints. Routes mount behind
// RequireRole("admin"); the normal release/refund path goes through the
// booking lifecycle instead.
type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type ManualRefundRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason" binding:"required"`
}

// GetByBooking godoc
// @Summary      Get escrow for a booking
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Transaction
// @Failure      404        {object}  api.Result
// @Router       /admin/escrow/bookings/{bookingID} [get]
func (h *Handler) GetByBooking(c *gin.Context) {
	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.Fail("invalid booking ID"))
		return
	}

	e, err := h.service.GetByBookingID(c.Request.Context(), bookingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.Fail("internal error"))
		return
	}
	if e == nil {
		c.JSON(http.StatusNotFound, api.Fail("no escrow for booking"))
		return
	}

	c.JSON(http.StatusOK, e)
}

// Release godoc
// @Summary      Manually release escrow to the payee
// @Description  Dispute-resolution path. Idempotent: a second call reports the escrow as already resolved.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  api.Result
// @Router       /admin/escrow/bookings/{bookingID}/release [post]
func (h *Handler) Release(c *gin.Context) {
	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.Fail("invalid booking ID"))
		return
	}

	released, err := h.service.Release(c.Request.Context(), bookingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.Fail("internal error"))
		return
	}
	if !released {
		c.JSON(http.StatusOK, api.OK("escrow already resolved", nil))
		return
	}

	c.JSON(http.StatusOK, api.OK("escrow released", nil))
}

// Refund godoc
// @Summary      Manually refund escrow to the payer
// @Description  Dispute-resolution path. Omitting amount refunds the full held amount.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        escrowID  path      int                  true  "Escrow ID"
// @Param        request   body      ManualRefundRequest  true  "Refund details"
// @Success      200       {object}  api.Result
// @Router       /admin/escrow/{escrowID}/refund [post]
func (h *Handler) Refund(c *gin.Context) {
	escrowID, err := strconv.Atoi(c.Param("escrowID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.Fail("invalid escrow ID"))
		return
	}

	var req ManualRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.Fail("reason is required"))
		return
	}

	amount := req.Amount
	if amount == 0 {
		e, err := h.service.GetByID(c.Request.Context(), escrowID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, api.Fail("internal error"))
			return
		}
		if e == nil {
			c.JSON(http.StatusNotFound, api.Fail("escrow not found"))
			return
		}
		amount = e.Amount
	}

	refunded, err := h.service.Refund(c.Request.Context(), escrowID, amount, req.Reason)
	if err != nil {
		if errors.Is(err, ErrRefundExceedsHold) {
			c.JSON(http.StatusBadRequest, api.Fail(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, api.Fail("internal error"))
		return
	}
	if !refunded {
		c.JSON(http.StatusOK, api.OK("escrow already resolved", nil))
		return
	}

	c.JSON(http.StatusOK, api.OK("escrow refunded", nil))
}
