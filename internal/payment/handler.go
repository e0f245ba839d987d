package payment

import (
	"errors"
	"io"
	"net/http"

	"github.com/LocDang637/CosplayDate-sub001/internal/api"
	"github.com/LocDang637/CosplayDate-sub001/internal/auth"
	"github.com/LocDang637/CosplayDate-sub001/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// InitiateTopUp godoc
// @Summary      Start a wallet top-up
// @Description  Creates a gateway checkout link and a pending ledger entry.
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      TopUpRequest  true  "Top-up amount"
// @Success      200      {object}  api.Result
// @Failure      400      {object}  api.Result
// @Router       /wallet/topup [post]
func (h *Handler) InitiateTopUp(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.Fail("user not authenticated"))
		return
	}

	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.Fail("amount is required"))
		return
	}

	link, err := h.service.InitiateTopUp(c.Request.Context(), userID, req.Amount)
	if err != nil {
		if errors.Is(err, ErrInvalidTopUpAmount) {
			c.JSON(http.StatusBadRequest, api.Fail(err.Error()))
			return
		}
		logger.Error("top-up initiation failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.Fail("failed to start top-up"))
		return
	}

	c.JSON(http.StatusOK, api.OK("checkout link created", link))
}

// Webhook godoc
// @Summary      Payment gateway webhook
// @Description  Receives gateway notifications. Replays, test payloads, and orphans are acknowledged as success.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Success      200  {object}  api.Result
// @Failure      400  {object}  api.Result
// @Router       /webhooks/payment [post]
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.Fail("unreadable body"))
		return
	}

	event, err := h.service.ParseWebhook(body)
	if err != nil {
		if errors.Is(err, ErrBadSignature) {
			logger.Warn("webhook rejected", "error", err)
			c.JSON(http.StatusBadRequest, api.Fail("invalid signature"))
			return
		}
		c.JSON(http.StatusBadRequest, api.Fail("malformed payload"))
		return
	}

	outcome, err := h.service.Reconcile(c.Request.Context(), event)
	if err != nil {
		// Infrastructure failure. A non-2xx makes the gateway redeliver,
		// which is safe because reconciliation is idempotent.
		logger.Error("webhook reconciliation failed", "order_id", event.ExternalOrderID, "error", err)
		c.JSON(http.StatusInternalServerError, api.Fail("internal error"))
		return
	}

	c.JSON(http.StatusOK, api.OK(string(outcome), nil))
}
