package payment

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler handles the payment HTTP surface: the per-tenant webhook sink, the
// admin override and webhook management.
type Handler struct {
	service    *Service
	router     *Router
	webhooks   *WebhookManager
	adminToken string
	logger     *zap.Logger
}

// NewHandler creates a new payment handler. adminToken may be empty, which
// disables the admin endpoints entirely.
func NewHandler(service *Service, router *Router, webhooks *WebhookManager, adminToken string, logger *zap.Logger) *Handler {
	return &Handler{
		service:    service,
		router:     router,
		webhooks:   webhooks,
		adminToken: adminToken,
		logger:     logger,
	}
}

// RegisterRoutes registers the payment routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/stars/:tenant_id", h.Webhook)
	r.POST("/process-payment/:external_payment_id", h.ProcessPayment)
	r.POST("/setup-webhooks", h.SetupWebhooks)
}

// Webhook receives provider updates for one tenant. It acknowledges every
// well-formed update with 200 regardless of processing outcome; the provider
// redelivers anything else, and redelivery of an unprocessable update cannot
// succeed.
func (h *Handler) Webhook(c *gin.Context) {
	tenantID, err := strconv.ParseInt(c.Param("tenant_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed update"})
		return
	}

	if err := h.router.Route(c.Request.Context(), tenantID, &update); err != nil {
		h.logger.Error("webhook update processing failed",
			zap.Int64("tenant_id", tenantID),
			zap.Int("update_id", update.UpdateID),
			zap.Error(err),
		)
		c.JSON(http.StatusOK, gin.H{"ok": false, "error": "processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ProcessPayment is the manual completion endpoint for payments whose provider
// event never arrived. It goes through the same validation and idempotency
// gates as the webhook path.
func (h *Handler) ProcessPayment(c *gin.Context) {
	if !h.authorizeAdmin(c) {
		return
	}

	if provider := c.DefaultQuery("payment_provider", ProviderStars); provider != ProviderStars {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported payment provider"})
		return
	}

	externalID := c.Param("external_payment_id")
	result, err := h.service.ForceComplete(c.Request.Context(), externalID)
	if err != nil && (result == nil || result.Outcome != OutcomeCompleted) {
		h.logger.Error("manual completion failed",
			zap.String("external_payment_id", externalID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment processing failed"})
		return
	}

	switch result.Outcome {
	case OutcomeCompleted:
		if err != nil {
			// Flipped but not credited; surface it so the operator follows up.
			c.JSON(http.StatusInternalServerError, gin.H{
				"status": string(result.Outcome),
				"error":  "payment completed but credit application failed",
			})
			return
		}
		if sendErr := h.service.SendSuccessMessage(c.Request.Context(), result.Payment); sendErr != nil {
			h.logger.Warn("failed to send success message after manual completion",
				zap.Int64("payment_id", result.Payment.ID),
				zap.Error(sendErr),
			)
		}
		c.JSON(http.StatusOK, gin.H{"status": string(result.Outcome), "payment_id": result.Payment.ID})
	case OutcomeAlreadyCompleted:
		c.JSON(http.StatusOK, gin.H{"status": string(result.Outcome)})
	default:
		if result.Reason == ReasonNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"status": string(result.Outcome), "reason": string(result.Reason)})
	}
}

// SetupWebhooks re-registers the webhook of every active tenant.
func (h *Handler) SetupWebhooks(c *gin.Context) {
	if !h.authorizeAdmin(c) {
		return
	}

	result, err := h.webhooks.SetupAll(c.Request.Context())
	if err != nil {
		h.logger.Error("webhook setup pass failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook setup failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// authorizeAdmin checks the admin credential from the X-Admin-Token header or
// the admin_token query parameter. The comparison is constant-time and the
// rejection is uniform, so a caller learns nothing about why it was refused.
func (h *Handler) authorizeAdmin(c *gin.Context) bool {
	if h.adminToken == "" {
		h.logger.Error("admin endpoint hit but no admin token is configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "admin access is not configured"})
		return false
	}

	presented := c.GetHeader("X-Admin-Token")
	if presented == "" {
		presented = c.Query("admin_token")
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(h.adminToken)) != 1 {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return false
	}
	return true
}
