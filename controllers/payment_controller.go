package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/middlewares"
	"storefront/payments"
	"storefront/utils"
)

type PaymentController struct {
	Service *payments.Service
}

type initiatePaymentRequest struct {
	OrderID     string  `json:"order_id" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Email       string  `json:"email" binding:"required"`
	Reference   string  `json:"reference"`
	CallbackURL string  `json:"callback_url"`
}

// InitiatePayment validates the order, initializes a gateway
// transaction and hands back the hosted-payment URL. The browser
// performs a full navigation to that URL; the outcome comes back
// through HandleWebhook.
func (pc *PaymentController) InitiatePayment(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordPaymentOperation("initiate", ok)
	}()

	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !utils.IsValidEmail(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}

	result, err := pc.Service.Initiate(payments.InitiateRequest{
		OrderID:     req.OrderID,
		Amount:      req.Amount,
		Email:       req.Email,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		var gwErr *payments.GatewayError
		switch {
		case errors.Is(err, payments.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.As(err, &gwErr):
			c.JSON(http.StatusInternalServerError, gin.H{"error": gwErr.Message})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment initiation failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"authorization_url": result.AuthorizationURL,
			"access_code":       result.AccessCode,
			"reference":         result.Reference,
		},
		"order_id": req.OrderID,
	})
}

// HandleWebhook receives Paystack's signed callback. Once the
// signature and payload check out the gateway always gets a 200, even
// when the confirmation email could not be queued: the financial
// state change already happened.
func (pc *PaymentController) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		middlewares.RecordWebhookEvent("unknown", "bad_body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read request body"})
		return
	}
	signature := c.GetHeader("x-paystack-signature")

	if err := pc.Service.HandleWebhook(signature, body); err != nil {
		switch {
		case errors.Is(err, payments.ErrMissingSignature), errors.Is(err, payments.ErrBadSignature):
			middlewares.RecordWebhookEvent("unknown", "unauthorized")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		case errors.Is(err, payments.ErrBadPayload):
			middlewares.RecordWebhookEvent("unknown", "bad_payload")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		default:
			middlewares.RecordWebhookEvent("unknown", "error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook processing failed"})
		}
		return
	}

	middlewares.RecordWebhookEvent("processed", "ok")
	c.JSON(http.StatusOK, gin.H{"success": true})
}
