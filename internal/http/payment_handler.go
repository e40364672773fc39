package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"edunexus/internal/service"
)

// PaymentHandler expone creación de órdenes y verificación de pagos.
type PaymentHandler struct {
	logger      *zap.Logger
	paymentServ *service.PaymentService
}

func NewPaymentHandler(logger *zap.Logger, paymentServ *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{logger: logger, paymentServ: paymentServ}
}

// CreateOrder maneja POST /api/payments/order.
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req struct {
		CourseID string `json:"courseId" binding:"required"`
		UserID   string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "courseId and userId are required")
		return
	}
	if !service.CanAccess(principal(c), service.Resource{OwnerID: req.UserID}, service.ActionPurchase) {
		writeError(c, h.logger, service.ErrForbidden)
		return
	}

	res, err := h.paymentServ.CreateOrder(c.Request.Context(), service.OrderInput{
		UserID:   req.UserID,
		CourseID: req.CourseID,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order": gin.H{
			"id":       res.Order.ID,
			"amount":   res.Order.Amount,
			"currency": res.Order.Currency,
			"receipt":  res.Order.Receipt,
			"status":   res.Order.Status,
		},
		"keyId": res.KeyID,
	})
}

// verifyRequest acepta los nombres genéricos y los que envía el checkout de
// Razorpay.
type verifyRequest struct {
	CourseID          string `json:"courseId"`
	UserID            string `json:"userId"`
	ProviderOrderID   string `json:"providerOrderId"`
	ProviderPaymentID string `json:"providerPaymentId"`
	ProviderSignature string `json:"providerSignature"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// VerifyPayment maneja POST /api/payments/verify.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	input := service.VerifyInput{
		CourseID:  req.CourseID,
		UserID:    req.UserID,
		OrderID:   firstNonEmpty(req.ProviderOrderID, req.RazorpayOrderID),
		PaymentID: firstNonEmpty(req.ProviderPaymentID, req.RazorpayPaymentID),
		Signature: firstNonEmpty(req.ProviderSignature, req.RazorpaySignature),
	}
	// Los campos faltantes son un 400 antes de comparar el userId con la sesión.
	if input.CourseID == "" || input.UserID == "" || input.OrderID == "" || input.PaymentID == "" || input.Signature == "" {
		h.logger.Warn("verify payment missing fields", zap.String("user_id", input.UserID))
		badRequest(c, "courseId, userId, orderId, paymentId and signature are required")
		return
	}
	if !service.CanAccess(principal(c), service.Resource{OwnerID: input.UserID}, service.ActionPurchase) {
		writeError(c, h.logger, service.ErrForbidden)
		return
	}

	res, err := h.paymentServ.VerifyPayment(c.Request.Context(), input)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "paymentId": res.PaymentID, "orderId": res.OrderID})
}
