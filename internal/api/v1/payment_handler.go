package v1

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-hub/internal/api/middleware"
	"storefront-hub/internal/api/response"
	"storefront-hub/internal/service"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
}

type confirmPaymentRequest struct {
	PaymentID  string `json:"payment_id" binding:"required"`
	PaymentKey string `json:"payment_key" binding:"required"`
	Amount     int64  `json:"amount" binding:"required"`
}

type testConfirmPaymentRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required"`
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func RegisterPaymentRoutes(group *gin.RouterGroup, paymentService *service.PaymentService) {
	if paymentService == nil {
		return
	}

	handler := NewPaymentHandler(paymentService)
	payments := group.Group("/payment")
	payments.Use(middleware.JWTAuth())

	payments.POST(
		"/confirm",
		middleware.RateLimit("user_id", 20, time.Minute),
		middleware.AuditLog("payment.confirm", "payment"),
		handler.Confirm,
	)
	payments.POST("/confirm/test", handler.ConfirmTest)
	payments.POST("/:paymentId/cancel", middleware.AuditLog("payment.cancel", "payment"), handler.Cancel)
	payments.POST("/:paymentId/fail", handler.Fail)
	payments.GET("/my", handler.Mine)
	payments.GET("/:paymentId", handler.Get)
}

// Confirm
// @Summary Confirm
// @Description Auto-generated endpoint documentation for Confirm.
// @Tags payment
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/payment/confirm [post]
func (h *PaymentHandler) Confirm(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid request body")
		return
	}

	paymentID, err := uuid.Parse(strings.TrimSpace(req.PaymentID))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid payment_id")
		return
	}

	payment, err := h.paymentService.Confirm(c.Request.Context(), userID, service.ConfirmPaymentRequest{
		PaymentID:  paymentID,
		PaymentKey: req.PaymentKey,
		Amount:     req.Amount,
	})
	if err != nil {
		handlePaymentServiceError(c, err)
		return
	}
	response.Success(c, payment)
}

// ConfirmTest confirms without a gateway key, for sandbox checkouts.
// @Summary ConfirmTest
// @Description Auto-generated endpoint documentation for ConfirmTest.
// @Tags payment
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/payment/confirm/test [post]
func (h *PaymentHandler) ConfirmTest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req testConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid request body")
		return
	}

	paymentID, err := uuid.Parse(strings.TrimSpace(req.PaymentID))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid payment_id")
		return
	}

	payment, err := h.paymentService.Confirm(c.Request.Context(), userID, service.ConfirmPaymentRequest{
		PaymentID:  paymentID,
		PaymentKey: "test_" + uuid.NewString(),
		Amount:     req.Amount,
	})
	if err != nil {
		handlePaymentServiceError(c, err)
		return
	}
	response.Success(c, payment)
}

// Cancel
// @Summary Cancel
// @Description Auto-generated endpoint documentation for Cancel.
// @Tags payment
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/payment/{paymentId}/cancel [post]
func (h *PaymentHandler) Cancel(c *gin.Context) {
	paymentID, ok := pathUUID(c, "paymentId")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.Cancel(c.Request.Context(), userID, paymentID)
	if err != nil {
		handlePaymentServiceError(c, err)
		return
	}
	response.Success(c, payment)
}

// Fail
// @Summary Fail
// @Description Auto-generated endpoint documentation for Fail.
// @Tags payment
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/payment/{paymentId}/fail [post]
func (h *PaymentHandler) Fail(c *gin.Context) {
	paymentID, ok := pathUUID(c, "paymentId")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.Fail(c.Request.Context(), userID, paymentID)
	if err != nil {
		handlePaymentServiceError(c, err)
		return
	}
	response.Success(c, payment)
}

// Get
// @Summary Get
// @Description Auto-generated endpoint documentation for Get.
// @Tags payment
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/payment/{paymentId} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	paymentID, ok := pathUUID(c, "paymentId")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.Get(c.Request.Context(), userID, paymentID, callerIsAdmin(c))
	if err != nil {
		handlePaymentServiceError(c, err)
		return
	}
	response.Success(c, payment)
}

// Mine
// @Summary Mine
// @Description Auto-generated endpoint documentation for Mine.
// @Tags payment
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/payment/my [get]
func (h *PaymentHandler) Mine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	payments, err := h.paymentService.ListByUser(c.Request.Context(), userID)
	if err != nil {
		handlePaymentServiceError(c, err)
		return
	}
	response.Success(c, payments)
}

func handlePaymentServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPaymentNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrPaymentNotFound, "payment not found")
	case errors.Is(err, service.ErrPaymentNotOwned):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
	case errors.Is(err, service.ErrPaymentNotPending):
		response.Fail(c, http.StatusConflict, response.ErrPaymentConflict, "payment is not pending")
	case errors.Is(err, service.ErrPaymentAmountWrong):
		response.Fail(c, http.StatusConflict, response.ErrAmountMismatch, "payment amount does not match order total")
	case errors.Is(err, service.ErrInvalidPaymentInput):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid payment input")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
