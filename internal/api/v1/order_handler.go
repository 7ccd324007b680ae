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

type OrderHandler struct {
	orderService *service.OrderService
}

type checkoutRequest struct {
	CouponIssueID *string `json:"couponIssueId"`
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func RegisterOrderRoutes(group *gin.RouterGroup, orderService *service.OrderService) {
	if orderService == nil {
		return
	}

	handler := NewOrderHandler(orderService)
	orders := group.Group("/order")
	orders.Use(middleware.JWTAuth())

	orders.POST(
		"",
		middleware.RateLimit("user_id", 10, time.Minute),
		middleware.AuditLog("order.create", "order"),
		handler.Checkout,
	)
	orders.GET("/my", handler.Mine)
	orders.GET("/:orderId", handler.Get)
}

// Checkout
// @Summary Checkout
// @Description Auto-generated endpoint documentation for Checkout.
// @Tags order
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/order [post]
func (h *OrderHandler) Checkout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	// An empty body means checkout without a coupon.
	var req checkoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid request body")
			return
		}
	}

	var couponIssueID *uuid.UUID
	if req.CouponIssueID != nil && strings.TrimSpace(*req.CouponIssueID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(*req.CouponIssueID))
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid couponIssueId")
			return
		}
		couponIssueID = &id
	}

	order, payment, err := h.orderService.Checkout(c.Request.Context(), userID, couponIssueID)
	if err != nil {
		handleOrderServiceError(c, err)
		return
	}

	response.Success(c, gin.H{
		"order":   order,
		"payment": payment,
	})
}

// Get
// @Summary Get
// @Description Auto-generated endpoint documentation for Get.
// @Tags order
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/order/{orderId} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := pathUUID(c, "orderId")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	order, err := h.orderService.Get(c.Request.Context(), orderID, userID, callerIsAdmin(c))
	if err != nil {
		handleOrderServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// Mine
// @Summary Mine
// @Description Auto-generated endpoint documentation for Mine.
// @Tags order
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/order/my [get]
func (h *OrderHandler) Mine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, size, pagination := pageQuery(c)
	orders, total, err := h.orderService.ListByUser(c.Request.Context(), userID, pagination)
	if err != nil {
		handleOrderServiceError(c, err)
		return
	}
	response.Paginated(c, orders, page, size, total)
}

func handleOrderServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrOrderNotFound, "order not found")
	case errors.Is(err, service.ErrOrderAccessDenied):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
	case errors.Is(err, service.ErrCartEmpty):
		response.Fail(c, http.StatusBadRequest, response.ErrCartEmpty, "cart is empty")
	case errors.Is(err, service.ErrProductUnavailable):
		response.Fail(c, http.StatusConflict, response.ErrProductNotFound, "product is not available")
	case errors.Is(err, service.ErrStockExhausted):
		response.Fail(c, http.StatusConflict, response.ErrStockExhausted, "product stock exhausted")
	case errors.Is(err, service.ErrCouponIssueNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrCouponNotFound, "coupon issue not found")
	case errors.Is(err, service.ErrCouponIssueNotOwned):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "coupon issue belongs to another user")
	case errors.Is(err, service.ErrCouponAlreadyRedeemed):
		response.Fail(c, http.StatusConflict, response.ErrCouponRedeemed, "coupon already redeemed")
	case errors.Is(err, service.ErrCouponInactive):
		response.Fail(c, http.StatusConflict, response.ErrCouponNotFound, "coupon is not active")
	case errors.Is(err, service.ErrCouponExpired):
		response.Fail(c, http.StatusConflict, response.ErrCouponExpired, "coupon expired")
	case errors.Is(err, service.ErrNegativeSubtotal),
		errors.Is(err, service.ErrInvalidCouponKind),
		errors.Is(err, service.ErrInvalidCouponData):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, err.Error())
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
