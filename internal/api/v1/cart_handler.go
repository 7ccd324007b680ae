package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-hub/internal/api/middleware"
	"storefront-hub/internal/api/response"
	"storefront-hub/internal/service"
)

type CartHandler struct {
	cartService *service.CartService
}

type cartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartRemoveRequest struct {
	ProductIDs []string `json:"product_ids" binding:"required"`
}

func NewCartHandler(cartService *service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

func RegisterCartRoutes(group *gin.RouterGroup, cartService *service.CartService) {
	if cartService == nil {
		return
	}

	handler := NewCartHandler(cartService)
	cart := group.Group("/cart")
	cart.Use(middleware.JWTAuth())

	cart.GET("", handler.Get)
	cart.POST("/items", handler.Add)
	cart.PUT("/items/:productId", handler.SetQuantity)
	cart.DELETE("/items", handler.Remove)
	cart.DELETE("", handler.Clear)
}

// Get
// @Summary Get
// @Description Auto-generated endpoint documentation for Get.
// @Tags cart
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	lines, subtotal, err := h.cartService.Get(c.Request.Context(), userID)
	if err != nil {
		handleCartServiceError(c, err)
		return
	}

	response.Success(c, gin.H{
		"items":    lines,
		"subtotal": subtotal,
	})
}

// Add
// @Summary Add
// @Description Auto-generated endpoint documentation for Add.
// @Tags cart
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/cart/items [post]
func (h *CartHandler) Add(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid request body")
		return
	}

	productID, err := uuid.Parse(strings.TrimSpace(req.ProductID))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid product_id")
		return
	}

	quantity, err := h.cartService.Add(c.Request.Context(), userID, productID, req.Quantity)
	if err != nil {
		handleCartServiceError(c, err)
		return
	}

	response.Success(c, gin.H{
		"product_id": productID,
		"quantity":   quantity,
	})
}

// SetQuantity
// @Summary SetQuantity
// @Description Auto-generated endpoint documentation for SetQuantity.
// @Tags cart
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/cart/items/{productId} [put]
func (h *CartHandler) SetQuantity(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	productID, ok := pathUUID(c, "productId")
	if !ok {
		return
	}

	var req cartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid request body")
		return
	}

	if err := h.cartService.SetQuantity(c.Request.Context(), userID, productID, req.Quantity); err != nil {
		handleCartServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// Remove
// @Summary Remove
// @Description Auto-generated endpoint documentation for Remove.
// @Tags cart
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/cart/items [delete]
func (h *CartHandler) Remove(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req cartRemoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid request body")
		return
	}

	ids := make([]uuid.UUID, 0, len(req.ProductIDs))
	for _, raw := range req.ProductIDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid product id "+raw)
			return
		}
		ids = append(ids, id)
	}

	if err := h.cartService.Remove(c.Request.Context(), userID, ids); err != nil {
		handleCartServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// Clear
// @Summary Clear
// @Description Auto-generated endpoint documentation for Clear.
// @Tags cart
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.cartService.Clear(c.Request.Context(), userID); err != nil {
		handleCartServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

func handleCartServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrProductNotFound, "product not found")
	case errors.Is(err, service.ErrProductUnavailable):
		response.Fail(c, http.StatusConflict, response.ErrProductNotFound, "product is not available")
	case errors.Is(err, service.ErrInvalidQuantity):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "quantity must be positive")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
