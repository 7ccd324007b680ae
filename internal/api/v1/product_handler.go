package v1

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront-hub/internal/api/middleware"
	"storefront-hub/internal/api/response"
	inputsanitize "storefront-hub/internal/api/sanitize"
	"storefront-hub/internal/model"
	"storefront-hub/internal/repository"
	"storefront-hub/internal/service"
)

type ProductHandler struct {
	productService *service.ProductService
}

type productRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
	Category    string `json:"category" binding:"required"`
}

func NewProductHandler(productService *service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

func RegisterProductRoutes(group *gin.RouterGroup, productService *service.ProductService) {
	if productService == nil {
		return
	}

	handler := NewProductHandler(productService)
	products := group.Group("/products")

	// Browsing the catalog needs no session.
	products.GET("", handler.List)
	products.GET("/:productId", handler.Get)

	admin := products.Group("")
	admin.Use(middleware.JWTAuth())
	admin.POST("", middleware.AuditLog("product.create", "product"), handler.Create)
	admin.PUT("/:productId", middleware.AuditLog("product.update", "product"), handler.Update)
	admin.DELETE("/:productId", middleware.AuditLog("product.delete", "product"), handler.Delete)
}

// List
// @Summary List
// @Description Auto-generated endpoint documentation for List.
// @Tags product
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/products [get]
func (h *ProductHandler) List(c *gin.Context) {
	page, size, pagination := pageQuery(c)

	filter := repository.ProductListFilter{Pagination: pagination}
	if raw := strings.TrimSpace(c.Query("category")); raw != "" {
		category := model.ProductCategory(strings.ToUpper(raw))
		filter.Category = &category
	}
	if raw := strings.TrimSpace(c.Query("is_active")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid is_active")
			return
		}
		filter.IsActive = &value
	}
	if keyword := strings.TrimSpace(c.Query("keyword")); keyword != "" {
		cleaned := inputsanitize.Text(keyword)
		filter.Keyword = &cleaned
	}

	products, total, err := h.productService.List(c.Request.Context(), filter)
	if err != nil {
		handleProductServiceError(c, err)
		return
	}
	response.Paginated(c, products, page, size, total)
}

// Get
// @Summary Get
// @Description Auto-generated endpoint documentation for Get.
// @Tags product
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/products/{productId} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := pathUUID(c, "productId")
	if !ok {
		return
	}

	product, err := h.productService.Get(c.Request.Context(), productID)
	if err != nil {
		handleProductServiceError(c, err)
		return
	}
	response.Success(c, product)
}

// Create
// @Summary Create
// @Description Auto-generated endpoint documentation for Create.
// @Tags product
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid request body")
		return
	}

	product, err := h.productService.Create(c.Request.Context(), service.CreateProductRequest{
		Name:        inputsanitize.Text(req.Name),
		Description: inputsanitize.Description(req.Description),
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    model.ProductCategory(strings.ToUpper(strings.TrimSpace(req.Category))),
	})
	if err != nil {
		handleProductServiceError(c, err)
		return
	}
	response.Success(c, product)
}

// Update
// @Summary Update
// @Description Auto-generated endpoint documentation for Update.
// @Tags product
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/products/{productId} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	productID, ok := pathUUID(c, "productId")
	if !ok {
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid request body")
		return
	}

	product, err := h.productService.Update(c.Request.Context(), productID, service.CreateProductRequest{
		Name:        inputsanitize.Text(req.Name),
		Description: inputsanitize.Description(req.Description),
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    model.ProductCategory(strings.ToUpper(strings.TrimSpace(req.Category))),
	})
	if err != nil {
		handleProductServiceError(c, err)
		return
	}
	response.Success(c, product)
}

// Delete
// @Summary Delete
// @Description Auto-generated endpoint documentation for Delete.
// @Tags product
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/products/{productId} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	productID, ok := pathUUID(c, "productId")
	if !ok {
		return
	}

	if err := h.productService.Delete(c.Request.Context(), productID); err != nil {
		handleProductServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

func handleProductServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrProductNotFound, "product not found")
	case errors.Is(err, service.ErrInvalidProductData):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid product data")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
