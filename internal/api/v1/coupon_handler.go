package v1

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"storefront-hub/internal/api/middleware"
	"storefront-hub/internal/api/response"
	inputsanitize "storefront-hub/internal/api/sanitize"
	"storefront-hub/internal/model"
	"storefront-hub/internal/service"
)

type CouponHandler struct {
	couponService *service.CouponService
}

type couponRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	Kind        string     `json:"kind" binding:"required"`
	Value       int64      `json:"value"`
	Quantity    int64      `json:"quantity"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

func NewCouponHandler(couponService *service.CouponService) *CouponHandler {
	return &CouponHandler{couponService: couponService}
}

func RegisterCouponRoutes(group *gin.RouterGroup, couponService *service.CouponService) {
	if couponService == nil {
		return
	}

	handler := NewCouponHandler(couponService)
	coupons := group.Group("/coupon")
	coupons.Use(middleware.JWTAuth())

	coupons.GET("", handler.List)
	coupons.GET("/me", handler.Mine)
	coupons.POST(
		"/issue/:couponId",
		middleware.RateLimit("user_id", 10, time.Minute),
		handler.Issue,
	)

	coupons.POST("", middleware.AuditLog("coupon.create", "coupon"), handler.Create)
	coupons.PUT("/:couponId", middleware.AuditLog("coupon.update", "coupon"), handler.Update)
	coupons.DELETE("/:couponId", middleware.AuditLog("coupon.delete", "coupon"), handler.Delete)
	coupons.POST("/issue/:couponId/users/:userId", middleware.AuditLog("coupon.issue.admin", "coupon"), handler.IssueToUser)
}

// List
// @Summary List
// @Description Auto-generated endpoint documentation for List.
// @Tags coupon
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/coupon [get]
func (h *CouponHandler) List(c *gin.Context) {
	page, size, pagination := pageQuery(c)

	coupons, total, err := h.couponService.List(c.Request.Context(), pagination)
	if err != nil {
		handleCouponServiceError(c, err)
		return
	}
	response.Paginated(c, coupons, page, size, total)
}

// Create
// @Summary Create
// @Description Auto-generated endpoint documentation for Create.
// @Tags coupon
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/coupon [post]
func (h *CouponHandler) Create(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}

	var req couponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid request body")
		return
	}

	coupon, err := h.couponService.Create(c.Request.Context(), service.CreateCouponRequest{
		Name:        inputsanitize.Text(req.Name),
		Description: inputsanitize.Description(req.Description),
		Kind:        model.CouponKind(strings.ToUpper(strings.TrimSpace(req.Kind))),
		Value:       req.Value,
		Quantity:    req.Quantity,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		handleCouponServiceError(c, err)
		return
	}
	response.Success(c, coupon)
}

// Update
// @Summary Update
// @Description Auto-generated endpoint documentation for Update.
// @Tags coupon
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/coupon/{couponId} [put]
func (h *CouponHandler) Update(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	couponID, ok := pathUUID(c, "couponId")
	if !ok {
		return
	}

	var req couponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid request body")
		return
	}

	coupon, err := h.couponService.Update(c.Request.Context(), couponID, service.CreateCouponRequest{
		Name:        inputsanitize.Text(req.Name),
		Description: inputsanitize.Description(req.Description),
		Kind:        model.CouponKind(strings.ToUpper(strings.TrimSpace(req.Kind))),
		Value:       req.Value,
		Quantity:    req.Quantity,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		handleCouponServiceError(c, err)
		return
	}
	response.Success(c, coupon)
}

// Delete
// @Summary Delete
// @Description Auto-generated endpoint documentation for Delete.
// @Tags coupon
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/coupon/{couponId} [delete]
func (h *CouponHandler) Delete(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	couponID, ok := pathUUID(c, "couponId")
	if !ok {
		return
	}

	if err := h.couponService.Deactivate(c.Request.Context(), couponID); err != nil {
		handleCouponServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// Issue
// @Summary Issue
// @Description Auto-generated endpoint documentation for Issue.
// @Tags coupon
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/coupon/issue/{couponId} [post]
func (h *CouponHandler) Issue(c *gin.Context) {
	couponID, ok := pathUUID(c, "couponId")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	issue, err := h.couponService.Issue(c.Request.Context(), couponID, userID)
	if err != nil {
		handleCouponServiceError(c, err)
		return
	}
	response.Success(c, issue)
}

// IssueToUser
// @Summary IssueToUser
// @Description Auto-generated endpoint documentation for IssueToUser.
// @Tags coupon
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/coupon/issue/{couponId}/users/{userId} [post]
func (h *CouponHandler) IssueToUser(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	couponID, ok := pathUUID(c, "couponId")
	if !ok {
		return
	}
	userID, ok := pathUUID(c, "userId")
	if !ok {
		return
	}

	issue, err := h.couponService.Issue(c.Request.Context(), couponID, userID)
	if err != nil {
		handleCouponServiceError(c, err)
		return
	}
	response.Success(c, issue)
}

// Mine
// @Summary Mine
// @Description Auto-generated endpoint documentation for Mine.
// @Tags coupon
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/coupon/me [get]
func (h *CouponHandler) Mine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	issued, err := h.couponService.ListMine(c.Request.Context(), userID)
	if err != nil {
		handleCouponServiceError(c, err)
		return
	}
	response.Success(c, issued)
}

func handleCouponServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCouponNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrCouponNotFound, "coupon not found")
	case errors.Is(err, service.ErrCouponInactive):
		response.Fail(c, http.StatusConflict, response.ErrCouponNotFound, "coupon is not active")
	case errors.Is(err, service.ErrCouponExpired):
		response.Fail(c, http.StatusConflict, response.ErrCouponExpired, "coupon expired")
	case errors.Is(err, service.ErrCouponExhausted):
		response.Fail(c, http.StatusConflict, response.ErrCouponExhausted, "coupon supply exhausted")
	case errors.Is(err, service.ErrCouponAlreadyIssued):
		response.Fail(c, http.StatusBadRequest, response.ErrCouponAlreadyIssued, "coupon already issued")
	case errors.Is(err, service.ErrInvalidCouponInput):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid coupon input")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
