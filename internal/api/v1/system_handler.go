package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"storefront-hub/internal/api/middleware"
	"storefront-hub/internal/api/response"
	"storefront-hub/pkg/logger"
)

type SystemHandler struct {
	logStore *logger.SystemLogStore
}

func NewSystemHandler(logStore *logger.SystemLogStore) *SystemHandler {
	return &SystemHandler{logStore: logStore}
}

func RegisterSystemRoutes(group *gin.RouterGroup, logStore *logger.SystemLogStore) {
	if logStore == nil {
		return
	}

	handler := NewSystemHandler(logStore)
	system := group.Group("/system")
	system.Use(middleware.JWTAuth())
	system.GET("/logs", handler.QueryLogs)
}

// QueryLogs
// @Summary QueryLogs
// @Description Auto-generated endpoint documentation for QueryLogs.
// @Tags system
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/system/logs [get]
func (h *SystemHandler) QueryLogs(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}

	var from, to time.Time
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid from timestamp")
			return
		}
		from = parsed
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid to timestamp")
			return
		}
		to = parsed
	}

	page, size, _ := pageQuery(c)
	entries, total := h.logStore.Query(logger.LogQuery{
		Level:    c.Query("level"),
		From:     from,
		To:       to,
		Keyword:  c.Query("keyword"),
		Page:     page,
		PageSize: size,
	})
	response.Paginated(c, entries, page, size, total)
}
