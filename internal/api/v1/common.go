package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-hub/internal/api/middleware"
	"storefront-hub/internal/api/response"
	"storefront-hub/internal/repository"
)

func parseIntOrDefault(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return def
	}
	return value
}

func isAdmin(role string) bool {
	return strings.EqualFold(role, "admin")
}

// pageQuery reads ?page and ?size (1-based page) and returns both the raw
// values for the response envelope and the offset pagination underneath.
func pageQuery(c *gin.Context) (page, size int, p repository.Pagination) {
	page = parseIntOrDefault(c.Query("page"), 1)
	size = parseIntOrDefault(c.Query("size"), 20)
	if size > 200 {
		size = 200
	}
	return page, size, repository.Pagination{
		Limit:  int32(size),
		Offset: int32((page - 1) * size),
	}
}

// currentUserID pulls the authenticated user id out of the JWT claims.
// Returns false after writing a 401 when the claims are absent or broken.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return uuid.Nil, false
	}
	return id, true
}

func requireAdmin(c *gin.Context) bool {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return false
	}
	if !isAdmin(claims.Role) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
		return false
	}
	return true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func callerIsAdmin(c *gin.Context) bool {
	claims, ok := middleware.GetClaims(c)
	return ok && isAdmin(claims.Role)
}
