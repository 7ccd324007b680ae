package v1

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"

	"storefront-hub/internal/api/response"
	"storefront-hub/internal/sse"
	jwtutil "storefront-hub/pkg/jwt"
)

type NotificationHandler struct {
	hub *sse.SSEHub
}

var (
	ssePublicKeyOnce sync.Once
	ssePublicKey     *rsa.PublicKey
	ssePublicKeyErr  error
)

func NewNotificationHandler(hub *sse.SSEHub) *NotificationHandler {
	return &NotificationHandler{hub: hub}
}

func RegisterNotificationRoutes(group *gin.RouterGroup, hub *sse.SSEHub) {
	if hub == nil {
		return
	}

	handler := NewNotificationHandler(hub)
	group.GET("/notifications/stream", handler.Stream)
}

// Stream
// @Summary Stream
// @Description Auto-generated endpoint documentation for Stream.
// @Tags notification
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/notifications/stream [get]
func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Fail(c, 503, response.ErrInternal, "sse hub unavailable")
		return
	}

	tokenStr, err := extractAccessToken(c)
	if err != nil {
		response.Fail(c, 401, response.ErrUnauthorized, "unauthorized")
		return
	}

	publicKey, err := loadSSEPublicKey()
	if err != nil {
		response.Fail(c, 401, response.ErrUnauthorized, "unauthorized")
		return
	}

	claims, err := jwtutil.ParseAccessToken(tokenStr, publicKey)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			response.Fail(c, 401, response.ErrUnauthorized, "token expired")
			return
		}
		response.Fail(c, 401, response.ErrUnauthorized, "unauthorized")
		return
	}

	userID := strings.TrimSpace(claims.UserID)
	if userID == "" {
		response.Fail(c, 401, response.ErrUnauthorized, "unauthorized")
		return
	}

	flusher, ok := c.Writer.(interface{ Flush() })
	if !ok {
		response.Fail(c, 500, response.ErrInternal, "stream unsupported")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Connection", "keep-alive")
	c.Status(200)

	client := sse.NewClient(userID, claims.Role)
	h.hub.Register(client)
	defer h.hub.Unregister(userID)

	// Replay anything the client missed while reconnecting.
	lastID := c.GetHeader("Last-Event-ID")
	for _, event := range h.hub.Since(lastID) {
		if err := writeSSEEvent(c, event); err != nil {
			return
		}
		flusher.Flush()
	}

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-client.Done:
			return
		case event := <-client.Ch:
			if err := writeSSEEvent(c, event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSEEvent(c *gin.Context, event sse.SSEEvent) error {
	if _, err := fmt.Fprintf(c.Writer, "id: %s\n", event.ID); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Writer, "event: %s\n", event.Type); err != nil {
		return err
	}

	for _, line := range strings.Split(event.Data, "\n") {
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n", line); err != nil {
			return err
		}
	}

	_, err := fmt.Fprint(c.Writer, "\n")
	return err
}

func extractAccessToken(c *gin.Context) (string, error) {
	if token, err := c.Cookie(accessTokenCookieName); err == nil {
		token = strings.TrimSpace(token)
		if token != "" {
			return token, nil
		}
	}
	if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
		if token, found := strings.CutPrefix(header, "Bearer "); found {
			token = strings.TrimSpace(token)
			if token != "" {
				return token, nil
			}
		}
	}
	return "", errors.New("missing access token")
}

func loadSSEPublicKey() (*rsa.PublicKey, error) {
	ssePublicKeyOnce.Do(func() {
		pem := strings.TrimSpace(os.Getenv("STOREFRONT_JWT_PUBLIC_KEY"))
		if pem == "" {
			path := strings.TrimSpace(os.Getenv("STOREFRONT_JWT_PUBLIC_KEY_FILE"))
			if path != "" {
				buf, err := os.ReadFile(path)
				if err != nil {
					ssePublicKeyErr = err
					return
				}
				pem = string(buf)
			}
		}
		if pem == "" {
			ssePublicKeyErr = errors.New("jwt public key not configured")
			return
		}

		ssePublicKey, ssePublicKeyErr = jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	})

	return ssePublicKey, ssePublicKeyErr
}
