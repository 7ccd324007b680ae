package api

import (
	"github.com/gin-gonic/gin"

	v1 "storefront-hub/internal/api/v1"
	"storefront-hub/internal/service"
	"storefront-hub/internal/sse"
	"storefront-hub/pkg/logger"
)

// Services bundles everything the HTTP surface needs. Nil entries are
// skipped, which keeps partial wiring in tests cheap.
type Services struct {
	Auth     *service.AuthService
	Product  *service.ProductService
	Cart     *service.CartService
	Coupon   *service.CouponService
	Order    *service.OrderService
	Payment  *service.PaymentService
	Raffle   *service.RaffleService
	SSEHub   *sse.SSEHub
	LogStore *logger.SystemLogStore
}

func RegisterRoutes(group *gin.RouterGroup, svcs Services) {
	v1.RegisterAuthRoutes(group, svcs.Auth)
	v1.RegisterProductRoutes(group, svcs.Product)
	v1.RegisterCartRoutes(group, svcs.Cart)
	v1.RegisterCouponRoutes(group, svcs.Coupon)
	v1.RegisterOrderRoutes(group, svcs.Order)
	v1.RegisterPaymentRoutes(group, svcs.Payment)
	v1.RegisterRaffleRoutes(group, svcs.Raffle)
	v1.RegisterNotificationRoutes(group, svcs.SSEHub)
	v1.RegisterSystemRoutes(group, svcs.LogStore)
}
