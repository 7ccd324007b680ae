package response

import "github.com/gin-gonic/gin"

const (
	CodeSuccess = 0
)

const (
	ErrUnauthorized = 10001
	ErrTokenExpired = 10002
	ErrForbidden    = 10003
)

const (
	ErrUserNotFound  = 20001
	ErrEmailTaken    = 20002
	ErrPasswordWrong = 20003
)

const (
	ErrProductNotFound = 30001
	ErrStockExhausted  = 30002
)

const (
	ErrCouponNotFound      = 40001
	ErrCouponExhausted     = 40002
	ErrCouponExpired       = 40003
	ErrCouponAlreadyIssued = 40004
	ErrCouponRedeemed      = 40005
)

const (
	ErrOrderNotFound   = 50001
	ErrCartEmpty       = 50002
	ErrPaymentNotFound = 50003
	ErrPaymentConflict = 50004
	ErrAmountMismatch  = 50005
)

const (
	ErrRaffleNotFound     = 60001
	ErrInvalidTransition  = 60002
	ErrRaffleNotActive    = 60003
	ErrEntryWindowClosed  = 60004
	ErrEntryLimitExceeded = 60005
	ErrRaffleNotClosed    = 60006
	ErrRaffleAlreadyDrawn = 60007
	ErrRaffleNoEntrants   = 60008
	ErrRaffleNotDrawn     = 60009
)

const (
	ErrValidation  = 90001
	ErrRateLimited = 90002
	ErrInternal    = 99999
)

type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Page is the paginated envelope: content plus element and page counts
// derived from the offset pagination underneath.
type Page struct {
	Content       any   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int64 `json:"totalPages"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
}

func Success(c *gin.Context, data any) {
	c.JSON(200, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Paginated(c *gin.Context, content any, page, size int, total int64) {
	if size <= 0 {
		size = 20
	}
	totalPages := total / int64(size)
	if total%int64(size) != 0 {
		totalPages++
	}

	c.JSON(200, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data: Page{
			Content:       content,
			TotalElements: total,
			TotalPages:    totalPages,
			Page:          page,
			Size:          size,
		},
	})
}

func Fail(c *gin.Context, httpStatus, appCode int, message string) {
	c.JSON(httpStatus, Response{
		Code:    appCode,
		Message: message,
	})
}
