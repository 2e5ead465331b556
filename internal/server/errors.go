package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	bookingdomain "github.com/slotworks/bookpay/internal/booking/domain"
	gatewaydomain "github.com/slotworks/bookpay/internal/gateway/domain"
	"github.com/slotworks/bookpay/internal/intent"
	paymentdomain "github.com/slotworks/bookpay/internal/payment/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "invalid request",
		}
	case errors.Is(err, intent.ErrMalformed):
		return http.StatusBadRequest, errorPayload{
			Type:    "malformed_intent",
			Message: "booking intent metadata is malformed",
		}
	case errors.Is(err, paymentdomain.ErrInvalidAmount):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_amount",
			Message: "amount must be a positive decimal with at most two places",
		}
	case errors.Is(err, paymentdomain.ErrInvalidCurrency):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_currency",
			Message: "currency must be a three-letter code",
		}
	case errors.Is(err, paymentdomain.ErrUnknownReference),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "unknown_reference",
			Message: "no payment with that reference",
		}
	case errors.Is(err, bookingdomain.ErrSlotAlreadyBooked):
		return http.StatusConflict, errorPayload{
			Type:    "slot_already_booked",
			Message: "a slot in the intent is already booked by another payment",
		}
	case errors.Is(err, paymentdomain.ErrLinkConflict):
		return http.StatusConflict, errorPayload{
			Type:    "link_conflict",
			Message: "payment already links a different booking set",
		}
	case errors.Is(err, gatewaydomain.ErrUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "gateway_unavailable",
			Message: "payment gateway unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
