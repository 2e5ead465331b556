package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/slotworks/bookpay/internal/intent"
	paymentdomain "github.com/slotworks/bookpay/internal/payment/domain"
	"go.uber.org/zap"
)

type createPaymentRequest struct {
	Amount   string          `json:"amount" binding:"required"`
	Currency string          `json:"currency" binding:"required"`
	User     *intentUser     `json:"user,omitempty"`
	Intent   json.RawMessage `json:"intent" binding:"required"`
}

type intentUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type paymentResponse struct {
	Reference     string    `json:"reference"`
	Status        string    `json:"status"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentURL    string    `json:"payment_url,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	BookingIDs    []string  `json:"booking_ids,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toPaymentResponse(p *paymentdomain.Payment) (paymentResponse, error) {
	ids, err := p.BookingIDs()
	if err != nil {
		return paymentResponse{}, err
	}
	resp := paymentResponse{
		Reference:     p.Reference,
		Status:        string(p.Status),
		Amount:        paymentdomain.FormatDecimal(p.Amount),
		Currency:      p.Currency,
		PaymentURL:    p.GatewayURL,
		FailureReason: p.FailureReason,
		CreatedAt:     p.CreatedAt,
	}
	for _, id := range ids {
		resp.BookingIDs = append(resp.BookingIDs, id.String())
	}
	return resp, nil
}

func (s *Server) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	amount, err := paymentdomain.ParseDecimal(req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	create := paymentdomain.CreateIntentRequest{
		Amount:    amount,
		Currency:  req.Currency,
		RawIntent: []byte(req.Intent),
	}
	if req.User != nil {
		create.User = intent.UserDetails{
			Name:  req.User.Name,
			Email: req.User.Email,
			Phone: req.User.Phone,
		}
	}

	payment, err := s.paymentSvc.CreateIntent(c.Request.Context(), create)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := toPaymentResponse(payment)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) GetPayment(c *gin.Context) {
	reference := c.Param("reference")

	payment, err := s.paymentRepo.FindByReference(c.Request.Context(), s.db, reference)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if payment == nil {
		AbortWithError(c, paymentdomain.ErrUnknownReference)
		return
	}

	resp, err := toPaymentResponse(payment)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) VerifyPayment(c *gin.Context) {
	reference := c.Param("reference")

	result, err := s.paymentSvc.VerifyAndMaterialize(c.Request.Context(), reference)
	if err != nil {
		s.log.Warn("verify failed",
			zap.String("reference", reference),
			zap.Error(err),
		)
		AbortWithError(c, err)
		return
	}

	resp := gin.H{
		"reference": reference,
		"status":    string(result.Status),
	}
	if len(result.BookingIDs) > 0 {
		ids := make([]string, 0, len(result.BookingIDs))
		for _, id := range result.BookingIDs {
			ids = append(ids, id.String())
		}
		resp["booking_ids"] = ids
	}
	c.JSON(http.StatusOK, resp)
}
