package domain

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var (
	// ErrUnavailable covers transport failures, timeouts and gateway-side
	// errors. Always retryable; never mapped to a terminal payment status.
	ErrUnavailable      = errors.New("gateway_unavailable")
	ErrProviderNotFound = errors.New("gateway_provider_not_found")
)

// StatusCode is the gateway's own verification code, prior to mapping onto
// the local payment state machine.
type StatusCode string

const (
	StatusCaptured StatusCode = "captured"
	StatusSettled  StatusCode = "settled"
	StatusSuccess  StatusCode = "success"
	StatusDeclined StatusCode = "declined"
	StatusExpired  StatusCode = "expired"
	StatusFailed   StatusCode = "failed"
	StatusCreated  StatusCode = "created"
	StatusPending  StatusCode = "pending"
)

// Terminal reports whether the code will never change again on the gateway
// side.
func (c StatusCode) Terminal() bool {
	switch c {
	case StatusCaptured, StatusSettled, StatusSuccess,
		StatusDeclined, StatusExpired, StatusFailed:
		return true
	}
	return false
}

// Succeeded reports whether a terminal code means the payment was collected.
func (c StatusCode) Succeeded() bool {
	switch c {
	case StatusCaptured, StatusSettled, StatusSuccess:
		return true
	}
	return false
}

// IntentRequest carries everything a hosted-checkout gateway needs to open
// a payment intent. Reference is engine-generated and globally unique.
type IntentRequest struct {
	Reference     string
	Amount        int64
	Currency      string
	CustomerName  string
	CustomerEmail string
}

// Adapter is the only capability surface the engine consumes from a
// payment gateway.
type Adapter interface {
	CreateIntent(ctx context.Context, req IntentRequest) (paymentURL string, err error)
	Verify(ctx context.Context, reference string) (StatusCode, error)
}

type AdapterConfig struct {
	BaseURL    string
	MerchantID string
	Secret     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (Adapter, error)
}
