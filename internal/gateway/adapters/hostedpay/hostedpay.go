package hostedpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/slotworks/bookpay/internal/gateway/domain"
)

// Factory builds adapters for a hosted-checkout gateway speaking the
// common intent/verify HTTP shape: POST /v1/intents opens a checkout
// session, GET /v1/intents/{reference} reports its status. Requests are
// signed with HMAC-SHA256 over the body.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "hostedpay"
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.Adapter, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" || strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("hostedpay: base url and secret are required")
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Adapter{
		baseURL:    baseURL,
		merchantID: cfg.MerchantID,
		secret:     cfg.Secret,
		client:     client,
	}, nil
}

type Adapter struct {
	baseURL    string
	merchantID string
	secret     string
	client     *http.Client
}

type intentRequest struct {
	Reference     string `json:"reference"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email"`
}

type intentResponse struct {
	PaymentURL string `json:"payment_url"`
}

type verifyResponse struct {
	Status string `json:"status"`
}

func (a *Adapter) CreateIntent(ctx context.Context, req domain.IntentRequest) (string, error) {
	body, err := json.Marshal(intentRequest{
		Reference:     req.Reference,
		Amount:        req.Amount,
		Currency:      req.Currency,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode intent: %v", domain.ErrUnavailable, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/intents", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	a.sign(httpReq, body)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: create intent returned %d", domain.ErrUnavailable, resp.StatusCode)
	}

	var out intentResponse
	if err := decodeBody(resp.Body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	if strings.TrimSpace(out.PaymentURL) == "" {
		return "", fmt.Errorf("%w: gateway returned no payment url", domain.ErrUnavailable)
	}
	return out.PaymentURL, nil
}

func (a *Adapter) Verify(ctx context.Context, reference string) (domain.StatusCode, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/intents/"+reference, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	a.sign(httpReq, []byte(reference))

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: verify returned %d", domain.ErrUnavailable, resp.StatusCode)
	}

	var out verifyResponse
	if err := decodeBody(resp.Body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	code := domain.StatusCode(strings.ToLower(strings.TrimSpace(out.Status)))
	if code == "" {
		return "", fmt.Errorf("%w: gateway returned no status", domain.ErrUnavailable)
	}
	return code, nil
}

func (a *Adapter) sign(req *http.Request, body []byte) {
	mac := hmac.New(sha256.New, []byte(a.secret))
	_, _ = mac.Write(body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Merchant-Id", a.merchantID)
	req.Header.Set("X-Signature", hex.EncodeToString(mac.Sum(nil)))
}

func decodeBody(r io.Reader, out any) error {
	payload, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, out)
}
