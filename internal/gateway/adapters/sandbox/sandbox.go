package sandbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/slotworks/bookpay/internal/gateway/domain"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "sandbox"
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.Adapter, error) {
	return New(), nil
}

// Adapter is an in-memory gateway for local development and tests. Created
// intents start pending; tests and dev tooling move them to a terminal
// code with SetStatus.
type Adapter struct {
	mu       sync.Mutex
	statuses map[string]domain.StatusCode

	failCreate bool
	failVerify bool
}

func New() *Adapter {
	return &Adapter{statuses: map[string]domain.StatusCode{}}
}

func (a *Adapter) CreateIntent(ctx context.Context, req domain.IntentRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failCreate {
		return "", fmt.Errorf("%w: sandbox create disabled", domain.ErrUnavailable)
	}
	a.statuses[req.Reference] = domain.StatusPending
	return "https://sandbox.gateway.test/checkout/" + req.Reference, nil
}

func (a *Adapter) Verify(ctx context.Context, reference string) (domain.StatusCode, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failVerify {
		return "", fmt.Errorf("%w: sandbox verify disabled", domain.ErrUnavailable)
	}
	code, ok := a.statuses[reference]
	if !ok {
		return "", fmt.Errorf("%w: unknown reference on sandbox gateway", domain.ErrUnavailable)
	}
	return code, nil
}

// SetStatus scripts the gateway-side status for a reference.
func (a *Adapter) SetStatus(reference string, code domain.StatusCode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.statuses[reference] = code
}

// FailCreate toggles transport failure on CreateIntent.
func (a *Adapter) FailCreate(fail bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failCreate = fail
}

// FailVerify toggles transport failure on Verify.
func (a *Adapter) FailVerify(fail bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failVerify = fail
}
