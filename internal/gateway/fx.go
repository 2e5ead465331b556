package gateway

import (
	"github.com/slotworks/bookpay/internal/config"
	"github.com/slotworks/bookpay/internal/gateway/adapters"
	"github.com/slotworks/bookpay/internal/gateway/adapters/hostedpay"
	"github.com/slotworks/bookpay/internal/gateway/adapters/sandbox"
	"github.com/slotworks/bookpay/internal/gateway/domain"
	"go.uber.org/fx"
)

func NewAdapter(registry *adapters.Registry, cfg config.Config) (domain.Adapter, error) {
	return registry.NewAdapter(cfg.Gateway.Provider, domain.AdapterConfig{
		BaseURL:    cfg.Gateway.BaseURL,
		MerchantID: cfg.Gateway.MerchantID,
		Secret:     cfg.Gateway.Secret,
		Timeout:    cfg.Gateway.Timeout,
	})
}

var Module = fx.Module("gateway",
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			hostedpay.NewFactory(),
			sandbox.NewFactory(),
		)
	}),
	fx.Provide(NewAdapter),
)
