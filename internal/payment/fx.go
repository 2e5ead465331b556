package payment

import (
	"github.com/slotworks/bookpay/internal/payment/repository"
	"github.com/slotworks/bookpay/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
