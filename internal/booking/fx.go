package booking

import (
	"github.com/slotworks/bookpay/internal/booking/repository"
	"github.com/slotworks/bookpay/internal/booking/service"
	"go.uber.org/fx"
)

var Module = fx.Module("booking.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
