package slot

import (
	"github.com/slotworks/bookpay/internal/slot/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("slot.repository",
	fx.Provide(repository.Provide),
)
