package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/slotworks/bookpay/internal/booking"
	"github.com/slotworks/bookpay/internal/clock"
	"github.com/slotworks/bookpay/internal/config"
	"github.com/slotworks/bookpay/internal/gateway"
	"github.com/slotworks/bookpay/internal/linker"
	"github.com/slotworks/bookpay/internal/logger"
	"github.com/slotworks/bookpay/internal/migration"
	obsmetrics "github.com/slotworks/bookpay/internal/observability/metrics"
	"github.com/slotworks/bookpay/internal/payment"
	"github.com/slotworks/bookpay/internal/reconciler"
	"github.com/slotworks/bookpay/internal/server"
	"github.com/slotworks/bookpay/internal/slot"
	"github.com/slotworks/bookpay/internal/user"
	"github.com/slotworks/bookpay/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		obsmetrics.Module,
		migration.Module,

		// Domain services
		user.Module,
		slot.Module,
		gateway.Module,
		booking.Module,
		linker.Module,
		payment.Module,
		reconciler.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
