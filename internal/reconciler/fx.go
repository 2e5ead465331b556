package reconciler

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/slotworks/bookpay/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("reconciler",
	fx.Provide(ProvideConfig),
	fx.Provide(ProvideRedis),
	fx.Provide(ProvideLocker),
	fx.Provide(New),
)

// SweeperModule additionally starts the periodic sweep loop. The API
// binary composes Module only; the sweeper binary composes both.
var SweeperModule = fx.Module("reconciler.sweeper",
	fx.Invoke(StartSweeper),
)

func ProvideRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
}

func ProvideLocker(client *redis.Client) *Locker {
	return NewLocker(client)
}

func StartSweeper(lc fx.Lifecycle, r *Reconciler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go r.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
