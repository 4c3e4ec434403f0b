package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/service/realtime"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Realtime selects how message events reach connected clients
type Realtime struct {
	backend  string
	addr     string
	password string `masq:"secret"`
	db       int
}

func (x *Realtime) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "realtime-backend",
			Usage:       "Realtime event backend (none or redis)",
			Category:    "Realtime",
			Value:       "none",
			Sources:     cli.EnvVars("NUTRISHA_REALTIME_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "redis-addr",
			Usage:       "Redis address, e.g. localhost:6379",
			Category:    "Realtime",
			Sources:     cli.EnvVars("NUTRISHA_REDIS_ADDR"),
			Destination: &x.addr,
		},
		&cli.StringFlag{
			Name:        "redis-password",
			Usage:       "Redis password",
			Category:    "Realtime",
			Sources:     cli.EnvVars("NUTRISHA_REDIS_PASSWORD"),
			Destination: &x.password,
		},
		&cli.IntFlag{
			Name:        "redis-db",
			Usage:       "Redis database number",
			Category:    "Realtime",
			Sources:     cli.EnvVars("NUTRISHA_REDIS_DB"),
			Destination: &x.db,
		},
	}
}

// Configure returns the publisher and its closer
func (x *Realtime) Configure(ctx context.Context) (interfaces.RealtimePublisher, func(), error) {
	switch x.backend {
	case "none", "":
		logging.Default().Info("Realtime events disabled")
		return &realtime.Noop{}, func() {}, nil

	case "redis":
		r, err := realtime.NewRedis(ctx, x.addr, x.password, x.db)
		if err != nil {
			return nil, func() {}, goerr.Wrap(err, "failed to initialize redis publisher")
		}
		logging.Default().Info("Using Redis realtime publisher", "addr", x.addr, "db", x.db)
		return r, func() {
			if err := r.Close(); err != nil {
				logging.Default().Error("failed to close redis client", "error", err.Error())
			}
		}, nil

	default:
		return nil, func() {}, goerr.Wrap(ErrInvalidBackend, "invalid realtime backend", goerr.V(BackendKey, x.backend))
	}
}
