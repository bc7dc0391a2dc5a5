package app

import (
	goredis "github.com/redis/go-redis/v9"

	redisclient "github.com/taskhive/taskhive-backend/internal/clients/redis"
	"github.com/taskhive/taskhive-backend/internal/platform/kvstore"
	"github.com/taskhive/taskhive-backend/internal/platform/logger"
)

type Clients struct {
	Redis       *goredis.Client
	Overrides   kvstore.Store
	IdentityBus redisclient.IdentityBus
}

// wireClients degrades gracefully: without redis the override store is
// process-local and identity events stay in-process.
func wireClients(log *logger.Logger) Clients {
	rdb, err := redisclient.NewClient()
	if err != nil {
		log.Warn("Redis unavailable, using in-memory override store", "error", err)
		return Clients{Overrides: kvstore.NewMemory()}
	}
	bus, err := redisclient.NewIdentityBus(log, rdb)
	if err != nil {
		log.Warn("Identity bus init failed", "error", err)
	}
	return Clients{
		Redis:       rdb,
		Overrides:   redisclient.NewKVStore(rdb, "taskhive"),
		IdentityBus: bus,
	}
}
