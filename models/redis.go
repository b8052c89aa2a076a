package models

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis opens the optional Redis connection used for the pending
// OAuth handshake store and the market-data cache. Returns nil when the
// server cannot be reached; callers fall back to the in-memory stores.
func ConnectRedis(host, port, user, password, db, env string) *redis.Client {
	dbInt, _ := strconv.Atoi(db)
	options := &redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       dbInt,
		Username: user,
	}

	if env == "prod" {
		options.TLSConfig = &tls.Config{
			ServerName: host,
		}
	}

	rdb := redis.NewClient(options)

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil
	}

	return rdb
}
