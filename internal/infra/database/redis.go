package database

import (
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

func NewRedis(addr string, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	err := redisotel.InstrumentTracing(
		rdb,
		redisotel.WithAttributes(
			attribute.String("db.name", "redis"),
		),
	)
	if err != nil {
		return nil, err
	}

	return rdb, nil
}
