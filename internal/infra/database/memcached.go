package database

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

func NewMemcached(server string) (*memcache.Client, error) {
	mc := memcache.New(server)
	mc.Timeout = 500 * time.Millisecond
	mc.MaxIdleConns = 8

	err := mc.Ping()
	if err != nil {
		return nil, err
	}

	return mc, nil
}
