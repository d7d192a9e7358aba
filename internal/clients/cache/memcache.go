package cache

import (
	"github.com/pkg/errors"

	"go.uber.org/zap"
	"github.com/somanshu-agarwal/BareMinimum/internal/logger"

	"github.com/bradfitz/gomemcache/memcache"
)

const keyPrefix = "expenses:"

// MemcacheClient caches the per-owner expense listing served by the remote
// store, invalidated on every write for that owner.
type MemcacheClient struct {
	client *memcache.Client
}

type config interface {
	Hosts() []string
}

func NewMemcache(config config) (*MemcacheClient, error) {
	logger.Info("memcached hosts", zap.Strings("hosts", config.Hosts()))
	mc := memcache.New(config.Hosts()...)
	return &MemcacheClient{mc}, mc.Ping()
}

func formatKey(owner string) string {
	return keyPrefix + owner
}

func (mc *MemcacheClient) CacheExpenses(owner string, payload []byte) error {
	return mc.client.Set(&memcache.Item{
		Key:   formatKey(owner),
		Value: payload,
	})
}

func (mc *MemcacheClient) GetExpenses(owner string) ([]byte, error) {
	item, err := mc.client.Get(formatKey(owner))
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

func (mc *MemcacheClient) Invalidate(owner string) error {
	logger.Info("invalidate expenses cache", zap.String("owner", owner))

	err := mc.client.Delete(formatKey(owner))
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return err
	}
	return nil
}

func IsCacheMiss(err error) bool {
	return errors.Is(err, memcache.ErrCacheMiss)
}
