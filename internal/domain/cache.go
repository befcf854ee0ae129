package domain

import (
	"context"
	"time"
)

// AssetCache is a read copy of on-ledger asset records keyed by id. Entries
// carry a TTL; implementations return ErrNotFound on miss. There is no
// write-back: the ledger stays the source of truth.
type AssetCache interface {
	Set(ctx context.Context, asset Asset) error
	Get(ctx context.Context, id int64) (Asset, error)
	Invalidate(ctx context.Context, id int64) error
}

// BalanceCache caches token balances per account address.
type BalanceCache interface {
	Set(ctx context.Context, address string, balance int64) error
	Get(ctx context.Context, address string) (int64, error)
}

// SignalBus is a pub/sub fan-out for pipeline and ledger events. The
// WebSocket hub subscribes to stream live stage logs to clients.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// RateLimiter bounds request rates per key across server replicas.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
