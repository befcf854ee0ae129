package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/verifychain/verifychain/internal/domain"
)

// assetTTL bounds staleness of the cached read copies. The registry window
// rebuild overwrites entries well before expiry under normal operation; the
// TTL only caps how long a stale copy can outlive a dead refresher.
const assetTTL = 5 * time.Minute

// AssetCache implements domain.AssetCache over Redis string keys holding
// JSON-serialized asset records.
//
// Key schema:
//
//	asset:{id} - JSON-encoded domain.Asset
type AssetCache struct {
	rdb *redis.Client
}

// NewAssetCache creates an AssetCache backed by the given Client.
func NewAssetCache(c *Client) *AssetCache {
	return &AssetCache{rdb: c.Underlying()}
}

func assetKey(id int64) string {
	return "asset:" + strconv.FormatInt(id, 10)
}

// Set stores a read copy of an asset record with the cache TTL.
func (ac *AssetCache) Set(ctx context.Context, asset domain.Asset) error {
	data, err := json.Marshal(asset)
	if err != nil {
		return fmt.Errorf("redis: marshal asset %d: %w", asset.ID, err)
	}
	if err := ac.rdb.Set(ctx, assetKey(asset.ID), data, assetTTL).Err(); err != nil {
		return fmt.Errorf("redis: set asset %d: %w", asset.ID, err)
	}
	return nil
}

// Get retrieves a cached asset record by id. It returns domain.ErrNotFound
// when the key does not exist.
func (ac *AssetCache) Get(ctx context.Context, id int64) (domain.Asset, error) {
	data, err := ac.rdb.Get(ctx, assetKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Asset{}, domain.ErrNotFound
		}
		return domain.Asset{}, fmt.Errorf("redis: get asset %d: %w", id, err)
	}

	var asset domain.Asset
	if err := json.Unmarshal(data, &asset); err != nil {
		return domain.Asset{}, fmt.Errorf("redis: unmarshal asset %d: %w", id, err)
	}
	return asset, nil
}

// Invalidate removes a cached asset record.
func (ac *AssetCache) Invalidate(ctx context.Context, id int64) error {
	if err := ac.rdb.Del(ctx, assetKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate asset %d: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.AssetCache = (*AssetCache)(nil)
