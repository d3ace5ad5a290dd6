package keydirectory

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adsid/adsid-go/pkg/asyncx"
	"github.com/adsid/adsid-go/pkg/idcodec"
	"github.com/adsid/adsid-go/pkg/kernel"
	"github.com/adsid/adsid-go/pkg/logx"
	"github.com/redis/go-redis/v9"
)

// RedisCachedKeyStore wraps another idcodec.KeyStore with a read-through
// Redis cache, namespaced `keydir:<kind>:<id>`, so keys decoded thousands
// of times a second (every advertising-token decode touches two of them)
// do not round-trip to Postgres each time.
type RedisCachedKeyStore struct {
	rdb  *redis.Client
	back idcodec.KeyStore
	ttl  time.Duration
}

// NewRedisCachedKeyStore wraps back with a cache of the given TTL. The TTL
// bounds how long a rotated key stays visible without forcing every decode
// through Postgres.
func NewRedisCachedKeyStore(rdb *redis.Client, back idcodec.KeyStore, ttl time.Duration) *RedisCachedKeyStore {
	return &RedisCachedKeyStore{rdb: rdb, back: back, ttl: ttl}
}

func masterKeyCacheKey(id kernel.KeyID) string { return fmt.Sprintf("keydir:master:%d", id) }
func siteKeyCacheKey(id kernel.KeyID) string   { return fmt.Sprintf("keydir:site:%d", id) }
func activeMasterCacheKey() string             { return "keydir:master:active" }
func activeSiteCacheKey(site kernel.SiteID) string {
	return fmt.Sprintf("keydir:site:active:%d", site)
}

func (r *RedisCachedKeyStore) ActiveMasterKey() (idcodec.Key, error) {
	return r.lookup(activeMasterCacheKey(), r.back.ActiveMasterKey)
}

func (r *RedisCachedKeyStore) MasterKey(id kernel.KeyID) (idcodec.Key, error) {
	return r.lookup(masterKeyCacheKey(id), func() (idcodec.Key, error) { return r.back.MasterKey(id) })
}

func (r *RedisCachedKeyStore) ActiveSiteKey(site kernel.SiteID) (idcodec.Key, error) {
	return r.lookup(activeSiteCacheKey(site), func() (idcodec.Key, error) { return r.back.ActiveSiteKey(site) })
}

func (r *RedisCachedKeyStore) SiteKey(id kernel.KeyID) (idcodec.Key, error) {
	return r.lookup(siteKeyCacheKey(id), func() (idcodec.Key, error) { return r.back.SiteKey(id) })
}

// Warm preloads the active master key and each listed site's active key so
// the first decode after startup does not fan out to the backing store.
// Failures are logged and skipped — warming is an optimization, never a
// startup gate.
func (r *RedisCachedKeyStore) Warm(ctx context.Context, sites []kernel.SiteID) {
	lookups := []func() (idcodec.Key, error){r.ActiveMasterKey}
	for _, site := range sites {
		site := site
		lookups = append(lookups, func() (idcodec.Key, error) { return r.ActiveSiteKey(site) })
	}

	if _, err := asyncx.Pool(ctx, 4, lookups,
		func(_ context.Context, fetch func() (idcodec.Key, error)) (idcodec.Key, error) {
			return fetch()
		}); err != nil {
		logx.WithError(err).Warn("keydirectory: cache warm incomplete")
		return
	}
	logx.WithField("keys", len(lookups)).Debug("keydirectory: cache warmed")
}

// lookup checks Redis for cacheKey; on a miss it calls fetch, caches the
// result, and returns it. Cache errors never fail the lookup — they just
// fall through to the backing store.
func (r *RedisCachedKeyStore) lookup(cacheKey string, fetch func() (idcodec.Key, error)) (idcodec.Key, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if cached, ok := r.getCached(ctx, cacheKey); ok {
		return cached, nil
	}

	key, err := fetch()
	if err != nil {
		return idcodec.Key{}, err
	}

	r.setCached(ctx, cacheKey, key)
	return key, nil
}

type cachedKey struct {
	ID     uint32 `json:"id"`
	Secret string `json:"secret"` // base64
}

func (r *RedisCachedKeyStore) getCached(ctx context.Context, cacheKey string) (idcodec.Key, bool) {
	val, err := r.rdb.Get(ctx, cacheKey).Result()
	if err != nil {
		return idcodec.Key{}, false
	}
	var ck cachedKey
	if err := json.Unmarshal([]byte(val), &ck); err != nil {
		logx.WithError(err).Warn("keydirectory: corrupt cache entry, ignoring")
		return idcodec.Key{}, false
	}
	secret, err := base64.StdEncoding.DecodeString(ck.Secret)
	if err != nil {
		return idcodec.Key{}, false
	}
	return idcodec.Key{ID: kernel.KeyID(ck.ID), Secret: secret}, true
}

func (r *RedisCachedKeyStore) setCached(ctx context.Context, cacheKey string, key idcodec.Key) {
	payload, err := json.Marshal(cachedKey{ID: uint32(key.ID), Secret: base64.StdEncoding.EncodeToString(key.Secret)})
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, cacheKey, payload, r.ttl).Err(); err != nil {
		logx.WithError(err).Debug("keydirectory: cache write failed, continuing uncached")
	}
}
