package main

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adsid/adsid-go/pkg/asyncx"
	"github.com/adsid/adsid-go/pkg/idcodec"
	"github.com/adsid/adsid-go/pkg/idcodec/keydirectory"
	"github.com/adsid/adsid-go/pkg/kernel"
	"github.com/adsid/adsid-go/pkg/logx"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Container is the operator's composition root: it owns the key directory
// (and whatever infrastructure backs it) and the codec built on top of it.
// It never knows about Fiber — that lives in main.go and handlers.go.
type Container struct {
	Keys            idcodec.KeyStore
	Codec           *idcodec.Codec
	ResponseKeySeed []byte
	Optout          *optoutStore

	db  *sqlx.DB
	rdb *redis.Client
}

// NewContainer wires the key directory per KEYSTORE_MODE:
//   - "derived" (default): a seeded, in-memory keydirectory.DerivedKeyStore —
//     no external infrastructure, the right fit for cmd/clientdemo and for
//     running this operator standalone.
//   - "postgres": keydirectory.PostgresKeyStore, wrapped in
//     keydirectory.RedisCachedKeyStore when REDIS_ADDR is set.
func NewContainer() *Container {
	c := &Container{
		ResponseKeySeed: []byte(getEnv("RESPONSE_KEY_SEED", "refreshoperator-demo-seed")),
		Optout:          newOptoutStore(getEnv("OPTOUT_USERS", "")),
	}

	switch mode := getEnv("KEYSTORE_MODE", "derived"); mode {
	case "postgres":
		c.initPostgres()
	case "derived":
		c.initDerived()
	default:
		logx.Panicf("refreshoperator: unknown KEYSTORE_MODE %q", mode)
	}

	c.Codec = idcodec.NewCodec(c.Keys)
	return c
}

func (c *Container) initDerived() {
	sites := parseSiteIDs(getEnv("DERIVED_SITE_IDS", "1,2,3"))
	seed := []byte(getEnv("DERIVED_KEY_SEED", "refreshoperator-demo-key-seed"))
	c.Keys = keydirectory.NewDerivedKeyStore(seed, sites)
	logx.WithField("sites", sites).Info("refreshoperator: using derived in-memory key directory")
}

func (c *Container) initPostgres() {
	ctx := context.Background()
	dsn := getEnv("DATABASE_URL", "postgres://localhost/refreshoperator?sslmode=disable")
	db, err := asyncx.Retry(ctx, 3, func(ctx context.Context) (*sqlx.DB, error) {
		return sqlx.ConnectContext(ctx, "postgres", dsn)
	})
	if err != nil {
		logx.Fatalf("refreshoperator: failed to connect to Postgres: %v", err)
	}
	c.db = db

	pg := keydirectory.NewPostgresKeyStore(db)
	pg.WarmLog(ctx)
	var keys idcodec.KeyStore = pg

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if _, err := asyncx.Retry(ctx, 3, func(ctx context.Context) (string, error) {
			return rdb.Ping(ctx).Result()
		}); err != nil {
			logx.Fatalf("refreshoperator: failed to connect to Redis: %v", err)
		}
		c.rdb = rdb
		cached := keydirectory.NewRedisCachedKeyStore(rdb, keys, 5*time.Minute)
		cached.Warm(ctx, parseSiteIDs(getEnv("WARM_SITE_IDS", "")))
		keys = cached
		logx.Info("refreshoperator: key directory cached through Redis")
	}

	c.Keys = keys
	logx.Info("refreshoperator: using Postgres-backed key directory")
}

func (c *Container) Cleanup() {
	if c.rdb != nil {
		c.rdb.Close()
	}
	if c.db != nil {
		c.db.Close()
	}
}

func parseSiteIDs(csv string) []kernel.SiteID {
	parts := strings.Split(csv, ",")
	sites := make([]kernel.SiteID, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			continue
		}
		sites = append(sites, kernel.SiteID(n))
	}
	return sites
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
