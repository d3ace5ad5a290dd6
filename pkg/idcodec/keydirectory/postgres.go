// Package keydirectory provides server-side implementations of
// idcodec.KeyStore: a Postgres-backed directory of record, a Redis
// read-through cache in front of it, and a deterministic in-memory
// directory derived via HKDF for tests and local demos. Key rotation
// policy is a deployment concern; this package only answers lookups.
package keydirectory

import (
	"context"
	"database/sql"
	"time"

	"github.com/adsid/adsid-go/pkg/idcodec"
	"github.com/adsid/adsid-go/pkg/kernel"
	"github.com/adsid/adsid-go/pkg/logx"
	"github.com/jmoiron/sqlx"
)

// PostgresKeyStore is the directory of record for master and site keys: a
// thin sqlx wrapper, one row struct per table, errx-wrapped query errors.
type PostgresKeyStore struct {
	db *sqlx.DB
}

// NewPostgresKeyStore wraps an existing *sqlx.DB. The caller owns the
// connection's lifecycle.
func NewPostgresKeyStore(db *sqlx.DB) *PostgresKeyStore {
	return &PostgresKeyStore{db: db}
}

type masterKeyRow struct {
	ID       int64  `db:"id"`
	Secret   []byte `db:"secret"`
	IsActive bool   `db:"is_active"`
}

type siteKeyRow struct {
	ID       int64  `db:"id"`
	SiteID   int64  `db:"site_id"`
	Secret   []byte `db:"secret"`
	IsActive bool   `db:"is_active"`
}

// Schema is the DDL this store expects to exist. Creating it is a
// deployment concern, not this package's — callers run it with whatever
// migration tool they already use.
const Schema = `
CREATE TABLE IF NOT EXISTS master_keys (
	id         BIGINT PRIMARY KEY,
	secret     BYTEA NOT NULL,
	is_active  BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS site_keys (
	id         BIGINT PRIMARY KEY,
	site_id    BIGINT NOT NULL,
	secret     BYTEA NOT NULL,
	is_active  BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS site_keys_active_per_site
	ON site_keys (site_id) WHERE is_active;
`

func (s *PostgresKeyStore) ActiveMasterKey() (idcodec.Key, error) {
	var row masterKeyRow
	err := s.db.Get(&row, `SELECT id, secret, is_active FROM master_keys WHERE is_active LIMIT 1`)
	if err == sql.ErrNoRows {
		return idcodec.Key{}, errNoActiveMaster()
	}
	if err != nil {
		return idcodec.Key{}, errQueryFailed(err)
	}
	return idcodec.Key{ID: kernel.KeyID(row.ID), Secret: row.Secret}, nil
}

func (s *PostgresKeyStore) MasterKey(id kernel.KeyID) (idcodec.Key, error) {
	var row masterKeyRow
	err := s.db.Get(&row, `SELECT id, secret, is_active FROM master_keys WHERE id = $1`, int64(id))
	if err == sql.ErrNoRows {
		return idcodec.Key{}, errKeyNotFound(id)
	}
	if err != nil {
		return idcodec.Key{}, errQueryFailed(err)
	}
	return idcodec.Key{ID: kernel.KeyID(row.ID), Secret: row.Secret}, nil
}

func (s *PostgresKeyStore) ActiveSiteKey(site kernel.SiteID) (idcodec.Key, error) {
	var row siteKeyRow
	err := s.db.Get(&row, `SELECT id, site_id, secret, is_active FROM site_keys WHERE site_id = $1 AND is_active LIMIT 1`, int64(site))
	if err == sql.ErrNoRows {
		return idcodec.Key{}, errNoActiveSite(site)
	}
	if err != nil {
		return idcodec.Key{}, errQueryFailed(err)
	}
	return idcodec.Key{ID: kernel.KeyID(row.ID), Secret: row.Secret}, nil
}

func (s *PostgresKeyStore) SiteKey(id kernel.KeyID) (idcodec.Key, error) {
	var row siteKeyRow
	err := s.db.Get(&row, `SELECT id, site_id, secret, is_active FROM site_keys WHERE id = $1`, int64(id))
	if err == sql.ErrNoRows {
		return idcodec.Key{}, errKeyNotFound(id)
	}
	if err != nil {
		return idcodec.Key{}, errQueryFailed(err)
	}
	return idcodec.Key{ID: kernel.KeyID(row.ID), Secret: row.Secret}, nil
}

// WarmLog checks for an active master key on startup and logs a warning if
// there is none — useful for catching an empty directory before the first
// request hits it. Site keys are not checked.
func (s *PostgresKeyStore) WarmLog(ctx context.Context) {
	start := time.Now()
	if _, err := s.ActiveMasterKey(); err != nil {
		logx.WithError(err).Warn("keydirectory: no active master key on startup")
	}
	logx.WithField("elapsed_ms", time.Since(start).Milliseconds()).Debug("keydirectory: warm check complete")
}
