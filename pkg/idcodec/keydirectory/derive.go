package keydirectory

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/adsid/adsid-go/pkg/idcodec"
	"github.com/adsid/adsid-go/pkg/kernel"
	"golang.org/x/crypto/hkdf"
)

// DerivedKeyStore is a deterministic, in-memory idcodec.KeyStore: every key
// it hands out is an HKDF expansion of a single seed, keyed by a string
// label so the same seed always produces the same directory. It needs no
// database or cache, which makes it the right fit for cmd/clientdemo and
// for tests that want a realistic KeyStore without standing up Postgres.
type DerivedKeyStore struct {
	seed           []byte
	activeMaster   kernel.KeyID
	activeSitesMap map[kernel.SiteID]kernel.KeyID
}

// NewDerivedKeyStore builds a store with one active master key (id 1) and
// one active site key per id in sites, each derived from seed.
func NewDerivedKeyStore(seed []byte, sites []kernel.SiteID) *DerivedKeyStore {
	active := make(map[kernel.SiteID]kernel.KeyID, len(sites))
	for i, site := range sites {
		// site key ids start at 100 and increment, keeping them distinct
		// from the master key id space.
		active[site] = kernel.KeyID(100 + i)
	}
	return &DerivedKeyStore{seed: seed, activeMaster: 1, activeSitesMap: active}
}

func (d *DerivedKeyStore) deriveSecret(label string) ([]byte, error) {
	kdf := hkdf.New(sha256.New, d.seed, nil, []byte(label))
	secret := make([]byte, 32)
	if _, err := io.ReadFull(kdf, secret); err != nil {
		return nil, errQueryFailed(err)
	}
	return secret, nil
}

func (d *DerivedKeyStore) ActiveMasterKey() (idcodec.Key, error) {
	return d.MasterKey(d.activeMaster)
}

func (d *DerivedKeyStore) MasterKey(id kernel.KeyID) (idcodec.Key, error) {
	if id != d.activeMaster {
		return idcodec.Key{}, errKeyNotFound(id)
	}
	secret, err := d.deriveSecret(fmt.Sprintf("master-key:%d", id))
	if err != nil {
		return idcodec.Key{}, err
	}
	return idcodec.Key{ID: id, Secret: secret}, nil
}

func (d *DerivedKeyStore) ActiveSiteKey(site kernel.SiteID) (idcodec.Key, error) {
	id, ok := d.activeSitesMap[site]
	if !ok {
		return idcodec.Key{}, errNoActiveSite(site)
	}
	return d.SiteKey(id)
}

func (d *DerivedKeyStore) SiteKey(id kernel.KeyID) (idcodec.Key, error) {
	known := false
	for _, siteKeyID := range d.activeSitesMap {
		if siteKeyID == id {
			known = true
			break
		}
	}
	if !known {
		return idcodec.Key{}, errKeyNotFound(id)
	}
	secret, err := d.deriveSecret(fmt.Sprintf("site-key:%d", id))
	if err != nil {
		return idcodec.Key{}, err
	}
	return idcodec.Key{ID: id, Secret: secret}, nil
}

var _ idcodec.KeyStore = (*DerivedKeyStore)(nil)
var _ idcodec.KeyStore = (*PostgresKeyStore)(nil)
var _ idcodec.KeyStore = (*RedisCachedKeyStore)(nil)
