package idcodec

import "github.com/adsid/adsid-go/pkg/kernel"

// Key is a single symmetric key entry from a key directory.
type Key struct {
	ID     kernel.KeyID
	Secret []byte // 32 bytes, used directly as an AES-256-GCM key
}

// KeyStore is the contract the codec needs from a key directory — the
// salt/key directory itself is an external collaborator out of scope for
// this package; KeyStore is the only shape it must expose.
//
// ActiveMasterKey/ActiveSiteKey are used when encoding a fresh token;
// MasterKey/SiteKey resolve a specific, already-embedded key id when
// decoding one. Both return an error when the id is not present.
type KeyStore interface {
	ActiveMasterKey() (Key, error)
	MasterKey(id kernel.KeyID) (Key, error)

	ActiveSiteKey(site kernel.SiteID) (Key, error)
	SiteKey(id kernel.KeyID) (Key, error)
}
