package main

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/adsid/adsid-go/pkg/idcodec"
	"golang.org/x/crypto/hkdf"
)

// deriveResponseKey derives the symmetric key the client decrypts a refresh
// response with (the envelope's refresh_response_key), from a server-side
// seed and the identity it belongs to. Deriving it rather than storing it
// lets both token issuance and every later refresh agree on the same key
// without a lookup table: the same (seed, site, id) always produces the
// same 32-byte key.
func deriveResponseKey(seed []byte, ui idcodec.UserIdentity) ([]byte, error) {
	label := fmt.Sprintf("refresh-response-key:%d:%s", ui.SiteID, ui.ID)
	kdf := hkdf.New(sha256.New, seed, nil, []byte(label))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	return key, nil
}
