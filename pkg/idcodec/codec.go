package idcodec

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"io"
	"time"

	"github.com/adsid/adsid-go/pkg/kernel"
)

// Codec encodes and decodes the three token shapes. It is stateless aside
// from its KeyStore reference: decoding reads the embedded key id, fetches
// the key, and fails with the key directory's not-found error if the key
// is unknown.
type Codec struct {
	keys KeyStore
}

// NewCodec creates a Codec backed by the given key directory contract.
func NewCodec(keys KeyStore) *Codec {
	return &Codec{keys: keys}
}

// ─── User identity payload (shared inner framing) ──────────────────────────

func writeUserIdentity(buf *bytes.Buffer, ui UserIdentity) error {
	idBytes := []byte(ui.ID)
	if err := binary.Write(buf, binary.BigEndian, uint32(ui.SiteID)); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(len(idBytes))); err != nil {
		return err
	}
	buf.Write(idBytes)
	if err := binary.Write(buf, binary.BigEndian, ui.PrivacyBits); err != nil {
		return err
	}
	return binary.Write(buf, binary.BigEndian, uint64(ui.EstablishedAt))
}

func readUserIdentity(r *bytes.Reader) (UserIdentity, error) {
	var ui UserIdentity

	var siteID, idLen, privacyBits uint32
	var establishedAt uint64

	if err := binary.Read(r, binary.BigEndian, &siteID); err != nil {
		return ui, errMalformed("truncated site id")
	}
	if err := binary.Read(r, binary.BigEndian, &idLen); err != nil {
		return ui, errMalformed("truncated id length")
	}
	idBytes := make([]byte, idLen)
	if _, err := io.ReadFull(r, idBytes); err != nil {
		return ui, errMalformed("truncated id bytes")
	}
	if err := binary.Read(r, binary.BigEndian, &privacyBits); err != nil {
		return ui, errMalformed("truncated privacy bits")
	}
	if err := binary.Read(r, binary.BigEndian, &establishedAt); err != nil {
		return ui, errMalformed("truncated established_at")
	}

	ui.SiteID = kernel.SiteID(siteID)
	ui.ID = string(idBytes)
	ui.PrivacyBits = privacyBits
	ui.EstablishedAt = kernel.Millis(establishedAt)
	return ui, nil
}

// ─── Advertising token ──────────────────────────────────────────────────────

// EncodeAdvertisingToken produces the base64 wire form:
// version | masterKeyId | encrypt_master(expiresAt | siteKeyId |
// encrypt_site(userIdentity)).
func (c *Codec) EncodeAdvertisingToken(t AdvertisingToken) (string, error) {
	siteKey, err := c.keys.ActiveSiteKey(t.UserIdentity.SiteID)
	if err != nil {
		return "", err
	}

	var sitePlain bytes.Buffer
	if err := writeUserIdentity(&sitePlain, t.UserIdentity); err != nil {
		return "", errMalformed(err.Error())
	}
	siteCipher, err := sealGCM(siteKey.Secret, sitePlain.Bytes())
	if err != nil {
		return "", err
	}

	masterKey, err := c.keys.ActiveMasterKey()
	if err != nil {
		return "", err
	}

	var masterPlain bytes.Buffer
	binary.Write(&masterPlain, binary.BigEndian, uint64(t.ExpiresAt))
	binary.Write(&masterPlain, binary.BigEndian, uint32(siteKey.ID))
	masterPlain.Write(siteCipher)

	masterCipher, err := sealGCM(masterKey.Secret, masterPlain.Bytes())
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	out.WriteByte(Version)
	binary.Write(&out, binary.BigEndian, uint32(masterKey.ID))
	out.Write(masterCipher)

	return base64.StdEncoding.EncodeToString(out.Bytes()), nil
}

// DecodeAdvertisingToken reverses EncodeAdvertisingToken. now stamps the
// returned token's CreatedAt field, since CreatedAt is not part of the wire
// format.
func (c *Codec) DecodeAdvertisingToken(encoded string, now time.Time) (*AdvertisingToken, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errBadBase64(err)
	}
	r := bytes.NewReader(raw)

	version, err := r.ReadByte()
	if err != nil {
		return nil, errMalformed("empty token")
	}
	if version != Version {
		return nil, errUnknownVersion(version)
	}

	var masterKeyID uint32
	if err := binary.Read(r, binary.BigEndian, &masterKeyID); err != nil {
		return nil, errMalformed("truncated master key id")
	}
	masterKey, err := c.keys.MasterKey(kernel.KeyID(masterKeyID))
	if err != nil {
		return nil, err
	}

	masterCipher := make([]byte, r.Len())
	io.ReadFull(r, masterCipher)
	masterPlain, err := openGCM(masterKey.Secret, masterCipher)
	if err != nil {
		return nil, err
	}

	mr := bytes.NewReader(masterPlain)
	var expiresAt uint64
	var siteKeyID uint32
	if err := binary.Read(mr, binary.BigEndian, &expiresAt); err != nil {
		return nil, errMalformed("truncated expires_at")
	}
	if err := binary.Read(mr, binary.BigEndian, &siteKeyID); err != nil {
		return nil, errMalformed("truncated site key id")
	}

	siteKey, err := c.keys.SiteKey(kernel.KeyID(siteKeyID))
	if err != nil {
		return nil, err
	}

	siteCipher := make([]byte, mr.Len())
	io.ReadFull(mr, siteCipher)
	sitePlain, err := openGCM(siteKey.Secret, siteCipher)
	if err != nil {
		return nil, err
	}

	ui, err := readUserIdentity(bytes.NewReader(sitePlain))
	if err != nil {
		return nil, err
	}

	return &AdvertisingToken{
		Version:      Version,
		CreatedAt:    kernel.FromTime(now),
		ExpiresAt:    kernel.Millis(expiresAt),
		UserIdentity: ui,
	}, nil
}

// ─── Refresh token ──────────────────────────────────────────────────────────

// EncodeRefreshToken produces the wire form: version | createdAt | expiresAt
// | validTill | masterKeyId | encrypt_master(userIdentity). Unlike the
// advertising token, every timestamp here is part of the wire format and
// round-trips exactly.
func (c *Codec) EncodeRefreshToken(t RefreshToken) (string, error) {
	masterKey, err := c.keys.ActiveMasterKey()
	if err != nil {
		return "", err
	}

	var plain bytes.Buffer
	if err := writeUserIdentity(&plain, t.UserIdentity); err != nil {
		return "", errMalformed(err.Error())
	}
	cipherBytes, err := sealGCM(masterKey.Secret, plain.Bytes())
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	out.WriteByte(Version)
	binary.Write(&out, binary.BigEndian, uint64(t.CreatedAt))
	binary.Write(&out, binary.BigEndian, uint64(t.ExpiresAt))
	binary.Write(&out, binary.BigEndian, uint64(t.ValidTill))
	binary.Write(&out, binary.BigEndian, uint32(masterKey.ID))
	out.Write(cipherBytes)

	return base64.StdEncoding.EncodeToString(out.Bytes()), nil
}

// DecodeRefreshToken reverses EncodeRefreshToken.
func (c *Codec) DecodeRefreshToken(encoded string) (*RefreshToken, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errBadBase64(err)
	}
	r := bytes.NewReader(raw)

	version, err := r.ReadByte()
	if err != nil {
		return nil, errMalformed("empty token")
	}
	if version != Version {
		return nil, errUnknownVersion(version)
	}

	var createdAt, expiresAt, validTill uint64
	var masterKeyID uint32
	if err := binary.Read(r, binary.BigEndian, &createdAt); err != nil {
		return nil, errMalformed("truncated created_at")
	}
	if err := binary.Read(r, binary.BigEndian, &expiresAt); err != nil {
		return nil, errMalformed("truncated expires_at")
	}
	if err := binary.Read(r, binary.BigEndian, &validTill); err != nil {
		return nil, errMalformed("truncated valid_till")
	}
	if err := binary.Read(r, binary.BigEndian, &masterKeyID); err != nil {
		return nil, errMalformed("truncated master key id")
	}

	masterKey, err := c.keys.MasterKey(kernel.KeyID(masterKeyID))
	if err != nil {
		return nil, err
	}

	cipherBytes := make([]byte, r.Len())
	io.ReadFull(r, cipherBytes)
	plain, err := openGCM(masterKey.Secret, cipherBytes)
	if err != nil {
		return nil, err
	}

	ui, err := readUserIdentity(bytes.NewReader(plain))
	if err != nil {
		return nil, err
	}

	return &RefreshToken{
		Version:      Version,
		CreatedAt:    kernel.Millis(createdAt),
		ExpiresAt:    kernel.Millis(expiresAt),
		ValidTill:    kernel.Millis(validTill),
		UserIdentity: ui,
	}, nil
}

// ─── User token ─────────────────────────────────────────────────────────────

// EncodeUserToken produces: version | siteKeyId | encrypt_site(userIdentity),
// the same inner payload shape as the advertising token's site layer but
// with no outer master-key layer.
func (c *Codec) EncodeUserToken(t UserToken) (string, error) {
	siteKey, err := c.keys.ActiveSiteKey(t.UserIdentity.SiteID)
	if err != nil {
		return "", err
	}

	var plain bytes.Buffer
	if err := writeUserIdentity(&plain, t.UserIdentity); err != nil {
		return "", errMalformed(err.Error())
	}
	cipherBytes, err := sealGCM(siteKey.Secret, plain.Bytes())
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	out.WriteByte(Version)
	binary.Write(&out, binary.BigEndian, uint32(siteKey.ID))
	out.Write(cipherBytes)

	return base64.StdEncoding.EncodeToString(out.Bytes()), nil
}

// DecodeUserToken reverses EncodeUserToken. CreatedAt is stamped from now;
// ExpiresAt and PrivacyBits2 are not part of the wire envelope (see
// DESIGN.md) and are left zero.
func (c *Codec) DecodeUserToken(encoded string, now time.Time) (*UserToken, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errBadBase64(err)
	}
	r := bytes.NewReader(raw)

	version, err := r.ReadByte()
	if err != nil {
		return nil, errMalformed("empty token")
	}
	if version != Version {
		return nil, errUnknownVersion(version)
	}

	var siteKeyID uint32
	if err := binary.Read(r, binary.BigEndian, &siteKeyID); err != nil {
		return nil, errMalformed("truncated site key id")
	}

	siteKey, err := c.keys.SiteKey(kernel.KeyID(siteKeyID))
	if err != nil {
		return nil, err
	}

	cipherBytes := make([]byte, r.Len())
	io.ReadFull(r, cipherBytes)
	plain, err := openGCM(siteKey.Secret, cipherBytes)
	if err != nil {
		return nil, err
	}

	ui, err := readUserIdentity(bytes.NewReader(plain))
	if err != nil {
		return nil, err
	}

	return &UserToken{
		Version:      Version,
		CreatedAt:    kernel.FromTime(now),
		UserIdentity: ui,
	}, nil
}
