package idcodec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"
)

// sealGCM encrypts plaintext under key and returns nonce‖ciphertext‖tag, the
// same layout the refresh endpoint's response body uses: the first 12 bytes
// are the nonce, the remainder is the AES-GCM sealed output.
func sealGCM(key []byte, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errDecryptFailed(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errDecryptFailed(err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errDecryptFailed(err)
	}

	out := gcm.Seal(nonce, nonce, plaintext, nil)
	return out, nil
}

// openGCM reverses sealGCM: it splits the nonce off the front of blob and
// authenticates+decrypts the remainder.
func openGCM(key []byte, blob []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errDecryptFailed(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errDecryptFailed(err)
	}

	nonceSize := gcm.NonceSize()
	if len(blob) < nonceSize {
		return nil, errMalformed("ciphertext shorter than nonce")
	}

	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errDecryptFailed(err)
	}
	return plaintext, nil
}
