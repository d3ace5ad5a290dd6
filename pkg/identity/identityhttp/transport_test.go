package identityhttp

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func sealResponse(t *testing.T, key []byte, resp wireResponse) string {
	t.Helper()
	plain, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatalf("new gcm: %v", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		t.Fatalf("nonce: %v", err)
	}
	sealed := gcm.Seal(nonce, nonce, plain, nil)
	return base64.StdEncoding.EncodeToString(sealed)
}

func TestRefreshDecodesSuccessResponse(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	body := sealResponse(t, key, wireResponse{
		Status: "success",
		Body: &wireEnvelope{
			AdvertisingToken:   "adv-tok",
			RefreshToken:       "refresh-tok",
			IdentityExpires:    1_700_000_000_000,
			RefreshFrom:        1_699_999_000_000,
			RefreshExpires:     1_700_000_000, // seconds-scale on purpose
			RefreshResponseKey: base64.StdEncoding.EncodeToString(key),
		},
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-UID2-Client-Version"); got == "" {
			t.Error("missing X-UID2-Client-Version header")
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := New(5 * time.Second)
	result, err := c.Refresh(context.Background(), srv.URL, "refresh-tok", key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != "success" {
		t.Fatalf("status = %s, want success", result.Status)
	}
	if result.Body.AdvertisingToken != "adv-tok" {
		t.Errorf("advertising token = %q, want adv-tok", result.Body.AdvertisingToken)
	}
	// RefreshExpires was seconds-scale and must have been normalized to ms.
	if result.Body.RefreshExpires != 1_700_000_000_000 {
		t.Errorf("refresh_expires = %d, want normalized to ms", result.Body.RefreshExpires)
	}
}

func TestRefreshFoldsUndecodableResponseIntoError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not-valid-base64!!!"))
	}))
	defer srv.Close()

	c := New(5 * time.Second)
	result, err := c.Refresh(context.Background(), srv.URL, "refresh-tok", make([]byte, 32))
	if err != nil {
		t.Fatalf("decode failures should not surface a Go error, got %v", err)
	}
	if result.Status != "error" {
		t.Errorf("status = %s, want error", result.Status)
	}
}
