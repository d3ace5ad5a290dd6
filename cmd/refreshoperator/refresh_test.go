package main

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/adsid/adsid-go/pkg/idcodec"
	"github.com/adsid/adsid-go/pkg/idcodec/keydirectory"
	"github.com/adsid/adsid-go/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

func testContainer() *Container {
	keys := keydirectory.NewDerivedKeyStore([]byte("test-seed"), []kernel.SiteID{1})
	return &Container{
		Keys:            keys,
		Codec:           idcodec.NewCodec(keys),
		ResponseKeySeed: []byte("test-response-key-seed"),
		Optout:          newOptoutStore(""),
	}
}

func testApp(c *Container) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: globalErrorHandler})
	app.Post("/v2/token/refresh", refreshHandler(c))
	app.Post("/v2/token/client-generate", bootstrapHandler(c))
	return app
}

func openSealed(t *testing.T, key []byte, sealed string) wireResponse {
	t.Helper()
	blob, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		t.Fatalf("base64 decode: %v", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatalf("new gcm: %v", err)
	}
	nonce, ciphertext := blob[:gcm.NonceSize()], blob[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var resp wireResponse
	if err := json.Unmarshal(plain, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return resp
}

func TestBootstrapThenRefreshRoundTrips(t *testing.T) {
	c := testContainer()
	app := testApp(c)

	bootstrapBody, _ := json.Marshal(map[string]any{"site_id": 1, "id": "user-1"})
	req := httptest.NewRequest("POST", "/v2/token/client-generate", bytes.NewReader(bootstrapBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("bootstrap request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("bootstrap status = %d", resp.StatusCode)
	}

	var env wireEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode bootstrap body: %v", err)
	}
	if env.AdvertisingToken == "" || env.RefreshToken == "" {
		t.Fatalf("bootstrap envelope incomplete: %+v", env)
	}

	refreshReq := httptest.NewRequest("POST", "/v2/token/refresh", bytes.NewReader([]byte(env.RefreshToken)))
	refreshResp, err := app.Test(refreshReq)
	if err != nil {
		t.Fatalf("refresh request: %v", err)
	}
	if refreshResp.StatusCode != 200 {
		t.Fatalf("refresh status = %d", refreshResp.StatusCode)
	}

	sealed, err := io.ReadAll(refreshResp.Body)
	if err != nil {
		t.Fatalf("read refresh body: %v", err)
	}

	responseKey, err := base64.StdEncoding.DecodeString(env.RefreshResponseKey)
	if err != nil {
		t.Fatalf("decode response key: %v", err)
	}

	wr := openSealed(t, responseKey, string(sealed))
	if wr.Status != "success" {
		t.Fatalf("status = %s, want success", wr.Status)
	}
	if wr.Body == nil || wr.Body.AdvertisingToken == "" {
		t.Fatalf("refreshed body incomplete: %+v", wr.Body)
	}
}

func TestRefreshWithGarbageTokenReturns400(t *testing.T) {
	c := testContainer()
	app := testApp(c)

	req := httptest.NewRequest("POST", "/v2/token/refresh", bytes.NewReader([]byte("not-a-real-token")))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRefreshOptedOutUser(t *testing.T) {
	c := testContainer()
	c.Optout = newOptoutStore("1:user-2")
	app := testApp(c)

	bootstrapBody, _ := json.Marshal(map[string]any{"site_id": 1, "id": "user-2"})
	req := httptest.NewRequest("POST", "/v2/token/client-generate", bytes.NewReader(bootstrapBody))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	var env wireEnvelope
	json.NewDecoder(resp.Body).Decode(&env)

	refreshReq := httptest.NewRequest("POST", "/v2/token/refresh", bytes.NewReader([]byte(env.RefreshToken)))
	refreshResp, err := app.Test(refreshReq)
	if err != nil {
		t.Fatalf("refresh request: %v", err)
	}

	sealed, _ := io.ReadAll(refreshResp.Body)
	responseKey, _ := base64.StdEncoding.DecodeString(env.RefreshResponseKey)
	wr := openSealed(t, responseKey, string(sealed))
	if wr.Status != "optout" {
		t.Errorf("status = %s, want optout", wr.Status)
	}
}
