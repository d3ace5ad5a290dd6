// Package identityhttp is the production identity.Transport: a net/http
// client that performs the refresh RPC and decrypts the response body the
// same way the Token Codec's cipher layer does, keyed by the envelope's
// refresh_response_key instead of a directory key.
package identityhttp

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/adsid/adsid-go/pkg/identity"
	"github.com/adsid/adsid-go/pkg/kernel"
	"github.com/adsid/adsid-go/pkg/logx"
	"github.com/google/uuid"
)

const refreshPath = "/v2/token/refresh"

// Client is a net/http-backed identity.Transport. The zero value is not
// usable; construct with New.
type Client struct {
	httpClient *http.Client
}

// New creates a Client. timeout bounds the whole RPC, including response
// body drain; the zero value disables the bound (not recommended).
func New(timeout time.Duration) *Client {
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

var _ identity.Transport = (*Client)(nil)

// wireResponse mirrors the refresh endpoint's decrypted JSON body.
type wireResponse struct {
	Status string        `json:"status"`
	Body   *wireEnvelope `json:"body,omitempty"`
}

// wireEnvelope is the JSON shape of a success response's body, with raw
// int64 timestamps normalized through kernel.NormalizeMillis on decode
// since the refresh endpoint has historically mixed seconds and
// milliseconds across fields.
type wireEnvelope struct {
	AdvertisingToken   string `json:"advertising_token"`
	RefreshToken       string `json:"refresh_token"`
	IdentityExpires    int64  `json:"identity_expires"`
	RefreshFrom        int64  `json:"refresh_from"`
	RefreshExpires     int64  `json:"refresh_expires"`
	RefreshResponseKey string `json:"refresh_response_key"`
}

// Refresh implements identity.Transport. A failure to build, send, or read
// the RPC is returned as a Go error. A response that fails to
// base64/AES-GCM/JSON-decode is reported as
// RefreshResult{Status: RefreshError} with a nil error — per the Transport
// contract, only the RPC layer itself returns a Go error, and this client
// chooses to fold decode failures into the same bucket a caller already
// handles as a recoverable refresh error.
func (c *Client) Refresh(ctx context.Context, baseURL, refreshToken string, responseKey []byte) (identity.RefreshResult, error) {
	reqID := uuid.NewString()
	ctx = context.WithValue(ctx, kernel.TraceIDKey, reqID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+refreshPath, bytes.NewBufferString(refreshToken))
	if err != nil {
		return identity.RefreshResult{}, err
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("X-UID2-Client-Version", identity.ClientVersion)
	req.Header.Set("X-Request-Id", reqID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return identity.RefreshResult{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return identity.RefreshResult{}, err
	}

	result, ok := decodeResponse(raw, responseKey)
	if !ok {
		logx.WithField("request_id", reqID).Warn("identityhttp: refresh response failed to decode, treating as error")
		return identity.RefreshResult{Status: identity.RefreshError}, nil
	}
	return result, nil
}

// decodeResponse reverses the response envelope: base64 decode, split the
// leading 12-byte nonce, AES-GCM open under responseKey, then parse the
// plaintext JSON. Any failure at any stage reports ok=false; the caller
// folds that into RefreshError rather than surfacing a Go error, since a
// malformed response is functionally the same as an RPC the server
// couldn't answer.
func decodeResponse(raw []byte, responseKey []byte) (identity.RefreshResult, bool) {
	blob, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(raw)))
	if err != nil {
		return identity.RefreshResult{}, false
	}

	block, err := aes.NewCipher(responseKey)
	if err != nil {
		return identity.RefreshResult{}, false
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return identity.RefreshResult{}, false
	}
	if len(blob) < gcm.NonceSize() {
		return identity.RefreshResult{}, false
	}
	nonce, ciphertext := blob[:gcm.NonceSize()], blob[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return identity.RefreshResult{}, false
	}

	var wr wireResponse
	if err := json.Unmarshal(plain, &wr); err != nil {
		return identity.RefreshResult{}, false
	}

	result := identity.RefreshResult{Status: identity.RefreshStatus(wr.Status)}
	if result.Status == identity.RefreshSuccess {
		if wr.Body == nil {
			return identity.RefreshResult{}, false
		}
		keyBytes, err := base64.StdEncoding.DecodeString(wr.Body.RefreshResponseKey)
		if err != nil {
			return identity.RefreshResult{}, false
		}
		result.Body = &identity.Envelope{
			AdvertisingToken:   wr.Body.AdvertisingToken,
			RefreshToken:       wr.Body.RefreshToken,
			IdentityExpires:    kernel.NormalizeMillis(wr.Body.IdentityExpires),
			RefreshFrom:        kernel.NormalizeMillis(wr.Body.RefreshFrom),
			RefreshExpires:     kernel.NormalizeMillis(wr.Body.RefreshExpires),
			RefreshResponseKey: keyBytes,
		}
	}
	return result, true
}
