package identitycookie

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adsid/adsid-go/pkg/identity"
	"github.com/adsid/adsid-go/pkg/kernel"
)

func testEnvelope() *identity.Envelope {
	return &identity.Envelope{
		AdvertisingToken:   "adv-tok",
		RefreshToken:       "refresh-tok",
		RefreshFrom:        kernel.Millis(1_700_000_001_000),
		IdentityExpires:    kernel.Millis(1_700_000_002_000),
		RefreshExpires:     kernel.Millis(1_700_000_003_000),
		RefreshResponseKey: []byte("0123456789abcdef0123456789abcdef"),
	}
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	writeJar := New(rec, req, "", "/")
	writeJar.Write(testEnvelope())

	result := rec.Result()
	var cookieHeader *http.Cookie
	for _, c := range result.Cookies() {
		if c.Name == CookieName {
			cookieHeader = c
		}
	}
	if cookieHeader == nil {
		t.Fatal("no __uid_2 cookie was set")
	}

	readReq := httptest.NewRequest(http.MethodGet, "/", nil)
	readReq.AddCookie(cookieHeader)
	readJar := New(httptest.NewRecorder(), readReq, "", "/")

	got := readJar.Read()
	if got == nil {
		t.Fatal("Read returned nil after Write")
	}
	if got.AdvertisingToken != "adv-tok" || got.RefreshExpires != 1_700_000_003_000 {
		t.Errorf("got = %+v, want round-tripped envelope", got)
	}
}

func TestReadNormalizesSecondsTimestamps(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{
		Name: CookieName,
		Value: `%7B%22advertising_token%22%3A%22adv%22%2C%22refresh_token%22%3A%22ref%22%2C` +
			`%22identity_expires%22%3A1700000002000%2C%22refresh_from%22%3A1700000001000%2C` +
			`%22refresh_expires%22%3A1700000003%2C%22refresh_response_key%22%3A%22QUFBQQ%3D%3D%22%7D`,
	})
	jar := New(httptest.NewRecorder(), req, "", "/")

	got := jar.Read()
	if got == nil {
		t.Fatal("Read returned nil")
	}
	if got.RefreshExpires != 1_700_000_003_000 {
		t.Errorf("refresh_expires = %d, want seconds value scaled to ms", got.RefreshExpires)
	}
}

func TestReadAbsentCookieIsNil(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	jar := New(httptest.NewRecorder(), req, "", "/")
	if got := jar.Read(); got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestClearExpiresCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	jar := New(rec, req, "", "/")
	jar.Clear()

	result := rec.Result()
	cookies := result.Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName {
		t.Fatalf("cookies = %+v, want one __uid_2 cookie", cookies)
	}
	if cookies[0].MaxAge >= 0 {
		t.Errorf("MaxAge = %d, want negative (expired)", cookies[0].MaxAge)
	}
}
