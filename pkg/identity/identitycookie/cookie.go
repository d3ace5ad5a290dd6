// Package identitycookie is the production identity.CookieJar: it mirrors
// the envelope into a single net/http cookie named __uid_2, the same name
// and attribute set the browser-side document.cookie slot uses.
package identitycookie

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/adsid/adsid-go/pkg/identity"
	"github.com/adsid/adsid-go/pkg/kernel"
	"github.com/adsid/adsid-go/pkg/logx"
)

// CookieName is the wire name of the persisted envelope, unchanged from the
// browser-side convention this client mirrors.
const CookieName = "__uid_2"

// Jar is a request-scoped identity.CookieJar: Read consults the inbound
// request's cookies, Write/Clear queue a Set-Cookie on the response writer.
// A Jar is good for exactly one request/response pair — construct a fresh
// one per request, the same lifetime a Manager would have in a
// server-rendered host page.
type Jar struct {
	w            http.ResponseWriter
	r            *http.Request
	domain, path string
}

var _ identity.CookieJar = (*Jar)(nil)

// New creates a Jar scoped to one HTTP exchange. domain may be empty to
// omit the Domain attribute; path defaults to "/" when empty.
func New(w http.ResponseWriter, r *http.Request, domain, path string) *Jar {
	if path == "" {
		path = "/"
	}
	return &Jar{w: w, r: r, domain: domain, path: path}
}

// Read parses the inbound __uid_2 cookie. Absence or a parse failure is
// treated as "no identity" — it never returns an error.
func (j *Jar) Read() *identity.Envelope {
	c, err := j.r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	var env identity.Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		logx.WithError(err).Debug("identitycookie: stored cookie failed to parse")
		return nil
	}
	// Older writers serialized some timestamps in whole seconds.
	env.IdentityExpires = kernel.NormalizeMillis(int64(env.IdentityExpires))
	env.RefreshFrom = kernel.NormalizeMillis(int64(env.RefreshFrom))
	env.RefreshExpires = kernel.NormalizeMillis(int64(env.RefreshExpires))
	return &env
}

// Write serializes e as URL-encoded JSON and sets it as a single Set-Cookie
// header, expiring with e.RefreshExpires.
func (j *Jar) Write(e *identity.Envelope) {
	body, err := json.Marshal(e)
	if err != nil {
		logx.WithError(err).Warn("identitycookie: failed to marshal envelope, cookie not written")
		return
	}
	http.SetCookie(j.w, &http.Cookie{
		Name:     CookieName,
		Value:    url.QueryEscape(string(body)),
		Path:     j.path,
		Domain:   j.domain,
		Expires:  e.RefreshExpires.Time(),
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear removes the stored envelope by setting an already-expired cookie.
func (j *Jar) Clear() {
	http.SetCookie(j.w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     j.path,
		Domain:   j.domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		SameSite: http.SameSiteLaxMode,
	})
}
