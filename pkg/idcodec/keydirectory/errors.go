package keydirectory

import (
	"net/http"

	"github.com/adsid/adsid-go/pkg/errx"
)

var errRegistry = errx.NewRegistry("KEYDIR")

var (
	codeNoActiveMaster = errRegistry.Register("NO_ACTIVE_MASTER", errx.TypeInternal, http.StatusInternalServerError, "no active master key configured")
	codeNoActiveSite   = errRegistry.Register("NO_ACTIVE_SITE", errx.TypeNotFound, http.StatusNotFound, "no active site key for site")
	codeKeyNotFound    = errRegistry.Register("KEY_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "key id not found")
	codeQueryFailed    = errRegistry.Register("QUERY_FAILED", errx.TypeExternal, http.StatusInternalServerError, "key directory query failed")
)

func errNoActiveMaster() *errx.Error { return errRegistry.New(codeNoActiveMaster) }

func errNoActiveSite(site any) *errx.Error {
	return errRegistry.New(codeNoActiveSite).WithDetail("site_id", site)
}

func errKeyNotFound(id any) *errx.Error {
	return errRegistry.New(codeKeyNotFound).WithDetail("key_id", id)
}

func errQueryFailed(cause error) *errx.Error {
	return errRegistry.NewWithCause(codeQueryFailed, cause)
}
