package identity

import (
	"net/http"

	"github.com/adsid/adsid-go/pkg/errx"
)

var errRegistry = errx.NewRegistry("IDENTITY")

var (
	codeInitFailed             = errRegistry.Register("INIT_FAILED", errx.TypeBusiness, http.StatusOK, "initialization did not produce a usable identity")
	codeTemporarilyUnavailable = errRegistry.Register("TEMPORARILY_UNAVAILABLE", errx.TypeBusiness, http.StatusOK, "identity temporarily unavailable, refresh pending")
	codeOptout                 = errRegistry.Register("OPTOUT", errx.TypeAuthorization, http.StatusOK, "user has opted out")
	codeRefreshExpired         = errRegistry.Register("REFRESH_EXPIRED", errx.TypeBusiness, http.StatusOK, "refresh token has expired, a fresh init is required")
	codeDisconnected           = errRegistry.Register("DISCONNECTED", errx.TypeBusiness, http.StatusOK, "manager has been disconnected")
)

func errInitFailed(reason LifecycleState) *errx.Error {
	return errRegistry.New(codeInitFailed).WithDetail("reason", reason)
}

func errTemporarilyUnavailable() *errx.Error {
	return errRegistry.New(codeTemporarilyUnavailable)
}

func errOptout() *errx.Error {
	return errRegistry.New(codeOptout)
}

func errRefreshExpired() *errx.Error {
	return errRegistry.New(codeRefreshExpired)
}

func errDisconnected() *errx.Error {
	return errRegistry.New(codeDisconnected)
}
