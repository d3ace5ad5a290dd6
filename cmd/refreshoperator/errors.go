package main

import (
	"net/http"

	"github.com/adsid/adsid-go/pkg/errx"
)

var errRegistry = errx.NewRegistry("REFRESHOP")

var (
	codeMissingBody  = errRegistry.Register("MISSING_BODY", errx.TypeValidation, http.StatusBadRequest, "refresh_token body is empty")
	codeBadSiteParam = errRegistry.Register("BAD_SITE_PARAM", errx.TypeValidation, http.StatusBadRequest, "request body is malformed or site_id is not numeric")
)

func errMissingBody() *errx.Error {
	return errRegistry.New(codeMissingBody)
}

func errBadSiteParam() *errx.Error {
	return errRegistry.New(codeBadSiteParam)
}
