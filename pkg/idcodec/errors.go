package idcodec

import (
	"net/http"

	"github.com/adsid/adsid-go/pkg/errx"
)

var errRegistry = errx.NewRegistry("CODEC")

var (
	codeUnknownVersion = errRegistry.Register("UNKNOWN_VERSION", errx.TypeValidation, http.StatusBadRequest, "unrecognized token version")
	codeMalformed      = errRegistry.Register("MALFORMED", errx.TypeValidation, http.StatusBadRequest, "token is shorter than its framing requires")
	codeDecryptFailed  = errRegistry.Register("DECRYPT_FAILED", errx.TypeAuthorization, http.StatusUnauthorized, "authenticated decryption failed")
	codeBadBase64      = errRegistry.Register("BAD_BASE64", errx.TypeValidation, http.StatusBadRequest, "envelope is not valid base64")
)

func errUnknownVersion(got byte) *errx.Error {
	return errRegistry.New(codeUnknownVersion).WithDetail("version", got)
}

func errMalformed(reason string) *errx.Error {
	return errRegistry.New(codeMalformed).WithDetail("reason", reason)
}

func errDecryptFailed(cause error) *errx.Error {
	return errRegistry.NewWithCause(codeDecryptFailed, cause)
}

func errBadBase64(cause error) *errx.Error {
	return errRegistry.NewWithCause(codeBadBase64, cause)
}
