package identity

import "context"

// Transport performs the refresh RPC. Implementations are
// injected so the Manager never imports net/http directly; see
// pkg/identity/identityhttp for the production implementation.
//
// Refresh must not return a transport-level error for a recognized
// `{status: ...}` response body, including `error`, `optout`, and
// `expired_token` — those are successful RPCs carrying a negative outcome.
// Refresh should return an error only when the RPC itself could not be
// completed (network failure, non-2xx with no recognizable body, or a
// response that fails base64/decrypt/JSON decoding); callers treat any such
// error identically to RefreshResult{Status: RefreshError}.
type Transport interface {
	Refresh(ctx context.Context, baseURL, refreshToken string, responseKey []byte) (RefreshResult, error)
}
