package identity

import (
	"context"
	"sync"
	"time"

	"github.com/adsid/adsid-go/pkg/kernel"
	"github.com/adsid/adsid-go/pkg/logx"
)

const defaultBaseURL = "https://prod.adsid.io"

// NoToken is the sentinel GetAdvertisingToken returns when no token is
// currently returnable.
const NoToken = ""

// Manager owns the current envelope, the refresh timer, and the waiter
// queue. It is the only component in this package that performs I/O,
// always through its injected Clock, Transport, and CookieJar.
//
// A Manager is safe for concurrent use. Its internal mutex is never held
// while invoking host code (the Config.Callback or a waiter's Resolve),
// so a callback may re-enter GetAdvertisingToken or Disconnect and will
// observe the post-transition state.
type Manager struct {
	mu sync.Mutex

	clock     Clock
	transport Transport
	cookieJar CookieJar

	config      Config
	initialized bool

	state    internalState
	envelope *Envelope
	waiters  []*waiter

	timer           Timer
	refreshInFlight bool

	terminalErr error
}

// NewManager creates a Manager with the given collaborators. Init must be
// called before the instance is useful.
func NewManager(clock Clock, transport Transport, cookieJar CookieJar) *Manager {
	return &Manager{clock: clock, transport: transport, cookieJar: cookieJar, state: internalInitialising}
}

func applyDefaults(cfg Config) Config {
	switch {
	case cfg.RefreshRetryPeriod <= 0:
		cfg.RefreshRetryPeriod = 5000
	case cfg.RefreshRetryPeriod < 1000:
		cfg.RefreshRetryPeriod = 1000
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	return cfg
}

// Init is one-shot: calling it a second time on the same instance is a
// programming error and panics, per the single-use init rule.
func (m *Manager) Init(cfg Config) {
	m.mu.Lock()
	if m.state == internalDisconnected {
		m.mu.Unlock()
		logx.Panicf("identity: Init called on a disconnected Manager")
	}
	if m.initialized {
		m.mu.Unlock()
		logx.Panicf("identity: Init called twice on the same Manager")
	}
	m.initialized = true
	m.config = applyDefaults(cfg)

	var candidate *Envelope
	if cfg.Identity != nil {
		candidate = cfg.Identity
	} else if read := m.cookieJar.Read(); read != nil && read.Valid() {
		if m.envelope == nil || read.IdentityExpires > m.envelope.IdentityExpires {
			candidate = read
		}
	}
	m.envelope = candidate

	now := m.clock.Now()
	cl := classify(candidate, now)

	switch {
	case cl.State == StateEstablished && !cl.RefreshDue:
		m.state = internalEstablished
		payload := m.buildPayload(StatusEstablished, candidate)
		ws := m.takeWaiters()
		m.armTimer(candidate, now)
		m.mu.Unlock()
		logx.WithField("refresh_in_ms", int64(candidate.RefreshFrom-now)).Info("identity: established")
		m.fireCallback(payload)
		drainWaiters(ws, candidate.AdvertisingToken)

	case cl.State == StateEstablished && cl.RefreshDue:
		m.state = internalRefreshing
		m.refreshInFlight = true
		env := candidate
		m.mu.Unlock()
		logx.Info("identity: envelope valid but refresh due, issuing refresh on init")
		go m.issueRefresh(env)

	case cl.State == StateExpired:
		m.state = internalRefreshInFlightWithExpiredToken
		m.refreshInFlight = true
		env := candidate
		m.mu.Unlock()
		logx.Info("identity: envelope expired but recoverable, issuing refresh on init")
		go m.issueRefresh(env)

	default:
		m.state = internalUnavailable
		m.terminalErr = errInitFailed(cl.State)
		terminalErr := m.terminalErr
		payload := m.buildPayload(mapInitFailureStatus(cl.State), nil)
		ws := m.takeWaiters()
		if cl.State == StateInvalid || cl.State == StateRefreshExpired {
			m.cookieJar.Clear()
		}
		m.mu.Unlock()
		logx.WithField("reason", cl.State).Warn("identity: init produced no usable identity")
		m.fireCallback(payload)
		rejectWaiters(ws, terminalErr)
	}
}

func mapInitFailureStatus(state LifecycleState) CallbackStatus {
	switch state {
	case StateNoIdentity:
		return StatusNoIdentity
	case StateInvalid:
		return StatusInvalid
	case StateRefreshExpired:
		return StatusRefreshExpired
	default:
		return StatusInvalid
	}
}

// GetAdvertisingToken returns the current advertising token if the manager
// is ESTABLISHED and the token is returnable right now, or NoToken
// otherwise — including while a refresh is in flight. It never performs I/O.
func (m *Manager) GetAdvertisingToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	if m.state == internalEstablished && tokenReturnable(m.envelope, now) {
		return m.envelope.AdvertisingToken
	}
	return NoToken
}

// GetAdvertisingTokenAsync returns a handle that resolves with the token
// once the lifecycle has a definitive answer, or immediately if one is
// already known.
func (m *Manager) GetAdvertisingTokenAsync() *waiter {
	m.mu.Lock()

	if m.state == internalDisconnected {
		m.mu.Unlock()
		d := newWaiter()
		d.Reject(errDisconnected())
		return d
	}

	refreshInFlight := m.state == internalRefreshing || m.state == internalRefreshInFlightWithExpiredToken
	if !m.initialized || refreshInFlight {
		d := newWaiter()
		m.waiters = append(m.waiters, d)
		m.mu.Unlock()
		return d
	}

	now := m.clock.Now()
	if tokenReturnable(m.envelope, now) {
		token := m.envelope.AdvertisingToken
		m.mu.Unlock()
		d := newWaiter()
		d.Resolve(token)
		return d
	}

	if m.state == internalUnavailable {
		err := m.terminalErr
		m.mu.Unlock()
		d := newWaiter()
		d.Reject(err)
		return d
	}

	d := newWaiter()
	m.waiters = append(m.waiters, d)
	m.mu.Unlock()
	return d
}

// IsLoginRequired reports whether no valid envelope is available and the
// manager is not currently mid-refresh.
func (m *Manager) IsLoginRequired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	hasValid := m.envelope != nil && m.envelope.Valid()
	midRefresh := m.state == internalRefreshing || m.state == internalRefreshInFlightWithExpiredToken
	return !hasValid && !midRefresh
}

// Disconnect is terminal: it cancels the timer, clears the cookie, rejects
// every queued waiter, and moves the manager to DISCONNECTED. Idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.state == internalDisconnected {
		m.mu.Unlock()
		return
	}
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	ws := m.takeWaiters()
	m.cookieJar.Clear()
	m.envelope = nil
	m.state = internalDisconnected
	m.mu.Unlock()

	logx.Info("identity: disconnected")
	rejectWaiters(ws, errDisconnected())
}

// Abort cancels the refresh timer only. It does not clear the cookie or
// drain waiters; it exists for host teardown in tests.
func (m *Manager) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) buildPayload(status CallbackStatus, env *Envelope) CallbackPayload {
	token := NoToken
	if env != nil {
		token = env.AdvertisingToken
	}
	return CallbackPayload{
		AdvertisingTokenSnake: token,
		AdvertisingToken:      token,
		Status:                status,
		StatusText:            string(status),
		Identity:              env,
	}
}

func (m *Manager) fireCallback(payload CallbackPayload) {
	if m.config.Callback != nil {
		m.config.Callback(payload)
	}
}

// takeWaiters must be called while holding mu.
func (m *Manager) takeWaiters() []*waiter {
	ws := m.waiters
	m.waiters = nil
	return ws
}

// armTimer must be called while holding mu.
func (m *Manager) armTimer(env *Envelope, now kernel.Millis) {
	if m.timer != nil {
		m.timer.Stop()
	}
	delayMs := int64(env.RefreshFrom - now)
	if delayMs < 0 {
		delayMs = 0
	}
	m.timer = m.clock.AfterFunc(time.Duration(delayMs)*time.Millisecond, m.onTimerFire)
}

// armRetryTimer must be called while holding mu.
func (m *Manager) armRetryTimer() {
	if m.timer != nil {
		m.timer.Stop()
	}
	period := time.Duration(m.config.RefreshRetryPeriod) * time.Millisecond
	m.timer = m.clock.AfterFunc(period, m.onTimerFire)
}

// onTimerFire is the sole driver of background refresh. A firing while a
// refresh is already in flight is a no-op.
func (m *Manager) onTimerFire() {
	m.mu.Lock()
	if m.state == internalDisconnected || m.refreshInFlight {
		m.mu.Unlock()
		return
	}
	env := m.envelope
	if env == nil {
		m.mu.Unlock()
		return
	}

	now := m.clock.Now()
	m.timer = nil
	if tokenReturnable(env, now) {
		m.state = internalRefreshing
	} else {
		m.state = internalRefreshInFlightWithExpiredToken
	}
	m.refreshInFlight = true
	m.mu.Unlock()

	go m.issueRefresh(env)
}

func (m *Manager) issueRefresh(env *Envelope) {
	result, err := m.transport.Refresh(context.Background(), m.config.BaseURL, env.RefreshToken, env.RefreshResponseKey)
	if err != nil {
		logx.WithError(err).Warn("identity: refresh transport error, treating as error status")
		result = RefreshResult{Status: RefreshError}
	}
	m.handleRefreshResult(result)
}

// handleRefreshResult applies a completed refresh outcome to the state
// machine. The current envelope is re-classified against the clock's time
// at arrival, not at dispatch, so a slow response is judged by how stale
// it actually is.
func (m *Manager) handleRefreshResult(result RefreshResult) {
	if result.Status == RefreshSuccess && !result.Body.Valid() {
		logx.Warn("identity: refresh response carried an invalid envelope, treating as error status")
		result = RefreshResult{Status: RefreshError}
	}

	m.mu.Lock()
	if m.state == internalDisconnected {
		// A disconnect raced the in-flight RPC; this response is discarded.
		m.mu.Unlock()
		return
	}
	m.refreshInFlight = false
	now := m.clock.Now()

	switch result.Status {
	case RefreshSuccess:
		env := result.Body
		m.envelope = env
		m.cookieJar.Write(env)
		m.state = internalEstablished
		payload := m.buildPayload(StatusRefreshed, env)
		ws := m.takeWaiters()
		m.armTimer(env, now)
		m.mu.Unlock()

		logx.Info("identity: refresh succeeded")
		m.fireCallback(payload)
		drainWaiters(ws, env.AdvertisingToken)

	case RefreshOptout:
		m.cookieJar.Clear()
		m.state = internalUnavailable
		m.terminalErr = errOptout()
		terminalErr := m.terminalErr
		payload := m.buildPayload(StatusOptout, nil)
		ws := m.takeWaiters()
		m.mu.Unlock()

		logx.Info("identity: user opted out")
		m.fireCallback(payload)
		rejectWaiters(ws, terminalErr)

	case RefreshExpiredToken, RefreshInvalidToken:
		m.cookieJar.Clear()
		m.state = internalUnavailable
		m.terminalErr = errRefreshExpired()
		terminalErr := m.terminalErr
		payload := m.buildPayload(StatusRefreshExpired, nil)
		ws := m.takeWaiters()
		m.mu.Unlock()

		logx.WithField("reported_status", result.Status).Warn("identity: refresh token rejected by server")
		m.fireCallback(payload)
		rejectWaiters(ws, terminalErr)

	default: // RefreshError, or any status this client doesn't recognize.
		cur := m.envelope
		if tokenReturnable(cur, now) {
			m.state = internalEstablished
			ws := m.takeWaiters()
			m.armRetryTimer()
			m.mu.Unlock()

			logx.WithField("retry_period_ms", int64(m.config.RefreshRetryPeriod)).Warn("identity: refresh failed, current token still valid, retrying")
			drainWaiters(ws, cur.AdvertisingToken)
			return
		}

		cl := classify(cur, now)
		if cl.State == StateExpired {
			m.state = internalRefreshInFlightWithExpiredToken
			payload := m.buildPayload(StatusExpired, cur)
			ws := m.takeWaiters()
			m.armRetryTimer()
			m.mu.Unlock()

			logx.Warn("identity: refresh failed and token has expired, retrying")
			m.fireCallback(payload)
			rejectWaiters(ws, errTemporarilyUnavailable())
			return
		}

		m.cookieJar.Clear()
		m.state = internalUnavailable
		m.terminalErr = errRefreshExpired()
		terminalErr := m.terminalErr
		payload := m.buildPayload(StatusRefreshExpired, nil)
		ws := m.takeWaiters()
		m.mu.Unlock()

		logx.Warn("identity: refresh failed after refresh_expires, giving up")
		m.fireCallback(payload)
		rejectWaiters(ws, terminalErr)
	}
}
