package oauth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CallbackTimeout is the fixed deadline for the authorization callback. The
// user either completes the consent screen within this window or the attempt
// fails with ErrCallbackTimeout.
const CallbackTimeout = 5 * time.Minute

// Correlator resolves a single OAuth authorization attempt to exactly one
// terminal outcome: an authorization code, an explicit error from the
// authorization server, a timeout, or cancellation by the caller.
//
// It is a single-resolution future. Deliver, Fail, Cancel and the internal
// timer all race; whichever fires first wins and the rest become no-ops.
// Cancel is safe to call before Start: the timer is never armed in that case,
// so no watcher can leak under the cancel-before-ready race.
type Correlator struct {
	expectedState string
	timeout       time.Duration
	logger        *zap.Logger

	mu       sync.Mutex
	started  bool
	resolved bool
	timer    *time.Timer
	done     chan struct{}
	code     string
	err      error
}

// NewCorrelator creates a correlator bound to one expected CSRF state value.
func NewCorrelator(expectedState string, logger *zap.Logger) *Correlator {
	return &Correlator{
		expectedState: expectedState,
		timeout:       CallbackTimeout,
		logger:        logger,
		done:          make(chan struct{}),
	}
}

// Start arms the timeout timer. Calling Start after Cancel is a no-op: the
// correlator is already resolved and the timer is never armed.
func (c *Correlator) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.resolved {
		return
	}
	c.started = true
	c.timer = time.AfterFunc(c.timeout, func() {
		c.resolve("", ErrCallbackTimeout)
	})
}

// Deliver feeds an incoming authorization payload to the correlator. The
// state is compared in constant time before the code is trusted; a mismatch
// resolves the attempt with ErrStateMismatch and the code is discarded.
// Returns true only when the payload was consumed as this attempt's
// resolution; a duplicate arriving after resolution reports false.
func (c *Correlator) Deliver(code, state string) bool {
	if subtle.ConstantTimeCompare([]byte(state), []byte(c.expectedState)) != 1 {
		c.logger.Warn("OAuth state mismatch, rejecting authorization code",
			zap.String("received_state", maskSecret(state)))
		c.resolve("", ErrStateMismatch)
		return false
	}
	return c.resolve(code, nil)
}

// Fail resolves the correlator with an explicit error reported by the
// authorization server (for example the user denied consent).
func (c *Correlator) Fail(message string) {
	c.resolve("", fmt.Errorf("%w: %s", ErrAuthorizationDenied, message))
}

// Cancel resolves the correlator with ErrFlowCancelled. It is idempotent and
// safe to call at any point, including before Start.
func (c *Correlator) Cancel() {
	c.resolve("", ErrFlowCancelled)
}

// Await blocks until the correlator resolves or ctx is done, and returns the
// authorization code or the terminal error.
func (c *Correlator) Await(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		c.Cancel()
		return "", ctx.Err()
	case <-c.done:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code, c.err
}

// resolve records the first terminal outcome and disarms the timer. Later
// calls are no-ops and report false.
func (c *Correlator) resolve(code string, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved {
		return false
	}
	c.resolved = true
	c.code = code
	c.err = err
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	close(c.done)
	return true
}
