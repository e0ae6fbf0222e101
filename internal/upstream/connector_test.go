package upstream

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/oauth2"

	"mcphub-go/internal/config"
	"mcphub-go/internal/oauth"
	"mcphub-go/internal/transport"
	"mcphub-go/internal/vault"
)

// slowSession resolves Wait only after a delay longer than any dial timeout,
// and records the deadline state of the context it waits under.
type slowSession struct {
	token        *oauth2.Token
	waitDelay    time.Duration
	sawDeadline  bool
	promptCalls  int
	cancelCalls  int
	closeCalls   int
	mu           sync.Mutex
}

func (s *slowSession) Prompt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promptCalls++
	return nil
}

func (s *slowSession) Wait(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	_, s.sawDeadline = ctx.Deadline()
	s.mu.Unlock()
	select {
	case <-time.After(s.waitDelay):
		return s.token, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *slowSession) Cancel() { s.mu.Lock(); s.cancelCalls++; s.mu.Unlock() }
func (s *slowSession) Close()  { s.mu.Lock(); s.closeCalls++; s.mu.Unlock() }

type sessionFlow struct {
	session AuthSession
}

func (f *sessionFlow) CachedToken(string) (*oauth2.Token, error) { return nil, vault.ErrNotFound }
func (f *sessionFlow) Begin(context.Context, string, string, []string) (AuthSession, error) {
	return f.session, nil
}

func TestConnector_DialTimeoutDoesNotBoundInteractiveWait(t *testing.T) {
	// The configured connect timeout bounds each transport dial, never the
	// authorization wait: a user filling in a consent screen takes far
	// longer than any dial is allowed to.
	const dialTimeout = 30 * time.Millisecond

	var mu sync.Mutex
	var dialDeadlines []time.Duration
	dial := func(ctx context.Context, serverID, _, bearer string) (Conn, error) {
		deadline, ok := ctx.Deadline()
		if !ok {
			return nil, fmt.Errorf("dial context missing deadline")
		}
		mu.Lock()
		dialDeadlines = append(dialDeadlines, time.Until(deadline))
		mu.Unlock()
		if bearer != "issued-access" {
			return nil, fmt.Errorf("%w: HTTP 401 Unauthorized", transport.ErrUnauthorized)
		}
		return &fakeConn{serverID: serverID}, nil
	}

	session := &slowSession{
		token:     &oauth2.Token{AccessToken: "issued-access"},
		waitDelay: 4 * dialTimeout,
	}
	c := &Connector{
		store:       vault.NewMemory(),
		flow:        &sessionFlow{session: session},
		dial:        dial,
		dialTimeout: dialTimeout,
		logger:      zaptest.NewLogger(t),
	}

	conn, err := c.Connect(context.Background(), server("oscar", config.AuthOAuth))
	require.NoError(t, err, "authorization outlasting the dial timeout must still succeed")
	require.NotNil(t, conn)

	assert.False(t, session.sawDeadline, "the interactive wait must not inherit the dial timeout")
	require.NotEmpty(t, dialDeadlines)
	for _, remaining := range dialDeadlines {
		assert.LessOrEqual(t, remaining, dialTimeout, "every dial must be bounded by the dial timeout")
		assert.Greater(t, remaining, time.Duration(0))
	}
}

func TestConnector_ZeroDialTimeoutLeavesContextUnbounded(t *testing.T) {
	dial := func(ctx context.Context, serverID, _, _ string) (Conn, error) {
		if _, ok := ctx.Deadline(); ok {
			return nil, fmt.Errorf("unexpected deadline on dial context")
		}
		return &fakeConn{serverID: serverID}, nil
	}
	c := &Connector{
		store:  vault.NewMemory(),
		flow:   &fakeFlow{},
		dial:   dial,
		logger: zaptest.NewLogger(t),
	}

	_, err := c.Connect(context.Background(), server("papa", config.AuthNone))
	require.NoError(t, err)
}

func TestConnector_DefaultTimeoutShorterThanCallbackDeadline(t *testing.T) {
	// The default dial timeout is intentionally far below the fixed
	// authorization deadline; it must therefore never apply to the wait.
	assert.Less(t, config.DefaultConfig().ConnectTimeout, oauth.CallbackTimeout)
}
