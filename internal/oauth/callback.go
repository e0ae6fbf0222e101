package oauth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// RedirectURIBase is the loopback host for the callback listener; the
	// port is allocated dynamically per attempt.
	RedirectURIBase = "http://127.0.0.1"
	RedirectPath    = "/oauth/callback"
)

const successPage = `<html>
	<body>
		<h1>Authorization Successful</h1>
		<p>You can now close this window and return to the application.</p>
		<script>
			setTimeout(function() {
				window.close();
			}, 2000);
		</script>
	</body>
</html>`

const errorPage = `<html>
	<body>
		<h1>Authorization Failed</h1>
		<p>The authorization attempt was rejected. You can close this window.</p>
	</body>
</html>`

// CallbackServer is an ephemeral loopback HTTP server that receives one OAuth
// authorization redirect and forwards it to a Correlator. One server exists
// per in-flight OAuth attempt and it is stopped when the attempt resolves.
type CallbackServer struct {
	port        int
	redirectURI string
	server      *http.Server
	correlator  *Correlator
	logger      *zap.Logger
	stopOnce    sync.Once
}

// StartCallbackServer binds a listener on an auto-assigned loopback port and
// begins serving the callback path. The caller must Stop the server once the
// attempt resolves, whichever way it resolves.
func StartCallbackServer(correlator *Correlator, logger *zap.Logger) (*CallbackServer, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to allocate callback port: %w", err)
	}

	addr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		listener.Close()
		return nil, fmt.Errorf("unexpected listener address type %T", listener.Addr())
	}

	cs := &CallbackServer{
		port:        addr.Port,
		redirectURI: fmt.Sprintf("%s:%d%s", RedirectURIBase, addr.Port, RedirectPath),
		correlator:  correlator,
		logger:      logger.With(zap.Int("callback_port", addr.Port)),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(RedirectPath, cs.handleCallback)

	cs.server = &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", addr.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second, // Security: prevent Slowloris attacks
	}

	go func() {
		defer listener.Close()
		cs.logger.Debug("Starting OAuth callback server")
		if err := cs.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			cs.logger.Error("OAuth callback server error", zap.Error(err))
		}
	}()

	return cs, nil
}

// Port returns the dynamically allocated listener port.
func (cs *CallbackServer) Port() int {
	return cs.port
}

// RedirectURI returns the full redirect URI registered with the
// authorization server.
func (cs *CallbackServer) RedirectURI() string {
	return cs.redirectURI
}

func (cs *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	cs.logger.Info("OAuth callback received",
		zap.String("method", r.Method),
		zap.Bool("has_code", query.Get("code") != ""),
		zap.Bool("has_error", query.Get("error") != ""))

	if errParam := query.Get("error"); errParam != "" {
		message := errParam
		if desc := query.Get("error_description"); desc != "" {
			message = fmt.Sprintf("%s: %s", errParam, desc)
		}
		cs.correlator.Fail(message)
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, errorPage)
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	if !cs.correlator.Deliver(code, query.Get("state")) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, errorPage)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, successPage)
}

// Stop shuts the listener down. It is idempotent and best-effort: shutdown
// errors are logged, never surfaced, because the attempt's outcome is already
// decided by the time cleanup runs.
func (cs *CallbackServer) Stop() {
	cs.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cs.server.Shutdown(ctx); err != nil {
			cs.logger.Warn("Error shutting down OAuth callback server", zap.Error(err))
		}
	})
}
