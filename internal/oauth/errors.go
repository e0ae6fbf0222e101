// Package oauth implements the interactive authorization-code + PKCE flow
// used to authenticate against protected MCP servers.
package oauth

import "errors"

// Sentinel errors for consistent error handling across the codebase.
var (
	// ErrStateMismatch indicates the callback carried a state value that does
	// not match the one issued for this attempt. Treated as a possible CSRF
	// forgery: always terminal, never retried, and no token exchange happens.
	ErrStateMismatch = errors.New("oauth state mismatch")

	// ErrAuthorizationDenied indicates the authorization server returned an
	// explicit error through the callback.
	ErrAuthorizationDenied = errors.New("authorization denied")

	// ErrCallbackTimeout indicates no callback arrived within the deadline.
	ErrCallbackTimeout = errors.New("timeout waiting for authorization callback")

	// ErrMissingVerifier indicates the PKCE code verifier is absent from the
	// vault. The code exchange cannot proceed without it.
	ErrMissingVerifier = errors.New("PKCE code verifier not found")

	// ErrFlowCancelled indicates the flow was cancelled before resolving,
	// typically because a cached-credential connection succeeded first.
	ErrFlowCancelled = errors.New("authorization flow cancelled")

	// ErrNoBrowser indicates no surface was available to display the
	// authorization URL to the user.
	ErrNoBrowser = errors.New("no browser available to open authorization URL")
)
