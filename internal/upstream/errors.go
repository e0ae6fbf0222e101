package upstream

import "errors"

// ErrNoCredential indicates an api_key server has no stored key; the attempt
// cannot proceed without one.
var ErrNoCredential = errors.New("no API key configured")
