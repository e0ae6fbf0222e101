package oauth

// maskSecret masks a secret by showing the first 3 and last 4 characters.
// For secrets shorter than 8 characters, it returns "***".
//
// Used when client IDs, tokens, and verifiers appear in log output.
func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:3] + "***" + secret[len(secret)-4:]
}
