package oauth

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"go.uber.org/zap"
)

// OpenBrowser hands the authorization URL to the user's default browser.
// When no browser surface is available the URL is printed to the console so
// the user can visit it manually, and ErrNoBrowser is returned so callers can
// log the condition; the attempt itself keeps waiting for the callback.
func OpenBrowser(authURL string, logger *zap.Logger) error {
	cmd, args, err := browserCommand(runtime.GOOS, authURL)
	if err == nil {
		err = exec.Command(cmd, args...).Start()
	}
	if err != nil {
		logger.Warn("Could not open browser automatically, please visit the URL manually",
			zap.String("auth_url", authURL),
			zap.Error(err))

		fmt.Printf("\n=== OAuth Authorization Required ===\n")
		fmt.Printf("Please visit this URL to authorize:\n%s\n", authURL)
		fmt.Printf("====================================\n\n")

		return fmt.Errorf("%w: %v", ErrNoBrowser, err)
	}
	return nil
}

// browserCommand picks the platform launcher for a URL.
func browserCommand(goos, url string) (string, []string, error) {
	switch goos {
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	case "darwin":
		return "open", []string{url}, nil
	case "linux":
		if !hasGUIEnvironment() {
			return "", nil, fmt.Errorf("no GUI environment detected")
		}
		return "xdg-open", []string{url}, nil
	default:
		return "", nil, fmt.Errorf("unsupported operating system: %s", goos)
	}
}

// hasGUIEnvironment checks whether a graphical session is available on Linux.
func hasGUIEnvironment() bool {
	for _, envVar := range []string{"DISPLAY", "WAYLAND_DISPLAY", "XDG_SESSION_TYPE"} {
		if os.Getenv(envVar) != "" {
			return true
		}
	}
	if _, err := exec.LookPath("xdg-open"); err == nil {
		return true
	}
	return false
}
