package identity

import (
	"os/exec"
	"runtime"
)

// Browser opens an authorization URL for the user.
type Browser func(url string) error

// OpenBrowser opens url in the platform's default browser.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
