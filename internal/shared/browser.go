package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// Browser opens authorization pages in the system browser.
type Browser struct {
	// Command overrides the platform launcher when set (e.g. "firefox").
	Command string
}

// Open launches the browser at url without waiting for it to exit.
func (b Browser) Open(url string) error {
	cmd, err := browserCommand(b.Command, url)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

func browserCommand(override, url string) (*exec.Cmd, error) {
	if override != "" {
		return exec.Command(override, url), nil
	}

	switch rt := getRuntime(); rt {
	case "darwin":
		return exec.Command("open", url), nil
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", url), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	default:
		return nil, fmt.Errorf("%w: unsupported platform %s", ErrNotImplemented, rt)
	}
}
