package app

import (
	"fmt"
	"os/exec"
	"runtime"
)

// MenuProvider opens paths with the platform's associated application. The
// implementation is chosen once at startup; when no system opener exists the
// fallback provider reports the limitation instead of failing at call time.
type MenuProvider interface {
	Open(path string) error
	Name() string
}

// NewMenuProvider probes the platform opener and falls back to a no-op
// provider when none is present (headless systems, stripped containers).
func NewMenuProvider() MenuProvider {
	cmd := openerCommand()
	if cmd != "" {
		if _, err := exec.LookPath(cmd); err == nil {
			return &nativeMenu{cmd: cmd}
		}
	}
	return &fallbackMenu{}
}

func openerCommand() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "windows":
		return "explorer"
	default:
		return "xdg-open"
	}
}

type nativeMenu struct {
	cmd string
}

func (m *nativeMenu) Open(path string) error {
	return exec.Command(m.cmd, path).Start()
}

func (m *nativeMenu) Name() string { return m.cmd }

type fallbackMenu struct{}

func (m *fallbackMenu) Open(path string) error {
	return fmt.Errorf("no system opener available for %s", path)
}

func (m *fallbackMenu) Name() string { return "none" }
