package cli

import (
	"errors"
	"os/exec"
	"runtime"
	"strings"
)

func openPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("empty path")
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path).Run()
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path).Run()
	default:
		return exec.Command("xdg-open", path).Run()
	}
}
