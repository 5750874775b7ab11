//go:build !windows

package radio

import (
	"errors"
	"os/exec"

	"github.com/roman-kulish/radio-channelizer/internal/fault"
)

// FindRuntime locates a vendor streaming tool on PATH
func FindRuntime(runtime string) (string, error) {
	binPath, err := exec.LookPath(runtime)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fault.NewConfigError("`%s` not found in PATH", runtime)
		}
		return "", fault.NewConfigError("failed to locate `%s`: %s", runtime, err.Error())
	}

	return binPath, nil
}
