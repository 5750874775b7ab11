//go:build windows

package radio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/roman-kulish/radio-channelizer/internal/fault"
)

// FindRuntime locates a vendor streaming tool shipped next to the executable
// or the working directory under bin/<tool>/windows/x64
func FindRuntime(runtime string) (string, error) {
	var lookup []string

	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	lookup = append(lookup, filepath.Dir(exePath))

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	lookup = append(lookup, wd)

	for _, exeDir := range lookup {
		matches, err := filepath.Glob(filepath.Join(exeDir, "bin", "*", "windows", "x64", fmt.Sprintf("%s.exe", runtime)))
		if err != nil || len(matches) == 0 {
			continue
		}

		binPath := matches[0]
		if _, err = os.Stat(binPath); err != nil {
			continue
		}

		return binPath, nil
	}

	return "", fault.NewConfigError("failed to find binary '%s'", runtime)
}
