// Package fingerprint computes Chromaprint acoustic fingerprints via fpcalc,
// used to confirm duplicate groups beyond tag equality.
package fingerprint

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"tonearm/internal/services"
)

// DefaultLength is the number of seconds of audio fpcalc analyzes.
const DefaultLength = 120

// Fpcalc invokes the Chromaprint fpcalc binary.
type Fpcalc struct {
	Binary string
	// Length limits analysis to the first N seconds. Zero means DefaultLength.
	Length int
}

// Fingerprint returns the compressed Chromaprint string for the file.
func (f Fpcalc) Fingerprint(ctx context.Context, path string) (string, error) {
	binary := strings.TrimSpace(f.Binary)
	if binary == "" {
		binary = "fpcalc"
	}
	length := f.Length
	if length <= 0 {
		length = DefaultLength
	}

	cmd := exec.CommandContext(ctx, binary, "-length", fmt.Sprint(length), path)
	output, err := cmd.Output()
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "fingerprint", "fpcalc", "fpcalc failed", err)
	}

	for _, line := range strings.Split(string(output), "\n") {
		if value, ok := strings.CutPrefix(strings.TrimSpace(line), "FINGERPRINT="); ok {
			value = strings.TrimSpace(value)
			if value == "" {
				break
			}
			return value, nil
		}
	}
	return "", services.Wrap(services.ErrExternalTool, "fingerprint", "fpcalc", "no fingerprint in fpcalc output", nil)
}
