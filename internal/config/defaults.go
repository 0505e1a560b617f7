package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Default returns the baseline configuration before any file overrides.
func Default() Config {
	return Config{
		General: General{
			Workers:      0,
			CachePath:    defaultCachePath(),
			CacheEnabled: true,
		},
		Quality: Quality{
			CodecMultipliers: DefaultCodecMultipliers(),
			LosslessBonus:    10000,
		},
		Convert: Convert{
			OutputFormat:    "opus",
			OpusBitrate:     192,
			OpusCompression: 10,
			AACBitrate:      256,
			MP3Bitrate:      320,
		},
		Reconcile: Reconcile{
			NeverDowngrade: true,
		},
		Naming: Naming{
			MaxNameLength: 128,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}

// DefaultCodecMultipliers returns the baseline perceptual efficiency
// factors, ordered from best to worst modern codec.
func DefaultCodecMultipliers() map[string]float64 {
	return map[string]float64{
		"opus":   1.8,
		"aac":    1.3,
		"vorbis": 1.2,
		"mp3":    1.0,
		"wma":    0.9,
	}
}

func defaultCachePath() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "tonearm", "metadata.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".tonearm", "metadata.db")
	}
	return filepath.Join(home, ".cache", "tonearm", "metadata.db")
}
