package config

import (
	"fmt"

	"tonearm/internal/services"
)

// realisticLossyCeiling approximates the highest score a lossy file can
// reach under sane multipliers (320 kbps mp3 scaled by the best factor).
// A lossless bonus below this can invert the lossless-beats-lossy ordering.
const realisticLossyCeiling = 320 * 1.8

// Validate ensures the configuration is usable. Violations that could
// silently invert quality ordering are fatal; see Warnings for soft issues.
func (c *Config) Validate() error {
	if c.General.Workers < 0 {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "general.workers must be >= 0", nil)
	}
	for codec, multiplier := range c.Quality.CodecMultipliers {
		if multiplier <= 0 {
			msg := fmt.Sprintf("quality.codec_multipliers.%s must be positive, got %g", codec, multiplier)
			return services.Wrap(services.ErrConfiguration, "config", "validate", msg, nil)
		}
	}
	if c.Quality.LosslessBonus < 0 {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "quality.lossless_bonus must be >= 0", nil)
	}
	switch c.Convert.OutputFormat {
	case "opus", "aac", "mp3", "vorbis":
	default:
		msg := fmt.Sprintf("convert.output_format %q is not supported (opus, aac, mp3, vorbis)", c.Convert.OutputFormat)
		return services.Wrap(services.ErrConfiguration, "config", "validate", msg, nil)
	}
	if c.Convert.OpusBitrate <= 0 || c.Convert.AACBitrate <= 0 || c.Convert.MP3Bitrate <= 0 {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "convert bitrates must be positive", nil)
	}
	if c.Convert.OpusCompression < 0 || c.Convert.OpusCompression > 10 {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "convert.opus_compression must be between 0 and 10", nil)
	}
	return nil
}

// Warnings reports configuration values that are legal but likely wrong.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Quality.LosslessBonus < realisticLossyCeiling {
		warnings = append(warnings, fmt.Sprintf(
			"quality.lossless_bonus %g is below the realistic lossy ceiling (%g); high-bitrate lossy files may outrank lossless ones",
			c.Quality.LosslessBonus, realisticLossyCeiling))
	}
	for _, codec := range []string{"opus", "aac", "vorbis", "mp3", "wma"} {
		if _, ok := c.Quality.CodecMultipliers[codec]; !ok {
			warnings = append(warnings, fmt.Sprintf(
				"quality.codec_multipliers has no entry for %q; files in that codec score with multiplier 1.0", codec))
		}
	}
	return warnings
}
