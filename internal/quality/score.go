// Package quality assigns comparable scores to audio files so that any two
// encodings of the same track can be ranked.
package quality

import (
	"tonearm/internal/config"
	"tonearm/internal/mediameta"
)

// Score ranks a file by format class and bitrate. Lossless files score the
// configured bonus plus their kbps bitrate, which keeps every lossless file
// above every realistic lossy encode. Lossy files score their kbps bitrate
// weighted by the codec family multiplier, so an efficient codec outranks a
// less efficient one at equal bitrate. Codecs in neither class score their
// raw bitrate.
func Score(record mediameta.Record, cfg *config.Config) float64 {
	kbps := float64(record.BitrateKbps)
	if kbps < 0 {
		kbps = 0
	}

	class := mediameta.ClassifyCodec(record.Codec)
	if record.Lossless && class != mediameta.FormatLossless {
		class = mediameta.FormatLossless
	}

	switch class {
	case mediameta.FormatLossless:
		return cfg.Quality.LosslessBonus + kbps
	case mediameta.FormatLossy:
		return multiplier(record.Codec, cfg) * kbps
	default:
		return kbps
	}
}

// EstimateFromPath scores a file whose metadata could not be read, using
// only its extension and a typical bitrate for that container.
func EstimateFromPath(path string, cfg *config.Config) float64 {
	ext := mediameta.Extension(path)
	kbps := float64(mediameta.EstimateBitrateKbps(ext))

	switch mediameta.ClassifyExtension(ext) {
	case mediameta.FormatLossless:
		return cfg.Quality.LosslessBonus + kbps
	case mediameta.FormatLossy:
		return multiplier(ext, cfg) * kbps
	default:
		return kbps
	}
}

func multiplier(codec string, cfg *config.Config) float64 {
	family := mediameta.CodecFamily(codec)
	if family == "" {
		return 1.0
	}
	if value, ok := cfg.Quality.CodecMultipliers[family]; ok && value > 0 {
		return value
	}
	return 1.0
}
