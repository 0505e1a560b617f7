package mediameta

import (
	"path/filepath"
	"strings"
)

// FormatClass partitions codecs into lossless, lossy, and unknown families.
type FormatClass int

const (
	FormatUnknown FormatClass = iota
	FormatLossy
	FormatLossless
)

func (c FormatClass) String() string {
	switch c {
	case FormatLossless:
		return "lossless"
	case FormatLossy:
		return "lossy"
	default:
		return "unknown"
	}
}

var losslessCodecs = []string{"flac", "alac", "ape", "wav", "aiff", "pcm", "tta", "wv"}

var lossyCodecs = []string{"opus", "mp3", "aac", "vorbis", "ogg", "wma"}

// ClassifyCodec maps a codec name (as reported by the probe) to its format
// class. Matching is substring-based: ffprobe reports names like
// "pcm_s16le" or "aac_latm".
func ClassifyCodec(codec string) FormatClass {
	lower := strings.ToLower(strings.TrimSpace(codec))
	if lower == "" {
		return FormatUnknown
	}
	for _, name := range losslessCodecs {
		if strings.Contains(lower, name) {
			return FormatLossless
		}
	}
	for _, name := range lossyCodecs {
		if strings.Contains(lower, name) {
			return FormatLossy
		}
	}
	return FormatUnknown
}

// ClassifyExtension maps a file extension (without dot) to a format class.
func ClassifyExtension(ext string) FormatClass {
	switch strings.ToLower(strings.TrimSpace(ext)) {
	case "flac", "wav", "aiff", "aif", "alac", "ape", "wv", "tta":
		return FormatLossless
	case "opus", "mp3", "m4a", "aac", "ogg", "wma":
		return FormatLossy
	default:
		return FormatUnknown
	}
}

// CodecFamily reduces a probe codec name to the family key used in the
// configured multiplier table (opus, aac, vorbis, mp3, wma). Unknown codecs
// return the empty string.
func CodecFamily(codec string) string {
	lower := strings.ToLower(strings.TrimSpace(codec))
	switch {
	case strings.Contains(lower, "opus"):
		return "opus"
	case strings.Contains(lower, "aac"), strings.Contains(lower, "m4a"):
		return "aac"
	case strings.Contains(lower, "vorbis"), strings.Contains(lower, "ogg"):
		return "vorbis"
	case strings.Contains(lower, "mp3"):
		return "mp3"
	case strings.Contains(lower, "wma"):
		return "wma"
	default:
		return ""
	}
}

// Extension returns the lowercased extension without the leading dot.
func Extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// IsAudioFile reports whether the path carries a recognized audio extension.
func IsAudioFile(path string) bool {
	switch Extension(path) {
	case "flac", "opus", "ogg", "mp3", "m4a", "aac", "wav", "aiff", "aif", "wma", "alac":
		return true
	default:
		return false
	}
}

// EstimateBitrateKbps returns a typical bitrate for an extension, used only
// for reporting on files whose metadata cannot be read.
func EstimateBitrateKbps(ext string) int {
	switch strings.ToLower(strings.TrimSpace(ext)) {
	case "opus":
		return 160
	case "aac", "m4a":
		return 256
	case "ogg":
		return 192
	case "mp3":
		return 320
	case "wma":
		return 192
	case "flac", "wav", "aiff", "aif", "alac", "ape", "wv", "tta":
		return 1411
	default:
		return 128
	}
}
