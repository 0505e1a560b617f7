package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"tonearm/internal/mediameta"
	"tonearm/internal/services"
)

// result mirrors the ffprobe JSON layout for the fields we consume.
type result struct {
	Streams []stream `json:"streams"`
	Format  format   `json:"format"`
}

type stream struct {
	Index      int               `json:"index"`
	CodecName  string            `json:"codec_name"`
	CodecType  string            `json:"codec_type"`
	BitRate    string            `json:"bit_rate"`
	SampleRate string            `json:"sample_rate"`
	Channels   int               `json:"channels"`
	Duration   string            `json:"duration"`
	Tags       map[string]string `json:"tags"`
}

type format struct {
	Duration string            `json:"duration"`
	Size     string            `json:"size"`
	BitRate  string            `json:"bit_rate"`
	Tags     map[string]string `json:"tags"`
}

// FFprobe extracts audio metadata by shelling out to ffprobe.
type FFprobe struct {
	Binary string
}

// Extract probes the file behind id and maps the first audio stream plus
// container tags into a Record.
func (f FFprobe) Extract(ctx context.Context, id mediameta.Identity) (mediameta.Record, error) {
	binary := strings.TrimSpace(f.Binary)
	if binary == "" {
		binary = "ffprobe"
	}

	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-of", "json",
		"--", id.Path)
	output, err := cmd.Output()
	if err != nil {
		detail := strings.TrimSpace(stderrOf(err))
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return mediameta.Record{}, services.Wrap(services.ErrExtraction, "probe", "extract", "ffprobe failed", err)
	}

	record, err := parseRecord(output, id)
	if err != nil {
		return mediameta.Record{}, services.Wrap(services.ErrExtraction, "probe", "extract", "parse ffprobe output", err)
	}
	return record, nil
}

func stderrOf(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(exitErr.Stderr)
	}
	return ""
}

func parseRecord(data []byte, id mediameta.Identity) (mediameta.Record, error) {
	var res result
	if err := json.Unmarshal(data, &res); err != nil {
		return mediameta.Record{}, err
	}

	var audio *stream
	for i := range res.Streams {
		if strings.EqualFold(res.Streams[i].CodecType, "audio") {
			audio = &res.Streams[i]
			break
		}
	}
	if audio == nil {
		return mediameta.Record{}, fmt.Errorf("no audio stream in %s", id.Path)
	}

	// Container tags first; the audio stream's own tags win on conflict.
	tags := map[string]string{}
	mergeTags(tags, res.Format.Tags)
	mergeTags(tags, audio.Tags)

	codec := strings.ToLower(strings.TrimSpace(audio.CodecName))
	duration := parseFloat(audio.Duration)
	if duration <= 0 {
		duration = parseFloat(res.Format.Duration)
	}

	record := mediameta.Record{
		Identity:        id,
		Artist:          tag(tags, "artist"),
		AlbumArtist:     tag(tags, "album_artist", "albumartist"),
		Album:           tag(tags, "album"),
		Title:           tag(tags, "title"),
		TrackNumber:     parseTrack(tag(tags, "track", "tracknumber")),
		Date:            tag(tags, "date", "year"),
		Genre:           tag(tags, "genre"),
		Codec:           codec,
		SampleRate:      int(parseFloat(audio.SampleRate)),
		Channels:        audio.Channels,
		DurationSeconds: duration,
		Lossless:        mediameta.ClassifyCodec(codec) == mediameta.FormatLossless,
	}

	if record.Title == "" {
		base := filepath.Base(id.Path)
		record.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	record.BitrateKbps = resolveBitrateKbps(audio.BitRate, res.Format.BitRate, parseFloat(res.Format.Size), duration, id.Size)
	return record, nil
}

// resolveBitrateKbps prefers the stream bitrate, then the container
// bitrate, then an estimate derived from size and duration.
func resolveBitrateKbps(streamRate, formatRate string, formatSize, duration float64, fileSize int64) int {
	if kbps := bitsToKbps(parseFloat(streamRate)); kbps > 0 {
		return kbps
	}
	if kbps := bitsToKbps(parseFloat(formatRate)); kbps > 0 {
		return kbps
	}
	size := formatSize
	if size <= 0 {
		size = float64(fileSize)
	}
	if size > 0 && duration > 0 {
		return bitsToKbps(size * 8 / duration)
	}
	return 0
}

func bitsToKbps(bitsPerSecond float64) int {
	if math.IsNaN(bitsPerSecond) || bitsPerSecond <= 0 {
		return 0
	}
	return int(math.Round(bitsPerSecond / 1000))
}

func mergeTags(dst map[string]string, src map[string]string) {
	for key, value := range src {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		dst[strings.ToLower(strings.TrimSpace(key))] = value
	}
}

func tag(tags map[string]string, keys ...string) string {
	for _, key := range keys {
		if value, ok := tags[key]; ok {
			return value
		}
	}
	return ""
}

// parseTrack handles both plain numbers and "track/total" values.
func parseTrack(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if idx := strings.IndexByte(value, '/'); idx >= 0 {
		value = value[:idx]
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseFloat(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}
