// Package executor applies action plans to the filesystem and drives
// ffmpeg conversions.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"tonearm/internal/config"
	"tonearm/internal/decision"
	"tonearm/internal/logging"
	"tonearm/internal/services"
)

// Failure records one entry that could not be applied.
type Failure struct {
	Path string
	Err  error
}

// Result tallies what Apply did.
type Result struct {
	Removed   int
	Replaced  int
	Linked    int
	Converted int
	Failures  []Failure
}

// Executor mutates the filesystem according to a plan.
type Executor struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New builds an executor.
func New(cfg *config.Config, logger *slog.Logger) *Executor {
	return &Executor{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "executor"),
	}
}

// Apply performs every mutating entry and transcode in the plan. Dry-run
// plans are logged and left untouched. A failing entry is recorded and
// the rest of the plan still runs.
func (e *Executor) Apply(ctx context.Context, plan decision.Plan) Result {
	var result Result

	if plan.DryRun {
		for _, entry := range plan.Entries {
			if entry.Action == decision.ActionSkip && strings.HasPrefix(entry.Reason, "dry run:") {
				e.logger.Info("dry run",
					logging.String(logging.FieldPath, entry.Identity.Path),
					logging.String("reason", entry.Reason))
			}
		}
		for _, transcode := range plan.Transcodes {
			e.logger.Info("dry run",
				logging.String(logging.FieldPath, transcode.Identity.Path),
				logging.String("reason", transcode.Reason))
		}
		return result
	}

	for _, entry := range plan.Entries {
		var err error
		switch entry.Action {
		case decision.ActionRemove:
			err = e.remove(entry)
			if err == nil {
				result.Removed++
			}
		case decision.ActionReplace:
			err = e.replace(ctx, entry)
			if err == nil {
				result.Replaced++
			}
		case decision.ActionLink:
			err = e.link(entry)
			if err == nil {
				result.Linked++
			}
		default:
			continue
		}
		if err != nil {
			result.Failures = append(result.Failures, Failure{Path: entry.Identity.Path, Err: err})
			e.logger.Warn("plan entry failed",
				logging.String(logging.FieldPath, entry.Identity.Path),
				logging.Error(err))
		}
	}

	for _, transcode := range plan.Transcodes {
		if err := ctx.Err(); err != nil {
			result.Failures = append(result.Failures, Failure{Path: transcode.Identity.Path, Err: err})
			break
		}
		if err := e.applyTranscode(ctx, transcode); err != nil {
			result.Failures = append(result.Failures, Failure{Path: transcode.Identity.Path, Err: err})
			e.logger.Warn("transcode failed",
				logging.String(logging.FieldPath, transcode.Identity.Path),
				logging.Error(err))
		} else {
			result.Converted++
		}
	}

	return result
}

func (e *Executor) remove(entry decision.Entry) error {
	if err := os.Remove(entry.Identity.Path); err != nil {
		return services.Wrap(services.ErrExternalTool, "executor", "remove", "remove file", err)
	}
	e.logger.Info("removed",
		logging.String(logging.FieldPath, entry.Identity.Path),
		logging.String("reason", entry.Reason))
	return nil
}

// replace overwrites the loser with a fresh encode of the winner. Convert
// writes through a staging file and renames it over the destination, so
// the loser survives intact if the encode fails.
func (e *Executor) replace(ctx context.Context, entry decision.Entry) error {
	path, target := entry.Identity.Path, entry.Target
	if target == "" {
		return services.Wrap(services.ErrExternalTool, "executor", "replace", "replace entry has no target", nil)
	}

	if err := e.Convert(ctx, target, path); err != nil {
		return err
	}
	if e.cfg.Convert.DeleteOriginal && target != path {
		if err := os.Remove(target); err != nil {
			return services.Wrap(services.ErrExternalTool, "executor", "replace", "remove original", err)
		}
	}
	e.logger.Info("replaced",
		logging.String(logging.FieldPath, path),
		logging.String("source", target))
	return nil
}

// link replaces the loser file with a hardlink to the winner. Across
// filesystem boundaries hardlinks fail with EXDEV; a relative symlink is
// used instead so the link survives bind-mount remapping.
func (e *Executor) link(entry decision.Entry) error {
	path, target := entry.Identity.Path, entry.Target
	if target == "" {
		return services.Wrap(services.ErrExternalTool, "executor", "link", "link entry has no target", nil)
	}

	staging := path + ".tonearm-link"
	if err := os.Remove(staging); err != nil && !errors.Is(err, os.ErrNotExist) {
		return services.Wrap(services.ErrExternalTool, "executor", "link", "clear staging path", err)
	}

	err := os.Link(target, staging)
	if errors.Is(err, unix.EXDEV) {
		rel, relErr := filepath.Rel(filepath.Dir(path), target)
		if relErr != nil {
			rel = target
		}
		err = os.Symlink(rel, staging)
	}
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "executor", "link", "create link", err)
	}

	if err := os.Rename(staging, path); err != nil {
		os.Remove(staging)
		return services.Wrap(services.ErrExternalTool, "executor", "link", "replace file with link", err)
	}
	e.logger.Info("linked",
		logging.String(logging.FieldPath, path),
		logging.String("target", target))
	return nil
}

func (e *Executor) applyTranscode(ctx context.Context, transcode decision.Transcode) error {
	source := transcode.Identity.Path
	output := decision.TranscodeOutput(source, transcode.TargetFormat, e.cfg.Naming.MaxNameLength)

	if err := e.Convert(ctx, source, output); err != nil {
		return err
	}
	if e.cfg.Convert.DeleteOriginal && output != source {
		if err := os.Remove(source); err != nil {
			return services.Wrap(services.ErrExternalTool, "executor", "transcode", "remove original", err)
		}
	}
	e.logger.Info("converted",
		logging.String(logging.FieldPath, source),
		logging.String("output", output))
	return nil
}

// Convert transcodes source into output with ffmpeg, carrying tags over
// and writing through a staging file so a killed encode never leaves a
// half-written output behind.
func (e *Executor) Convert(ctx context.Context, source, output string) error {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return services.Wrap(services.ErrExternalTool, "executor", "convert", "create output directory", err)
	}

	staging := output + ".part" + filepath.Ext(output)
	args := []string{"-y", "-v", "error", "-i", source, "-map_metadata", "0", "-vn"}
	args = append(args, e.encoderArgs()...)
	args = append(args, staging)

	cmd := exec.CommandContext(ctx, e.ffmpegBinary(), args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(staging)
		detail := strings.TrimSpace(string(out))
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return services.Wrap(services.ErrExternalTool, "executor", "convert", "ffmpeg failed", err)
	}

	if err := os.Rename(staging, output); err != nil {
		os.Remove(staging)
		return services.Wrap(services.ErrExternalTool, "executor", "convert", "finalize output", err)
	}
	return nil
}

func (e *Executor) encoderArgs() []string {
	convert := e.cfg.Convert
	switch convert.OutputFormat {
	case "aac":
		return []string{"-c:a", "aac", "-b:a", fmt.Sprintf("%dk", convert.AACBitrate)}
	case "mp3":
		return []string{"-c:a", "libmp3lame", "-b:a", fmt.Sprintf("%dk", convert.MP3Bitrate)}
	case "vorbis":
		return []string{"-c:a", "libvorbis", "-b:a", fmt.Sprintf("%dk", convert.OpusBitrate)}
	default:
		return []string{
			"-c:a", "libopus",
			"-b:a", fmt.Sprintf("%dk", convert.OpusBitrate),
			"-vbr", "on",
			"-compression_level", fmt.Sprint(convert.OpusCompression),
		}
	}
}

func (e *Executor) ffmpegBinary() string {
	return e.cfg.FFmpegBinary()
}
