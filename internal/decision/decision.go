// Package decision turns duplicate groups into an action plan under the
// configured run mode.
package decision

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"tonearm/internal/config"
	"tonearm/internal/grouping"
	"tonearm/internal/mediameta"
	"tonearm/internal/textutil"
)

// Action is the disposition assigned to one file.
type Action string

const (
	ActionKeep    Action = "keep"
	ActionSkip    Action = "skip"
	ActionRemove  Action = "remove"
	ActionReplace Action = "replace"
	ActionLink    Action = "link"
)

// Mutating reports whether the action changes the filesystem.
func (a Action) Mutating() bool {
	return a == ActionRemove || a == ActionReplace || a == ActionLink
}

// Entry is one planned action. Target is set for ActionLink and
// ActionReplace and names the winner the loser is linked to or
// overwritten by.
type Entry struct {
	Identity mediameta.Identity
	Action   Action
	Score    float64
	Reason   string
	Target   string
}

// Transcode is a planned winner conversion.
type Transcode struct {
	Identity     mediameta.Identity
	TargetFormat string
	Reason       string
}

// Plan is the complete outcome of a reconcile pass. Entries within a group
// are contiguous; groups appear in deterministic key order.
type Plan struct {
	DryRun     bool
	Entries    []Entry
	Transcodes []Transcode
}

// Counts tallies entries by action.
func (p Plan) Counts() map[Action]int {
	counts := make(map[Action]int, 5)
	for _, entry := range p.Entries {
		counts[entry.Action]++
	}
	return counts
}

// Decide maps each group to actions. The winner always keeps. Losers are
// removed only in destructive mode and only when strictly lower scored;
// equal or incomparable scores skip. Link mode replaces removal with
// linking losers to the winner. A destructive loser sitting exactly where
// the winner's planned conversion would land is replaced by that encode
// instead of removed. Dry runs report what would happen without ever
// emitting a mutating action.
func Decide(groups []grouping.Group, cfg *config.Config, dryRun bool) Plan {
	plan := Plan{DryRun: dryRun}

	for _, group := range groups {
		winner := group.WinnerMember()

		winnerReason := "best quality in group"
		if len(group.Members) == 1 {
			winnerReason = "only copy"
		}
		plan.Entries = append(plan.Entries, Entry{
			Identity: winner.Record.Identity,
			Action:   ActionKeep,
			Score:    winner.Score,
			Reason:   winnerReason,
		})

		transcode, hasTranscode := winnerTranscode(winner, cfg, dryRun)

		replaceTarget := ""
		if hasTranscode && cfg.Reconcile.Destructive {
			replaceTarget = TranscodeOutput(winner.Record.Identity.Path,
				transcode.TargetFormat, cfg.Naming.MaxNameLength)
		}

		for i, member := range group.Members {
			if i == group.Winner {
				continue
			}
			entry, subsumes := loserEntry(member, winner, cfg, dryRun, replaceTarget)
			plan.Entries = append(plan.Entries, entry)
			if subsumes {
				// The replace entry performs the conversion itself.
				hasTranscode = false
			}
		}

		if hasTranscode {
			plan.Transcodes = append(plan.Transcodes, transcode)
		}
	}

	return plan
}

func loserEntry(member, winner grouping.Member, cfg *config.Config, dryRun bool, replaceTarget string) (Entry, bool) {
	entry := Entry{
		Identity: member.Record.Identity,
		Score:    member.Score,
	}
	subsumes := false

	switch {
	case member.Score >= winner.Score:
		// Equal score, or incomparable after a tie-break loss. Never
		// destructive on a file as good as the winner.
		entry.Action = ActionSkip
		entry.Reason = "same quality as " + winner.Record.Identity.Path
		return entry, false
	case replaceTarget != "" && member.Record.Identity.Path == replaceTarget:
		entry.Action = ActionReplace
		entry.Target = winner.Record.Identity.Path
		entry.Reason = fmt.Sprintf("overwrite with converted %s (%s < %s)",
			winner.Record.Identity.Path, formatScore(member.Score), formatScore(winner.Score))
		subsumes = true
	case cfg.Reconcile.LinkMode:
		entry.Action = ActionLink
		entry.Target = winner.Record.Identity.Path
		entry.Reason = fmt.Sprintf("link to %s (%s < %s)",
			winner.Record.Identity.Path, formatScore(member.Score), formatScore(winner.Score))
	case cfg.Reconcile.Destructive:
		entry.Action = ActionRemove
		entry.Reason = fmt.Sprintf("lower quality than %s (%s < %s)",
			winner.Record.Identity.Path, formatScore(member.Score), formatScore(winner.Score))
	default:
		entry.Action = ActionSkip
		entry.Reason = fmt.Sprintf("lower quality than %s (%s < %s), non-destructive",
			winner.Record.Identity.Path, formatScore(member.Score), formatScore(winner.Score))
		return entry, false
	}

	if dryRun {
		entry.Reason = fmt.Sprintf("dry run: would %s, %s", entry.Action, entry.Reason)
		entry.Action = ActionSkip
		entry.Target = ""
	}
	return entry, subsumes
}

// winnerTranscode decides whether the group winner should be converted to
// the configured output format. never_downgrade suppresses conversions
// that would lower the winner's score unless convert_down overrides it.
func winnerTranscode(winner grouping.Member, cfg *config.Config, dryRun bool) (Transcode, bool) {
	if !cfg.Convert.AlwaysConvert {
		return Transcode{}, false
	}
	format := cfg.Convert.OutputFormat
	if mediameta.CodecFamily(winner.Record.Codec) == format {
		return Transcode{}, false
	}

	target := targetScore(cfg)
	if target < winner.Score && cfg.Reconcile.NeverDowngrade && !cfg.Convert.ConvertDown {
		return Transcode{}, false
	}

	reason := fmt.Sprintf("convert to %s (%s -> %s)",
		format, formatScore(winner.Score), formatScore(target))
	if dryRun {
		reason = "dry run: would " + reason
	}
	return Transcode{
		Identity:     winner.Record.Identity,
		TargetFormat: format,
		Reason:       reason,
	}, true
}

// targetScore is the quality score a fresh encode in the configured output
// format would receive.
func targetScore(cfg *config.Config) float64 {
	var kbps int
	switch cfg.Convert.OutputFormat {
	case "opus":
		kbps = cfg.Convert.OpusBitrate
	case "aac":
		kbps = cfg.Convert.AACBitrate
	case "mp3":
		kbps = cfg.Convert.MP3Bitrate
	default:
		kbps = cfg.Convert.OpusBitrate
	}
	multiplier := 1.0
	if value, ok := cfg.Quality.CodecMultipliers[cfg.Convert.OutputFormat]; ok && value > 0 {
		multiplier = value
	}
	return multiplier * float64(kbps)
}

// TranscodeOutput derives the conversion target next to the source, with
// a sanitized stem clamped to the configured name length.
func TranscodeOutput(source, format string, maxNameLength int) string {
	ext := "." + format
	if format == "vorbis" {
		ext = ".ogg"
	}
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = textutil.ClampComponent(textutil.SanitizeFileName(stem), maxNameLength)
	return filepath.Join(filepath.Dir(source), stem+ext)
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
