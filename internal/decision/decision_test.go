package decision

import (
	"strings"
	"testing"

	"tonearm/internal/config"
	"tonearm/internal/grouping"
	"tonearm/internal/mediameta"
)

func testConfig() *config.Config {
	cfg := config.Default()
	return &cfg
}

func track(path, codec string, kbps int, lossless bool) mediameta.Record {
	return mediameta.Record{
		Identity:    mediameta.Identity{Path: path},
		Artist:      "Artist",
		Album:       "Album",
		Title:       "Title",
		Codec:       codec,
		BitrateKbps: kbps,
		Lossless:    lossless,
	}
}

func partition(cfg *config.Config, records ...mediameta.Record) []grouping.Group {
	return grouping.Partition(records, cfg)
}

func entryFor(t *testing.T, plan Plan, path string) Entry {
	t.Helper()
	for _, entry := range plan.Entries {
		if entry.Identity.Path == path {
			return entry
		}
	}
	t.Fatalf("no entry for %s in %+v", path, plan.Entries)
	return Entry{}
}

func TestNonDestructiveLosersSkip(t *testing.T) {
	cfg := testConfig()
	groups := partition(cfg,
		track("/m/one.opus", "opus", 192, false),
		track("/m/one0.mp3", "mp3", 320, false),
	)

	plan := Decide(groups, cfg, false)
	if got := entryFor(t, plan, "/m/one.opus").Action; got != ActionKeep {
		t.Errorf("winner action = %s, want keep", got)
	}
	loser := entryFor(t, plan, "/m/one0.mp3")
	if loser.Action != ActionSkip {
		t.Errorf("loser action = %s, want skip in non-destructive mode", loser.Action)
	}
	if !strings.Contains(loser.Reason, "320 < 345.6") {
		t.Errorf("reason should carry the score comparison: %q", loser.Reason)
	}
}

func TestDestructiveLosersRemove(t *testing.T) {
	cfg := testConfig()
	cfg.Reconcile.Destructive = true
	groups := partition(cfg,
		track("/m/one.flac", "flac", 700, true),
		track("/m/one0.mp3", "mp3", 320, false),
	)

	plan := Decide(groups, cfg, false)
	if got := entryFor(t, plan, "/m/one0.mp3").Action; got != ActionRemove {
		t.Errorf("loser action = %s, want remove in destructive mode", got)
	}
}

func TestEqualScoresSkipEvenWhenDestructive(t *testing.T) {
	cfg := testConfig()
	cfg.Reconcile.Destructive = true
	groups := partition(cfg,
		track("/m/a.mp3", "mp3", 320, false),
		track("/m/b.mp3", "mp3", 320, false),
	)

	plan := Decide(groups, cfg, false)
	if got := entryFor(t, plan, "/m/a.mp3").Action; got != ActionKeep {
		t.Errorf("tie-break winner action = %s, want keep", got)
	}
	loser := entryFor(t, plan, "/m/b.mp3")
	if loser.Action != ActionSkip {
		t.Errorf("equal-score loser action = %s, must never remove", loser.Action)
	}
	if !strings.Contains(loser.Reason, "same quality") {
		t.Errorf("reason = %q, want same quality note", loser.Reason)
	}
}

func TestDryRunNeverMutates(t *testing.T) {
	cfg := testConfig()
	cfg.Reconcile.Destructive = true
	groups := partition(cfg,
		track("/m/one.flac", "flac", 700, true),
		track("/m/one0.mp3", "mp3", 320, false),
	)

	plan := Decide(groups, cfg, true)
	if !plan.DryRun {
		t.Error("plan should record dry-run mode")
	}
	for _, entry := range plan.Entries {
		if entry.Action.Mutating() {
			t.Errorf("dry run emitted mutating action %s for %s", entry.Action, entry.Identity.Path)
		}
	}
	loser := entryFor(t, plan, "/m/one0.mp3")
	if !strings.HasPrefix(loser.Reason, "dry run: would remove") {
		t.Errorf("dry-run reason = %q, want would-remove note", loser.Reason)
	}
}

func TestDryRunWinnerSelectionUnchanged(t *testing.T) {
	cfg := testConfig()
	cfg.Reconcile.Destructive = true
	records := []mediameta.Record{
		track("/m/one.flac", "flac", 700, true),
		track("/m/one0.mp3", "mp3", 320, false),
	}

	wet := Decide(partition(cfg, records...), cfg, false)
	dry := Decide(partition(cfg, records...), cfg, true)
	if len(wet.Entries) != len(dry.Entries) {
		t.Fatalf("entry counts differ: %d vs %d", len(wet.Entries), len(dry.Entries))
	}
	for i := range wet.Entries {
		if wet.Entries[i].Identity != dry.Entries[i].Identity {
			t.Errorf("entry %d identity differs between modes", i)
		}
		if wet.Entries[i].Action == ActionKeep && dry.Entries[i].Action != ActionKeep {
			t.Errorf("winner changed under dry run: %s", wet.Entries[i].Identity.Path)
		}
	}
}

func TestLinkModeLosersLink(t *testing.T) {
	cfg := testConfig()
	cfg.Reconcile.LinkMode = true
	groups := partition(cfg,
		track("/m/one.flac", "flac", 700, true),
		track("/m/one0.mp3", "mp3", 320, false),
	)

	plan := Decide(groups, cfg, false)
	loser := entryFor(t, plan, "/m/one0.mp3")
	if loser.Action != ActionLink {
		t.Errorf("loser action = %s, want link in link mode", loser.Action)
	}
	if loser.Target != "/m/one.flac" {
		t.Errorf("link target = %q, want winner path", loser.Target)
	}
}

func TestEveryGroupKeepsAtLeastOne(t *testing.T) {
	cfg := testConfig()
	cfg.Reconcile.Destructive = true
	groups := partition(cfg,
		track("/m/one.flac", "flac", 700, true),
		track("/m/one0.mp3", "mp3", 320, false),
		track("/m/two.opus", "opus", 192, false),
	)

	plan := Decide(groups, cfg, false)
	keeps := plan.Counts()[ActionKeep]
	if keeps != len(groups) {
		t.Errorf("keeps = %d, want one per group (%d)", keeps, len(groups))
	}
}

func TestTranscodeGatedByNeverDowngrade(t *testing.T) {
	cfg := testConfig()
	cfg.Convert.AlwaysConvert = true

	// FLAC winner: opus target (345.6) scores below 10700, so
	// never_downgrade suppresses the conversion.
	groups := partition(cfg, track("/m/one.flac", "flac", 700, true))
	plan := Decide(groups, cfg, false)
	if len(plan.Transcodes) != 0 {
		t.Errorf("never_downgrade should suppress downgrading conversion: %+v", plan.Transcodes)
	}

	cfg.Convert.ConvertDown = true
	plan = Decide(partition(cfg, track("/m/one.flac", "flac", 700, true)), cfg, false)
	if len(plan.Transcodes) != 1 {
		t.Fatalf("convert_down should allow the conversion, got %+v", plan.Transcodes)
	}
	if plan.Transcodes[0].TargetFormat != "opus" {
		t.Errorf("target format = %q, want opus", plan.Transcodes[0].TargetFormat)
	}
}

func TestReplaceWhenLoserSitsAtConversionOutput(t *testing.T) {
	cfg := testConfig()
	cfg.Reconcile.Destructive = true
	cfg.Convert.AlwaysConvert = true
	cfg.Convert.ConvertDown = true
	groups := partition(cfg,
		track("/m/one.flac", "flac", 700, true),
		track("/m/one.opus", "opus", 128, false),
		track("/m/one0.mp3", "mp3", 320, false),
	)

	plan := Decide(groups, cfg, false)

	// The opus copy sits exactly where the winner's encode lands, so the
	// encode overwrites it instead of a separate remove plus convert.
	replaced := entryFor(t, plan, "/m/one.opus")
	if replaced.Action != ActionReplace {
		t.Fatalf("colliding loser action = %s, want replace", replaced.Action)
	}
	if replaced.Target != "/m/one.flac" {
		t.Errorf("replace target = %q, want winner path", replaced.Target)
	}
	if got := entryFor(t, plan, "/m/one0.mp3").Action; got != ActionRemove {
		t.Errorf("non-colliding loser action = %s, want remove", got)
	}
	if len(plan.Transcodes) != 0 {
		t.Errorf("replace should subsume the winner conversion, got %+v", plan.Transcodes)
	}
}

func TestReplaceDowngradesToSkipOnDryRun(t *testing.T) {
	cfg := testConfig()
	cfg.Reconcile.Destructive = true
	cfg.Convert.AlwaysConvert = true
	cfg.Convert.ConvertDown = true
	groups := partition(cfg,
		track("/m/one.flac", "flac", 700, true),
		track("/m/one.opus", "opus", 128, false),
	)

	plan := Decide(groups, cfg, true)
	loser := entryFor(t, plan, "/m/one.opus")
	if loser.Action != ActionSkip || loser.Target != "" {
		t.Errorf("dry-run entry = %+v, must not mutate", loser)
	}
	if !strings.HasPrefix(loser.Reason, "dry run: would replace") {
		t.Errorf("dry-run reason = %q, want would-replace note", loser.Reason)
	}
	if len(plan.Transcodes) != 0 {
		t.Errorf("dry-run replace still subsumes the conversion, got %+v", plan.Transcodes)
	}
}

func TestTranscodeOutput(t *testing.T) {
	cases := []struct{ source, format, want string }{
		{"/m/a.flac", "opus", "/m/a.opus"},
		{"/m/a.mp3", "aac", "/m/a.aac"},
		{"/m/a.flac", "vorbis", "/m/a.ogg"},
	}
	for _, tc := range cases {
		if got := TranscodeOutput(tc.source, tc.format, 128); got != tc.want {
			t.Errorf("TranscodeOutput(%q, %q) = %q, want %q", tc.source, tc.format, got, tc.want)
		}
	}

	if got := TranscodeOutput("/m/abcdefgh.flac", "opus", 4); got != "/m/abcd.opus" {
		t.Errorf("TranscodeOutput clamp = %q, want stem clamped to 4 bytes", got)
	}
}

func TestTranscodeSkipsMatchingFormat(t *testing.T) {
	cfg := testConfig()
	cfg.Convert.AlwaysConvert = true
	plan := Decide(partition(cfg, track("/m/one.opus", "opus", 128, false)), cfg, false)
	if len(plan.Transcodes) != 0 {
		t.Errorf("winner already in output format should not transcode: %+v", plan.Transcodes)
	}
}

func TestTranscodeUpgradesLowBitrateLossy(t *testing.T) {
	cfg := testConfig()
	cfg.Convert.AlwaysConvert = true
	// mp3 96 scores 96; opus 192 target scores 345.6, an upgrade.
	plan := Decide(partition(cfg, track("/m/one.mp3", "mp3", 96, false)), cfg, false)
	if len(plan.Transcodes) != 1 {
		t.Fatalf("upgrade conversion should be planned, got %+v", plan.Transcodes)
	}
}
