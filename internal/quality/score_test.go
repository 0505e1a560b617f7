package quality

import (
	"math"
	"testing"

	"tonearm/internal/config"
	"tonearm/internal/mediameta"
)

func testConfig() *config.Config {
	cfg := config.Default()
	return &cfg
}

func record(codec string, kbps int, lossless bool) mediameta.Record {
	return mediameta.Record{Codec: codec, BitrateKbps: kbps, Lossless: lossless}
}

func TestOpusOutranksHigherBitrateMP3(t *testing.T) {
	cfg := testConfig()
	opus := Score(record("opus", 192, false), cfg)
	mp3 := Score(record("mp3", 320, false), cfg)

	if math.Abs(opus-345.6) > 1e-9 {
		t.Errorf("opus 192 score = %g, want 345.6", opus)
	}
	if mp3 != 320 {
		t.Errorf("mp3 320 score = %g, want 320", mp3)
	}
	if opus <= mp3 {
		t.Errorf("opus 192 (%g) should outrank mp3 320 (%g)", opus, mp3)
	}
}

func TestLosslessScoreIsBonusPlusBitrate(t *testing.T) {
	cfg := testConfig()
	if got := Score(record("flac", 700, true), cfg); got != 10700 {
		t.Errorf("flac 700 score = %g, want 10700", got)
	}
}

func TestLosslessAlwaysOutranksLossy(t *testing.T) {
	cfg := testConfig()
	flac := Score(record("flac", 400, true), cfg)
	// 510 kbps opus is far beyond any real encode but still loses.
	opus := Score(record("opus", 510, false), cfg)
	if flac <= opus {
		t.Errorf("lossless (%g) must outrank lossy (%g)", flac, opus)
	}
}

func TestScoreMonotonicInBitrate(t *testing.T) {
	cfg := testConfig()
	for _, codec := range []string{"opus", "mp3", "aac", "flac"} {
		lossless := codec == "flac"
		low := Score(record(codec, 128, lossless), cfg)
		high := Score(record(codec, 256, lossless), cfg)
		if high <= low {
			t.Errorf("%s: score(256)=%g should exceed score(128)=%g", codec, high, low)
		}
	}
}

func TestUnknownCodecUsesRawBitrate(t *testing.T) {
	cfg := testConfig()
	if got := Score(record("speex", 96, false), cfg); got != 96 {
		t.Errorf("unknown codec score = %g, want raw bitrate 96", got)
	}
}

func TestMissingMultiplierDefaultsToOne(t *testing.T) {
	cfg := testConfig()
	delete(cfg.Quality.CodecMultipliers, "vorbis")
	if got := Score(record("vorbis", 160, false), cfg); got != 160 {
		t.Errorf("missing multiplier score = %g, want 160", got)
	}
}

func TestLosslessFlagOverridesCodecClass(t *testing.T) {
	cfg := testConfig()
	// Some containers report a pcm variant under an unrecognized name.
	got := Score(mediameta.Record{Codec: "pcm_s24le_custom", BitrateKbps: 2116, Lossless: true}, cfg)
	if got != cfg.Quality.LosslessBonus+2116 {
		t.Errorf("score = %g, want lossless treatment for flagged record", got)
	}
}

func TestEstimateFromPath(t *testing.T) {
	cfg := testConfig()
	flac := EstimateFromPath("/music/a.flac", cfg)
	mp3 := EstimateFromPath("/music/a.mp3", cfg)
	if flac <= cfg.Quality.LosslessBonus {
		t.Errorf("flac estimate %g should include lossless bonus", flac)
	}
	if mp3 <= 0 || mp3 >= cfg.Quality.LosslessBonus {
		t.Errorf("mp3 estimate %g should be a plain lossy score", mp3)
	}
}
