package mediameta

import "testing"

func TestClassifyCodec(t *testing.T) {
	cases := []struct {
		codec string
		want  FormatClass
	}{
		{"flac", FormatLossless},
		{"FLAC", FormatLossless},
		{"pcm_s16le", FormatLossless},
		{"alac", FormatLossless},
		{"opus", FormatLossy},
		{"mp3", FormatLossy},
		{"aac_latm", FormatLossy},
		{"vorbis", FormatLossy},
		{"dts", FormatUnknown},
		{"", FormatUnknown},
	}
	for _, tc := range cases {
		if got := ClassifyCodec(tc.codec); got != tc.want {
			t.Errorf("ClassifyCodec(%q) = %v, want %v", tc.codec, got, tc.want)
		}
	}
}

func TestClassifyExtension(t *testing.T) {
	if got := ClassifyExtension("flac"); got != FormatLossless {
		t.Errorf("flac = %v, want lossless", got)
	}
	if got := ClassifyExtension("mp3"); got != FormatLossy {
		t.Errorf("mp3 = %v, want lossy", got)
	}
	if got := ClassifyExtension("xyz"); got != FormatUnknown {
		t.Errorf("xyz = %v, want unknown", got)
	}
}

func TestCodecFamily(t *testing.T) {
	cases := map[string]string{
		"opus":     "opus",
		"libopus":  "opus",
		"aac_latm": "aac",
		"vorbis":   "vorbis",
		"mp3float": "mp3",
		"wmav2":    "wma",
		"flac":     "",
	}
	for codec, want := range cases {
		if got := CodecFamily(codec); got != want {
			t.Errorf("CodecFamily(%q) = %q, want %q", codec, got, want)
		}
	}
}

func TestIsAudioFile(t *testing.T) {
	if !IsAudioFile("/music/song.mp3") {
		t.Error("song.mp3 should be audio")
	}
	if !IsAudioFile("song.FLAC") {
		t.Error("song.FLAC should be audio")
	}
	if IsAudioFile("document.txt") {
		t.Error("document.txt should not be audio")
	}
	if IsAudioFile("noext") {
		t.Error("extensionless file should not be audio")
	}
}

func TestOrganizingArtist(t *testing.T) {
	rec := Record{Artist: "The Beatles", AlbumArtist: "Beatles, The"}

	if got := rec.OrganizingArtist(false); got != "Beatles, The" {
		t.Errorf("album artist preferred: got %q", got)
	}
	if got := rec.OrganizingArtist(true); got != "The Beatles" {
		t.Errorf("track artist preferred: got %q", got)
	}

	empty := Record{}
	if got := empty.OrganizingArtist(false); got != "_unknown artist" {
		t.Errorf("empty record: got %q", got)
	}
}

func TestVariousArtists(t *testing.T) {
	if !(Record{AlbumArtist: "Various Artists"}).VariousArtists() {
		t.Error("Various Artists should match")
	}
	if !(Record{AlbumArtist: "Compilation"}).VariousArtists() {
		t.Error("Compilation should match")
	}
	if (Record{AlbumArtist: "The Beatles"}).VariousArtists() {
		t.Error("The Beatles should not match")
	}
}
