package mediameta

import "strings"

// Record holds the metadata extracted once per unique file identity. Records
// are immutable after creation: the cache owns them, and the grouping and
// scoring layers hold read-only copies.
type Record struct {
	Identity        Identity `json:"identity"`
	Artist          string   `json:"artist,omitempty"`
	AlbumArtist     string   `json:"album_artist,omitempty"`
	Album           string   `json:"album,omitempty"`
	Title           string   `json:"title,omitempty"`
	TrackNumber     int      `json:"track_number,omitempty"`
	Date            string   `json:"date,omitempty"`
	Genre           string   `json:"genre,omitempty"`
	Codec           string   `json:"codec"`
	BitrateKbps     int      `json:"bitrate_kbps"`
	SampleRate      int      `json:"sample_rate,omitempty"`
	Channels        int      `json:"channels,omitempty"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
	Lossless        bool     `json:"lossless"`
	Fingerprint     string   `json:"fingerprint,omitempty"`
}

const (
	unknownArtist = "_unknown artist"
	unknownAlbum  = "_unknown album"
	unknownTitle  = "_unknown title"
)

// OrganizingArtist returns the artist used for grouping and foldering.
// Album artist is preferred by default; preferTrack flips the preference.
func (r Record) OrganizingArtist(preferTrack bool) string {
	first, second := r.AlbumArtist, r.Artist
	if preferTrack {
		first, second = r.Artist, r.AlbumArtist
	}
	if v := strings.TrimSpace(first); v != "" {
		return v
	}
	if v := strings.TrimSpace(second); v != "" {
		return v
	}
	return unknownArtist
}

// AlbumName returns the album, or a placeholder when untagged.
func (r Record) AlbumName() string {
	if v := strings.TrimSpace(r.Album); v != "" {
		return v
	}
	return unknownAlbum
}

// TitleName returns the title, or a placeholder when untagged.
func (r Record) TitleName() string {
	if v := strings.TrimSpace(r.Title); v != "" {
		return v
	}
	return unknownTitle
}

// VariousArtists reports whether the record looks like part of a
// compilation album.
func (r Record) VariousArtists() bool {
	aa := strings.ToLower(r.AlbumArtist)
	return strings.Contains(aa, "various") || strings.Contains(aa, "compilation")
}
