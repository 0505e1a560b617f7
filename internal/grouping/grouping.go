// Package grouping clusters metadata records into duplicate groups and
// picks a deterministic winner per group.
package grouping

import (
	"sort"

	"tonearm/internal/config"
	"tonearm/internal/mediameta"
	"tonearm/internal/quality"
	"tonearm/internal/textutil"
)

// Key identifies one logical track. Two records with an equal Key are
// treated as the same track regardless of path or format.
type Key struct {
	Artist string
	Album  string
	Title  string
}

// KeyFor derives the grouping key from a record's tags. Artist selection
// prefers album artist unless naming.prefer_artist flips the preference.
// Compilations always key on the album artist: per-track artist tags vary
// in completeness across copies and would split the group.
func KeyFor(record mediameta.Record, cfg *config.Config) Key {
	preferTrack := cfg.Naming.PreferArtist && !record.VariousArtists()
	return Key{
		Artist: textutil.NormalizeComparison(record.OrganizingArtist(preferTrack)),
		Album:  textutil.NormalizeComparison(record.AlbumName()),
		Title:  textutil.NormalizeComparison(record.TitleName()),
	}
}

// Member pairs a record with its computed score.
type Member struct {
	Record mediameta.Record
	Score  float64
}

// Group is a non-empty set of members sharing one key. Winner indexes
// into Members.
type Group struct {
	Key     Key
	Members []Member
	Winner  int
}

// WinnerMember returns the winning member.
func (g Group) WinnerMember() Member {
	return g.Members[g.Winner]
}

// Partition splits records into groups by key and selects each group's
// winner: maximum score, ties broken by shorter path string, then by
// lexicographically smaller path. Output ordering and winner selection
// are independent of input order.
func Partition(records []mediameta.Record, cfg *config.Config) []Group {
	byKey := make(map[Key][]Member)
	for _, record := range records {
		key := KeyFor(record, cfg)
		byKey[key] = append(byKey[key], Member{
			Record: record,
			Score:  quality.Score(record, cfg),
		})
	}

	groups := make([]Group, 0, len(byKey))
	for key, members := range byKey {
		sort.Slice(members, func(i, j int) bool {
			return members[i].Record.Identity.Path < members[j].Record.Identity.Path
		})
		groups = append(groups, Group{
			Key:     key,
			Members: members,
			Winner:  selectWinner(members),
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i].Key, groups[j].Key
		if a.Artist != b.Artist {
			return a.Artist < b.Artist
		}
		if a.Album != b.Album {
			return a.Album < b.Album
		}
		return a.Title < b.Title
	})
	return groups
}

func selectWinner(members []Member) int {
	winner := 0
	for i := 1; i < len(members); i++ {
		if beats(members[i], members[winner]) {
			winner = i
		}
	}
	return winner
}

func beats(candidate, incumbent Member) bool {
	if candidate.Score != incumbent.Score {
		return candidate.Score > incumbent.Score
	}
	a, b := candidate.Record.Identity.Path, incumbent.Record.Identity.Path
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
