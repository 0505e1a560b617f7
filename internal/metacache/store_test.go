package metacache_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tonearm/internal/mediameta"
	"tonearm/internal/metacache"
	"tonearm/internal/testsupport"
)

func openStore(t *testing.T) *metacache.Store {
	t.Helper()
	return testsupport.MustOpenStore(t, testsupport.NewConfig(t))
}

func sampleRecord(path string, size int64, mtime time.Time) mediameta.Record {
	return mediameta.Record{
		Identity: mediameta.Identity{Path: path, Size: size, ModTime: mtime.UTC().Truncate(time.Second)},
		Artist:   "Miles Davis",
		Album:    "Kind of Blue",
		Title:    "So What",
		Codec:    "flac",
		Lossless: true,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	rec := sampleRecord("/music/a.flac", 1024, time.Now())
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := store.Get(ctx, rec.Identity)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Artist != rec.Artist || got.Title != rec.Title || !got.Lossless {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestGetMissesWhenIdentityDrifts(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	rec := sampleRecord("/music/a.flac", 1024, time.Now())
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	changed := rec.Identity
	changed.Size = 2048
	if _, ok, err := store.Get(ctx, changed); err != nil || ok {
		t.Errorf("size drift should miss: ok=%v err=%v", ok, err)
	}

	changed = rec.Identity
	changed.ModTime = changed.ModTime.Add(time.Minute)
	if _, ok, err := store.Get(ctx, changed); err != nil || ok {
		t.Errorf("mtime drift should miss: ok=%v err=%v", ok, err)
	}
}

func TestGetEvictsDriftedEntry(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	rec := sampleRecord("/music/a.flac", 1024, time.Now())
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	drifted := rec.Identity
	drifted.Size = 2048
	if _, ok, err := store.Get(ctx, drifted); err != nil || ok {
		t.Fatalf("drifted identity should miss: ok=%v err=%v", ok, err)
	}

	// The mismatch evicted the row, so even the original identity misses now.
	if _, ok, err := store.Get(ctx, rec.Identity); err != nil || ok {
		t.Errorf("stale row should be gone after drifted lookup: ok=%v err=%v", ok, err)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 0 {
		t.Errorf("entries = %d, want 0 after eviction", stats.Entries)
	}
}

func TestPutReplacesExistingEntry(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	rec := sampleRecord("/music/a.flac", 1024, time.Now())
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rec.Title = "Blue in Green"
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put replace: %v", err)
	}

	got, ok, err := store.Get(ctx, rec.Identity)
	if err != nil || !ok {
		t.Fatalf("Get after replace: ok=%v err=%v", ok, err)
	}
	if got.Title != "Blue in Green" {
		t.Errorf("title = %q, want replacement", got.Title)
	}
}

func TestCleanRemovesMissingAndDriftedFiles(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	live := filepath.Join(dir, "live.flac")
	if err := os.WriteFile(live, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	liveID, err := mediameta.Stat(live)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	liveRec := sampleRecord(liveID.Path, liveID.Size, liveID.ModTime)
	liveRec.Identity = liveID
	if err := store.Put(ctx, liveRec); err != nil {
		t.Fatalf("Put live: %v", err)
	}

	gone := sampleRecord(filepath.Join(dir, "gone.flac"), 10, time.Now())
	if err := store.Put(ctx, gone); err != nil {
		t.Fatalf("Put gone: %v", err)
	}

	removed, err := store.Clean(ctx)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	if _, ok, err := store.Get(ctx, liveID); err != nil || !ok {
		t.Errorf("live entry should survive clean: ok=%v err=%v", ok, err)
	}
}

func TestInvalidateMissingDropsUnknownPaths(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	inside := filepath.Join(dir, "library", "keep.flac")
	outside := filepath.Join(dir, "elsewhere", "moved.flac")
	testsupport.WriteAudioFile(t, inside, 256)
	testsupport.WriteAudioFile(t, outside, 256)

	for _, path := range []string{inside, outside} {
		id, err := mediameta.Stat(path)
		if err != nil {
			t.Fatalf("Stat %s: %v", path, err)
		}
		rec := sampleRecord(id.Path, id.Size, id.ModTime)
		rec.Identity = id
		if err := store.Put(ctx, rec); err != nil {
			t.Fatalf("Put %s: %v", path, err)
		}
	}
	insideID, err := mediameta.Stat(inside)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	// Clean leaves both alone: the files exist and match their identities.
	if removed, err := store.Clean(ctx); err != nil || removed != 0 {
		t.Fatalf("Clean: removed=%d err=%v, want 0 removals", removed, err)
	}

	removed, err := store.InvalidateMissing(ctx, []string{insideID.Path})
	if err != nil {
		t.Fatalf("InvalidateMissing: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	if _, ok, err := store.Get(ctx, insideID); err != nil || !ok {
		t.Errorf("in-set entry should survive: ok=%v err=%v", ok, err)
	}
	outsideID, err := mediameta.Stat(outside)
	if err != nil {
		t.Fatalf("Stat outside: %v", err)
	}
	if _, ok, err := store.Get(ctx, outsideID); err != nil || ok {
		t.Errorf("out-of-set entry should be purged even though its file exists: ok=%v err=%v", ok, err)
	}
}

func TestClearAndStats(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, path := range []string{"/music/a.flac", "/music/b.mp3", "/music/c.opus"} {
		if err := store.Put(ctx, sampleRecord(path, 100, time.Now())); err != nil {
			t.Fatalf("Put %s: %v", path, err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 3 {
		t.Errorf("entries = %d, want 3", stats.Entries)
	}
	if stats.DatabaseSize <= 0 {
		t.Error("database size should be positive")
	}
	if stats.NewestEntry.IsZero() {
		t.Error("newest entry timestamp should be set")
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 3 {
		t.Errorf("cleared = %d, want 3", removed)
	}

	stats, err = store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats after clear: %v", err)
	}
	if stats.Entries != 0 {
		t.Errorf("entries after clear = %d, want 0", stats.Entries)
	}
}
