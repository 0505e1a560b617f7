// Package metacache persists extracted audio metadata in SQLite so repeat
// runs skip ffprobe for files that have not changed.
package metacache
