// Package probe extracts tags and audio parameters from files by invoking
// ffprobe and mapping its JSON output into metadata records.
package probe
